package quiz

import (
	"errors"
	"testing"

	"quiz-tracker/internal/opentdb"
)

func TestBuildTestsUnescapesAndGroupsByCategory(t *testing.T) {
	raw := []opentdb.RawQuestion{
		{
			Category:         "Science &amp; Nature",
			Question:         "2 &amp; 2 = ?",
			CorrectAnswer:    "4 &lt; 5",
			IncorrectAnswers: []string{"1", "2", "3"},
		},
		{
			Question:         "No category",
			CorrectAnswer:    "yes",
			IncorrectAnswers: []string{"no"},
		},
	}

	tests := BuildTests(raw)
	if len(tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(tests))
	}

	item := tests[0]
	if item.Section != "Science & Nature" {
		t.Fatalf("section not unescaped, got %q", item.Section)
	}
	if item.Question != "2 & 2 = ?" {
		t.Fatalf("question not unescaped, got %q", item.Question)
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("built test should be valid: %v", err)
	}
	if item.Answers[item.CorrectIndex()] != "4 < 5" {
		t.Fatalf("correct index points at %q", item.Answers[item.CorrectIndex()])
	}

	if tests[1].Section != "General" {
		t.Fatalf("expected fallback section General, got %q", tests[1].Section)
	}
}

func TestTestInputValidate(t *testing.T) {
	cases := []struct {
		name  string
		input TestInput
		ok    bool
	}{
		{"valid", TestInput{Section: "Math", Question: "q", Answers: []string{"a", "b"}, Correct: IntPtr(1)}, true},
		{"correct zero", TestInput{Section: "Math", Question: "q", Answers: []string{"a"}, Correct: IntPtr(0)}, true},
		{"blank section", TestInput{Section: "  ", Question: "q", Answers: []string{"a"}, Correct: IntPtr(0)}, false},
		{"blank question", TestInput{Section: "Math", Answers: []string{"a"}, Correct: IntPtr(0)}, false},
		{"no answers", TestInput{Section: "Math", Question: "q", Correct: IntPtr(0)}, false},
		{"missing correct", TestInput{Section: "Math", Question: "q", Answers: []string{"a"}}, false},
		{"negative correct", TestInput{Section: "Math", Question: "q", Answers: []string{"a"}, Correct: IntPtr(-1)}, false},
		{"correct past end", TestInput{Section: "Math", Question: "q", Answers: []string{"a", "b"}, Correct: IntPtr(2)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}
