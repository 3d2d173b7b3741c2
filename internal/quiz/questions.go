package quiz

import (
	"fmt"
	"html"
	"math/rand"
	"strings"
	"time"

	"quiz-tracker/internal/opentdb"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Test is a single multiple-choice question. Correct is a 0-based index into Answers.
type Test struct {
	ID        int64     `json:"id"`
	Section   string    `json:"section"`
	Question  string    `json:"question"`
	Answers   []string  `json:"answers"`
	Correct   int       `json:"correct"`
	CreatedAt time.Time `json:"created_at"`
}

// TestInput is a candidate test as submitted by a client or read from a file.
// Correct is a pointer so a missing index can be told apart from index 0.
type TestInput struct {
	Section  string   `json:"section" yaml:"section"`
	Question string   `json:"question" yaml:"question"`
	Answers  []string `json:"answers" yaml:"answers"`
	Correct  *int     `json:"correct" yaml:"correct"`
}

// ResultDetail is one recorded attempt joined with the test it answers.
type ResultDetail struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TestID     int64     `json:"test_id"`
	UserAnswer int       `json:"user_answer"`
	IsCorrect  bool      `json:"is_correct"`
	AnsweredAt time.Time `json:"answered_at"`
	Section    string    `json:"section"`
	Question   string    `json:"question"`
	Answers    []string  `json:"answers"`
	Correct    int       `json:"correct"`
}

type AnswerOutcome struct {
	ID            int64 `json:"id"`
	IsCorrect     bool  `json:"isCorrect"`
	CorrectAnswer int   `json:"correctAnswer"`
}

func (in TestInput) Validate() error {
	if strings.TrimSpace(in.Section) == "" {
		return fmt.Errorf("%w: section is required", ErrValidation)
	}
	if strings.TrimSpace(in.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrValidation)
	}
	if len(in.Answers) == 0 {
		return fmt.Errorf("%w: answers must contain at least one entry", ErrValidation)
	}
	if in.Correct == nil {
		return fmt.Errorf("%w: correct is required", ErrValidation)
	}
	if *in.Correct < 0 || *in.Correct >= len(in.Answers) {
		return fmt.Errorf("%w: correct must be between 0 and %d", ErrValidation, len(in.Answers)-1)
	}
	return nil
}

// CorrectIndex returns the correct answer index; callers validate first.
func (in TestInput) CorrectIndex() int {
	if in.Correct == nil {
		return -1
	}
	return *in.Correct
}

func IntPtr(v int) *int {
	return &v
}

// BuildTests converts OpenTDB questions into test inputs grouped by category.
// Answer order is shuffled so the correct answer is not always last.
func BuildTests(raw []opentdb.RawQuestion) []TestInput {
	tests := make([]TestInput, 0, len(raw))
	for _, item := range raw {
		tests = append(tests, buildTest(item))
	}
	return tests
}

func buildTest(raw opentdb.RawQuestion) TestInput {
	type choice struct {
		text      string
		isCorrect bool
	}

	choices := make([]choice, 0, len(raw.IncorrectAnswers)+1)
	for _, incorrect := range raw.IncorrectAnswers {
		choices = append(choices, choice{
			text:      html.UnescapeString(incorrect),
			isCorrect: false,
		})
	}

	choices = append(choices, choice{
		text:      html.UnescapeString(raw.CorrectAnswer),
		isCorrect: true,
	})

	rand.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})

	answers := make([]string, len(choices))
	correctIndex := -1
	for idx, candidate := range choices {
		answers[idx] = candidate.text
		if candidate.isCorrect {
			correctIndex = idx
		}
	}

	section := html.UnescapeString(strings.TrimSpace(raw.Category))
	if section == "" {
		section = "General"
	}

	return TestInput{
		Section:  section,
		Question: html.UnescapeString(raw.Question),
		Answers:  answers,
		Correct:  IntPtr(correctIndex),
	}
}
