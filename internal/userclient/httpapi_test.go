package userclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-tracker/internal/quiz"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestDoJSONReturnsServiceUnavailable(t *testing.T) {
	client := NewHTTPClient("http://example.test", &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial error")
		}),
	})

	err := client.doJSON(context.Background(), http.MethodGet, "/health", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable wrapper, got %v", err)
	}
}

func TestDoJSONReturnsAPIErrorMessageFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "bad request payload"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	err := client.doJSON(context.Background(), http.MethodGet, "/anything", nil, nil)
	if err == nil {
		t.Fatalf("expected API error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status code = %d, want %d", apiErr.StatusCode, http.StatusBadRequest)
	}
	if apiErr.Message != "bad request payload" {
		t.Fatalf("message = %q, want %q", apiErr.Message, "bad request payload")
	}
}

func TestListTestsBySectionEscapesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tests" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("section"); got != "Science & Nature" {
			t.Errorf("section query = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]quiz.Test{{ID: 3, Section: "Science & Nature", Answers: []string{"a"}}})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	tests, err := client.ListTestsBySection(context.Background(), "Science & Nature")
	if err != nil {
		t.Fatalf("ListTestsBySection failed: %v", err)
	}
	if len(tests) != 1 || tests[0].ID != 3 {
		t.Fatalf("unexpected tests: %+v", tests)
	}
}

func TestRecordAnswerSendsNumericBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/results" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["userId"] != float64(4) || body["testId"] != float64(9) || body["userAnswer"] != float64(2) {
			t.Errorf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(quiz.AnswerOutcome{ID: 1, IsCorrect: false, CorrectAnswer: 1})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	outcome, err := client.RecordAnswer(context.Background(), 4, 9, 2)
	if err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}
	if outcome.IsCorrect || outcome.CorrectAnswer != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestRandomTestsOmitsLimitWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("random") != "true" {
			t.Errorf("random query = %q", r.URL.Query().Get("random"))
		}
		if r.URL.Query().Has("limit") {
			t.Errorf("limit must be omitted, got %q", r.URL.Query().Get("limit"))
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.Client())
	if _, err := client.ListRandomTests(context.Background(), 0); err != nil {
		t.Fatalf("ListRandomTests failed: %v", err)
	}
}
