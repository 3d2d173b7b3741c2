package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"quiz-tracker/internal/quiz"
)

var ErrServiceUnavailable = errors.New("quiz service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

type loginRequest struct {
	Username string `json:"username"`
}

type answerRequest struct {
	UserID     int64 `json:"userId"`
	TestID     int64 `json:"testId"`
	UserAnswer int   `json:"userAnswer"`
}

// ImportResult covers both response shapes of POST /api/tests.
type ImportResult struct {
	Message string      `json:"message"`
	Added   int         `json:"added"`
	Tests   []quiz.Test `json:"tests"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultServer
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Login registers the username or returns the existing account.
func (c *HTTPClient) Login(ctx context.Context, username string) (quiz.User, error) {
	var user quiz.User
	if err := c.doJSON(ctx, http.MethodPost, "/api/users", loginRequest{Username: username}, &user); err != nil {
		return quiz.User{}, err
	}
	return user, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]quiz.User, error) {
	var users []quiz.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) ListSections(ctx context.Context) ([]string, error) {
	var sections []string
	if err := c.doJSON(ctx, http.MethodGet, "/api/sections", nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (c *HTTPClient) ListTestsBySection(ctx context.Context, section string) ([]quiz.Test, error) {
	if strings.TrimSpace(section) == "" {
		return nil, errors.New("section is required")
	}

	query := url.Values{}
	query.Set("section", section)

	var tests []quiz.Test
	if err := c.doJSON(ctx, http.MethodGet, "/api/tests?"+query.Encode(), nil, &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

func (c *HTTPClient) ListRandomTests(ctx context.Context, limit int) ([]quiz.Test, error) {
	query := url.Values{}
	query.Set("random", "true")
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var tests []quiz.Test
	if err := c.doJSON(ctx, http.MethodGet, "/api/tests?"+query.Encode(), nil, &tests); err != nil {
		return nil, err
	}
	return tests, nil
}

func (c *HTTPClient) RecordAnswer(ctx context.Context, userID, testID int64, answer int) (quiz.AnswerOutcome, error) {
	request := answerRequest{
		UserID:     userID,
		TestID:     testID,
		UserAnswer: answer,
	}

	var outcome quiz.AnswerOutcome
	if err := c.doJSON(ctx, http.MethodPost, "/api/results", request, &outcome); err != nil {
		return quiz.AnswerOutcome{}, err
	}
	return outcome, nil
}

func (c *HTTPClient) UserStats(ctx context.Context, userID int64) (quiz.UserStats, error) {
	query := url.Values{}
	query.Set("userId", strconv.FormatInt(userID, 10))
	query.Set("type", "stats")

	var stats quiz.UserStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/results?"+query.Encode(), nil, &stats); err != nil {
		return quiz.UserStats{}, err
	}
	return stats, nil
}

func (c *HTTPClient) UserResults(ctx context.Context, userID int64) ([]quiz.ResultDetail, error) {
	query := url.Values{}
	query.Set("userId", strconv.FormatInt(userID, 10))

	var results []quiz.ResultDetail
	if err := c.doJSON(ctx, http.MethodGet, "/api/results?"+query.Encode(), nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *HTTPClient) AddTests(ctx context.Context, payload quiz.TestPayload) (ImportResult, error) {
	if !payload.Batch {
		var test quiz.Test
		if err := c.doJSON(ctx, http.MethodPost, "/api/tests", payload, &test); err != nil {
			return ImportResult{}, err
		}
		return ImportResult{Added: 1, Tests: []quiz.Test{test}}, nil
	}

	var result ImportResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/tests", payload, &result); err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
