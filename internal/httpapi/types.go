package httpapi

import (
	"encoding/json"

	"quiz-tracker/internal/quiz"
)

type createUserRequest struct {
	Username any `json:"username"`
}

type createUserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type batchAddResponse struct {
	Message string      `json:"message"`
	Added   int         `json:"added"`
	Tests   []quiz.Test `json:"tests"`
}

// recordAnswerRequest keeps raw values: clients send numbers or numeric strings.
type recordAnswerRequest struct {
	UserID     json.RawMessage `json:"userId"`
	TestID     json.RawMessage `json:"testId"`
	UserAnswer json.RawMessage `json:"userAnswer"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
