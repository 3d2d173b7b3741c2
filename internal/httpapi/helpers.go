package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"quiz-tracker/internal/quiz"
)

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quiz.ErrValidation),
		errors.Is(err, quiz.ErrInvalidUsername),
		errors.Is(err, quiz.ErrInvalidBackup):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, quiz.ErrTestNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "test not found"})
	case errors.Is(err, quiz.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
	case errors.Is(err, quiz.ErrBackupUnsupported):
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: err.Error()})
	default:
		log.Printf("[%s] %s %s failed: %v", chiMiddleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func parseBoolParam(r *http.Request, key string) bool {
	value := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	return value == "1" || value == "true" || value == "yes"
}

// parseIntParam returns 0 when the parameter is absent.
func parseIntParam(r *http.Request, key string) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return parsed, nil
}

func parseIDParam(r *http.Request, key string) (int64, bool, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0, false, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s", key)
	}
	return parsed, true, nil
}

func isMissing(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isBlankID treats absent, null, 0 and "" as not provided.
func isBlankID(raw json.RawMessage) bool {
	if isMissing(raw) {
		return true
	}
	switch string(bytes.TrimSpace(raw)) {
	case "0", `""`, "false":
		return true
	}
	return false
}

// parseNumeric accepts a JSON number or a string holding one. Fractions are
// truncated toward zero.
func parseNumeric(raw json.RawMessage) (int64, error) {
	text := string(bytes.TrimSpace(raw))
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
	}

	if value, err := strconv.ParseInt(text, 10, 64); err == nil {
		return value, nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	if value >= 1<<63 || value < -(1<<63) {
		return 0, fmt.Errorf("out of range: %q", text)
	}
	return int64(value), nil
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
