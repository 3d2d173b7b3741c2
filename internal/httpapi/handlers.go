package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"quiz-tracker/internal/quiz"
)

const (
	maxJSONBodyBytes   = 1 << 20
	maxUploadBodyBytes = 256 << 20
)

func (a *API) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var request createUserRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	username, ok := request.Username.(string)
	if !ok || strings.TrimSpace(username) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username is required"})
		return
	}

	user, err := a.service.CreateUser(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createUserResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

func (a *API) HandleListTests(w http.ResponseWriter, r *http.Request) {
	var (
		tests []quiz.Test
		err   error
	)

	switch section := r.URL.Query().Get("section"); {
	case parseBoolParam(r, "random"):
		limit, parseErr := parseIntParam(r, "limit")
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: parseErr.Error()})
			return
		}
		tests, err = a.service.ListRandomTests(r.Context(), limit)
	case section != "":
		tests, err = a.service.ListTestsBySection(r.Context(), section)
	default:
		tests, err = a.service.ListTests(r.Context())
	}

	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

// HandleAddTests accepts one test object or an array of them. A single object
// must be valid; arrays follow the service's batch policy.
func (a *API) HandleAddTests(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload quiz.TestPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if !payload.Batch {
		test, err := a.service.AddTest(r.Context(), payload.Candidates[0].Input)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, test)
		return
	}

	result, err := a.service.AddTests(r.Context(), payload.Candidates)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, batchAddResponse{
		Message: fmt.Sprintf("Added %d tests successfully", result.Added),
		Added:   result.Added,
		Tests:   result.Tests,
	})
}

func (a *API) HandleListResults(w http.ResponseWriter, r *http.Request) {
	userID, ok, err := parseIDParam(r, "userId")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId is required"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if r.URL.Query().Get("type") == "stats" {
		stats, err := a.service.UserStats(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}

	testID, _, err := parseIDParam(r, "testId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	results, err := a.service.UserResults(r.Context(), userID, testID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *API) HandleRecordAnswer(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var request recordAnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if isBlankID(request.UserID) || isBlankID(request.TestID) || len(request.UserAnswer) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required fields"})
		return
	}

	userID, userErr := parseNumeric(request.UserID)
	testID, testErr := parseNumeric(request.TestID)
	userAnswer, answerErr := parseNumeric(request.UserAnswer)
	if userErr != nil || testErr != nil || answerErr != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid numeric values"})
		return
	}

	outcome, err := a.service.RecordAnswer(r.Context(), userID, testID, int(userAnswer))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

func (a *API) HandleListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := a.service.ListSections(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

type countingWriter struct {
	w http.ResponseWriter
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (a *API) HandleDownloadDatabase(w http.ResponseWriter, r *http.Request) {
	if !a.service.SupportsBackup() {
		writeServiceError(w, r, quiz.ErrBackupUnsupported)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="database.sqlite"`)
	w.Header().Set("Content-Type", "application/x-sqlite3")

	counter := &countingWriter{w: w}
	if err := a.service.ExportDatabase(r.Context(), counter); err != nil {
		if counter.n > 0 {
			// Headers are gone; the client sees a truncated file.
			return
		}
		w.Header().Del("Content-Disposition")
		writeServiceError(w, r, err)
	}
}

func (a *API) HandleUploadDatabase(w http.ResponseWriter, r *http.Request) {
	if !a.service.SupportsBackup() {
		writeServiceError(w, r, quiz.ErrBackupUnsupported)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodyBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "uploaded file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no file uploaded"})
		return
	}
	defer file.Close()

	if err := a.service.RestoreDatabase(r.Context(), file); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Database uploaded successfully."})
}
