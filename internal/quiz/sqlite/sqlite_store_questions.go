package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-tracker/internal/quiz"
)

const testColumns = `id, section, question, answers, correct, created_at`

func (s *SQLiteStore) AddTest(ctx context.Context, input quiz.TestInput) (quiz.Test, error) {
	answersJSON, err := json.Marshal(input.Answers)
	if err != nil {
		return quiz.Test{}, err
	}

	createdAt := time.Now().UTC().Truncate(time.Second)
	insertResult, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tests (section, question, answers, correct, created_at) VALUES (?, ?, ?, ?, ?)`,
		input.Section,
		input.Question,
		string(answersJSON),
		input.CorrectIndex(),
		createdAt,
	)
	if err != nil {
		return quiz.Test{}, err
	}

	id, err := insertResult.LastInsertId()
	if err != nil {
		return quiz.Test{}, err
	}

	return quiz.Test{
		ID:        id,
		Section:   input.Section,
		Question:  input.Question,
		Answers:   append([]string(nil), input.Answers...),
		Correct:   input.CorrectIndex(),
		CreatedAt: createdAt,
	}, nil
}

func (s *SQLiteStore) GetTest(ctx context.Context, id int64) (quiz.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests WHERE id = ?`, id)
	if err != nil {
		return quiz.Test{}, err
	}
	tests, err := scanTests(rows)
	if err != nil {
		return quiz.Test{}, err
	}
	if len(tests) == 0 {
		return quiz.Test{}, quiz.ErrTestNotFound
	}
	return tests[0], nil
}

func (s *SQLiteStore) ListTests(ctx context.Context) ([]quiz.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests ORDER BY section, id`)
	if err != nil {
		return nil, err
	}
	return scanTests(rows)
}

func (s *SQLiteStore) ListTestsBySection(ctx context.Context, section string) ([]quiz.Test, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+testColumns+` FROM tests WHERE section = ? ORDER BY id`,
		section,
	)
	if err != nil {
		return nil, err
	}
	return scanTests(rows)
}

func (s *SQLiteStore) ListRandomTests(ctx context.Context, limit int) ([]quiz.Test, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+testColumns+` FROM tests ORDER BY RANDOM() LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return scanTests(rows)
}

func (s *SQLiteStore) ListSections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT section FROM tests ORDER BY section`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := make([]string, 0)
	for rows.Next() {
		var section string
		if err := rows.Scan(&section); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, rows.Err()
}

func scanTests(rows *sql.Rows) ([]quiz.Test, error) {
	defer rows.Close()

	tests := make([]quiz.Test, 0)
	for rows.Next() {
		var (
			test        quiz.Test
			answersJSON string
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&test.ID, &test.Section, &test.Question, &answersJSON, &test.Correct, &createdAt); err != nil {
			return nil, err
		}
		answers, err := decodeAnswers(answersJSON)
		if err != nil {
			return nil, fmt.Errorf("test %d: %w", test.ID, err)
		}
		test.Answers = answers
		test.CreatedAt = createdAt.Time
		tests = append(tests, test)
	}

	return tests, rows.Err()
}

func decodeAnswers(answersJSON string) ([]string, error) {
	var answers []string
	if err := json.Unmarshal([]byte(answersJSON), &answers); err != nil {
		return nil, errors.Join(errors.New("decode answers"), err)
	}
	if answers == nil {
		answers = make([]string, 0)
	}
	return answers, nil
}
