package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"quiz-tracker/internal/quiz"
)

const testColumns = `id, section, question, answers, correct, created_at`

func (s *PostgresStore) AddTest(ctx context.Context, input quiz.TestInput) (quiz.Test, error) {
	answersJSON, err := json.Marshal(input.Answers)
	if err != nil {
		return quiz.Test{}, err
	}

	test := quiz.Test{
		Section:  input.Section,
		Question: input.Question,
		Answers:  append([]string(nil), input.Answers...),
		Correct:  input.CorrectIndex(),
	}
	if err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO tests (section, question, answers, correct) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		test.Section,
		test.Question,
		string(answersJSON),
		test.Correct,
	).Scan(&test.ID, &test.CreatedAt); err != nil {
		return quiz.Test{}, wrapPgError(err)
	}
	test.CreatedAt = test.CreatedAt.UTC()
	return test, nil
}

func (s *PostgresStore) GetTest(ctx context.Context, id int64) (quiz.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests WHERE id = $1`, id)
	if err != nil {
		return quiz.Test{}, wrapPgError(err)
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

func (s *PostgresStore) ListTests(ctx context.Context) ([]quiz.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests ORDER BY section, id`)
	if err != nil {
		return nil, wrapPgError(err)
	}
	return scanTests(rows)
}

func (s *PostgresStore) ListTestsBySection(ctx context.Context, section string) ([]quiz.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests WHERE section = $1 ORDER BY id`, section)
	if err != nil {
		return nil, wrapPgError(err)
	}
	return scanTests(rows)
}

func (s *PostgresStore) ListRandomTests(ctx context.Context, limit int) ([]quiz.Test, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+testColumns+` FROM tests ORDER BY random() LIMIT $1`, limit)
	if err != nil {
		return nil, wrapPgError(err)
	}
	return scanTests(rows)
}

func (s *PostgresStore) ListSections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT section FROM tests ORDER BY section`)
	if err != nil {
		return nil, wrapPgError(err)
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
		)
		if err := rows.Scan(&test.ID, &test.Section, &test.Question, &answersJSON, &test.Correct, &test.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answersJSON), &test.Answers); err != nil {
			return nil, fmt.Errorf("test %d: decode answers: %w", test.ID, err)
		}
		if test.Answers == nil {
			test.Answers = make([]string, 0)
		}
		test.CreatedAt = test.CreatedAt.UTC()
		tests = append(tests, test)
	}
	return tests, rows.Err()
}
