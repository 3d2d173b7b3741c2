package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"quiz-tracker/internal/quiz"
)

func (s *PostgresStore) SaveResult(ctx context.Context, userID, testID int64, userAnswer int, isCorrect bool) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO results (user_id, test_id, user_answer, is_correct) VALUES ($1, $2, $3, $4) RETURNING id`,
		userID,
		testID,
		userAnswer,
		isCorrect,
	).Scan(&id); err != nil {
		return 0, wrapPgError(err)
	}
	return id, nil
}

func (s *PostgresStore) ListUserResults(ctx context.Context, userID, testID int64) ([]quiz.ResultDetail, error) {
	query := `SELECT r.id, r.user_id, r.test_id, r.user_answer, r.is_correct, r.answered_at,
			t.section, t.question, t.answers, t.correct
		 FROM results r
		 JOIN tests t ON r.test_id = t.id
		 WHERE r.user_id = $1`
	args := []any{userID}
	if testID > 0 {
		query += ` AND r.test_id = $2`
		args = append(args, testID)
	}
	query += ` ORDER BY r.answered_at DESC, r.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapPgError(err)
	}
	defer rows.Close()

	results := make([]quiz.ResultDetail, 0)
	for rows.Next() {
		var (
			item        quiz.ResultDetail
			userAnswer  sql.NullInt64
			answersJSON string
		)
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.TestID,
			&userAnswer,
			&item.IsCorrect,
			&item.AnsweredAt,
			&item.Section,
			&item.Question,
			&answersJSON,
			&item.Correct,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answersJSON), &item.Answers); err != nil {
			return nil, fmt.Errorf("result %d: decode answers: %w", item.ID, err)
		}
		item.UserAnswer = int(userAnswer.Int64)
		item.AnsweredAt = item.AnsweredAt.UTC()
		results = append(results, item)
	}
	return results, rows.Err()
}

func (s *PostgresStore) GetUserStats(ctx context.Context, userID int64) (quiz.UserStats, error) {
	var total, correct, unique int
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT test_id)
		 FROM results
		 WHERE user_id = $1`,
		userID,
	).Scan(&total, &correct, &unique); err != nil {
		return quiz.UserStats{}, wrapPgError(err)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT
			t.section,
			COUNT(*),
			COALESCE(SUM(CASE WHEN r.is_correct THEN 1 ELSE 0 END), 0)
		 FROM results r
		 JOIN tests t ON r.test_id = t.id
		 WHERE r.user_id = $1
		 GROUP BY t.section
		 ORDER BY t.section`,
		userID,
	)
	if err != nil {
		return quiz.UserStats{}, wrapPgError(err)
	}
	defer rows.Close()

	sections := make([]quiz.SectionStats, 0)
	for rows.Next() {
		var item quiz.SectionStats
		if err := rows.Scan(&item.Section, &item.TotalAnswered, &item.CorrectAnswers); err != nil {
			return quiz.UserStats{}, err
		}
		sections = append(sections, item)
	}
	if err := rows.Err(); err != nil {
		return quiz.UserStats{}, err
	}

	return quiz.NewUserStats(total, correct, unique, sections), nil
}
