package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quiz-tracker/internal/quiz"
)

// SaveResult appends one attempt. Results are never updated or deleted, and a
// user may answer the same test any number of times.
func (s *SQLiteStore) SaveResult(ctx context.Context, userID, testID int64, userAnswer int, isCorrect bool) (int64, error) {
	insertResult, err := s.db.ExecContext(
		ctx,
		`INSERT INTO results (user_id, test_id, user_answer, is_correct, answered_at) VALUES (?, ?, ?, ?, ?)`,
		userID,
		testID,
		userAnswer,
		isCorrect,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return insertResult.LastInsertId()
}

func (s *SQLiteStore) ListUserResults(ctx context.Context, userID, testID int64) ([]quiz.ResultDetail, error) {
	query := `SELECT r.id, r.user_id, r.test_id, r.user_answer, r.is_correct, r.answered_at,
			t.section, t.question, t.answers, t.correct
		 FROM results r
		 JOIN tests t ON r.test_id = t.id
		 WHERE r.user_id = ?`
	args := []any{userID}
	if testID > 0 {
		query += ` AND r.test_id = ?`
		args = append(args, testID)
	}
	query += ` ORDER BY r.answered_at DESC, r.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]quiz.ResultDetail, 0)
	for rows.Next() {
		var (
			item        quiz.ResultDetail
			userAnswer  sql.NullInt64
			answeredAt  sql.NullTime
			answersJSON string
		)
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.TestID,
			&userAnswer,
			&item.IsCorrect,
			&answeredAt,
			&item.Section,
			&item.Question,
			&answersJSON,
			&item.Correct,
		); err != nil {
			return nil, err
		}

		answers, err := decodeAnswers(answersJSON)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", item.ID, err)
		}
		item.UserAnswer = int(userAnswer.Int64)
		item.AnsweredAt = answeredAt.Time
		item.Answers = answers
		results = append(results, item)
	}

	return results, rows.Err()
}

// GetUserStats aggregates in SQL so callers never reduce raw rows. Section
// totals add up to the overall total as long as every result points at an
// existing test, which RecordAnswer guarantees and nothing deletes tests.
func (s *SQLiteStore) GetUserStats(ctx context.Context, userID int64) (quiz.UserStats, error) {
	var total, correct, unique int
	if err := s.db.QueryRowContext(
		ctx,
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT test_id)
		 FROM results
		 WHERE user_id = ?`,
		userID,
	).Scan(&total, &correct, &unique); err != nil {
		return quiz.UserStats{}, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT
			t.section,
			COUNT(*),
			COALESCE(SUM(CASE WHEN r.is_correct THEN 1 ELSE 0 END), 0)
		 FROM results r
		 JOIN tests t ON r.test_id = t.id
		 WHERE r.user_id = ?
		 GROUP BY t.section
		 ORDER BY t.section`,
		userID,
	)
	if err != nil {
		return quiz.UserStats{}, err
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
