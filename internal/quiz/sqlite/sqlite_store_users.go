package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"quiz-tracker/internal/quiz"
)

// CreateUser relies on INSERT OR IGNORE for the unique username, then reads
// the row back so duplicates resolve to the existing id.
func (s *SQLiteStore) CreateUser(ctx context.Context, username string) (quiz.User, error) {
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO users (username) VALUES (?)`,
		username,
	); err != nil {
		return quiz.User{}, err
	}

	return s.scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, username, created_at FROM users WHERE username = ?`,
		username,
	))
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]quiz.User, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, username, created_at FROM users ORDER BY username`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]quiz.User, 0)
	for rows.Next() {
		var (
			user      quiz.User
			createdAt sql.NullTime
		)
		if err := rows.Scan(&user.ID, &user.Username, &createdAt); err != nil {
			return nil, err
		}
		user.CreatedAt = createdAt.Time
		users = append(users, user)
	}

	return users, rows.Err()
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (quiz.User, error) {
	return s.scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, username, created_at FROM users WHERE id = ?`,
		id,
	))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (quiz.User, error) {
	var (
		user      quiz.User
		createdAt sql.NullTime
	)
	if err := row.Scan(&user.ID, &user.Username, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.User{}, quiz.ErrUserNotFound
		}
		return quiz.User{}, err
	}
	user.CreatedAt = createdAt.Time
	return user, nil
}
