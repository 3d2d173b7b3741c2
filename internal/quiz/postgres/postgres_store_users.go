package postgres

import (
	"context"
	"database/sql"
	"errors"

	"quiz-tracker/internal/quiz"
)

func (s *PostgresStore) CreateUser(ctx context.Context, username string) (quiz.User, error) {
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (username) VALUES ($1) ON CONFLICT (username) DO NOTHING`,
		username,
	); err != nil {
		return quiz.User{}, wrapPgError(err)
	}

	return scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, username, created_at FROM users WHERE username = $1`,
		username,
	))
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]quiz.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, wrapPgError(err)
	}
	defer rows.Close()

	users := make([]quiz.User, 0)
	for rows.Next() {
		var user quiz.User
		if err := rows.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (quiz.User, error) {
	return scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, username, created_at FROM users WHERE id = $1`,
		id,
	))
}

func scanUser(row *sql.Row) (quiz.User, error) {
	var user quiz.User
	if err := row.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.User{}, quiz.ErrUserNotFound
		}
		return quiz.User{}, wrapPgError(err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
