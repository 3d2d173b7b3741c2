package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	const op = "postgres.NewPostgresStore"

	if dsn == "" {
		return nil, fmt.Errorf("%s: database url is required", op)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", op, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: schema: %w", op, wrapPgError(err))
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS tests (
			id BIGSERIAL PRIMARY KEY,
			section TEXT NOT NULL,
			question TEXT NOT NULL,
			answers TEXT NOT NULL,
			correct INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		// No foreign keys: answers from unknown users are accepted, as on SQLite.
		`CREATE TABLE IF NOT EXISTS results (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			test_id BIGINT NOT NULL,
			user_answer INTEGER,
			is_correct BOOLEAN NOT NULL,
			answered_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_user_id ON results (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_test_id ON results (test_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tests_section ON tests (section)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// wrapPgError keeps the SQLSTATE code visible in logs.
func wrapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s (%s): %w", pgErr.Code, pgErr.Message, err)
	}
	return err
}
