package sqlite

import (
	"context"
)

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	// Layout matches database files produced by earlier releases so that a
	// downloaded backup can be uploaded again. Foreign keys are declared but
	// not enforced: SQLite leaves foreign_keys off and answers for unknown users
	// are accepted.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			section TEXT NOT NULL,
			question TEXT NOT NULL,
			-- JSON array of answer strings.
			answers TEXT NOT NULL,
			correct INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			test_id INTEGER NOT NULL,
			user_answer INTEGER,
			is_correct BOOLEAN NOT NULL,
			answered_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users (id),
			FOREIGN KEY (test_id) REFERENCES tests (id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_user_id ON results (user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_results_test_id ON results (test_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tests_section ON tests (section);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
