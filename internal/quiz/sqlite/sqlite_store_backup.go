package sqlite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"quiz-tracker/internal/quiz"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// Export writes a consistent snapshot of the live database. VACUUM INTO runs
// on the store's single connection, so no writer interleaves with the copy.
func (s *SQLiteStore) Export(ctx context.Context, w io.Writer) error {
	snapshot := filepath.Join(os.TempDir(), "quiz-export-"+uuid.NewString()+".sqlite")
	defer os.Remove(snapshot)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return fmt.Errorf("sqlite export: %w", err)
	}

	file, err := os.Open(snapshot)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}

// Restore replaces users, tests and results with the contents of an uploaded
// database file. The copy happens in one transaction: a file that is not a
// SQLite database or lacks the expected tables leaves the live data untouched.
func (s *SQLiteStore) Restore(ctx context.Context, r io.Reader) error {
	incoming := filepath.Join(os.TempDir(), "quiz-restore-"+uuid.NewString()+".sqlite")
	defer os.Remove(incoming)

	if err := spoolBackup(incoming, r); err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `ATTACH DATABASE ? AS incoming`, incoming); err != nil {
		return fmt.Errorf("%w: %v", quiz.ErrInvalidBackup, err)
	}
	defer conn.ExecContext(context.Background(), `DETACH DATABASE incoming`)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM results`,
		`DELETE FROM tests`,
		`DELETE FROM users`,
		`INSERT INTO users (id, username, created_at)
		 SELECT id, username, created_at FROM incoming.users`,
		`INSERT INTO tests (id, section, question, answers, correct, created_at)
		 SELECT id, section, question, answers, correct, created_at FROM incoming.tests`,
		`INSERT INTO results (id, user_id, test_id, user_answer, is_correct, answered_at)
		 SELECT id, user_id, test_id, user_answer, is_correct, answered_at FROM incoming.results`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %v", quiz.ErrInvalidBackup, err)
		}
	}

	return tx.Commit()
}

func spoolBackup(path string, r io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	header := make([]byte, len(sqliteHeader))
	n, err := io.ReadFull(r, header)
	if err != nil || !bytes.Equal(header[:n], sqliteHeader) {
		_ = file.Close()
		return fmt.Errorf("%w: not a SQLite database file", quiz.ErrInvalidBackup)
	}

	if _, err := file.Write(header); err != nil {
		_ = file.Close()
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
