package quiz

import (
	"context"
	"errors"
	"io"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrTestNotFound      = errors.New("test not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrBackupUnsupported = errors.New("database backup is not supported by this storage engine")
	ErrInvalidBackup     = errors.New("invalid database backup")
)

type UserRepository interface {
	// CreateUser ignores duplicate usernames and returns the stored row.
	CreateUser(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
}

type TestRepository interface {
	AddTest(ctx context.Context, input TestInput) (Test, error)
	GetTest(ctx context.Context, id int64) (Test, error)
	ListTests(ctx context.Context) ([]Test, error)
	ListTestsBySection(ctx context.Context, section string) ([]Test, error)
	// ListRandomTests is not reproducible: every call may return a different sample.
	ListRandomTests(ctx context.Context, limit int) ([]Test, error)
	ListSections(ctx context.Context) ([]string, error)
}

type ResultRepository interface {
	SaveResult(ctx context.Context, userID, testID int64, userAnswer int, isCorrect bool) (int64, error)
	// ListUserResults returns newest attempts first. testID <= 0 means all tests.
	ListUserResults(ctx context.Context, userID, testID int64) ([]ResultDetail, error)
	GetUserStats(ctx context.Context, userID int64) (UserStats, error)
}

type Store interface {
	UserRepository
	TestRepository
	ResultRepository
	Close() error
}

// BackupStore moves the whole database as an opaque file.
type BackupStore interface {
	Export(ctx context.Context, w io.Writer) error
	Restore(ctx context.Context, r io.Reader) error
}
