package quiz

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

const defaultRandomLimit = 20

type Options struct {
	Cache              StatsCache
	BatchPolicy        BatchPolicy
	Backups            BackupStore
	DefaultRandomLimit int
}

type Service struct {
	users       UserRepository
	tests       TestRepository
	results     ResultRepository
	cache       StatsCache
	backups     BackupStore
	policy      BatchPolicy
	randomLimit int

	// Generations are bumped on every invalidation. A read-through only stores
	// its value if no invalidation happened while it was querying.
	genMu       sync.Mutex
	epoch       uint64
	statsGen    map[int64]uint64
	sectionsGen uint64
}

type generation struct {
	epoch uint64
	value uint64
}

type BatchResult struct {
	Added int    `json:"added"`
	Tests []Test `json:"tests"`
}

func NewService(users UserRepository, tests TestRepository, results ResultRepository, opts Options) *Service {
	cache := opts.Cache
	if cache == nil {
		cache = noopCache{}
	}
	policy := opts.BatchPolicy
	if policy == "" {
		policy = SkipInvalid
	}
	randomLimit := opts.DefaultRandomLimit
	if randomLimit <= 0 {
		randomLimit = defaultRandomLimit
	}

	return &Service{
		users:       users,
		tests:       tests,
		results:     results,
		cache:       cache,
		backups:     opts.Backups,
		policy:      policy,
		randomLimit: randomLimit,
		statsGen:    make(map[int64]uint64),
	}
}

func (s *Service) BatchPolicy() BatchPolicy {
	return s.policy
}

func (s *Service) CreateUser(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrInvalidUsername
	}
	return s.users.CreateUser(ctx, username)
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.users.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.users.GetUser(ctx, id)
}

func (s *Service) AddTest(ctx context.Context, input TestInput) (Test, error) {
	if err := input.Validate(); err != nil {
		return Test{}, err
	}

	test, err := s.tests.AddTest(ctx, input)
	if err != nil {
		return Test{}, err
	}
	s.invalidateSections(ctx)
	return test, nil
}

// AddTests inserts a batch one statement at a time. There is no transaction
// around the batch: on a storage error the rows inserted so far stay committed
// and are reported alongside the error.
func (s *Service) AddTests(ctx context.Context, candidates []TestCandidate) (BatchResult, error) {
	if s.policy == RejectAll {
		for idx, candidate := range candidates {
			if err := candidate.Validate(); err != nil {
				return BatchResult{Tests: []Test{}}, fmt.Errorf("entry %d: %w", idx, err)
			}
		}
	}

	result := BatchResult{Tests: make([]Test, 0, len(candidates))}
	defer func() {
		if result.Added > 0 {
			s.invalidateSections(ctx)
		}
	}()

	for _, candidate := range candidates {
		if err := candidate.Validate(); err != nil {
			continue
		}

		test, err := s.tests.AddTest(ctx, candidate.Input)
		if err != nil {
			return result, err
		}
		result.Tests = append(result.Tests, test)
		result.Added++
	}

	return result, nil
}

func (s *Service) ListTests(ctx context.Context) ([]Test, error) {
	return s.tests.ListTests(ctx)
}

func (s *Service) ListTestsBySection(ctx context.Context, section string) ([]Test, error) {
	return s.tests.ListTestsBySection(ctx, section)
}

func (s *Service) ListRandomTests(ctx context.Context, limit int) ([]Test, error) {
	if limit <= 0 {
		limit = s.randomLimit
	}
	return s.tests.ListRandomTests(ctx, limit)
}

func (s *Service) ListSections(ctx context.Context) ([]string, error) {
	if sections, ok := s.cache.Sections(ctx); ok {
		return sections, nil
	}

	gen := s.sectionsGeneration()
	sections, err := s.tests.ListSections(ctx)
	if err != nil {
		return nil, err
	}
	s.storeSections(ctx, gen, sections)
	return sections, nil
}

// RecordAnswer grades a submission against the test as it is now and stores
// the verdict with the attempt. Later reads never regrade.
func (s *Service) RecordAnswer(ctx context.Context, userID, testID int64, userAnswer int) (AnswerOutcome, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return AnswerOutcome{}, err
	}

	isCorrect := userAnswer == test.Correct
	id, err := s.results.SaveResult(ctx, userID, test.ID, userAnswer, isCorrect)
	if err != nil {
		return AnswerOutcome{}, err
	}
	s.invalidateStats(ctx, userID)

	return AnswerOutcome{
		ID:            id,
		IsCorrect:     isCorrect,
		CorrectAnswer: test.Correct,
	}, nil
}

func (s *Service) UserResults(ctx context.Context, userID, testID int64) ([]ResultDetail, error) {
	return s.results.ListUserResults(ctx, userID, testID)
}

func (s *Service) UserStats(ctx context.Context, userID int64) (UserStats, error) {
	if stats, ok := s.cache.Stats(ctx, userID); ok {
		return stats, nil
	}

	gen := s.statsGeneration(userID)
	stats, err := s.results.GetUserStats(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	s.storeStats(ctx, userID, gen, stats)
	return stats, nil
}

func (s *Service) ExportDatabase(ctx context.Context, w io.Writer) error {
	if s.backups == nil {
		return ErrBackupUnsupported
	}
	return s.backups.Export(ctx, w)
}

func (s *Service) RestoreDatabase(ctx context.Context, r io.Reader) error {
	if s.backups == nil {
		return ErrBackupUnsupported
	}
	if err := s.backups.Restore(ctx, r); err != nil {
		return err
	}

	s.genMu.Lock()
	s.epoch++
	s.genMu.Unlock()
	s.cache.Flush(ctx)
	return nil
}

func (s *Service) SupportsBackup() bool {
	return s.backups != nil
}

func (s *Service) statsGeneration(userID int64) generation {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return generation{epoch: s.epoch, value: s.statsGen[userID]}
}

func (s *Service) sectionsGeneration() generation {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return generation{epoch: s.epoch, value: s.sectionsGen}
}

func (s *Service) invalidateStats(ctx context.Context, userID int64) {
	s.genMu.Lock()
	s.statsGen[userID]++
	s.genMu.Unlock()
	s.cache.InvalidateStats(ctx, userID)
}

func (s *Service) invalidateSections(ctx context.Context) {
	s.genMu.Lock()
	s.sectionsGen++
	s.genMu.Unlock()
	s.cache.InvalidateSections(ctx)
}

// storeStats holds genMu across the check and the write so an invalidation
// either lands first and the stale value is dropped, or lands after and
// deletes it.
func (s *Service) storeStats(ctx context.Context, userID int64, gen generation, stats UserStats) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if (generation{epoch: s.epoch, value: s.statsGen[userID]}) != gen {
		return
	}
	s.cache.StoreStats(ctx, userID, stats)
}

func (s *Service) storeSections(ctx context.Context, gen generation, sections []string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if (generation{epoch: s.epoch, value: s.sectionsGen}) != gen {
		return
	}
	s.cache.StoreSections(ctx, sections)
}
