package quiz

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"
)

// fakeStore is an in-memory Store with call counters for the service tests.
type fakeStore struct {
	users    []User
	tests    []Test
	results  []ResultDetail
	addErrAt int

	addCalls   int
	statsCalls int
	listCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{addErrAt: -1}
}

func (f *fakeStore) CreateUser(_ context.Context, username string) (User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	user := User{ID: int64(len(f.users) + 1), Username: username, CreatedAt: time.Now().UTC()}
	f.users = append(f.users, user)
	return user, nil
}

func (f *fakeStore) ListUsers(context.Context) ([]User, error) {
	return append([]User(nil), f.users...), nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (f *fakeStore) AddTest(_ context.Context, input TestInput) (Test, error) {
	f.addCalls++
	if f.addErrAt >= 0 && f.addCalls-1 == f.addErrAt {
		return Test{}, errors.New("disk full")
	}
	test := Test{
		ID:       int64(len(f.tests) + 1),
		Section:  input.Section,
		Question: input.Question,
		Answers:  append([]string(nil), input.Answers...),
		Correct:  input.CorrectIndex(),
	}
	f.tests = append(f.tests, test)
	return test, nil
}

func (f *fakeStore) GetTest(_ context.Context, id int64) (Test, error) {
	for _, test := range f.tests {
		if test.ID == id {
			return test, nil
		}
	}
	return Test{}, ErrTestNotFound
}

func (f *fakeStore) ListTests(context.Context) ([]Test, error) {
	return append([]Test(nil), f.tests...), nil
}

func (f *fakeStore) ListTestsBySection(_ context.Context, section string) ([]Test, error) {
	out := make([]Test, 0)
	for _, test := range f.tests {
		if test.Section == section {
			out = append(out, test)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRandomTests(_ context.Context, limit int) ([]Test, error) {
	if limit < len(f.tests) {
		return append([]Test(nil), f.tests[:limit]...), nil
	}
	return append([]Test(nil), f.tests...), nil
}

func (f *fakeStore) ListSections(context.Context) ([]string, error) {
	f.listCalls++
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, test := range f.tests {
		if !seen[test.Section] {
			seen[test.Section] = true
			out = append(out, test.Section)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) SaveResult(_ context.Context, userID, testID int64, userAnswer int, isCorrect bool) (int64, error) {
	test, err := f.GetTest(context.Background(), testID)
	if err != nil {
		return 0, err
	}
	id := int64(len(f.results) + 1)
	f.results = append(f.results, ResultDetail{
		ID:         id,
		UserID:     userID,
		TestID:     testID,
		UserAnswer: userAnswer,
		IsCorrect:  isCorrect,
		AnsweredAt: time.Now().UTC(),
		Section:    test.Section,
		Question:   test.Question,
		Answers:    test.Answers,
		Correct:    test.Correct,
	})
	return id, nil
}

func (f *fakeStore) ListUserResults(_ context.Context, userID, testID int64) ([]ResultDetail, error) {
	out := make([]ResultDetail, 0)
	for i := len(f.results) - 1; i >= 0; i-- {
		item := f.results[i]
		if item.UserID != userID || (testID > 0 && item.TestID != testID) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeStore) GetUserStats(_ context.Context, userID int64) (UserStats, error) {
	f.statsCalls++
	var total, correct int
	unique := make(map[int64]bool)
	bySection := make(map[string]*SectionStats)
	for _, item := range f.results {
		if item.UserID != userID {
			continue
		}
		total++
		unique[item.TestID] = true
		entry, ok := bySection[item.Section]
		if !ok {
			entry = &SectionStats{Section: item.Section}
			bySection[item.Section] = entry
		}
		entry.TotalAnswered++
		if item.IsCorrect {
			correct++
			entry.CorrectAnswers++
		}
	}

	sections := make([]SectionStats, 0, len(bySection))
	for _, entry := range bySection {
		sections = append(sections, *entry)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Section < sections[j].Section })
	return NewUserStats(total, correct, len(unique), sections), nil
}

func (f *fakeStore) Close() error { return nil }

func newTestService(store *fakeStore, opts Options) *Service {
	return NewService(store, store, store, opts)
}

func validInput(section, question string, correct int) TestInput {
	return TestInput{
		Section:  section,
		Question: question,
		Answers:  []string{"a", "b", "c"},
		Correct:  IntPtr(correct),
	}
}

func TestRecordAnswerGradesAgainstStoredTest(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{})
	ctx := context.Background()

	test, err := svc.AddTest(ctx, validInput("Math", "2+2?", 1))
	if err != nil {
		t.Fatalf("add test: %v", err)
	}

	outcome, err := svc.RecordAnswer(ctx, 1, test.ID, 1)
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if !outcome.IsCorrect || outcome.CorrectAnswer != 1 || outcome.ID != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	outcome, err = svc.RecordAnswer(ctx, 1, test.ID, 2)
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if outcome.IsCorrect || outcome.CorrectAnswer != 1 {
		t.Fatalf("expected incorrect outcome with correct answer 1, got %+v", outcome)
	}
}

func TestRecordAnswerUnknownTestWritesNothing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{})

	_, err := svc.RecordAnswer(context.Background(), 1, 99, 0)
	if !errors.Is(err, ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}
	if len(store.results) != 0 {
		t.Fatalf("expected no stored results, got %d", len(store.results))
	}
}

func TestRecordAnswerOutOfRangeAnswerIsIncorrect(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{})
	ctx := context.Background()

	test, err := svc.AddTest(ctx, validInput("Math", "2+2?", 0))
	if err != nil {
		t.Fatalf("add test: %v", err)
	}

	outcome, err := svc.RecordAnswer(ctx, 1, test.ID, 42)
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if outcome.IsCorrect {
		t.Fatalf("out of range answer must be graded incorrect")
	}
	if len(store.results) != 1 {
		t.Fatalf("expected the attempt to be stored, got %d results", len(store.results))
	}
}

func TestAddTestsSkipInvalidInsertsValidEntries(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{})

	candidates := []TestCandidate{
		{Input: validInput("Math", "q1", 0)},
		{Input: validInput("Math", "q2", 1)},
		{Input: TestInput{Section: "Math", Question: "broken", Answers: []string{"a"}, Correct: IntPtr(3)}},
		{Input: validInput("History", "q3", 2)},
	}

	result, err := svc.AddTests(context.Background(), candidates)
	if err != nil {
		t.Fatalf("add tests: %v", err)
	}
	if result.Added != 3 || len(result.Tests) != 3 {
		t.Fatalf("expected 3 added tests, got %+v", result)
	}
	if len(store.tests) != 3 {
		t.Fatalf("expected 3 stored tests, got %d", len(store.tests))
	}
}

func TestAddTestsRejectAllStoresNothing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{BatchPolicy: RejectAll})

	candidates := []TestCandidate{
		{Input: validInput("Math", "q1", 0)},
		{Err: errors.New("entry is not an object")},
	}

	result, err := svc.AddTests(context.Background(), candidates)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "entry 1") {
		t.Fatalf("expected error to name entry 1, got %v", err)
	}
	if result.Added != 0 || store.addCalls != 0 {
		t.Fatalf("expected nothing inserted, added=%d calls=%d", result.Added, store.addCalls)
	}
}

func TestAddTestsStorageErrorKeepsInsertedPrefix(t *testing.T) {
	store := newFakeStore()
	store.addErrAt = 1
	svc := newTestService(store, Options{})

	candidates := []TestCandidate{
		{Input: validInput("Math", "q1", 0)},
		{Input: validInput("Math", "q2", 0)},
		{Input: validInput("Math", "q3", 0)},
	}

	result, err := svc.AddTests(context.Background(), candidates)
	if err == nil {
		t.Fatalf("expected storage error")
	}
	if result.Added != 1 || len(store.tests) != 1 {
		t.Fatalf("expected the first insert to stay committed, got added=%d stored=%d", result.Added, len(store.tests))
	}
}

func TestAddTestRejectsInvalidInput(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{})

	_, err := svc.AddTest(context.Background(), TestInput{Section: "Math", Question: "q", Answers: []string{"a"}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.addCalls != 0 {
		t.Fatalf("invalid test must not reach the repository")
	}
}

func TestCreateUserTrimsAndRejectsEmpty(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{})
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, "   "); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}

	first, err := svc.CreateUser(ctx, "  alice ")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	second, err := svc.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if first.ID != second.ID || first.Username != "alice" {
		t.Fatalf("expected same user for duplicate name, got %+v and %+v", first, second)
	}
}

func TestUserStatsScenario(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{Cache: NewMemoryCache(0)})
	ctx := context.Background()

	alice, err := svc.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	empty, err := svc.UserStats(ctx, alice.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.TotalAnswered != 0 || empty.Accuracy != "0" || empty.SectionStats == nil || len(empty.SectionStats) != 0 {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	test, err := svc.AddTest(ctx, TestInput{Section: "Math", Question: "2+2?", Answers: []string{"3", "4"}, Correct: IntPtr(1)})
	if err != nil {
		t.Fatalf("add test: %v", err)
	}

	if _, err := svc.RecordAnswer(ctx, alice.ID, test.ID, 1); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	stats, err := svc.UserStats(ctx, alice.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAnswered != 1 || stats.CorrectAnswers != 1 || stats.UniqueTestsAnswered != 1 || stats.Accuracy != "100.0" {
		t.Fatalf("unexpected stats after one correct answer: %+v", stats)
	}
	if len(stats.SectionStats) != 1 || stats.SectionStats[0] != (SectionStats{Section: "Math", TotalAnswered: 1, CorrectAnswers: 1}) {
		t.Fatalf("unexpected section stats: %+v", stats.SectionStats)
	}

	if _, err := svc.RecordAnswer(ctx, alice.ID, test.ID, 0); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	stats, err = svc.UserStats(ctx, alice.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAnswered != 2 || stats.UniqueTestsAnswered != 1 || stats.Accuracy != "50.0" {
		t.Fatalf("expected refreshed stats after second answer, got %+v", stats)
	}

	sectionTotal := 0
	for _, section := range stats.SectionStats {
		sectionTotal += section.TotalAnswered
	}
	if sectionTotal != stats.TotalAnswered {
		t.Fatalf("section totals %d do not add up to %d", sectionTotal, stats.TotalAnswered)
	}
}

func TestUserStatsServedFromCacheUntilAnswerRecorded(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{Cache: NewMemoryCache(0)})
	ctx := context.Background()

	test, err := svc.AddTest(ctx, validInput("Math", "q", 0))
	if err != nil {
		t.Fatalf("add test: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.UserStats(ctx, 7); err != nil {
			t.Fatalf("stats: %v", err)
		}
	}
	if store.statsCalls != 1 {
		t.Fatalf("expected 1 repository stats call, got %d", store.statsCalls)
	}

	if _, err := svc.RecordAnswer(ctx, 7, test.ID, 0); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if _, err := svc.UserStats(ctx, 7); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if store.statsCalls != 2 {
		t.Fatalf("expected cache invalidation after answer, got %d calls", store.statsCalls)
	}
}

// pausingResults blocks the first stats query after it has read the store
// until release is closed.
type pausingResults struct {
	*fakeStore
	queried chan struct{}
	release chan struct{}
}

func (p *pausingResults) GetUserStats(ctx context.Context, userID int64) (UserStats, error) {
	stats, err := p.fakeStore.GetUserStats(ctx, userID)
	p.queried <- struct{}{}
	<-p.release
	return stats, err
}

func TestUserStatsDoesNotCacheValueReadBeforeAnswer(t *testing.T) {
	store := newFakeStore()
	results := &pausingResults{
		fakeStore: store,
		queried:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	svc := NewService(store, store, results, Options{Cache: NewMemoryCache(0)})
	ctx := context.Background()

	test, err := svc.AddTest(ctx, validInput("Math", "q", 0))
	if err != nil {
		t.Fatalf("add test: %v", err)
	}

	done := make(chan UserStats)
	go func() {
		stats, err := svc.UserStats(ctx, 1)
		if err != nil {
			t.Errorf("stats: %v", err)
		}
		done <- stats
	}()

	<-results.queried
	if _, err := svc.RecordAnswer(ctx, 1, test.ID, 0); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	close(results.release)

	if early := <-done; early.TotalAnswered != 0 {
		t.Fatalf("expected the in-flight read to see no answers, got %d", early.TotalAnswered)
	}

	stats, err := svc.UserStats(ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAnswered != 1 || stats.Accuracy != "100.0" {
		t.Fatalf("expected fresh stats after answer, got total=%d accuracy=%q", stats.TotalAnswered, stats.Accuracy)
	}
}

func TestMemoryCacheExpiresEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(time.Minute)
	cache.now = func() time.Time { return now }

	cache.StoreStats(ctx, 1, NewUserStats(1, 1, 1, nil))
	cache.StoreSections(ctx, []string{"Math"})

	now = now.Add(59 * time.Second)
	if _, ok := cache.Stats(ctx, 1); !ok {
		t.Fatal("expected stats before ttl")
	}
	if _, ok := cache.Sections(ctx); !ok {
		t.Fatal("expected sections before ttl")
	}

	now = now.Add(time.Second)
	if _, ok := cache.Stats(ctx, 1); ok {
		t.Fatal("expected stats to expire")
	}
	if _, ok := cache.Sections(ctx); ok {
		t.Fatal("expected sections to expire")
	}
}

func TestListSectionsInvalidatedByNewTests(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{Cache: NewMemoryCache(0)})
	ctx := context.Background()

	if _, err := svc.AddTest(ctx, validInput("Math", "q", 0)); err != nil {
		t.Fatalf("add test: %v", err)
	}
	if _, err := svc.ListSections(ctx); err != nil {
		t.Fatalf("sections: %v", err)
	}
	if _, err := svc.ListSections(ctx); err != nil {
		t.Fatalf("sections: %v", err)
	}
	if store.listCalls != 1 {
		t.Fatalf("expected cached section list, got %d calls", store.listCalls)
	}

	if _, err := svc.AddTests(ctx, []TestCandidate{{Input: validInput("Art", "q", 0)}}); err != nil {
		t.Fatalf("add tests: %v", err)
	}
	sections, err := svc.ListSections(ctx)
	if err != nil {
		t.Fatalf("sections: %v", err)
	}
	if len(sections) != 2 || sections[0] != "Art" || sections[1] != "Math" {
		t.Fatalf("unexpected sections: %v", sections)
	}
}

func TestListRandomTestsUsesDefaultLimit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, Options{DefaultRandomLimit: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.AddTest(ctx, validInput("Math", "q", 0)); err != nil {
			t.Fatalf("add test: %v", err)
		}
	}

	tests, err := svc.ListRandomTests(ctx, 0)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(tests) != 2 {
		t.Fatalf("expected default limit of 2, got %d", len(tests))
	}
}

func TestBackupUnsupportedWithoutBackupStore(t *testing.T) {
	svc := newTestService(newFakeStore(), Options{})

	if svc.SupportsBackup() {
		t.Fatalf("expected backup to be unsupported")
	}
	if err := svc.ExportDatabase(context.Background(), &strings.Builder{}); !errors.Is(err, ErrBackupUnsupported) {
		t.Fatalf("expected ErrBackupUnsupported, got %v", err)
	}
	if err := svc.RestoreDatabase(context.Background(), strings.NewReader("x")); !errors.Is(err, ErrBackupUnsupported) {
		t.Fatalf("expected ErrBackupUnsupported, got %v", err)
	}
}
