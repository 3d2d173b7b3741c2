package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"quiz-tracker/internal/opentdb"
	"quiz-tracker/internal/quiz"
)

const defaultSeedAmount = 10

// QuestionSource supplies trivia questions for the seed command.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, amount int) ([]opentdb.RawQuestion, error)
}

// App runs one administrative command against the configured store.
type App struct {
	service *quiz.Service
	trivia  QuestionSource
	out     io.Writer
}

func NewApp(service *quiz.Service, trivia QuestionSource, out io.Writer) *App {
	return &App{service: service, trivia: trivia, out: out}
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return errors.New("command is required")
	}

	command, rest := strings.ToLower(args[0]), args[1:]
	switch command {
	case "help":
		a.printUsage()
		return nil
	case "import":
		if len(rest) != 1 {
			return errors.New("usage: import <file.json|file.yaml>")
		}
		return a.runImport(ctx, rest[0])
	case "seed":
		amount := defaultSeedAmount
		if len(rest) > 0 {
			parsed, err := strconv.Atoi(rest[0])
			if err != nil || parsed <= 0 {
				return errors.New("seed amount must be a positive integer")
			}
			amount = parsed
		}
		return a.runSeed(ctx, amount)
	case "sections":
		return a.runSections(ctx)
	case "stats":
		if len(rest) != 1 {
			return errors.New("usage: stats <userId>")
		}
		userID, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", rest[0])
		}
		return a.runStats(ctx, userID)
	case "export":
		if len(rest) != 1 {
			return errors.New("usage: export <file>")
		}
		return a.runExport(ctx, rest[0])
	case "restore":
		if len(rest) != 1 {
			return errors.New("usage: restore <file>")
		}
		return a.runRestore(ctx, rest[0])
	default:
		a.printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *App) printUsage() {
	fmt.Fprintln(a.out, "Usage: quiz-cli [-config file] <command>")
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  import <file.json|file.yaml>   add tests from a file")
	fmt.Fprintln(a.out, "  seed [amount]                  add multiple-choice questions from OpenTDB")
	fmt.Fprintln(a.out, "  sections                       list sections")
	fmt.Fprintln(a.out, "  stats <userId>                 print a user's statistics")
	fmt.Fprintln(a.out, "  export <file>                  write a database snapshot")
	fmt.Fprintln(a.out, "  restore <file>                 replace all data from a snapshot")
}

func (a *App) runImport(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	payload, err := quiz.ParseTestPayload(path, data)
	if err != nil {
		return err
	}

	if !payload.Batch {
		test, err := a.service.AddTest(ctx, payload.Candidates[0].Input)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Added test #%d to %s\n", test.ID, test.Section)
		return nil
	}

	result, err := a.service.AddTests(ctx, payload.Candidates)
	if err != nil {
		return err
	}
	skipped := len(payload.Candidates) - result.Added
	fmt.Fprintf(a.out, "Added %d tests (%d skipped, policy %s)\n", result.Added, skipped, a.service.BatchPolicy())
	return nil
}

func (a *App) runSeed(ctx context.Context, amount int) error {
	if a.trivia == nil {
		return errors.New("no question source configured")
	}

	raw, err := a.trivia.FetchQuestions(ctx, amount)
	if err != nil {
		return fmt.Errorf("fetch questions: %w", err)
	}

	candidates := make([]quiz.TestCandidate, 0, len(raw))
	for _, input := range quiz.BuildTests(raw) {
		candidates = append(candidates, quiz.TestCandidate{Input: input})
	}

	result, err := a.service.AddTests(ctx, candidates)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Seeded %d tests\n", result.Added)
	return nil
}

func (a *App) runSections(ctx context.Context) error {
	sections, err := a.service.ListSections(ctx)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		fmt.Fprintln(a.out, "No sections.")
		return nil
	}

	for _, section := range sections {
		tests, err := a.service.ListTestsBySection(ctx, section)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (%d tests)\n", section, len(tests))
	}
	return nil
}

func (a *App) runStats(ctx context.Context, userID int64) error {
	stats, err := a.service.UserStats(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "User %d: %d answered, %d correct, %d unique tests, accuracy %s%%\n",
		userID, stats.TotalAnswered, stats.CorrectAnswers, stats.UniqueTestsAnswered, stats.Accuracy)
	for _, section := range stats.SectionStats {
		fmt.Fprintf(a.out, "  %s: %d/%d\n", section.Section, section.CorrectAnswers, section.TotalAnswered)
	}
	return nil
}

func (a *App) runExport(ctx context.Context, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := a.service.ExportDatabase(ctx, file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported database to %s\n", path)
	return nil
}

func (a *App) runRestore(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := a.service.RestoreDatabase(ctx, file); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored database from %s\n", path)
	return nil
}
