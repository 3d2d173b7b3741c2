package userclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"quiz-tracker/internal/quiz"
)

const (
	defaultServer            = "http://127.0.0.1:3000"
	defaultRandomLimit       = 20
	defaultHistoryLimit      = 10
	defaultHTTPTimeout       = 5 * time.Second
	defaultMaxInvalidAnswers = 3
)

type Config struct {
	Username          string
	ServerURL         string
	RandomLimit       int
	HistoryLimit      int
	MaxInvalidAnswers int
	HTTPTimeout       time.Duration
}

type session struct {
	ctx       context.Context
	reader    *bufio.Reader
	out       io.Writer
	client    *HTTPClient
	user      quiz.User
	serverURL string

	randomLimit       int
	historyLimit      int
	maxInvalidAnswers int
}

func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return errors.New("username is required")
	}

	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultServer
	}

	randomLimit := cfg.RandomLimit
	if randomLimit <= 0 {
		randomLimit = defaultRandomLimit
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	maxInvalidAnswers := cfg.MaxInvalidAnswers
	if maxInvalidAnswers <= 0 {
		maxInvalidAnswers = defaultMaxInvalidAnswers
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	client := NewHTTPClient(serverURL, &http.Client{Timeout: timeout})
	user, err := client.Login(ctx, username)
	if err != nil {
		return describeClientError(err, serverURL)
	}

	s := &session{
		ctx:               ctx,
		reader:            bufio.NewReader(in),
		out:               out,
		client:            client,
		user:              user,
		serverURL:         serverURL,
		randomLimit:       randomLimit,
		historyLimit:      historyLimit,
		maxInvalidAnswers: maxInvalidAnswers,
	}

	fmt.Fprintf(out, "quiz-client\nuser=%s (id %d)\nserver=%s\n\n", user.Username, user.ID, serverURL)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])
		rest := strings.TrimSpace(strings.TrimPrefix(line, args[0]))

		var cmdErr error
		switch command {
		case "help":
			printHelp(out)
		case "exit", "quit":
			return nil
		case "users":
			cmdErr = s.runUsers()
		case "sections":
			cmdErr = s.runSections()
		case "play":
			if rest == "" {
				fmt.Fprintln(out, "usage: play <section>")
				continue
			}
			cmdErr = s.runPlay(rest)
		case "random":
			limit, parseErr := parsePositiveLimit(args, 1, s.randomLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid random limit: %v\n", parseErr)
				continue
			}
			cmdErr = s.runRandom(limit)
		case "stats":
			cmdErr = s.runStats()
		case "history":
			limit, parseErr := parsePositiveLimit(args, 1, s.historyLimit)
			if parseErr != nil {
				fmt.Fprintf(out, "invalid history limit: %v\n", parseErr)
				continue
			}
			cmdErr = s.runHistory(limit)
		case "import":
			if rest == "" {
				fmt.Fprintln(out, "usage: import <file.json|file.yaml>")
				continue
			}
			cmdErr = s.runImport(rest)
		default:
			fmt.Fprintln(out, "unknown command. type 'help' for usage.")
		}

		if cmdErr != nil {
			fmt.Fprintf(out, "error: %v\n", describeClientError(cmdErr, serverURL))
		}
	}
}

func (s *session) runUsers() error {
	users, err := s.client.ListUsers(s.ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(s.out, "No users.")
		return nil
	}
	for _, user := range users {
		marker := " "
		if user.ID == s.user.ID {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %d. %s\n", marker, user.ID, user.Username)
	}
	return nil
}

func (s *session) runSections() error {
	sections, err := s.client.ListSections(s.ctx)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		fmt.Fprintln(s.out, "No sections yet. Use 'import' to add tests.")
		return nil
	}
	fmt.Fprintln(s.out, "Sections:")
	for _, section := range sections {
		fmt.Fprintf(s.out, "  %s\n", section)
	}
	return nil
}

func (s *session) runPlay(section string) error {
	tests, err := s.client.ListTestsBySection(s.ctx, section)
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		fmt.Fprintf(s.out, "No tests in section %q.\n", section)
		return nil
	}
	fmt.Fprintf(s.out, "Section %s: %d tests\n", section, len(tests))
	return s.runCarousel(tests)
}

func (s *session) runRandom(limit int) error {
	tests, err := s.client.ListRandomTests(s.ctx, limit)
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		fmt.Fprintln(s.out, "No tests yet. Use 'import' to add tests.")
		return nil
	}
	fmt.Fprintf(s.out, "Random run: %d tests\n", len(tests))
	return s.runCarousel(tests)
}

// runCarousel walks the tests in order. Grading happens on the server; the
// client only shows the verdict it gets back.
func (s *session) runCarousel(tests []quiz.Test) error {
	answered := 0
	correct := 0

	for idx, test := range tests {
		fmt.Fprintln(s.out)
		fmt.Fprintf(s.out, "[%d/%d] %s\n%s\n\n", idx+1, len(tests), test.Section, test.Question)
		for optionIdx, answer := range test.Answers {
			fmt.Fprintf(s.out, "%s. %s\n", answerLetter(optionIdx), answer)
		}
		fmt.Fprintln(s.out)

		invalidCount := 0
		for {
			answer, ok := promptAnswer(s.reader, s.out, len(test.Answers))
			if !ok {
				invalidCount++
				if invalidCount >= s.maxInvalidAnswers {
					fmt.Fprintln(s.out, "Skipping question after multiple invalid responses.")
					break
				}
				fmt.Fprintf(s.out, "Invalid input. Attempts remaining: %d\n", s.maxInvalidAnswers-invalidCount)
				continue
			}

			outcome, err := s.client.RecordAnswer(s.ctx, s.user.ID, test.ID, answer)
			if err != nil {
				return err
			}
			answered++
			if outcome.IsCorrect {
				correct++
				fmt.Fprintln(s.out, "Correct!")
			} else {
				fmt.Fprintf(s.out, "Wrong. Correct answer: %s\n", answerDisplay(test.Answers, outcome.CorrectAnswer))
			}
			break
		}
	}

	fmt.Fprintln(s.out)
	if answered == 0 {
		fmt.Fprintln(s.out, "No answers recorded in this run.")
		return nil
	}
	fmt.Fprintf(s.out, "Run score: %d/%d (%s%%)\n", correct, answered, quiz.FormatAccuracy(correct, answered))
	return nil
}

func (s *session) runStats() error {
	stats, err := s.client.UserStats(s.ctx, s.user.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Statistics for %s\n", s.user.Username)
	printStats(s.out, stats)
	return nil
}

func (s *session) runHistory(limit int) error {
	results, err := s.client.UserResults(s.ctx, s.user.ID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(s.out, "No answers yet.")
		return nil
	}
	if len(results) > limit {
		results = results[:limit]
	}

	for _, item := range results {
		verdict := "wrong"
		if item.IsCorrect {
			verdict = "correct"
		}
		fmt.Fprintf(s.out, "%s [%s] %s\n  your answer: %s, correct: %s (%s)\n",
			item.AnsweredAt.Local().Format("2006-01-02 15:04"),
			item.Section,
			item.Question,
			answerDisplay(item.Answers, item.UserAnswer),
			answerDisplay(item.Answers, item.Correct),
			verdict,
		)
	}
	return nil
}

func (s *session) runImport(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	payload, err := quiz.ParseTestPayload(path, data)
	if err != nil {
		return err
	}

	if invalid := payload.InvalidCount(); payload.Batch && invalid > 0 {
		prompt := fmt.Sprintf("%d of %d entries are invalid. send anyway? (yes/no): ", invalid, len(payload.Candidates))
		proceed, err := promptYesNo(s.reader, s.out, prompt)
		if err != nil {
			return err
		}
		if !proceed {
			return nil
		}
	}

	result, err := s.client.AddTests(s.ctx, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added %d tests.\n", result.Added)
	return nil
}
