package userclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quiz-tracker/internal/quiz"
)

// promptAnswer reads a letter and returns its 0-based index. ok is false for
// anything that is not one of the offered letters.
func promptAnswer(reader *bufio.Reader, out io.Writer, optionCount int) (int, bool) {
	if optionCount < 1 || optionCount > 26 {
		return 0, false
	}

	maxLetter := byte('A' + optionCount - 1)
	fmt.Fprintf(out, "Your answer (A-%c): ", maxLetter)

	line, err := reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return 0, false
	}

	answer := strings.ToUpper(strings.TrimSpace(line))
	if len(answer) != 1 {
		return 0, false
	}
	letter := answer[0]
	if letter < 'A' || letter > maxLetter {
		return 0, false
	}

	return int(letter - 'A'), true
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  users")
	fmt.Fprintln(out, "  sections")
	fmt.Fprintln(out, "  play <section>")
	fmt.Fprintln(out, "  random [limit]")
	fmt.Fprintln(out, "  stats")
	fmt.Fprintln(out, "  history [limit]")
	fmt.Fprintln(out, "  import <file.json|file.yaml>")
	fmt.Fprintln(out, "  exit")
}

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, ErrServiceUnavailable) {
		return fmt.Errorf("quiz service unavailable at %s", serverURL)
	}
	return err
}

func answerLetter(index int) string {
	if index < 0 || index >= 26 {
		return "?"
	}
	return string(rune('A' + index))
}

func answerDisplay(answers []string, index int) string {
	if index < 0 || index >= len(answers) {
		return "unknown"
	}
	if strings.TrimSpace(answers[index]) == "" {
		return answerLetter(index)
	}
	return fmt.Sprintf("%s. %s", answerLetter(index), answers[index])
}

func printStats(out io.Writer, stats quiz.UserStats) {
	fmt.Fprintf(out, "Answered: %d (unique tests: %d)\n", stats.TotalAnswered, stats.UniqueTestsAnswered)
	fmt.Fprintf(out, "Correct:  %d\n", stats.CorrectAnswers)
	fmt.Fprintf(out, "Accuracy: %s%%\n", stats.Accuracy)
	if len(stats.SectionStats) == 0 {
		return
	}

	fmt.Fprintln(out, "By section:")
	for _, section := range stats.SectionStats {
		fmt.Fprintf(out, "  %s: %d/%d (%s%%)\n",
			section.Section,
			section.CorrectAnswers,
			section.TotalAnswered,
			quiz.FormatAccuracy(section.CorrectAnswers, section.TotalAnswered),
		)
	}
}
