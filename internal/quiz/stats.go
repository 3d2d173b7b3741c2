package quiz

import "github.com/shopspring/decimal"

type SectionStats struct {
	Section        string `json:"section"`
	TotalAnswered  int    `json:"total_answered"`
	CorrectAnswers int    `json:"correct_answers"`
}

// UserStats keeps the JSON field names the dashboard has always consumed,
// including the camel-cased sectionStats.
type UserStats struct {
	TotalAnswered       int            `json:"total_answered"`
	CorrectAnswers      int            `json:"correct_answers"`
	UniqueTestsAnswered int            `json:"unique_tests_answered"`
	Accuracy            string         `json:"accuracy"`
	SectionStats        []SectionStats `json:"sectionStats"`
}

var hundred = decimal.NewFromInt(100)

func NewUserStats(total, correct, unique int, sections []SectionStats) UserStats {
	if sections == nil {
		sections = make([]SectionStats, 0)
	}
	return UserStats{
		TotalAnswered:       total,
		CorrectAnswers:      correct,
		UniqueTestsAnswered: unique,
		Accuracy:            FormatAccuracy(correct, total),
		SectionStats:        sections,
	}
}

// FormatAccuracy renders correct/total as a percentage with one decimal place.
// A user with no answers has accuracy "0", not "0.0".
func FormatAccuracy(correct, total int) string {
	if total <= 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(correct)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(1)
}
