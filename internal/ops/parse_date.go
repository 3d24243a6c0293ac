package ops

import (
	"strings"
	"time"

	"github.com/hpungsan/ctrack/internal/comments"
	"github.com/hpungsan/ctrack/internal/errors"
)

// ParseDateInput is a forum date and time pair, either as separate
// fields or as one "DD.MM.YY HH:MM" string in Text.
type ParseDateInput struct {
	Text     string
	Date     string
	Time     string
	Location *time.Location
}

// ParseDateOutput shows how a date pair was read.
type ParseDateOutput struct {
	Date     string    `json:"date"`
	Time     string    `json:"time"`
	Year     int       `json:"year"`
	ParsedAt time.Time `json:"parsed_at"`
	UTC      string    `json:"utc"`
}

// ParseDate runs the comment date parser on one input, for diagnostics.
func ParseDate(input ParseDateInput) (*ParseDateOutput, error) {
	date, clock := strings.TrimSpace(input.Date), strings.TrimSpace(input.Time)
	if input.Text != "" {
		fields := strings.Fields(input.Text)
		if len(fields) != 2 {
			return nil, errors.NewInvalidRequest(`expected "DD.MM.YY HH:MM"`)
		}
		date, clock = fields[0], fields[1]
	}

	t, ok := comments.ParseDate(date, clock, input.Location)
	if !ok {
		return nil, errors.NewInvalidRequest("unparseable date: " + strings.TrimSpace(date+" "+clock))
	}
	return &ParseDateOutput{
		Date:     date,
		Time:     clock,
		Year:     t.Year(),
		ParsedAt: t,
		UTC:      t.UTC().Format(time.RFC3339),
	}, nil
}
