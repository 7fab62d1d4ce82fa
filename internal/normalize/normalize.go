// Package normalize canonicalizes the loosely formatted date and timestamp
// strings that arrive from manual entry and imported feeds.
//
// Parsing never fails. An input that cannot be read is replaced by the
// current date or time and the result is tagged FellBackToDefault, so a
// write that "succeeded" may carry today's date instead of what the caller
// sent. Callers decide how loudly to report that branch; Normalizer logs it.
package normalize

import (
	"net/mail"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Outcome tags how a Result was produced.
type Outcome int

const (
	Parsed Outcome = iota
	FellBackToDefault
)

func (o Outcome) String() string {
	if o == Parsed {
		return "parsed"
	}
	return "fell_back_to_default"
}

// Result is a canonical value plus the path that produced it.
type Result struct {
	Value   string
	Outcome Outcome
	// Reason is empty for Parsed results.
	Reason string
}

func (r Result) FellBack() bool { return r.Outcome == FellBackToDefault }

const (
	ReasonEmpty       = "empty input"
	ReasonUnparseable = "unrecognized format"
)

// dayFirst precedes monthFirst, so 01/02/2024 reads as 1 February.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"1-2-2006",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04-07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parsed(v string) Result { return Result{Value: v, Outcome: Parsed} }

func fallback(v, reason string) Result {
	return Result{Value: v, Outcome: FellBackToDefault, Reason: reason}
}

// Timestamp converts input to YYYY-MM-DD HH:MM:SS. A trailing Z is dropped
// and a T separator becomes a space; any offset is discarded after parsing,
// keeping the wall clock as written.
func Timestamp(input string, now time.Time) Result {
	s := strings.TrimSpace(input)
	if s == "" {
		return fallback(now.Format(TimestampLayout), ReasonEmpty)
	}

	s = strings.TrimSuffix(strings.TrimSuffix(s, "Z"), "z")
	s = strings.Replace(s, "T", " ", 1)

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return parsed(t.Format(TimestampLayout))
		}
	}
	return fallback(now.Format(TimestampLayout), ReasonUnparseable)
}

// Date converts input to YYYY-MM-DD, trying mail-style dates, then ISO
// date-times, then the numeric layouts in order.
func Date(input string, now time.Time) Result {
	s := strings.TrimSpace(input)
	if s == "" {
		return fallback(now.Format(DateLayout), ReasonEmpty)
	}

	if len(s) == len(DateLayout) && strings.Count(s, "-") == 2 {
		if _, err := time.Parse(DateLayout, s); err == nil {
			return parsed(s)
		}
	}

	if strings.Contains(s, ",") {
		if t, err := mail.ParseDate(s); err == nil {
			return parsed(t.Format(DateLayout))
		}
	}

	head, _, _ := strings.Cut(s, "T")
	if fields := strings.Fields(head); len(fields) > 0 {
		head = fields[0]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, head); err == nil {
			return parsed(t.Format(DateLayout))
		}
	}
	return fallback(now.Format(DateLayout), ReasonUnparseable)
}
