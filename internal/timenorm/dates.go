package timenorm

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// knownLayouts are the literal timestamp formats seen in real tracking
// exports, tried in order. Day-first variants come before month-first ones
// because the primary export source writes dd/mm/yyyy.
var knownLayouts = []string{
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2-1-2006 15:04",
	"2/1/2006",
	"2006-01-02",
}

var (
	dmyPattern = regexp.MustCompile(`(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})`)
	ymdPattern = regexp.MustCompile(`(\d{4})[/\-](\d{1,2})[/\-](\d{1,2})`)
)

// DateExtractor turns free-form timestamp strings into period labels. It is
// built per column: when every sampled value in the column parses with one of
// the known layouts, that layout is adopted for the whole column, which keeps
// ambiguous day/month values (e.g. "3/4/2024") consistent within one file.
type DateExtractor struct {
	layout string
}

// detectSampleSize bounds how many values are inspected during layout
// adoption; heuristics stay linear in input size with a small constant.
const detectSampleSize = 50

// NewDateExtractor builds an extractor for one column of raw values.
func NewDateExtractor(values []string) *DateExtractor {
	return &DateExtractor{layout: detectLayout(values)}
}

// detectLayout returns the first known layout that parses every sampled
// non-empty value, or "" when no single layout fits the column.
func detectLayout(values []string) string {
	sample := make([]string, 0, detectSampleSize)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		sample = append(sample, v)
		if len(sample) == detectSampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return ""
	}

	for _, layout := range knownLayouts {
		ok := true
		for _, v := range sample {
			if _, err := time.Parse(layout, v); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return layout
		}
	}
	return ""
}

// Period extracts the canonical week label from one raw timestamp value.
// It never fails: values no strategy can read yield PeriodUnknown.
func (e *DateExtractor) Period(raw string) string {
	if t, ok := e.parseTime(raw); ok {
		return PeriodLabel(t)
	}
	return PeriodUnknown
}

// parseTime runs the fallback chain: adopted column layout, then the known
// layout list, then a permissive parse, then regex extraction of a
// day/month/year or year/month/day numeric triple.
func (e *DateExtractor) parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if e.layout != "" {
		if t, err := time.Parse(e.layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range knownLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseAny(raw); err == nil {
		return t, true
	}
	return extractDate(raw)
}

// LooksLikeTimestamp reports whether raw reads as a date or timestamp under
// the same layouts and fallbacks period extraction uses. Callers deciding
// whether a cell holds data can stay in agreement with what extraction will
// later accept, day-first values included.
func LooksLikeTimestamp(raw string) bool {
	var e DateExtractor
	_, ok := e.parseTime(raw)
	return ok
}

// extractDate pulls a numeric date triple out of an arbitrary string.
func extractDate(raw string) (time.Time, bool) {
	if m := dmyPattern.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if t, ok := buildDate(year, month, day); ok {
			return t, true
		}
	}
	if m := ymdPattern.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := buildDate(year, month, day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func buildDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject normalized overflow such as February 30th.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
