package timenorm

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Week labels follow the canonical "<year>-W<2-digit week>" form, with ISO-8601
// (Monday-start) week numbering applied uniformly across the pipeline.

var periodPattern = regexp.MustCompile(`(\d{4})\D*?(\d{1,2})`)

// PeriodLabel formats a timestamp as its canonical week label, e.g. "2024-W24".
func PeriodLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParsePeriod converts a period label such as "2023-W05" or "2023_W05" into
// the first day (Monday) of that week. Any string containing a 4-digit year
// followed by a 1-2 digit week number is accepted. ok is false for labels
// that cannot be read as a year+week pair or whose numbers are out of range;
// ParsePeriod never returns an error.
func ParsePeriod(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.Time{}, false
	}

	var yearStr, weekStr string
	switch {
	case strings.Contains(label, "-W"):
		parts := strings.SplitN(label, "-W", 2)
		yearStr, weekStr = parts[0], parts[1]
	case strings.Contains(label, "_W"):
		parts := strings.SplitN(label, "_W", 2)
		yearStr, weekStr = parts[0], parts[1]
	default:
		m := periodPattern.FindStringSubmatch(label)
		if m == nil {
			return time.Time{}, false
		}
		yearStr, weekStr = m[1], m[2]
	}

	year, err := strconv.Atoi(strings.TrimSpace(yearStr))
	if err != nil {
		return time.Time{}, false
	}
	week, err := strconv.Atoi(strings.TrimSpace(weekStr))
	if err != nil {
		return time.Time{}, false
	}
	if year < 1000 || year > 9999 || week < 0 || week > 53 {
		return time.Time{}, false
	}

	return firstDayOfWeek(year, week), true
}

// firstDayOfWeek returns the Monday of the given ISO week. January 4th is
// always inside ISO week 1, so week N starts (N-1)*7 days after that Monday.
func firstDayOfWeek(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-wd)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// SortPeriods orders period labels chronologically, oldest first. Labels that
// cannot be parsed are dropped from the output; callers only display labels
// that can be ordered. The sort is stable for equal dates and never fails.
func SortPeriods(labels []string) []string {
	type dated struct {
		label string
		date  time.Time
	}
	parsed := make([]dated, 0, len(labels))
	for _, l := range labels {
		if d, ok := ParsePeriod(l); ok {
			parsed = append(parsed, dated{label: l, date: d})
		}
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].date.Before(parsed[j].date)
	})
	out := make([]string, len(parsed))
	for i, p := range parsed {
		out[i] = p.label
	}
	return out
}
