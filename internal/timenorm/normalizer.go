package timenorm

import (
	"math"
	"strconv"
	"strings"
)

// trackingTemplate is the fixed column layout of the structured tracking
// export family. Headerless exports from that system are assigned these
// names positionally, truncated to the columns actually present.
var trackingTemplate = []string{
	"Contractor", "Person", "PersonID", "StartTime", "EndTime",
	"Location", "Area", "Duration", "Status", "ID", "Role", "JobTitle",
}

// trackingMarkers identify a tracking export by header content alone.
var trackingMarkers = []string{"contractor", "role", "job title"}

// Normalize converts an arbitrary input table into the canonical record
// shape. It is a pure function: the input table is never mutated, and no
// column-level or cell-level problem raises an error. Missing columns fall
// back to defaults, unreadable timestamps to PeriodUnknown, and unreadable
// durations to NaN (see the resolver and extractor for the individual
// fallback chains).
func Normalize(t Table) []NormalizedRecord {
	t = applyTrackingTemplate(t)

	res := Resolve(t)
	contractor := res.Col(RoleContractor)
	jobTitle := res.Col(RoleJobTitle)
	identity := res.Col(RolePersonIdentity)
	secondary := res.Col(RolePersonSecondaryID)
	area := res.Col(RoleArea)
	duration := res.Col(RoleDuration)
	start := res.Col(RoleStartTime)
	end := res.Col(RoleEndTime)

	extractor := NewDateExtractor(columnValues(t, start.Index))

	records := make([]NormalizedRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := NormalizedRecord{
			Contractor: cell(row, contractor),
			Role:       cell(row, jobTitle),
			Area:       cell(row, area),
			Period:     PeriodUnknown,
		}

		rec.PersonID = cell(row, identity)
		if sec := cell(row, secondary); sec != "" {
			rec.PersonID = rec.PersonID + "_" + sec
		}

		if start.Index >= 0 {
			rec.Period = extractor.Period(cell(row, start))
		}

		rec.Duration = durationMinutes(row, duration, start, end, extractor)
		records = append(records, rec)
	}
	return records
}

// applyTrackingTemplate assigns the fixed 12-column name template to
// headerless tables wide enough to be tracking exports. Tables that already
// carry a recognizable header are returned as-is; the copy keeps Normalize
// free of in-place mutation.
func applyTrackingTemplate(t Table) Table {
	if !t.Headerless || len(t.Columns) < len(trackingTemplate) {
		return t
	}
	if isTrackingExport(t.Columns) {
		return t
	}
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	copy(cols, trackingTemplate)
	return Table{Columns: cols, Rows: t.Rows, Headerless: t.Headerless}
}

// isTrackingExport reports whether the header already names one of the
// tracking export's marker columns.
func isTrackingExport(columns []string) bool {
	for _, col := range columns {
		name := normalizeColumnName(col)
		for _, marker := range trackingMarkers {
			if name == marker {
				return true
			}
		}
	}
	return false
}

// cell reads one resolved field from a row: the mapped column's trimmed
// value, or the role's default when the column is absent or the cell empty.
func cell(row []string, rc ResolvedColumn) string {
	if rc.Index >= 0 && rc.Index < len(row) {
		if v := strings.TrimSpace(row[rc.Index]); v != "" {
			return v
		}
	}
	return rc.Default
}

// durationMinutes computes the Duration field: an explicit total-minutes
// column wins (non-numeric values become NaN, not errors); otherwise the
// difference between the end and start timestamps; otherwise 60.
func durationMinutes(row []string, duration, start, end ResolvedColumn, extractor *DateExtractor) float64 {
	if duration.Index >= 0 {
		raw := cell(row, duration)
		if raw == "" {
			return math.NaN()
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}

	if start.Index >= 0 && end.Index >= 0 {
		st, okStart := extractor.parseTime(cell(row, start))
		et, okEnd := extractor.parseTime(cell(row, end))
		if okStart && okEnd {
			return et.Sub(st).Minutes()
		}
	}

	return DefaultDurationMinutes
}

// columnValues collects one column's raw values for format detection.
func columnValues(t Table, idx int) []string {
	if idx < 0 {
		return nil
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		}
	}
	return values
}
