package timenorm

import (
	"fmt"
	"strings"
)

// ResolvedColumn binds one semantic role to either a real source column
// (Index >= 0) or to a constant default value (Index == -1).
type ResolvedColumn struct {
	Role    ColumnRole `json:"role"`
	Column  string     `json:"column,omitempty"`
	Index   int        `json:"index"`
	Default string     `json:"default,omitempty"`
	Rule    string     `json:"rule"` // exact | substring | positional | default
}

// Resolution is the complete column map for one input table plus the trace of
// how each role was resolved, so the rationale stays inspectable without
// coupling the resolver to a logging facility.
type Resolution struct {
	Columns map[ColumnRole]ResolvedColumn `json:"columns"`
	Trace   []string                      `json:"trace"`
}

// Col returns the resolved column for a role. Every role passed to resolve
// has an entry, so the zero value only appears for roles never resolved.
func (r *Resolution) Col(role ColumnRole) ResolvedColumn {
	return r.Columns[role]
}

// roleRule is one role's data-driven matching configuration: exact canonical
// names tried first, then substring tokens, then the hard default value.
type roleRule struct {
	exact  []string
	substr []string
	def    string
}

var roleRules = map[ColumnRole]roleRule{
	RoleContractor: {
		exact:  []string{"contractor", "company", "organization", "employer", "client", "vendor", "supplier", "provider"},
		substr: []string{"contractor", "company", "organization", "employer", "vendor", "supplier"},
		def:    DefaultContractor,
	},
	RoleJobTitle: {
		exact:  []string{"role", "jobtitle", "job title", "position", "trade", "occupation"},
		substr: []string{"role", "job", "position", "trade", "occupation"},
		def:    DefaultRole,
	},
	RolePersonIdentity: {
		exact:  []string{"worker name", "bio id", "name", "person", "employee", "staff"},
		substr: []string{"name", "person", "employee", "staff"},
		def:    DefaultPersonIdentity,
	},
	RolePersonSecondaryID: {
		exact:  []string{"worker id", "workerid", "personid", "person id", "employee id", "staff id", "badge"},
		substr: []string{"worker id", "workerid", "personid", "badge"},
		def:    "",
	},
	RoleArea: {
		exact:  []string{"area", "location", "site", "place", "zone"},
		substr: []string{"area", "location", "site", "place", "zone"},
		def:    DefaultArea,
	},
	RoleDuration: {
		exact:  []string{"total minutes", "duration", "minutes", "total time"},
		substr: []string{"minute", "duration"},
		def:    "",
	},
}

// resolveOrder fixes the order roles are resolved and traced in.
var resolveOrder = []ColumnRole{
	RoleContractor,
	RoleJobTitle,
	RolePersonIdentity,
	RolePersonSecondaryID,
	RoleArea,
	RoleDuration,
}

// Resolve maps every required semantic role to a source column or a default.
// It is a pure function of the column names and row values, always returns a
// complete map, and never fails: a role with no plausible column falls
// through to its hard default (or, for the time and duration roles, to a
// sentinel that triggers the downstream fallback).
func Resolve(t Table) *Resolution {
	res := &Resolution{Columns: make(map[ColumnRole]ResolvedColumn, len(resolveOrder)+2)}

	claimed := make(map[int]ColumnRole)
	for _, role := range resolveOrder {
		rc := resolveRole(role, t, claimed)
		if rc.Index >= 0 {
			claimed[rc.Index] = role
		}
		res.Columns[role] = rc
		res.trace(rc)
	}

	start, end := resolveTimeColumns(t.Columns, claimed)
	res.Columns[RoleStartTime] = start
	res.Columns[RoleEndTime] = end
	res.trace(start)
	res.trace(end)

	return res
}

func (r *Resolution) trace(rc ResolvedColumn) {
	if rc.Index >= 0 {
		r.Trace = append(r.Trace, fmt.Sprintf("%s: %s match on column %q", rc.Role, rc.Rule, rc.Column))
		return
	}
	if rc.Default != "" {
		r.Trace = append(r.Trace, fmt.Sprintf("%s: no column matched, defaulting to %q", rc.Role, rc.Default))
		return
	}
	r.Trace = append(r.Trace, fmt.Sprintf("%s: no column matched, no default", rc.Role))
}

func resolveRole(role ColumnRole, t Table, claimed map[int]ColumnRole) ResolvedColumn {
	rule := roleRules[role]

	// Canonical names are tried in list order so that, e.g., a table carrying
	// both "Area" and "Location" resolves the area role to "Area".
	for _, canonical := range rule.exact {
		for i, col := range t.Columns {
			if _, taken := claimed[i]; taken {
				continue
			}
			if normalizeColumnName(col) == canonical {
				return ResolvedColumn{Role: role, Column: col, Index: i, Rule: "exact"}
			}
		}
	}

	for _, token := range rule.substr {
		for i, col := range t.Columns {
			if _, taken := claimed[i]; taken {
				continue
			}
			if strings.Contains(normalizeColumnName(col), token) {
				return ResolvedColumn{Role: role, Column: col, Index: i, Rule: "substring"}
			}
		}
	}

	// Positional heuristic: tracking exports lead with the contractor column,
	// whose values repeat heavily. Mostly non-unique first column => contractor.
	if role == RoleContractor && len(t.Columns) > 0 && len(t.Rows) > 1 {
		if _, taken := claimed[0]; !taken && firstColumnMostlyRepeated(t.Rows) {
			return ResolvedColumn{Role: role, Column: t.Columns[0], Index: 0, Rule: "positional"}
		}
	}

	return ResolvedColumn{Role: role, Index: -1, Default: rule.def, Rule: "default"}
}

func firstColumnMostlyRepeated(rows [][]string) bool {
	distinct := make(map[string]struct{}, len(rows))
	counted := 0
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		distinct[strings.TrimSpace(row[0])] = struct{}{}
		counted++
	}
	return counted > 0 && len(distinct) < counted/2
}

// resolveTimeColumns finds the start and end timestamp columns. A column is
// date-ish when its name contains "date" or "time", or is literally "In" or
// "Out" (clock-in/out exports). Columns already claimed by another role stay
// out of the scan: "Total Time" belongs to duration, not to the clock.
func resolveTimeColumns(columns []string, claimed map[int]ColumnRole) (start, end ResolvedColumn) {
	start = ResolvedColumn{Role: RoleStartTime, Index: -1, Rule: "default"}
	end = ResolvedColumn{Role: RoleEndTime, Index: -1, Rule: "default"}

	var dateish []int
	for i, col := range columns {
		if _, taken := claimed[i]; taken {
			continue
		}
		name := normalizeColumnName(col)
		if strings.Contains(name, "date") || strings.Contains(name, "time") || name == "in" || name == "out" {
			dateish = append(dateish, i)
		}
	}

	for _, i := range dateish {
		name := normalizeColumnName(columns[i])
		if end.Index < 0 && (strings.Contains(name, "end") || strings.Contains(name, "finish") || name == "out") {
			end = ResolvedColumn{Role: RoleEndTime, Column: columns[i], Index: i, Rule: "substring"}
		}
	}
	for _, i := range dateish {
		if i == end.Index {
			continue
		}
		name := normalizeColumnName(columns[i])
		if strings.Contains(name, "start") || name == "in" {
			start = ResolvedColumn{Role: RoleStartTime, Column: columns[i], Index: i, Rule: "substring"}
			break
		}
	}
	if start.Index < 0 {
		for _, i := range dateish {
			if i != end.Index {
				start = ResolvedColumn{Role: RoleStartTime, Column: columns[i], Index: i, Rule: "positional"}
				break
			}
		}
	}
	return start, end
}

func normalizeColumnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Trim(name, `"'`)
	return strings.Join(strings.Fields(name), " ")
}
