package timenorm

// groupKey identifies one output group.
type groupKey struct {
	period     string
	role       string
	contractor string
}

type workerKey struct {
	groupKey
	person string
}

// Aggregate deduplicates normalized rows by (Period, Role, Contractor,
// PersonIdentifier), so a worker clocking in several times within the same
// week counts once, then counts the distinct workers per (Period, Role,
// Contractor) group. Groups are emitted in first-seen order; callers needing
// chronological order sort the period labels separately with SortPeriods.
//
// An empty input yields the single fallback row rather than an empty table,
// so downstream consumers always have something to render.
func Aggregate(records []NormalizedRecord) []AggregatedRecord {
	if len(records) == 0 {
		return []AggregatedRecord{fallbackRow()}
	}

	seen := make(map[workerKey]struct{}, len(records))
	counts := make(map[groupKey]int)
	var order []groupKey

	for _, rec := range records {
		gk := groupKey{period: rec.Period, role: rec.Role, contractor: rec.Contractor}
		wk := workerKey{groupKey: gk, person: rec.PersonID}
		if _, dup := seen[wk]; dup {
			continue
		}
		seen[wk] = struct{}{}
		if _, exists := counts[gk]; !exists {
			order = append(order, gk)
		}
		counts[gk]++
	}

	out := make([]AggregatedRecord, 0, len(order))
	for _, gk := range order {
		out = append(out, AggregatedRecord{
			Period:      gk.period,
			Role:        gk.role,
			Contractor:  gk.contractor,
			WorkerCount: counts[gk],
		})
	}
	return out
}

func fallbackRow() AggregatedRecord {
	return AggregatedRecord{
		Period:      PeriodUnknown,
		Role:        DefaultRole,
		Contractor:  DefaultContractor,
		WorkerCount: 1,
	}
}
