package dataset

import (
	"context"
	"log"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/workforce-monitor/internal/timenorm"
)

// Summary describes one stored dataset for listing.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Synthetic bool      `json:"synthetic"`
	Records   int       `json:"records"`
	Periods   int       `json:"periods"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows the aggregated view. Empty slices match everything.
type Filter struct {
	Periods     []string
	Roles       []string
	Contractors []string
}

// ContractorStat summarizes one contractor's workforce over time. Average
// and peak are taken over the weekly total workers for that contractor.
type ContractorStat struct {
	Contractor     string  `json:"contractor"`
	AverageWorkers float64 `json:"average_workers"`
	PeakWorkers    int     `json:"peak_workers"`
	TotalWorkers   int     `json:"total_workers"`
	Roles          int     `json:"roles"`
	Weeks          int     `json:"weeks"`
}

// RoleTotal is the total worker count attributed to one role.
type RoleTotal struct {
	Role    string `json:"role"`
	Workers int    `json:"workers"`
}

// AreaStat summarizes time spent per area (Site vs Welfare in the common
// exports), from the normalized per-clock-in records.
type AreaStat struct {
	Area            string  `json:"area"`
	Records         int     `json:"records"`
	Workers         int     `json:"workers"`
	DurationMinutes float64 `json:"duration_minutes"`
}

type stored struct {
	summary Summary
	data    timenorm.Dataset
}

// Service stores processed datasets and computes the dashboard views.
// All methods are safe for concurrent use.
type Service struct {
	mu    sync.RWMutex
	byID  map[string]*stored
	order []string
	cache *Cache
}

// NewService creates a dataset service. cache may be nil to run without
// Redis.
func NewService(cache *Cache) *Service {
	return &Service{byID: make(map[string]*stored), cache: cache}
}

// Process runs a raw table through the normalization pipeline and stores the
// result under a fresh id. It never fails: unusable input comes back as the
// synthetic demo dataset, still stored and listable.
func (s *Service) Process(ctx context.Context, name string, t timenorm.Table) (string, error) {
	ds := timenorm.Process(t)
	id := uuid.New().String()

	entry := &stored{
		summary: Summary{
			ID:        id,
			Name:      filepath.Base(name),
			Synthetic: ds.Synthetic,
			Records:   len(ds.Normalized),
			Periods:   len(distinctPeriods(ds.Aggregated)),
			CreatedAt: time.Now().UTC(),
		},
		data: ds,
	}

	s.mu.Lock()
	s.byID[id] = entry
	s.order = append(s.order, id)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SetAggregated(ctx, id, ds.Aggregated); err != nil {
			log.Printf("[dataset] cache aggregated %s: %v", id, err)
		}
	}

	log.Printf("[dataset] processed %s: id=%s records=%d groups=%d synthetic=%v",
		name, id, len(ds.Normalized), len(ds.Aggregated), ds.Synthetic)
	return id, nil
}

// Get returns the summary for one dataset.
func (s *Service) Get(ctx context.Context, id string) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byID[id]
	if !ok {
		return Summary{}, ErrNotFound
	}
	return entry.summary, nil
}

// List returns summaries of all stored datasets, newest first.
func (s *Service) List(ctx context.Context) []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]].summary)
	}
	return out
}

// Aggregated returns the aggregated view of a dataset, optionally filtered.
// The unfiltered view is served from Redis when cached.
func (s *Service) Aggregated(ctx context.Context, id string, f Filter) ([]timenorm.AggregatedRecord, error) {
	if s.cache != nil && f.empty() {
		if records, ok := s.cache.GetAggregated(ctx, id); ok {
			return records, nil
		}
	}

	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	out := make([]timenorm.AggregatedRecord, 0, len(entry.data.Aggregated))
	for _, rec := range entry.data.Aggregated {
		if !f.matches(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Normalized returns the per-clock-in records of a dataset. Synthetic
// datasets have none.
func (s *Service) Normalized(ctx context.Context, id string) ([]timenorm.NormalizedRecord, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return entry.data.Normalized, nil
}

// Periods returns a dataset's period labels in chronological order, with the
// unknown-week bucket last when present.
func (s *Service) Periods(ctx context.Context, id string) ([]string, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	distinct := distinctPeriods(entry.data.Aggregated)
	sorted := timenorm.SortPeriods(distinct)
	for _, p := range distinct {
		if p == timenorm.PeriodUnknown {
			sorted = append(sorted, timenorm.PeriodUnknown)
			break
		}
	}
	return sorted, nil
}

// ContractorStats returns per-contractor workforce statistics, peak first.
func (s *Service) ContractorStats(ctx context.Context, id string) ([]ContractorStat, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	type acc struct {
		weekly map[string]int
		roles  map[string]struct{}
		total  int
	}
	byContractor := make(map[string]*acc)
	var order []string

	for _, rec := range entry.data.Aggregated {
		a, ok := byContractor[rec.Contractor]
		if !ok {
			a = &acc{weekly: make(map[string]int), roles: make(map[string]struct{})}
			byContractor[rec.Contractor] = a
			order = append(order, rec.Contractor)
		}
		a.weekly[rec.Period] += rec.WorkerCount
		a.roles[rec.Role] = struct{}{}
		a.total += rec.WorkerCount
	}

	out := make([]ContractorStat, 0, len(order))
	for _, contractor := range order {
		a := byContractor[contractor]
		peak, sum := 0, 0
		for _, n := range a.weekly {
			sum += n
			if n > peak {
				peak = n
			}
		}
		avg := float64(sum) / float64(len(a.weekly))
		out = append(out, ContractorStat{
			Contractor:     contractor,
			AverageWorkers: math.Round(avg*10) / 10,
			PeakWorkers:    peak,
			TotalWorkers:   a.total,
			Roles:          len(a.roles),
			Weeks:          len(a.weekly),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].PeakWorkers > out[j].PeakWorkers })
	return out, nil
}

// RoleTotals returns total workers per role, optionally for one contractor,
// largest first.
func (s *Service) RoleTotals(ctx context.Context, id, contractor string) ([]RoleTotal, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	var order []string
	for _, rec := range entry.data.Aggregated {
		if contractor != "" && rec.Contractor != contractor {
			continue
		}
		if _, ok := totals[rec.Role]; !ok {
			order = append(order, rec.Role)
		}
		totals[rec.Role] += rec.WorkerCount
	}

	out := make([]RoleTotal, 0, len(order))
	for _, role := range order {
		out = append(out, RoleTotal{Role: role, Workers: totals[role]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Workers > out[j].Workers })
	return out, nil
}

// AreaBreakdown splits the normalized records by area, summing durations.
// Records whose duration could not be derived are counted but contribute no
// minutes.
func (s *Service) AreaBreakdown(ctx context.Context, id, contractor string) ([]AreaStat, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	type acc struct {
		records  int
		workers  map[string]struct{}
		duration float64
	}
	byArea := make(map[string]*acc)
	var order []string

	for _, rec := range entry.data.Normalized {
		if contractor != "" && rec.Contractor != contractor {
			continue
		}
		a, ok := byArea[rec.Area]
		if !ok {
			a = &acc{workers: make(map[string]struct{})}
			byArea[rec.Area] = a
			order = append(order, rec.Area)
		}
		a.records++
		a.workers[rec.PersonID] = struct{}{}
		if !math.IsNaN(rec.Duration) {
			a.duration += rec.Duration
		}
	}

	out := make([]AreaStat, 0, len(order))
	for _, area := range order {
		a := byArea[area]
		out = append(out, AreaStat{
			Area:            area,
			Records:         a.records,
			Workers:         len(a.workers),
			DurationMinutes: a.duration,
		})
	}
	return out, nil
}

func (s *Service) lookup(id string) (*stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (f Filter) empty() bool {
	return len(f.Periods) == 0 && len(f.Roles) == 0 && len(f.Contractors) == 0
}

func (f Filter) matches(rec timenorm.AggregatedRecord) bool {
	return contains(f.Periods, rec.Period) &&
		contains(f.Roles, rec.Role) &&
		contains(f.Contractors, rec.Contractor)
}

func contains(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func distinctPeriods(records []timenorm.AggregatedRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		if _, ok := seen[rec.Period]; ok {
			continue
		}
		seen[rec.Period] = struct{}{}
		out = append(out, rec.Period)
	}
	return out
}
