package dataset_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/workforce-monitor/internal/service/dataset"
	"github.com/ignite/workforce-monitor/internal/timenorm"
)

func sampleTable() timenorm.Table {
	return timenorm.Table{
		Columns: []string{"Contractor", "Role", "Worker Name", "Worker ID", "In", "Out", "Area"},
		Rows: [][]string{
			{"Acme", "Operative", "John", "1", "13/06/2024 08:00", "13/06/2024 16:00", "Site"},
			{"Acme", "Operative", "Jane", "2", "13/06/2024 08:00", "13/06/2024 16:00", "Site"},
			{"Acme", "Manager", "Sam", "3", "13/06/2024 08:00", "13/06/2024 12:00", "Welfare"},
			{"BuildCo", "Operative", "Pat", "4", "20/06/2024 08:00", "20/06/2024 16:00", "Site"},
		},
	}
}

func TestProcessAndGet(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()

	id, err := svc.Process(ctx, "drops/site_export.csv", sampleTable())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	sum, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sum.Name != "site_export.csv" {
		t.Errorf("name = %q", sum.Name)
	}
	if sum.Synthetic {
		t.Error("real upload marked synthetic")
	}
	if sum.Records != 4 || sum.Periods != 2 {
		t.Errorf("summary = %+v, want 4 records over 2 periods", sum)
	}

	if _, err := svc.Get(ctx, "missing"); err != dataset.ErrNotFound {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()

	first, _ := svc.Process(ctx, "a.csv", sampleTable())
	second, _ := svc.Process(ctx, "b.csv", sampleTable())

	list := svc.List(ctx)
	if len(list) != 2 {
		t.Fatalf("got %d datasets, want 2", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Errorf("list order = %s, %s", list[0].ID, list[1].ID)
	}
}

func TestAggregatedFilters(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()
	id, _ := svc.Process(ctx, "x.csv", sampleTable())

	all, err := svc.Aggregated(ctx, id, dataset.Filter{})
	if err != nil {
		t.Fatalf("Aggregated: %v", err)
	}
	// (W24 Operative Acme), (W24 Manager Acme), (W25 Operative BuildCo)
	if len(all) != 3 {
		t.Fatalf("got %d groups, want 3: %+v", len(all), all)
	}

	acme, err := svc.Aggregated(ctx, id, dataset.Filter{Contractors: []string{"Acme"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(acme) != 2 {
		t.Errorf("Acme groups = %+v, want 2", acme)
	}

	ops, err := svc.Aggregated(ctx, id, dataset.Filter{
		Roles:   []string{"Operative"},
		Periods: []string{"2024-W24"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].WorkerCount != 2 {
		t.Errorf("filtered = %+v, want one Operative group with 2 workers", ops)
	}
}

func TestAggregatedServedFromCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := dataset.NewService(dataset.NewCache(rdb, 0))
	ctx := context.Background()

	id, err := svc.Process(ctx, "x.csv", sampleTable())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !mr.Exists("dataset:" + id + ":aggregated") {
		t.Fatal("aggregated view not written to redis")
	}

	records, err := svc.Aggregated(ctx, id, dataset.Filter{})
	if err != nil {
		t.Fatalf("Aggregated: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d groups from cache, want 3", len(records))
	}
}

func TestPeriodsSortedWithUnknownLast(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()

	table := sampleTable()
	table.Rows = append(table.Rows,
		[]string{"Acme", "Operative", "Zed", "9", "??", "??", "Site"})
	id, _ := svc.Process(ctx, "x.csv", table)

	periods, err := svc.Periods(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-W24", "2024-W25", timenorm.PeriodUnknown}
	if len(periods) != len(want) {
		t.Fatalf("periods = %v, want %v", periods, want)
	}
	for i := range want {
		if periods[i] != want[i] {
			t.Fatalf("periods = %v, want %v", periods, want)
		}
	}
}

func TestContractorStats(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()
	id, _ := svc.Process(ctx, "x.csv", sampleTable())

	stats, err := svc.ContractorStats(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %+v, want 2 contractors", stats)
	}

	// Acme: one week totalling 3 workers across two roles. Peak sorts first.
	acme := stats[0]
	if acme.Contractor != "Acme" {
		t.Fatalf("first contractor = %q, want Acme (highest peak)", acme.Contractor)
	}
	if acme.PeakWorkers != 3 || acme.AverageWorkers != 3 || acme.TotalWorkers != 3 {
		t.Errorf("acme = %+v", acme)
	}
	if acme.Roles != 2 || acme.Weeks != 1 {
		t.Errorf("acme = %+v, want 2 roles over 1 week", acme)
	}

	buildco := stats[1]
	if buildco.PeakWorkers != 1 || buildco.TotalWorkers != 1 {
		t.Errorf("buildco = %+v", buildco)
	}
}

func TestRoleTotals(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()
	id, _ := svc.Process(ctx, "x.csv", sampleTable())

	totals, err := svc.RoleTotals(ctx, id, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 2 || totals[0].Role != "Operative" || totals[0].Workers != 3 {
		t.Errorf("totals = %+v, want Operative=3 first", totals)
	}

	acme, err := svc.RoleTotals(ctx, id, "Acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(acme) != 2 || acme[0].Workers != 2 {
		t.Errorf("acme totals = %+v", acme)
	}
}

func TestAreaBreakdown(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()
	id, _ := svc.Process(ctx, "x.csv", sampleTable())

	areas, err := svc.AreaBreakdown(ctx, id, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(areas) != 2 {
		t.Fatalf("areas = %+v, want Site and Welfare", areas)
	}

	byName := map[string]dataset.AreaStat{}
	for _, a := range areas {
		byName[a.Area] = a
	}
	site := byName["Site"]
	if site.Records != 3 || site.Workers != 3 || site.DurationMinutes != 3*480 {
		t.Errorf("site = %+v", site)
	}
	welfare := byName["Welfare"]
	if welfare.Records != 1 || welfare.DurationMinutes != 240 {
		t.Errorf("welfare = %+v", welfare)
	}
}

func TestProcessNeverRejectsInput(t *testing.T) {
	svc := dataset.NewService(nil)
	ctx := context.Background()

	id, err := svc.Process(ctx, "empty.csv", timenorm.Table{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	sum, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Synthetic {
		t.Error("empty input not marked synthetic")
	}

	records, err := svc.Aggregated(ctx, id, dataset.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) == 0 {
		t.Error("synthetic dataset has no aggregated records")
	}
}
