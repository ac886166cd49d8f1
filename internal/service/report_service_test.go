package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/restock/internal/domain"
	"github.com/andresuchdata/restock/internal/replenishment"
	"github.com/andresuchdata/restock/internal/repository"
)

const payload = `{
  "supplier": {
    "summary": {"total_items": 2},
    "items": [
      {"sku": "A", "destination": "CD", "demand_monthly": 30, "coverage_days_current": 1,
       "coverage_days_projected": 3, "should_order": true, "quantity_recommended": 5, "unit_cost": 2,
       "supplier": {"name": "ACME"}},
      {"sku": "B", "destination": "CD", "demand_monthly": 30, "coverage_days_current": 40,
       "coverage_days_projected": 40, "supplier": {"name": "BOLT"}}
    ]
  },
  "transfer": {
    "items": [
      {"sku": "C", "origin": "L2", "destination": "L1", "coverage_days_current": 9,
       "coverage_days_projected": 9, "transfer": {"priority": "MEDIA"}}
    ]
  }
}`

type fakeFetcher map[string][]byte

func (f fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	data, ok := f[ref]
	if !ok {
		return nil, errors.New("missing object")
	}
	return data, nil
}

// memCache is an in-memory report cache.
type memCache struct {
	entries map[string]*replenishment.Report
	gets    int
}

func (m *memCache) GetReport(_ context.Context, key string) (*replenishment.Report, bool, error) {
	m.gets++
	r, ok := m.entries[key]
	return r, ok, nil
}

func (m *memCache) SetReport(_ context.Context, key string, r *replenishment.Report) error {
	m.entries[key] = r
	return nil
}

func (m *memCache) InvalidateAll(context.Context) error {
	m.entries = map[string]*replenishment.Report{}
	return nil
}

func newTestService(t *testing.T, maxSessions int) (*ReportService, *memCache, repository.ReportRunRepository) {
	t.Helper()

	c := &memCache{entries: map[string]*replenishment.Report{}}
	runs := repository.NewMemoryRunRepository(10)
	svc := NewReportService(fakeFetcher{"s3://exports/run.json": []byte(payload)}, c, runs,
		ReportServiceConfig{MaxSessions: maxSessions})

	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, c, runs
}

func TestReportService_BuildFromPayload(t *testing.T) {
	svc, _, runs := newTestService(t, 0)
	ctx := context.Background()

	res, err := svc.BuildFromPayload(ctx, []byte(payload), "upload")
	if err != nil {
		t.Fatalf("BuildFromPayload() error = %v", err)
	}
	if res.CacheHit {
		t.Errorf("first build reported a cache hit")
	}
	if res.Report.Overall.ItemCount != 3 || res.Report.Overall.ToOrderCount != 1 {
		t.Errorf("unexpected overall: %+v", res.Report.Overall)
	}

	// A was not flagged; 1 day is below the 3 day supplier cut-off
	if !res.Report.Items[0].StockoutRisk {
		t.Errorf("stockout risk not derived for A")
	}

	run, err := runs.GetRun(ctx, res.ID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Status != domain.RunSucceeded || run.Items != 3 || len(run.Flows) != 2 {
		t.Errorf("unexpected run: %+v", run)
	}

	again, err := svc.BuildFromPayload(ctx, []byte(payload), "upload")
	if err != nil {
		t.Fatalf("second build error = %v", err)
	}
	if !again.CacheHit || again.ID == res.ID {
		t.Errorf("second build should hit the cache with a new id: %+v", again)
	}
}

func TestReportService_BuildFromRef(t *testing.T) {
	svc, _, runs := newTestService(t, 0)
	ctx := context.Background()

	res, err := svc.BuildFromRef(ctx, "s3://exports/run.json")
	if err != nil {
		t.Fatalf("BuildFromRef() error = %v", err)
	}
	if len(res.Report.Items) != 3 {
		t.Errorf("items = %d, want 3", len(res.Report.Items))
	}

	if _, err := svc.BuildFromRef(ctx, "s3://exports/missing.json"); err == nil {
		t.Fatalf("expected fetch error")
	}

	failed := domain.RunFailed
	list, err := runs.ListRuns(ctx, domain.RunFilter{Status: &failed})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].SourceRef != "s3://exports/missing.json" {
		t.Errorf("failed run not recorded: %+v", list)
	}
}

func TestReportService_InvalidPayload(t *testing.T) {
	svc, _, _ := newTestService(t, 0)

	_, err := svc.BuildFromPayload(context.Background(), []byte(`{"supplier": 12}`), "upload")
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestReportService_ViewAndUrgent(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	ctx := context.Background()

	res, err := svc.BuildFromPayload(ctx, []byte(payload), "upload")
	if err != nil {
		t.Fatal(err)
	}

	view, err := svc.View(res.ID, replenishment.Filter{Flows: []replenishment.FlowKind{replenishment.FlowSupplier}})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(view.Items) != 2 || len(view.BySupplier) != 2 {
		t.Errorf("unexpected view: %d items, %d suppliers", len(view.Items), len(view.BySupplier))
	}

	urgent, err := svc.MostUrgent(res.ID, 1)
	if err != nil {
		t.Fatalf("MostUrgent() error = %v", err)
	}
	if len(urgent) != 1 || urgent[0].SKU != "A" {
		t.Errorf("MostUrgent() = %+v", urgent)
	}

	if _, err := svc.View("nope", replenishment.Filter{}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("View(unknown) error = %v", err)
	}

	if err := svc.DeleteSession(res.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := svc.Session(res.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("session survived deletion")
	}
}

func TestReportService_KeepsConfiguredFallback(t *testing.T) {
	fallback := replenishment.Thresholds{CriticalBelow: 30, WarningBelow: 60, RiskCutoffDays: 5}
	svc := NewReportService(nil, nil, nil, ReportServiceConfig{
		Options: replenishment.ReportOptions{Classifier: replenishment.ClassifierConfig{Fallback: fallback}},
	})

	cfg := svc.Thresholds()
	if cfg.Fallback != fallback {
		t.Errorf("Fallback = %+v, want %+v", cfg.Fallback, fallback)
	}
	if got := cfg.PerFlow[replenishment.FlowSupplier]; got != (replenishment.Thresholds{}) {
		t.Errorf("PerFlow[SUPPLIER] = %+v, want the fallback to apply", got)
	}
}

func TestReportService_EvictsOldestSession(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := svc.BuildFromPayload(ctx, []byte(payload), "upload")
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, res.ID)
	}

	if _, err := svc.Session(ids[0]); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("oldest session was not evicted")
	}
	for _, id := range ids[1:] {
		if _, err := svc.Session(id); err != nil {
			t.Errorf("session %s missing: %v", id, err)
		}
	}
}

func TestReportService_Scenario(t *testing.T) {
	svc, _, _ := newTestService(t, 0)

	batch := svc.Scenario([]replenishment.ScenarioRow{
		{Location: "L", SKU: "a", StockCurrent: 7, DemandDaily: 1},
		{Location: "L", SKU: "b", StockCurrent: 7, DemandDaily: 0},
	})
	if batch.Totals.Count != 1 || batch.Totals.Warning != 1 {
		t.Errorf("Totals = %+v", batch.Totals)
	}
}
