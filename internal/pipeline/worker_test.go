package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/restock/internal/replenishment"
	"github.com/andresuchdata/restock/internal/service"
	"github.com/andresuchdata/restock/internal/source"
)

// fakeBuilder fails each ref the configured number of times before succeeding.
// A negative count fails forever. Refs in errs always fail with that error.
type fakeBuilder struct {
	mu       sync.Mutex
	failures map[string]int
	errs     map[string]error
	calls    map[string]int
}

func newFakeBuilder(failures map[string]int) *fakeBuilder {
	return &fakeBuilder{failures: failures, calls: map[string]int{}}
}

func (f *fakeBuilder) BuildFromRef(_ context.Context, ref string) (*service.BuildResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[ref]++
	if err, ok := f.errs[ref]; ok {
		return nil, err
	}
	if n := f.failures[ref]; n < 0 || f.calls[ref] <= n {
		return nil, errors.New("upstream unavailable")
	}
	return &service.BuildResult{
		ID:     "id-" + ref,
		Report: &replenishment.Report{Overall: replenishment.GroupedMetrics{ItemCount: 3}},
	}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestWorker_ProcessBatch(t *testing.T) {
	builder := newFakeBuilder(map[string]int{"b": 1, "c": -1})
	w := NewWorker(builder, BatchConfig{WorkerCount: 2, RetryAttempts: 3})
	w.sleep = noSleep

	res, err := w.ProcessBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if res.Completed != 2 || res.Failed != 1 {
		t.Errorf("completed/failed = %d/%d, want 2/1", res.Completed, res.Failed)
	}

	tests := []struct {
		ref      string
		status   JobStatus
		attempts int
	}{
		{"a", JobCompleted, 1},
		{"b", JobCompleted, 2},
		{"c", JobFailed, 3},
	}
	for i, tt := range tests {
		job := res.Jobs[i]
		if job.Ref != tt.ref || job.Status != tt.status || job.Attempts != tt.attempts {
			t.Errorf("job %d = %+v, want ref %s status %s attempts %d", i, job, tt.ref, tt.status, tt.attempts)
		}
	}
	if res.Jobs[0].ReportID != "id-a" || res.Jobs[0].Items != 3 {
		t.Errorf("job a = %+v", res.Jobs[0])
	}
	if res.Jobs[1].Error != "" {
		t.Errorf("retried job kept error %q", res.Jobs[1].Error)
	}
}

func TestWorker_PermanentErrorsNotRetried(t *testing.T) {
	builder := newFakeBuilder(nil)
	builder.errs = map[string]error{
		"bad":   fmt.Errorf("%w: unexpected end of JSON input", service.ErrInvalidPayload),
		"ftp":   fmt.Errorf("failed to fetch ftp: %w", source.ErrUnsupportedRef),
		"flaky": errors.New("connection reset"),
	}
	w := NewWorker(builder, BatchConfig{WorkerCount: 1, RetryAttempts: 3})
	w.sleep = noSleep

	res, err := w.ProcessBatch(context.Background(), []string{"bad", "ftp", "flaky"})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	tests := []struct {
		ref      string
		attempts int
	}{
		{"bad", 1},
		{"ftp", 1},
		{"flaky", 3},
	}
	for i, tt := range tests {
		job := res.Jobs[i]
		if job.Status != JobFailed || job.Attempts != tt.attempts {
			t.Errorf("job %s = status %s attempts %d, want failed after %d", tt.ref, job.Status, job.Attempts, tt.attempts)
		}
	}
}

func TestWorker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWorker(newFakeBuilder(nil), BatchConfig{})
	res, err := w.ProcessBatch(ctx, []string{"a", "b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ProcessBatch() error = %v, want context.Canceled", err)
	}
	if res.Completed+res.Failed > 2 {
		t.Errorf("unexpected job counts: %+v", res)
	}
}

type fakeLister struct {
	objects []source.ObjectInfo
	err     error
}

func (f fakeLister) List(context.Context, string) ([]source.ObjectInfo, error) {
	return f.objects, f.err
}

func TestOrchestrator_Run(t *testing.T) {
	lister := fakeLister{objects: []source.ObjectInfo{
		{Key: "exports/2024-02.json"},
		{Key: "exports/notes.txt"},
		{Key: "exports/2024-01.JSON"},
	}}
	builder := newFakeBuilder(nil)
	o := NewOrchestrator(lister, builder, BatchConfig{WorkerCount: 1})
	o.worker.sleep = noSleep

	res, err := o.Run(context.Background(), "s3://bucket/exports/")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"s3://bucket/exports/2024-01.JSON", "s3://bucket/exports/2024-02.json"}
	if len(res.Jobs) != len(want) {
		t.Fatalf("jobs = %d, want %d", len(res.Jobs), len(want))
	}
	for i, ref := range want {
		if res.Jobs[i].Ref != ref {
			t.Errorf("job %d ref = %s, want %s", i, res.Jobs[i].Ref, ref)
		}
	}

	if _, err := NewOrchestrator(fakeLister{err: errors.New("denied")}, builder, BatchConfig{}).
		Run(context.Background(), "s3://bucket/x/"); err == nil {
		t.Errorf("Run() expected list error")
	}
	if _, err := o.Run(context.Background(), "ftp://x"); !errors.Is(err, source.ErrUnsupportedRef) {
		t.Errorf("Run() error = %v, want ErrUnsupportedRef", err)
	}
}
