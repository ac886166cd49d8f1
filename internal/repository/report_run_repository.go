// internal/repository/report_run_repository.go
package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/andresuchdata/restock/internal/domain"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("report run not found")

// DefaultRunLimit bounds listings that do not set a limit.
const DefaultRunLimit = 50

type ReportRunRepository interface {
	SaveRun(ctx context.Context, run *domain.ReportRun) error
	GetRun(ctx context.Context, id string) (*domain.ReportRun, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.ReportRun, error)
}

// memoryRunRepository keeps the most recent runs in process memory. It is used
// when no database is configured.
type memoryRunRepository struct {
	mu       sync.RWMutex
	capacity int
	runs     []domain.ReportRun
}

func NewMemoryRunRepository(capacity int) ReportRunRepository {
	if capacity <= 0 {
		capacity = DefaultRunLimit
	}
	return &memoryRunRepository{capacity: capacity}
}

func (r *memoryRunRepository) SaveRun(ctx context.Context, run *domain.ReportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *run
	c.Flows = append([]domain.RunFlow(nil), run.Flows...)
	r.runs = append(r.runs, c)
	if over := len(r.runs) - r.capacity; over > 0 {
		r.runs = append([]domain.ReportRun(nil), r.runs[over:]...)
	}
	return nil
}

func (r *memoryRunRepository) GetRun(ctx context.Context, id string) (*domain.ReportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.runs {
		if r.runs[i].ID == id {
			c := r.runs[i]
			return &c, nil
		}
	}
	return nil, ErrRunNotFound
}

func (r *memoryRunRepository) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.ReportRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	out := make([]domain.ReportRun, 0, len(r.runs))
	for _, run := range r.runs {
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		if filter.SourceRef != "" && run.SourceRef != filter.SourceRef {
			continue
		}
		run.Flows = nil
		out = append(out, run)
	}

	// newest first
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
