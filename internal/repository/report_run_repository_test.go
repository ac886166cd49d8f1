package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/restock/internal/domain"
)

func TestMemoryRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRunRepository(3)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3", "r4"} {
		status := domain.RunSucceeded
		if id == "r3" {
			status = domain.RunFailed
		}
		run := &domain.ReportRun{
			ID:        id,
			SourceRef: "s3://exports/run.json",
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Flows:     []domain.RunFlow{{Flow: "SUPPLIER", Items: i}},
		}
		if err := repo.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	if _, err := repo.GetRun(ctx, "r1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("oldest run should have been evicted, err = %v", err)
	}

	got, err := repo.GetRun(ctx, "r4")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if len(got.Flows) != 1 || got.Flows[0].Items != 3 {
		t.Errorf("flows not kept: %+v", got.Flows)
	}

	tests := []struct {
		name   string
		filter domain.RunFilter
		want   []string
	}{
		{"NewestFirst", domain.RunFilter{}, []string{"r4", "r3", "r2"}},
		{"Limit", domain.RunFilter{Limit: 1}, []string{"r4"}},
		{"Status", domain.RunFilter{Status: ptrStatus(domain.RunFailed)}, []string{"r3"}},
		{"Source", domain.RunFilter{SourceRef: "other"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := repo.ListRuns(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("ListRuns() = %d runs, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if runs[i].ID != id {
					t.Errorf("run %d = %s, want %s", i, runs[i].ID, id)
				}
				if runs[i].Flows != nil {
					t.Errorf("listing should not carry flows")
				}
			}
		})
	}
}

func ptrStatus(s domain.RunStatus) *domain.RunStatus { return &s }
