package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/restock/internal/service"
)

// Builder builds one report from a source reference.
type Builder interface {
	BuildFromRef(ctx context.Context, ref string) (*service.BuildResult, error)
}

// BatchConfig holds configuration for a batch run
type BatchConfig struct {
	WorkerCount   int           // Number of concurrent workers
	RetryAttempts int           // Attempts per reference, first try included
	RetryBackoff  time.Duration // Backoff duration between retries
}

// DefaultBatchConfig returns sensible defaults
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
	}
}

// JobStatus represents the state of a single reference in a batch
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks the build of a single reference
type Job struct {
	Ref      string        `json:"ref"`
	Status   JobStatus     `json:"status"`
	ReportID string        `json:"report_id,omitempty"`
	CacheHit bool          `json:"cache_hit"`
	Items    int           `json:"items"`
	Attempts int           `json:"attempts"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// BatchResult summarizes a batch run. Jobs keep the input order.
type BatchResult struct {
	Jobs      []*Job `json:"jobs"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
}
