package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andresuchdata/restock/internal/service"
	"github.com/andresuchdata/restock/internal/source"
	"github.com/rs/zerolog/log"
)

// Worker builds reports for a set of references using a worker pool
type Worker struct {
	builder Builder
	config  BatchConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewWorker creates a new batch worker
func NewWorker(builder Builder, config BatchConfig) *Worker {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}
	return &Worker{builder: builder, config: config, sleep: sleepCtx}
}

// ProcessBatch builds every reference. A failing reference does not stop the
// others; the returned error is only set when ctx is cancelled.
func (w *Worker) ProcessBatch(ctx context.Context, refs []string) (*BatchResult, error) {
	log.Info().Int("refs", len(refs)).Int("workers", w.config.WorkerCount).Msg("Starting batch build")

	jobs := make([]*Job, len(refs))
	for i, ref := range refs {
		jobs[i] = &Job{Ref: ref, Status: JobQueued}
	}

	jobChan := make(chan *Job)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < w.config.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				w.processJob(ctx, workerID, job)
			}
		}(i)
	}

	// Enqueue jobs
	var cancelled error
enqueue:
	for _, job := range jobs {
		if cancelled = ctx.Err(); cancelled != nil {
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break enqueue
		case jobChan <- job:
		}
	}
	close(jobChan)
	wg.Wait()

	result := &BatchResult{Jobs: jobs}
	for _, job := range jobs {
		switch job.Status {
		case JobCompleted:
			result.Completed++
		case JobFailed:
			result.Failed++
		}
	}

	log.Info().
		Int("completed", result.Completed).
		Int("failed", result.Failed).
		Msg("Batch build finished")

	return result, cancelled
}

// processJob builds a single reference with retries
func (w *Worker) processJob(ctx context.Context, workerID int, job *Job) {
	start := time.Now()
	defer func() { job.Duration = time.Since(start) }()

	for job.Attempts < w.config.RetryAttempts {
		job.Attempts++

		res, err := w.builder.BuildFromRef(ctx, job.Ref)
		if err == nil {
			job.Status = JobCompleted
			job.Error = ""
			job.ReportID = res.ID
			job.CacheHit = res.CacheHit
			job.Items = res.Report.Overall.ItemCount
			return
		}

		job.Status = JobFailed
		job.Error = err.Error()
		if !retryable(err) {
			log.Warn().Err(err).Int("worker", workerID).Str("ref", job.Ref).Msg("Build failed, not retrying")
			return
		}
		log.Warn().
			Err(err).
			Int("worker", workerID).
			Str("ref", job.Ref).
			Msgf("Build failed (attempt %d/%d)", job.Attempts, w.config.RetryAttempts)

		if job.Attempts < w.config.RetryAttempts {
			if err := w.sleep(ctx, w.config.RetryBackoff); err != nil {
				job.Error = err.Error()
				return
			}
		}
	}
}

// retryable reports whether another attempt could succeed. Bad payloads and
// unsupported references fail the same way every time.
func retryable(err error) bool {
	return !errors.Is(err, service.ErrInvalidPayload) && !errors.Is(err, source.ErrUnsupportedRef)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
