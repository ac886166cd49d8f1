// internal/repository/postgres/report_run_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/restock/internal/domain"
	"github.com/andresuchdata/restock/internal/repository"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS report_runs (
	id           UUID PRIMARY KEY,
	source_ref   TEXT NOT NULL DEFAULT '',
	payload_hash TEXT NOT NULL DEFAULT '',
	status       SMALLINT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	cache_hit    BOOLEAN NOT NULL DEFAULT FALSE,
	items        INTEGER NOT NULL DEFAULT 0,
	to_order     INTEGER NOT NULL DEFAULT 0,
	at_risk      INTEGER NOT NULL DEFAULT 0,
	critical     INTEGER NOT NULL DEFAULT 0,
	warning      INTEGER NOT NULL DEFAULT 0,
	safe         INTEGER NOT NULL DEFAULT 0,
	stock_value  DOUBLE PRECISION NOT NULL DEFAULT 0,
	order_value  DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS report_runs_created_at_idx ON report_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS report_run_flows (
	run_id                      UUID NOT NULL REFERENCES report_runs (id) ON DELETE CASCADE,
	flow                        TEXT NOT NULL,
	items                       INTEGER NOT NULL DEFAULT 0,
	to_order                    INTEGER NOT NULL DEFAULT 0,
	at_risk                     INTEGER NOT NULL DEFAULT 0,
	weighted_coverage_current   DOUBLE PRECISION NOT NULL DEFAULT 0,
	weighted_coverage_projected DOUBLE PRECISION NOT NULL DEFAULT 0,
	order_value                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, flow)
);
`

const runColumns = `id, source_ref, payload_hash, status, error, cache_hit, items, to_order,
	at_risk, critical, warning, safe, stock_value, order_value, duration_ms, created_at`

type reportRunRepository struct {
	db *DB
}

func NewReportRunRepository(db *DB) repository.ReportRunRepository {
	return &reportRunRepository{db: db}
}

// EnsureSchema creates the run tables when they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create report run schema: %w", err)
	}
	return nil
}

func (r *reportRunRepository) SaveRun(ctx context.Context, run *domain.ReportRun) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Run header
		query := `INSERT INTO report_runs (` + runColumns + `) VALUES (
			:id, :source_ref, :payload_hash, :status, :error, :cache_hit, :items, :to_order,
			:at_risk, :critical, :warning, :safe, :stock_value, :order_value, :duration_ms, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, run); err != nil {
			return fmt.Errorf("failed to insert report run: %w", err)
		}

		if len(run.Flows) == 0 {
			return nil
		}

		// 2. Per-flow breakdown
		flows := make([]domain.RunFlow, len(run.Flows))
		for i, f := range run.Flows {
			f.RunID = run.ID
			flows[i] = f
		}
		flowQuery := `INSERT INTO report_run_flows (
				run_id, flow, items, to_order, at_risk,
				weighted_coverage_current, weighted_coverage_projected, order_value
			) VALUES (
				:run_id, :flow, :items, :to_order, :at_risk,
				:weighted_coverage_current, :weighted_coverage_projected, :order_value)`
		if _, err := tx.NamedExecContext(ctx, flowQuery, flows); err != nil {
			return fmt.Errorf("failed to insert report run flows: %w", err)
		}
		return nil
	})
}

func (r *reportRunRepository) GetRun(ctx context.Context, id string) (*domain.ReportRun, error) {
	var run domain.ReportRun
	err := r.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM report_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting report run: %w", err)
	}

	flowQuery := `
		SELECT run_id, flow, items, to_order, at_risk,
			weighted_coverage_current, weighted_coverage_projected, order_value
		FROM report_run_flows
		WHERE run_id = $1
		ORDER BY flow
	`
	if err := r.db.SelectContext(ctx, &run.Flows, flowQuery, id); err != nil {
		return nil, fmt.Errorf("error getting report run flows: %w", err)
	}

	return &run, nil
}

func (r *reportRunRepository) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.ReportRun, error) {
	query, args := buildListRunsQuery(filter)

	runs := []domain.ReportRun{}
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("error listing report runs: %w", err)
	}
	return runs, nil
}

func buildListRunsQuery(filter domain.RunFilter) (string, []interface{}) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE 1=1`

	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, int(*filter.Status))
		argCounter++
	}

	if filter.SourceRef != "" {
		conditions = append(conditions, fmt.Sprintf("source_ref = $%d", argCounter))
		args = append(args, filter.SourceRef)
		argCounter++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultRunLimit
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argCounter)
	args = append(args, limit)

	return query, args
}
