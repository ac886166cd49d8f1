// internal/domain/models.go
package domain

import "time"

// ReportRun is the metadata recorded for every report build. Items are never
// stored; a run only tells when a report was built, from what, and how big it was.
type ReportRun struct {
	ID          string    `json:"id" db:"id"`
	SourceRef   string    `json:"source_ref" db:"source_ref"`
	PayloadHash string    `json:"payload_hash" db:"payload_hash"`
	Status      RunStatus `json:"status" db:"status"`
	Error       string    `json:"error,omitempty" db:"error"`
	CacheHit    bool      `json:"cache_hit" db:"cache_hit"`

	Items    int `json:"items" db:"items"`
	ToOrder  int `json:"to_order" db:"to_order"`
	AtRisk   int `json:"at_risk" db:"at_risk"`
	Critical int `json:"critical" db:"critical"`
	Warning  int `json:"warning" db:"warning"`
	Safe     int `json:"safe" db:"safe"`

	StockValue float64 `json:"stock_value" db:"stock_value"`
	OrderValue float64 `json:"order_value" db:"order_value"`

	DurationMS int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	Flows []RunFlow `json:"flows,omitempty" db:"-"`
}

// RunFlow is the per-flow breakdown of a run.
type RunFlow struct {
	RunID                     string  `json:"-" db:"run_id"`
	Flow                      string  `json:"flow" db:"flow"`
	Items                     int     `json:"items" db:"items"`
	ToOrder                   int     `json:"to_order" db:"to_order"`
	AtRisk                    int     `json:"at_risk" db:"at_risk"`
	WeightedCoverageCurrent   float64 `json:"weighted_coverage_current" db:"weighted_coverage_current"`
	WeightedCoverageProjected float64 `json:"weighted_coverage_projected" db:"weighted_coverage_projected"`
	OrderValue                float64 `json:"order_value" db:"order_value"`
}

// RunFilter narrows run listings.
type RunFilter struct {
	Status    *RunStatus
	SourceRef string
	Limit     int
}
