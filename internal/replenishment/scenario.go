package replenishment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRow marks a manual scenario row that cannot be computed.
var ErrInvalidRow = errors.New("invalid scenario row")

// DefaultScenarioThresholds are the cut-offs of the manual calculator. They are
// configured separately from the flow classifier.
func DefaultScenarioThresholds() Thresholds {
	return Thresholds{CriticalBelow: 7, WarningBelow: 15}
}

// ScenarioRow is one user-entered what-if line.
type ScenarioRow struct {
	Location      string  `json:"location"`
	SKU           string  `json:"sku"`
	StockCurrent  float64 `json:"stock_current"`
	DemandDaily   float64 `json:"demand_daily"`
	QuantityToAdd float64 `json:"quantity_to_add"`
}

// RowResult is the computed outcome of a scenario row. Invalid rows carry
// the reason and no computed values.
type RowResult struct {
	Row             ScenarioRow `json:"row"`
	Valid           bool        `json:"valid"`
	Reason          string      `json:"reason,omitempty"`
	CoverageCurrent float64     `json:"coverage_current"`
	StockAfter      float64     `json:"stock_after"`
	CoverageAfter   float64     `json:"coverage_after"`
	Tier            UrgencyTier `json:"tier,omitempty"`
}

// ScenarioTotals counts valid rows per tier.
type ScenarioTotals struct {
	Count    int `json:"count"`
	Safe     int `json:"safe"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// ScenarioBatch is the result of a batch computation.
type ScenarioBatch struct {
	Results []RowResult    `json:"results"`
	Totals  ScenarioTotals `json:"totals"`
}

// ScenarioCalculator computes ad-hoc coverage what-ifs.
type ScenarioCalculator struct {
	thresholds Thresholds
}

// NewScenarioCalculator creates a calculator with the given cut-offs.
func NewScenarioCalculator(t Thresholds) *ScenarioCalculator {
	return &ScenarioCalculator{thresholds: t}
}

// ComputeRow computes one row. Rows without location or SKU, or with
// non-positive daily demand, are rejected with ErrInvalidRow.
func (sc *ScenarioCalculator) ComputeRow(row ScenarioRow) (RowResult, error) {
	res := RowResult{Row: row}

	if reason := validateRow(row); reason != "" {
		res.Reason = reason
		return res, fmt.Errorf("%w: %s", ErrInvalidRow, reason)
	}

	res.Valid = true
	res.CoverageCurrent = row.StockCurrent / row.DemandDaily
	res.StockAfter = row.StockCurrent + row.QuantityToAdd
	res.CoverageAfter = res.StockAfter / row.DemandDaily
	res.Tier = sc.thresholds.Tier(res.CoverageAfter)

	return res, nil
}

// ComputeAll computes every row. Invalid rows are returned marked invalid and
// are left out of every total.
func (sc *ScenarioCalculator) ComputeAll(rows []ScenarioRow) ScenarioBatch {
	batch := ScenarioBatch{Results: make([]RowResult, 0, len(rows))}
	for _, row := range rows {
		res, err := sc.ComputeRow(row)
		batch.Results = append(batch.Results, res)
		if err != nil {
			continue
		}

		batch.Totals.Count++
		switch res.Tier {
		case TierCritical:
			batch.Totals.Critical++
		case TierWarning:
			batch.Totals.Warning++
		case TierSafe:
			batch.Totals.Safe++
		}
	}
	return batch
}

func validateRow(row ScenarioRow) string {
	switch {
	case strings.TrimSpace(row.Location) == "":
		return "location is required"
	case strings.TrimSpace(row.SKU) == "":
		return "sku is required"
	case !(row.DemandDaily > 0):
		return "daily demand must be positive"
	}
	return ""
}
