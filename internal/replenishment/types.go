package replenishment

import (
	"sort"
	"strings"
)

// FlowKind identifies one of the replenishment channels.
type FlowKind string

const (
	FlowSupplier  FlowKind = "SUPPLIER"    // supplier purchase orders
	FlowCDToStore FlowKind = "CD_TO_STORE" // distribution center to store orders
	FlowTransfer  FlowKind = "TRANSFER"    // store to store transfers
)

// Flows lists the known flows in their canonical consolidation order.
var Flows = []FlowKind{FlowSupplier, FlowCDToStore, FlowTransfer}

var flowAliases = map[string]FlowKind{
	"supplier":       FlowSupplier,
	"fornecedor":     FlowSupplier,
	"cd_to_store":    FlowCDToStore,
	"cd_loja":        FlowCDToStore,
	"cd":             FlowCDToStore,
	"transfer":       FlowTransfer,
	"transferencia":  FlowTransfer,
	"transferencias": FlowTransfer,
}

// ParseFlowKind resolves canonical names and backend aliases (case-insensitive).
func ParseFlowKind(name string) (FlowKind, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if f, ok := flowAliases[key]; ok {
		return f, true
	}
	return "", false
}

// SupplierDetail carries fields that only exist in the supplier flow.
type SupplierDetail struct {
	Name         string   `json:"name"`
	LeadTimeDays *float64 `json:"lead_time_days,omitempty"`
	OpenOrders   float64  `json:"open_orders"`
}

// CDDetail carries fields that only exist in the CD-to-store flow.
type CDDetail struct {
	StockAtCD float64 `json:"stock_at_cd"`
	HasStock  bool    `json:"has_stock"`
}

// TransferDetail carries fields that only exist in the transfer flow.
type TransferDetail struct {
	Priority           string   `json:"priority"`
	OriginStock        float64  `json:"origin_stock"`
	OriginCoverageDays *float64 `json:"origin_coverage_days,omitempty"`
}

// ForecastQuality holds upstream accuracy metrics. Either value may be the
// InsufficientDataSentinel.
type ForecastQuality struct {
	WMAPE *float64 `json:"wmape,omitempty"`
	Bias  *float64 `json:"bias,omitempty"`
}

// Item is one SKU x location recommendation within a flow.
type Item struct {
	SKU         string  `json:"sku"`
	Origin      *string `json:"origin,omitempty"`
	Destination string  `json:"destination"`

	DemandMonthly  float64 `json:"demand_monthly"`
	StockAvailable float64 `json:"stock_available"`
	StockInTransit float64 `json:"stock_in_transit"`
	ServiceLevel   float64 `json:"service_level"`

	CoverageDaysCurrent   float64 `json:"coverage_days_current"`
	CoverageDaysProjected float64 `json:"coverage_days_projected"`
	// Set when the upstream record had no value; the matching field is then
	// zero and must not be read as a coverage.
	CoverageCurrentMissing   bool `json:"coverage_current_missing,omitempty"`
	CoverageProjectedMissing bool `json:"coverage_projected_missing,omitempty"`

	ShouldOrder  bool `json:"should_order"`
	StockoutRisk bool `json:"stockout_risk"`

	QuantityRecommended float64 `json:"quantity_recommended"`
	UnitCost            float64 `json:"unit_cost"`
	MethodUsed          string  `json:"method_used"`

	Flow  FlowKind `json:"flow"`
	Alert *string  `json:"alert,omitempty"`

	// Exactly one of these is expected to be set, matching Flow.
	Supplier *SupplierDetail `json:"supplier,omitempty"`
	CD       *CDDetail       `json:"cd,omitempty"`
	Transfer *TransferDetail `json:"transfer,omitempty"`

	Forecast *ForecastQuality `json:"forecast,omitempty"`
}

// DailyDemand is the item's demand converted to the daily basis used for weighting.
func (it Item) DailyDemand() float64 {
	return ToDailyDemand(it.DemandMonthly)
}

// CurrentCoverage returns the current coverage in days and whether it is known.
func (it Item) CurrentCoverage() (float64, bool) {
	return it.CoverageDaysCurrent, !it.CoverageCurrentMissing
}

// ProjectedCoverage returns the projected coverage in days and whether it is known.
func (it Item) ProjectedCoverage() (float64, bool) {
	return it.CoverageDaysProjected, !it.CoverageProjectedMissing
}

// StockValue is the value of the standing inventory at unit cost.
func (it Item) StockValue() float64 {
	return it.StockAvailable * it.UnitCost
}

// OrderValue is the value of the recommended quantity, zero when no order is recommended.
func (it Item) OrderValue() float64 {
	if !it.ShouldOrder {
		return 0
	}
	return it.QuantityRecommended * it.UnitCost
}

// FlowSummary is the pre-aggregated summary the backend sends per flow.
// Nil fields were not reported for that flow.
type FlowSummary struct {
	TotalItems          int      `json:"total_items"`
	TotalToOrder        int      `json:"total_to_order"`
	TotalAtRisk         int      `json:"total_at_risk"`
	TotalValue          *float64 `json:"total_value,omitempty"`
	AverageCoverageDays *float64 `json:"average_coverage_days,omitempty"`
}

// FlowResultSet is the backend output for a single flow.
type FlowResultSet struct {
	Summary FlowSummary `json:"summary"`
	Items   []Item      `json:"items"`
}

// FlowResults maps each flow to its result set. Missing flows are absent keys.
type FlowResults map[FlowKind]FlowResultSet

// OrderedFlows returns the keys present in results, canonical flows first and
// unknown keys after them sorted by name.
func (r FlowResults) OrderedFlows() []FlowKind {
	out := make([]FlowKind, 0, len(r))
	known := make(map[FlowKind]bool, len(Flows))
	for _, f := range Flows {
		known[f] = true
		if _, ok := r[f]; ok {
			out = append(out, f)
		}
	}

	var extra []FlowKind
	for f := range r {
		if !known[f] {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	return append(out, extra...)
}

// GroupedMetrics is the aggregator output for one group.
type GroupedMetrics struct {
	GroupKey                  string  `json:"group_key"`
	WeightedCoverageCurrent   float64 `json:"weighted_coverage_current"`
	WeightedCoverageProjected float64 `json:"weighted_coverage_projected"`
	ItemCount                 int     `json:"item_count"`
	ToOrderCount              int     `json:"to_order_count"`
	AtRiskCount               int     `json:"at_risk_count"`
	StockValue                float64 `json:"stock_value"`
	OrderValue                float64 `json:"order_value"`
}
