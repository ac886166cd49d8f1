package replenishment

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AllGroupKey is the key of the single group produced when no grouping is requested.
const AllGroupKey = "ALL"

// NoSupplierKey groups items that carry no supplier name.
const NoSupplierKey = "(no supplier)"

// KeyFunc extracts an opaque grouping key from an item.
type KeyFunc func(Item) string

// ByDestination groups by destination store/location.
func ByDestination(it Item) string { return it.Destination }

// ByOrigin groups by origin location; items without origin share the empty key.
func ByOrigin(it Item) string {
	if it.Origin == nil {
		return ""
	}
	return *it.Origin
}

// BySupplier groups supplier-flow items by supplier name.
func BySupplier(it Item) string {
	if it.Supplier == nil || it.Supplier.Name == "" {
		return NoSupplierKey
	}
	return it.Supplier.Name
}

// ByFlow groups by the consolidation flow tag.
func ByFlow(it Item) string { return string(it.Flow) }

// accumulator holds the running sums for one group.
type accumulator struct {
	key          string
	weightCur    float64
	weightProj   float64
	coverageCur  float64
	coverageProj float64
	items        int
	toOrder      int
	atRisk       int
	stockValue   decimal.Decimal
	orderValue   decimal.Decimal
}

func newAccumulator(key string) *accumulator {
	return &accumulator{key: key, stockValue: decimal.Zero, orderValue: decimal.Zero}
}

func (a *accumulator) add(it Item) {
	// 1. Daily demand is the weight, derived once here. Unknown coverage
	// carries no weight on its side of the average.
	if w := it.DailyDemand(); w > 0 {
		if days, ok := it.CurrentCoverage(); ok {
			a.weightCur += w
			a.coverageCur += days * w
		}
		if days, ok := it.ProjectedCoverage(); ok {
			a.weightProj += w
			a.coverageProj += days * w
		}
	}

	// 2. Standing inventory counts for every item, order value only when ordering
	a.stockValue = a.stockValue.Add(decimal.NewFromFloat(it.StockAvailable).Mul(decimal.NewFromFloat(it.UnitCost)))
	if it.ShouldOrder {
		a.toOrder++
		a.orderValue = a.orderValue.Add(decimal.NewFromFloat(it.QuantityRecommended).Mul(decimal.NewFromFloat(it.UnitCost)))
	}

	// 3. Tallies
	a.items++
	if it.StockoutRisk {
		a.atRisk++
	}
}

func (a *accumulator) result() GroupedMetrics {
	m := GroupedMetrics{
		GroupKey:     a.key,
		ItemCount:    a.items,
		ToOrderCount: a.toOrder,
		AtRiskCount:  a.atRisk,
		StockValue:   a.stockValue.InexactFloat64(),
		OrderValue:   a.orderValue.InexactFloat64(),
	}
	if a.weightCur > 0 {
		m.WeightedCoverageCurrent = a.coverageCur / a.weightCur
	}
	if a.weightProj > 0 {
		m.WeightedCoverageProjected = a.coverageProj / a.weightProj
	}
	return m
}

// Aggregate computes demand-weighted coverage and value totals per group.
// With a nil groupBy it returns exactly one record keyed AllGroupKey, even
// when items is empty. Groups are sorted by key.
func Aggregate(items []Item, groupBy KeyFunc) []GroupedMetrics {
	if groupBy == nil {
		acc := newAccumulator(AllGroupKey)
		for _, it := range items {
			acc.add(it)
		}
		return []GroupedMetrics{acc.result()}
	}
	return AggregateKeys(items, groupBy, nil)
}

// AggregateKeys is Aggregate with a set of keys that must appear in the
// output; keys without items produce an all-zero record.
func AggregateKeys(items []Item, groupBy KeyFunc, keys []string) []GroupedMetrics {
	if groupBy == nil {
		groupBy = func(Item) string { return AllGroupKey }
	}

	groups := make(map[string]*accumulator)
	for _, k := range keys {
		if _, ok := groups[k]; !ok {
			groups[k] = newAccumulator(k)
		}
	}
	for _, it := range items {
		k := groupBy(it)
		acc, ok := groups[k]
		if !ok {
			acc = newAccumulator(k)
			groups[k] = acc
		}
		acc.add(it)
	}

	sorted := make([]string, 0, len(groups))
	for k := range groups {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	out := make([]GroupedMetrics, 0, len(sorted))
	for _, k := range sorted {
		out = append(out, groups[k].result())
	}
	return out
}

// Overall returns the single whole-dataset record.
func Overall(items []Item) GroupedMetrics {
	return Aggregate(items, nil)[0]
}

// GlobalSummary combines the backend's per-flow summaries when raw items are
// not available. Its coverage average is weighted by item count per flow and
// can legitimately differ from the item-level demand-weighted average.
type GlobalSummary struct {
	TotalItems          int     `json:"total_items"`
	TotalToOrder        int     `json:"total_to_order"`
	TotalAtRisk         int     `json:"total_at_risk"`
	TotalValue          float64 `json:"total_value"`
	AverageCoverageDays float64 `json:"average_coverage_days"`
	HasAverageCoverage  bool    `json:"has_average_coverage"`
	Flows               int     `json:"flows"`
}

// CombineSummaries merges per-flow summaries. Flows that did not report an
// average coverage are left out of both sides of the weighted average.
func CombineSummaries(results FlowResults) GlobalSummary {
	var (
		g         GlobalSummary
		value     = decimal.Zero
		weighted  float64
		weightSum int
	)

	for _, flow := range results.OrderedFlows() {
		s := results[flow].Summary
		g.Flows++
		g.TotalItems += s.TotalItems
		g.TotalToOrder += s.TotalToOrder
		g.TotalAtRisk += s.TotalAtRisk

		if s.TotalValue != nil {
			value = value.Add(decimal.NewFromFloat(*s.TotalValue))
		}
		if s.AverageCoverageDays != nil && s.TotalItems > 0 {
			weighted += *s.AverageCoverageDays * float64(s.TotalItems)
			weightSum += s.TotalItems
		}
	}

	g.TotalValue = value.InexactFloat64()
	if weightSum > 0 {
		g.AverageCoverageDays = weighted / float64(weightSum)
		g.HasAverageCoverage = true
	}
	return g
}
