package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andresuchdata/restock/internal/replenishment"
)

// wireSummary mirrors the per-flow summary block of the backend payload.
type wireSummary struct {
	TotalItems          int      `json:"total_items"`
	TotalToOrder        int      `json:"total_to_order"`
	TotalAtRisk         int      `json:"total_at_risk"`
	TotalValue          *float64 `json:"total_value"`
	AverageCoverageDays *float64 `json:"average_coverage_days"`
}

type wireSupplier struct {
	Name         string   `json:"name"`
	LeadTimeDays *float64 `json:"lead_time_days"`
	OpenOrders   *float64 `json:"open_orders"`
}

type wireCD struct {
	StockAtCD *float64 `json:"stock_at_cd"`
	HasStock  *bool    `json:"has_stock"`
}

type wireTransfer struct {
	Priority           string   `json:"priority"`
	OriginStock        *float64 `json:"origin_stock"`
	OriginCoverageDays *float64 `json:"origin_coverage_days"`
}

// wireItem keeps every optional field as a pointer so absence survives decoding.
type wireItem struct {
	SKU         string  `json:"sku"`
	Origin      *string `json:"origin"`
	Destination string  `json:"destination"`

	DemandMonthly  *float64 `json:"demand_monthly"`
	StockAvailable *float64 `json:"stock_available"`
	StockInTransit *float64 `json:"stock_in_transit"`
	ServiceLevel   *float64 `json:"service_level"`

	CoverageDaysCurrent   *float64 `json:"coverage_days_current"`
	CoverageDaysProjected *float64 `json:"coverage_days_projected"`

	ShouldOrder  *bool `json:"should_order"`
	StockoutRisk *bool `json:"stockout_risk"`

	QuantityRecommended *float64 `json:"quantity_recommended"`
	UnitCost            *float64 `json:"unit_cost"`
	MethodUsed          string   `json:"method_used"`
	Alert               *string  `json:"alert"`

	Supplier *wireSupplier `json:"supplier"`
	CD       *wireCD       `json:"cd"`
	Transfer *wireTransfer `json:"transfer"`

	WMAPE *float64 `json:"wmape"`
	Bias  *float64 `json:"bias"`
}

type wireFlow struct {
	Summary *wireSummary `json:"summary"`
	Items   []wireItem   `json:"items"`
}

// Decode parses a backend payload of the form {"<flow>": {"summary": {...},
// "items": [...]}}. Flow keys may use any alias ParseFlowKind accepts; other
// keys are kept upper-cased. When an item omits stockout_risk it is derived
// from the flow's risk cut-off.
func Decode(data []byte, classifier *replenishment.Classifier) (replenishment.FlowResults, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return replenishment.FlowResults{}, nil
	}

	var raw map[string]wireFlow
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode flow results: %w", err)
	}

	results := make(replenishment.FlowResults, len(raw))
	for key, wf := range raw {
		flow, ok := replenishment.ParseFlowKind(key)
		if !ok {
			flow = replenishment.FlowKind(strings.ToUpper(strings.TrimSpace(key)))
		}
		if _, dup := results[flow]; dup {
			return nil, fmt.Errorf("flow %s given more than once (key %q)", flow, key)
		}

		set := replenishment.FlowResultSet{Items: make([]replenishment.Item, 0, len(wf.Items))}
		if wf.Summary != nil {
			set.Summary = replenishment.FlowSummary{
				TotalItems:          wf.Summary.TotalItems,
				TotalToOrder:        wf.Summary.TotalToOrder,
				TotalAtRisk:         wf.Summary.TotalAtRisk,
				TotalValue:          wf.Summary.TotalValue,
				AverageCoverageDays: wf.Summary.AverageCoverageDays,
			}
		}
		for _, wi := range wf.Items {
			set.Items = append(set.Items, wi.toItem(flow, classifier))
		}
		results[flow] = set
	}
	return results, nil
}

func (wi wireItem) toItem(flow replenishment.FlowKind, classifier *replenishment.Classifier) replenishment.Item {
	it := replenishment.Item{
		SKU:                   wi.SKU,
		Origin:                wi.Origin,
		Destination:           wi.Destination,
		DemandMonthly:         num(wi.DemandMonthly),
		StockAvailable:        num(wi.StockAvailable),
		StockInTransit:        num(wi.StockInTransit),
		ServiceLevel:          num(wi.ServiceLevel),
		CoverageDaysCurrent:   num(wi.CoverageDaysCurrent),
		CoverageDaysProjected: num(wi.CoverageDaysProjected),
		ShouldOrder:           wi.ShouldOrder != nil && *wi.ShouldOrder,
		QuantityRecommended:   num(wi.QuantityRecommended),
		UnitCost:              num(wi.UnitCost),
		MethodUsed:            wi.MethodUsed,
		Alert:                 wi.Alert,

		CoverageCurrentMissing:   wi.CoverageDaysCurrent == nil,
		CoverageProjectedMissing: wi.CoverageDaysProjected == nil,
	}

	switch {
	case wi.StockoutRisk != nil:
		it.StockoutRisk = *wi.StockoutRisk
	case classifier != nil && wi.CoverageDaysCurrent != nil:
		it.StockoutRisk = classifier.AtRisk(flow, *wi.CoverageDaysCurrent)
	}

	if wi.Supplier != nil {
		it.Supplier = &replenishment.SupplierDetail{
			Name:         wi.Supplier.Name,
			LeadTimeDays: wi.Supplier.LeadTimeDays,
			OpenOrders:   num(wi.Supplier.OpenOrders),
		}
	}
	if wi.CD != nil {
		it.CD = &replenishment.CDDetail{StockAtCD: num(wi.CD.StockAtCD)}
		if wi.CD.HasStock != nil {
			it.CD.HasStock = *wi.CD.HasStock
		} else {
			it.CD.HasStock = it.CD.StockAtCD > 0
		}
	}
	if wi.Transfer != nil {
		it.Transfer = &replenishment.TransferDetail{
			Priority:           wi.Transfer.Priority,
			OriginStock:        num(wi.Transfer.OriginStock),
			OriginCoverageDays: wi.Transfer.OriginCoverageDays,
		}
	}
	if wi.WMAPE != nil || wi.Bias != nil {
		it.Forecast = &replenishment.ForecastQuality{WMAPE: wi.WMAPE, Bias: wi.Bias}
	}
	return it
}

func num(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
