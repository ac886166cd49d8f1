package replenishment

import "testing"

func sampleResults() FlowResults {
	return FlowResults{
		FlowSupplier: {
			Summary: FlowSummary{TotalItems: 2, TotalToOrder: 1, AverageCoverageDays: ptr(8.0)},
			Items: []Item{
				{SKU: "s1", Destination: "CD", DemandMonthly: 30, CoverageDaysCurrent: 2, CoverageDaysProjected: 20,
					ShouldOrder: true, QuantityRecommended: 10, UnitCost: 3, StockoutRisk: true,
					Supplier: &SupplierDetail{Name: "ACME"}},
				{SKU: "s2", Destination: "CD", DemandMonthly: 60, CoverageDaysCurrent: 14, CoverageDaysProjected: 14,
					Supplier: &SupplierDetail{Name: "BOLT"}},
			},
		},
		FlowTransfer: {
			Summary: FlowSummary{TotalItems: 3},
			Items: []Item{
				{SKU: "t1", Destination: "L1", Origin: ptr("L2"), CoverageDaysCurrent: 9, Transfer: &TransferDetail{Priority: "BAIXA"}},
				{SKU: "t2", Destination: "L1", Origin: ptr("L3"), CoverageDaysCurrent: 1, Transfer: &TransferDetail{Priority: "ALTA"}},
				{SKU: "t3", Destination: "L4", CoverageDaysCurrent: 4, Transfer: &TransferDetail{Priority: "MEDIA"}},
			},
		},
	}
}

func TestConsolidate(t *testing.T) {
	results := sampleResults()
	results[FlowCDToStore] = FlowResultSet{}

	got := Consolidate(results)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	want := []FlowKind{FlowSupplier, FlowSupplier, FlowTransfer, FlowTransfer, FlowTransfer}
	for i, f := range want {
		if got[i].Flow != f {
			t.Errorf("item %d flow = %v, want %v", i, got[i].Flow, f)
		}
	}

	*got[2].Origin = "changed"
	got[0].Supplier.Name = "changed"
	if *results[FlowTransfer].Items[0].Origin != "L2" || results[FlowSupplier].Items[0].Supplier.Name != "ACME" {
		t.Errorf("consolidated items share memory with the input")
	}
	if results[FlowSupplier].Items[0].Flow != "" {
		t.Errorf("input items were tagged")
	}
}

func TestConsolidate_Empty(t *testing.T) {
	if got := Consolidate(nil); len(got) != 0 {
		t.Errorf("Consolidate(nil) = %v, want empty", got)
	}
}

func TestOrderedFlows_UnknownKeysLast(t *testing.T) {
	results := FlowResults{"ZZZ": {}, FlowTransfer: {}, "AAA": {}, FlowSupplier: {}}

	got := results.OrderedFlows()
	want := []FlowKind{FlowSupplier, FlowTransfer, "AAA", "ZZZ"}
	if len(got) != len(want) {
		t.Fatalf("OrderedFlows() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("OrderedFlows() = %v, want %v", got, want)
		}
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(sampleResults(), ReportOptions{TopN: 2})

	if len(r.Items) != 5 {
		t.Fatalf("Items = %d, want 5", len(r.Items))
	}
	if r.Overall.ItemCount != 5 || r.Overall.ToOrderCount != 1 || r.Overall.AtRiskCount != 1 {
		t.Errorf("unexpected overall: %+v", r.Overall)
	}
	if !almostEqual(r.Overall.OrderValue, 30) {
		t.Errorf("OrderValue = %v, want 30", r.Overall.OrderValue)
	}

	if len(r.ByFlow) != 2 || r.ByFlow[0].GroupKey != string(FlowSupplier) || r.ByFlow[1].GroupKey != string(FlowTransfer) {
		t.Errorf("unexpected ByFlow: %+v", r.ByFlow)
	}
	// supplier flow: (2*1 + 14*2) / 3
	if !almostEqual(r.ByFlow[0].WeightedCoverageCurrent, 10) {
		t.Errorf("supplier weighted coverage = %v, want 10", r.ByFlow[0].WeightedCoverageCurrent)
	}

	if len(r.BySupplier) != 2 || r.BySupplier[0].GroupKey != "ACME" {
		t.Errorf("unexpected BySupplier: %+v", r.BySupplier)
	}
	if len(r.ByDestination) != 3 {
		t.Errorf("ByDestination groups = %d, want 3", len(r.ByDestination))
	}

	if len(r.MostUrgent) != 2 || r.MostUrgent[0].SKU != "t2" || r.MostUrgent[1].SKU != "s1" {
		t.Errorf("unexpected MostUrgent: %+v", r.MostUrgent)
	}
	if got := skus(r.Transfers); got[0] != "t2" || got[1] != "t3" || got[2] != "t1" {
		t.Errorf("Transfers order = %v, want [t2 t3 t1]", got)
	}

	// s1 is projected safe but at risk
	if r.Items[0].Tier != TierWarning {
		t.Errorf("s1 tier = %v, want %v", r.Items[0].Tier, TierWarning)
	}
	total := 0
	for _, n := range r.TierCounts {
		total += n
	}
	if total != 5 {
		t.Errorf("tier counts sum to %d, want 5", total)
	}

	if r.Global.TotalItems != 5 || !r.Global.HasAverageCoverage || !almostEqual(r.Global.AverageCoverageDays, 8) {
		t.Errorf("unexpected global summary: %+v", r.Global)
	}
}

func TestBuildReport_Empty(t *testing.T) {
	r := BuildReport(FlowResults{}, DefaultReportOptions())

	if len(r.Items) != 0 || len(r.MostUrgent) != 0 {
		t.Errorf("expected no items, got %+v", r)
	}
	if r.Overall != (GroupedMetrics{GroupKey: AllGroupKey}) {
		t.Errorf("Overall = %+v, want zero record", r.Overall)
	}
	if len(r.TierCounts) != len(Tiers) {
		t.Errorf("TierCounts = %v, want every tier", r.TierCounts)
	}
}

func TestBuildReport_MissingCoverage(t *testing.T) {
	r := BuildReport(FlowResults{
		FlowCDToStore: {Items: []Item{
			{SKU: "a", Destination: "A", DemandMonthly: 300, CoverageCurrentMissing: true, CoverageProjectedMissing: true},
			{SKU: "b", Destination: "A", DemandMonthly: 30, CoverageDaysCurrent: 20, CoverageDaysProjected: 20},
		}},
	}, DefaultReportOptions())

	if !almostEqual(r.Overall.WeightedCoverageCurrent, 20) || !almostEqual(r.Overall.WeightedCoverageProjected, 20) {
		t.Errorf("Overall = %+v, want coverage 20 on both sides", r.Overall)
	}
	if r.Overall.ItemCount != 2 {
		t.Errorf("ItemCount = %d, want 2", r.Overall.ItemCount)
	}
	if r.Items[0].Tier != TierNotApplicable {
		t.Errorf("a tier = %v, want %v", r.Items[0].Tier, TierNotApplicable)
	}
	if len(r.MostUrgent) != 1 || r.MostUrgent[0].SKU != "b" {
		t.Errorf("MostUrgent = %v, want [b]", r.MostUrgent)
	}
	if r.TierCounts[TierNotApplicable] != 1 || r.TierCounts[TierCritical] != 0 {
		t.Errorf("TierCounts = %v", r.TierCounts)
	}
}

func TestBuildReport_KeepsCustomFallback(t *testing.T) {
	fallback := Thresholds{CriticalBelow: 30, WarningBelow: 60}
	r := BuildReport(FlowResults{
		"EXPRESS": {Items: []Item{{SKU: "e", Destination: "A", CoverageDaysProjected: 20}}},
	}, ReportOptions{Classifier: ClassifierConfig{Fallback: fallback}})

	if r.Items[0].Tier != TierCritical {
		t.Errorf("tier = %v, want %v under the custom fallback", r.Items[0].Tier, TierCritical)
	}
}
