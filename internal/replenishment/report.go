package replenishment

import "sync"

// DefaultTopN bounds the most-urgent list when no size is configured.
const DefaultTopN = 10

// ReportOptions configures BuildReport.
type ReportOptions struct {
	Classifier ClassifierConfig
	TopN       int
}

// DefaultReportOptions returns the production classifier cut-offs and top-N size.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{Classifier: DefaultClassifierConfig(), TopN: DefaultTopN}
}

// Report is everything the rendering layer needs for one backend response.
type Report struct {
	Items         []ClassifiedItem    `json:"items"`
	Overall       GroupedMetrics      `json:"overall"`
	ByFlow        []GroupedMetrics    `json:"by_flow"`
	ByDestination []GroupedMetrics    `json:"by_destination"`
	BySupplier    []GroupedMetrics    `json:"by_supplier"`
	TierCounts    map[UrgencyTier]int `json:"tier_counts"`
	MostUrgent    []ClassifiedItem    `json:"most_urgent"`
	Transfers     []Item              `json:"transfers"`
	Global        GlobalSummary       `json:"global"`
	Accuracy      AccuracySummary     `json:"accuracy"`
}

// BuildReport consolidates the flows and derives every metric and
// classification. An empty or partial result map yields a well-formed report.
func BuildReport(results FlowResults, opts ReportOptions) *Report {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	opts.Classifier = opts.Classifier.WithDefaults()

	items := Consolidate(results)
	classifier := NewClassifier(opts.Classifier)
	classified := classifier.ClassifyAll(items)

	flowKeys := make([]string, 0, len(results))
	for _, f := range results.OrderedFlows() {
		flowKeys = append(flowKeys, string(f))
	}

	r := &Report{Items: classified}

	// Groupings are independent of each other.
	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	run(func() {
		r.Overall = Overall(items)
		r.ByFlow = AggregateKeys(items, ByFlow, flowKeys)
	})
	run(func() {
		r.ByDestination = Aggregate(items, ByDestination)
	})
	run(func() {
		r.BySupplier = Aggregate(itemsOfFlow(items, FlowSupplier), BySupplier)
	})
	run(func() {
		r.TierCounts = CountTiers(classified)
		r.MostUrgent = MostUrgent(classified, opts.TopN, ClassifiedItem.CurrentCoverage)
	})
	run(func() {
		r.Transfers = SortByTransferPriority(itemsOfFlow(items, FlowTransfer))
		r.Global = CombineSummaries(results)
		r.Accuracy = SummarizeAccuracy(items)
	})
	wg.Wait()

	return r
}

// PlainItems strips the tiers from classified items.
func PlainItems(items []ClassifiedItem) []Item {
	out := make([]Item, len(items))
	for i, c := range items {
		out[i] = c.Item
	}
	return out
}

func itemsOfFlow(items []Item, flow FlowKind) []Item {
	var out []Item
	for _, it := range items {
		if it.Flow == flow {
			out = append(out, it)
		}
	}
	return out
}
