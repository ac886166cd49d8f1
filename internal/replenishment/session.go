package replenishment

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Filter narrows the items shown. Empty dimensions match everything.
type Filter struct {
	Flows        []FlowKind    `json:"flows,omitempty"`
	Destinations []string      `json:"destinations,omitempty"`
	Suppliers    []string      `json:"suppliers,omitempty"`
	Tiers        []UrgencyTier `json:"tiers,omitempty"`
	OnlyToOrder  bool          `json:"only_to_order,omitempty"`
	OnlyAtRisk   bool          `json:"only_at_risk,omitempty"`
	SKUQuery     string        `json:"sku_query,omitempty"`
}

// IsEmpty reports whether the filter matches every item.
func (f Filter) IsEmpty() bool {
	return len(f.Flows) == 0 && len(f.Destinations) == 0 && len(f.Suppliers) == 0 &&
		len(f.Tiers) == 0 && !f.OnlyToOrder && !f.OnlyAtRisk && strings.TrimSpace(f.SKUQuery) == ""
}

// Match reports whether a classified item passes the filter.
func (f Filter) Match(it ClassifiedItem) bool {
	if len(f.Flows) > 0 && !lo.Contains(f.Flows, it.Flow) {
		return false
	}
	if len(f.Destinations) > 0 && !lo.Contains(f.Destinations, it.Destination) {
		return false
	}
	if len(f.Suppliers) > 0 && !lo.Contains(f.Suppliers, BySupplier(it.Item)) {
		return false
	}
	if len(f.Tiers) > 0 && !lo.Contains(f.Tiers, it.Tier) {
		return false
	}
	if f.OnlyToOrder && !it.ShouldOrder {
		return false
	}
	if f.OnlyAtRisk && !it.StockoutRisk {
		return false
	}
	if q := strings.TrimSpace(f.SKUQuery); q != "" &&
		!strings.Contains(strings.ToLower(it.SKU), strings.ToLower(q)) {
		return false
	}
	return true
}

// Apply returns the matching items without modifying the input.
func (f Filter) Apply(items []ClassifiedItem) []ClassifiedItem {
	return lo.Filter(items, func(it ClassifiedItem, _ int) bool { return f.Match(it) })
}

// View is the filtered projection of a loaded report.
type View struct {
	Filter        Filter              `json:"filter"`
	Items         []ClassifiedItem    `json:"items"`
	Overall       GroupedMetrics      `json:"overall"`
	ByDestination []GroupedMetrics    `json:"by_destination"`
	BySupplier    []GroupedMetrics    `json:"by_supplier"`
	TierCounts    map[UrgencyTier]int `json:"tier_counts"`
}

// FilterOptions lists the distinct values available to the filter widget.
type FilterOptions struct {
	Flows        []FlowKind `json:"flows"`
	Destinations []string   `json:"destinations"`
	Suppliers    []string   `json:"suppliers"`
}

// Session owns the dataset loaded from the last backend response together with
// the current filter selection. It is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	opts   ReportOptions
	report *Report
	filter Filter
}

// NewSession creates an empty session.
func NewSession(opts ReportOptions) *Session {
	return &Session{opts: opts, report: BuildReport(nil, opts)}
}

// Load builds a report from results, replacing the previous dataset and
// clearing the filter.
func (s *Session) Load(results FlowResults) *Report {
	r := BuildReport(results, s.opts)
	s.Attach(r)
	return r
}

// Attach replaces the dataset with an already built report.
func (s *Session) Attach(r *Report) {
	if r == nil {
		r = BuildReport(nil, s.opts)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
	s.filter = Filter{}
}

// Report returns the loaded, unfiltered report.
func (s *Session) Report() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// SetFilter replaces the current filter.
func (s *Session) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Filter returns the current filter.
func (s *Session) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// View recomputes metrics over the filtered items.
func (s *Session) View() View {
	s.mu.RLock()
	report, filter := s.report, s.filter
	s.mu.RUnlock()

	return BuildView(report, filter)
}

// FilterView stores f as the current filter and returns the view over it.
func (s *Session) FilterView(f Filter) View {
	s.mu.Lock()
	s.filter = f
	report := s.report
	s.mu.Unlock()

	return BuildView(report, f)
}

// BuildView applies filter to a report and recomputes the grouped metrics.
// Destinations and suppliers named by the filter always get a record, an
// all-zero one when nothing of theirs passes the other dimensions.
func BuildView(r *Report, filter Filter) View {
	var items []ClassifiedItem
	if r != nil {
		items = filter.Apply(r.Items)
	}
	if items == nil {
		items = []ClassifiedItem{}
	}
	plain := PlainItems(items)

	return View{
		Filter:        filter,
		Items:         items,
		Overall:       Overall(plain),
		ByDestination: AggregateKeys(plain, ByDestination, filter.Destinations),
		BySupplier:    AggregateKeys(itemsOfFlow(plain, FlowSupplier), BySupplier, filter.Suppliers),
		TierCounts:    CountTiers(items),
	}
}

// Options lists the distinct flows, destinations and suppliers of the loaded report.
func (s *Session) Options() FilterOptions {
	r := s.Report()
	opts := FilterOptions{Flows: []FlowKind{}, Destinations: []string{}, Suppliers: []string{}}
	if r == nil {
		return opts
	}

	opts.Flows = lo.Uniq(lo.Map(r.Items, func(it ClassifiedItem, _ int) FlowKind { return it.Flow }))
	opts.Destinations = lo.Uniq(lo.Map(r.Items, func(it ClassifiedItem, _ int) string { return it.Destination }))
	sort.Strings(opts.Destinations)

	suppliers := lo.FilterMap(r.Items, func(it ClassifiedItem, _ int) (string, bool) {
		return BySupplier(it.Item), it.Flow == FlowSupplier
	})
	opts.Suppliers = lo.Uniq(suppliers)
	sort.Strings(opts.Suppliers)

	return opts
}
