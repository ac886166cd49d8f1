package replenishment

// Consolidate flattens the per-flow result sets into a single slice, tagging
// every item with the flow it came from. Flows are visited in canonical order
// and items keep their source order. The input is left untouched.
func Consolidate(results FlowResults) []Item {
	total := 0
	for _, set := range results {
		total += len(set.Items)
	}

	out := make([]Item, 0, total)
	for _, flow := range results.OrderedFlows() {
		for _, it := range results[flow].Items {
			tagged := it.clone()
			tagged.Flow = flow
			out = append(out, tagged)
		}
	}
	return out
}

// clone copies the item including everything reachable through pointers.
func (it Item) clone() Item {
	c := it
	c.Origin = cloneString(it.Origin)
	c.Alert = cloneString(it.Alert)

	if it.Supplier != nil {
		s := *it.Supplier
		s.LeadTimeDays = cloneFloat(it.Supplier.LeadTimeDays)
		c.Supplier = &s
	}
	if it.CD != nil {
		cd := *it.CD
		c.CD = &cd
	}
	if it.Transfer != nil {
		t := *it.Transfer
		t.OriginCoverageDays = cloneFloat(it.Transfer.OriginCoverageDays)
		c.Transfer = &t
	}
	if it.Forecast != nil {
		c.Forecast = &ForecastQuality{
			WMAPE: cloneFloat(it.Forecast.WMAPE),
			Bias:  cloneFloat(it.Forecast.Bias),
		}
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
