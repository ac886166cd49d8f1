package replenishment

// UrgencyTier is the coverage-based urgency class of an item.
type UrgencyTier string

const (
	TierCritical UrgencyTier = "CRITICAL"
	TierWarning  UrgencyTier = "WARNING"
	TierSafe     UrgencyTier = "SAFE"
	// TierNotApplicable marks items without a projected coverage.
	TierNotApplicable UrgencyTier = "NOT_APPLICABLE"
)

// Tiers lists the tiers from most to least urgent.
var Tiers = []UrgencyTier{TierCritical, TierWarning, TierSafe, TierNotApplicable}

// Rank orders tiers most urgent first; unknown tiers sort last.
func (t UrgencyTier) Rank() int {
	switch t {
	case TierCritical:
		return 0
	case TierWarning:
		return 1
	case TierSafe:
		return 2
	case TierNotApplicable:
		return 3
	}
	return 4
}

// Thresholds are the day cut-offs for one flow. All comparisons are strict:
// coverage < CriticalBelow is critical, < WarningBelow is warning.
// RiskCutoffDays marks an item at stockout risk when its current coverage is below it.
type Thresholds struct {
	CriticalBelow  float64 `json:"critical_below"`
	WarningBelow   float64 `json:"warning_below"`
	RiskCutoffDays float64 `json:"risk_cutoff_days"`
}

// Tier maps a coverage in days to a tier.
func (t Thresholds) Tier(coverageDays float64) UrgencyTier {
	switch {
	case coverageDays < t.CriticalBelow:
		return TierCritical
	case coverageDays < t.WarningBelow:
		return TierWarning
	default:
		return TierSafe
	}
}

// ClassifierConfig holds the thresholds per flow. Flows may diverge on purpose.
type ClassifierConfig struct {
	PerFlow map[FlowKind]Thresholds `json:"per_flow"`
	// Fallback applies to flows without an entry.
	Fallback Thresholds `json:"fallback"`
}

// DefaultClassifierConfig returns the production cut-offs: 7/15 days for all
// flows, with a 7-day stockout risk cut-off for CD-to-store and 3 days for the others.
func DefaultClassifierConfig() ClassifierConfig {
	cd := Thresholds{CriticalBelow: 7, WarningBelow: 15, RiskCutoffDays: 7}
	return ClassifierConfig{
		PerFlow: map[FlowKind]Thresholds{
			FlowSupplier:  {CriticalBelow: 7, WarningBelow: 15, RiskCutoffDays: 3},
			FlowCDToStore: cd,
			FlowTransfer:  {CriticalBelow: 7, WarningBelow: 15, RiskCutoffDays: 3},
		},
		Fallback: cd,
	}
}

// WithDefaults fills the parts of c that were left zero. A nil PerFlow gets
// the default per-flow cut-offs unless a Fallback was given, in which case the
// fallback applies to every flow. A zero Fallback gets the default fallback.
func (c ClassifierConfig) WithDefaults() ClassifierConfig {
	def := DefaultClassifierConfig()
	if c.PerFlow == nil {
		if c.Fallback == (Thresholds{}) {
			c.PerFlow = def.PerFlow
		} else {
			c.PerFlow = map[FlowKind]Thresholds{}
		}
	}
	if c.Fallback == (Thresholds{}) {
		c.Fallback = def.Fallback
	}
	return c
}

// Classifier assigns urgency tiers using per-flow thresholds.
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier creates a classifier. Missing per-flow entries use cfg.Fallback.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	perFlow := make(map[FlowKind]Thresholds, len(cfg.PerFlow))
	for k, v := range cfg.PerFlow {
		perFlow[k] = v
	}
	cfg.PerFlow = perFlow
	return &Classifier{cfg: cfg}
}

// ThresholdsFor returns the thresholds applied to a flow.
func (c *Classifier) ThresholdsFor(flow FlowKind) Thresholds {
	if t, ok := c.cfg.PerFlow[flow]; ok {
		return t
	}
	return c.cfg.Fallback
}

// Classify derives the tier from projected coverage. An item flagged at
// stockout risk is never reported as SAFE or NOT_APPLICABLE.
func (c *Classifier) Classify(it Item) UrgencyTier {
	tier := TierNotApplicable
	if days, ok := it.ProjectedCoverage(); ok {
		tier = c.ThresholdsFor(it.Flow).Tier(days)
	}
	if it.StockoutRisk && (tier == TierSafe || tier == TierNotApplicable) {
		return TierWarning
	}
	return tier
}

// AtRisk applies the flow's stockout risk cut-off to a current coverage.
func (c *Classifier) AtRisk(flow FlowKind, coverageDaysCurrent float64) bool {
	return coverageDaysCurrent < c.ThresholdsFor(flow).RiskCutoffDays
}

// ClassifiedItem pairs an item with its tier.
type ClassifiedItem struct {
	Item
	Tier UrgencyTier `json:"tier"`
}

// ClassifyAll classifies items preserving their order.
func (c *Classifier) ClassifyAll(items []Item) []ClassifiedItem {
	out := make([]ClassifiedItem, len(items))
	for i, it := range items {
		out[i] = ClassifiedItem{Item: it, Tier: c.Classify(it)}
	}
	return out
}

// CountTiers tallies classified items per tier. Every tier is present in the result.
func CountTiers(items []ClassifiedItem) map[UrgencyTier]int {
	counts := make(map[UrgencyTier]int, len(Tiers))
	for _, t := range Tiers {
		counts[t] = 0
	}
	for _, it := range items {
		counts[it.Tier]++
	}
	return counts
}
