package replenishment

import "math"

// InsufficientDataSentinel is the value the backend reports when a SKU has too
// little history to compute a forecast metric. It must never be averaged.
const InsufficientDataSentinel = 999.9

// QualityBand is a forecast quality class, independent of urgency.
type QualityBand string

const (
	QualityExcellent     QualityBand = "EXCELLENT"
	QualityGood          QualityBand = "GOOD"
	QualityAcceptable    QualityBand = "ACCEPTABLE"
	QualityWeak          QualityBand = "WEAK"
	QualityVeryWeak      QualityBand = "VERY_WEAK"
	QualityNotApplicable QualityBand = "NOT_APPLICABLE"
)

// BiasBand is a forecast bias class.
type BiasBand string

const (
	BiasNormal        BiasBand = "NORMAL"
	BiasCaution       BiasBand = "CAUTION"
	BiasAlert         BiasBand = "ALERT"
	BiasCritical      BiasBand = "CRITICAL"
	BiasNotApplicable BiasBand = "NOT_APPLICABLE"
)

// IsSentinel reports whether v marks insufficient data.
func IsSentinel(v float64) bool {
	return math.IsNaN(v) || math.Abs(v) >= InsufficientDataSentinel
}

// ClassifyWMAPE bands a WMAPE percentage.
func ClassifyWMAPE(wmape float64) QualityBand {
	switch {
	case IsSentinel(wmape):
		return QualityNotApplicable
	case wmape < 10:
		return QualityExcellent
	case wmape <= 20:
		return QualityGood
	case wmape <= 30:
		return QualityAcceptable
	case wmape <= 50:
		return QualityWeak
	default:
		return QualityVeryWeak
	}
}

// ClassifyBias bands the absolute bias percentage.
func ClassifyBias(bias float64) BiasBand {
	if IsSentinel(bias) {
		return BiasNotApplicable
	}
	abs := math.Abs(bias)
	switch {
	case abs <= 20:
		return BiasNormal
	case abs <= 50:
		return BiasCaution
	case abs <= 100:
		return BiasAlert
	default:
		return BiasCritical
	}
}

// AverageWMAPE averages the values that are not sentinels. n is the number of
// values used; n == 0 means the average is not applicable.
func AverageWMAPE(values []float64) (avg float64, n int) {
	return averageExcludingSentinel(values)
}

// AverageBias averages non-sentinel bias values keeping their sign.
func AverageBias(values []float64) (avg float64, n int) {
	return averageExcludingSentinel(values)
}

func averageExcludingSentinel(values []float64) (float64, int) {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if IsSentinel(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// AccuracySummary is the forecast quality overview for a set of items.
type AccuracySummary struct {
	AverageWMAPE   *float64            `json:"average_wmape"`
	AverageBias    *float64            `json:"average_bias"`
	WMAPESamples   int                 `json:"wmape_samples"`
	BiasSamples    int                 `json:"bias_samples"`
	WMAPEBands     map[QualityBand]int `json:"wmape_bands"`
	BiasBands      map[BiasBand]int    `json:"bias_bands"`
	NotApplicable  int                 `json:"not_applicable"`
	WithoutMetrics int                 `json:"without_metrics"`
}

// SummarizeAccuracy averages and bands the forecast metrics of items.
// Averages stay nil when no usable value exists.
func SummarizeAccuracy(items []Item) AccuracySummary {
	s := AccuracySummary{
		WMAPEBands: make(map[QualityBand]int),
		BiasBands:  make(map[BiasBand]int),
	}

	var wmapes, biases []float64
	for _, it := range items {
		if it.Forecast == nil || (it.Forecast.WMAPE == nil && it.Forecast.Bias == nil) {
			s.WithoutMetrics++
			continue
		}
		if it.Forecast.WMAPE != nil {
			v := *it.Forecast.WMAPE
			band := ClassifyWMAPE(v)
			s.WMAPEBands[band]++
			if band == QualityNotApplicable {
				s.NotApplicable++
			} else {
				wmapes = append(wmapes, v)
			}
		}
		if it.Forecast.Bias != nil {
			v := *it.Forecast.Bias
			s.BiasBands[ClassifyBias(v)]++
			biases = append(biases, v)
		}
	}

	if avg, n := AverageWMAPE(wmapes); n > 0 {
		s.AverageWMAPE = &avg
		s.WMAPESamples = n
	}
	if avg, n := AverageBias(biases); n > 0 {
		s.AverageBias = &avg
		s.BiasSamples = n
	}
	return s
}
