package replenishment

import (
	"math"
	"testing"
)

func TestClassifyWMAPE(t *testing.T) {
	tests := []struct {
		value float64
		want  QualityBand
	}{
		{0, QualityExcellent},
		{9.99, QualityExcellent},
		{10, QualityGood},
		{20, QualityGood},
		{25, QualityAcceptable},
		{30, QualityAcceptable},
		{50, QualityWeak},
		{50.1, QualityVeryWeak},
		{999.9, QualityNotApplicable},
		{math.NaN(), QualityNotApplicable},
	}

	for _, tt := range tests {
		if got := ClassifyWMAPE(tt.value); got != tt.want {
			t.Errorf("ClassifyWMAPE(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestClassifyBias(t *testing.T) {
	tests := []struct {
		value float64
		want  BiasBand
	}{
		{0, BiasNormal},
		{-20, BiasNormal},
		{35, BiasCaution},
		{-50, BiasCaution},
		{80, BiasAlert},
		{-100.5, BiasCritical},
		{999.9, BiasNotApplicable},
		{-999.9, BiasNotApplicable},
	}

	for _, tt := range tests {
		if got := ClassifyBias(tt.value); got != tt.want {
			t.Errorf("ClassifyBias(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestAverageWMAPE(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		avg    float64
		n      int
	}{
		{"SentinelExcluded", []float64{10, 999.9}, 10, 1},
		{"AllSentinel", []float64{999.9, 999.9}, 0, 0},
		{"Empty", nil, 0, 0},
		{"Plain", []float64{10, 20, 30}, 20, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, n := AverageWMAPE(tt.values)
			if n != tt.n || !almostEqual(avg, tt.avg) {
				t.Errorf("AverageWMAPE(%v) = (%v, %d), want (%v, %d)", tt.values, avg, n, tt.avg, tt.n)
			}
		})
	}
}

func TestAverageBias_KeepsSign(t *testing.T) {
	avg, n := AverageBias([]float64{-10, 30, 999.9})
	if n != 2 || !almostEqual(avg, 10) {
		t.Errorf("AverageBias() = (%v, %d), want (10, 2)", avg, n)
	}
}

func TestSummarizeAccuracy(t *testing.T) {
	items := []Item{
		{Forecast: &ForecastQuality{WMAPE: ptr(10.0), Bias: ptr(-5.0)}},
		{Forecast: &ForecastQuality{WMAPE: ptr(999.9)}},
		{Forecast: &ForecastQuality{}},
		{},
	}

	s := SummarizeAccuracy(items)
	if s.AverageWMAPE == nil || !almostEqual(*s.AverageWMAPE, 10) {
		t.Errorf("AverageWMAPE = %v, want 10", s.AverageWMAPE)
	}
	if s.WMAPESamples != 1 || s.NotApplicable != 1 || s.WithoutMetrics != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.AverageBias == nil || !almostEqual(*s.AverageBias, -5) {
		t.Errorf("AverageBias = %v, want -5", s.AverageBias)
	}
	if s.WMAPEBands[QualityGood] != 1 || s.BiasBands[BiasNormal] != 1 {
		t.Errorf("unexpected bands: %v %v", s.WMAPEBands, s.BiasBands)
	}
}

func TestSummarizeAccuracy_NoUsableValues(t *testing.T) {
	s := SummarizeAccuracy([]Item{{Forecast: &ForecastQuality{WMAPE: ptr(999.9)}}})
	if s.AverageWMAPE != nil || s.AverageBias != nil {
		t.Errorf("expected nil averages, got %+v", s)
	}
}
