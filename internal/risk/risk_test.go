package risk

import (
	"testing"

	"github.com/yourorg/swap-route-analyzer/internal/model"
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name string
		m    model.MetricSet
		want model.RiskTier
	}{
		{
			name: "direct low-impact route on reliable venue",
			m:    model.MetricSet{HopCount: 1, PriceImpactPct: 0.1, ReliabilityScore: 92},
			want: model.RiskLow,
		},
		{
			name: "two hops still qualifies for low",
			m:    model.MetricSet{HopCount: 2, PriceImpactPct: 0.49, ReliabilityScore: 80},
			want: model.RiskLow,
		},
		{
			name: "impact at low bound is not low",
			m:    model.MetricSet{HopCount: 1, PriceImpactPct: 0.5, ReliabilityScore: 92},
			want: model.RiskMedium,
		},
		{
			name: "three hops breaks the low conjunction",
			m:    model.MetricSet{HopCount: 3, PriceImpactPct: 0.1, ReliabilityScore: 92},
			want: model.RiskMedium,
		},
		{
			name: "reliability below low floor",
			m:    model.MetricSet{HopCount: 1, PriceImpactPct: 0.1, ReliabilityScore: 79},
			want: model.RiskMedium,
		},
		{
			name: "high impact alone",
			m:    model.MetricSet{HopCount: 1, PriceImpactPct: 2.5, ReliabilityScore: 92},
			want: model.RiskHigh,
		},
		{
			name: "impact at high bound stays medium",
			m:    model.MetricSet{HopCount: 3, PriceImpactPct: 2.0, ReliabilityScore: 92},
			want: model.RiskMedium,
		},
		{
			name: "four hops alone",
			m:    model.MetricSet{HopCount: 4, PriceImpactPct: 0.1, ReliabilityScore: 92},
			want: model.RiskHigh,
		},
		{
			name: "reliability below high floor",
			m:    model.MetricSet{HopCount: 1, PriceImpactPct: 0.1, ReliabilityScore: 39},
			want: model.RiskHigh,
		},
		{
			name: "high disjunct beats low conjunction",
			m:    model.MetricSet{HopCount: 1, PriceImpactPct: 0.1, ReliabilityScore: 30},
			want: model.RiskHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.m, th); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds must validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"negative impact bound", func(th *Thresholds) { th.LowMaxImpactPct = -1 }},
		{"low impact above high", func(th *Thresholds) { th.LowMaxImpactPct = 3.0 }},
		{"hop bounds overlap", func(th *Thresholds) { th.HighMinHops = 2 }},
		{"zero low hop bound", func(th *Thresholds) { th.LowMaxHops = 0 }},
		{"reliability bounds inverted", func(th *Thresholds) { th.LowMinReliability = 30 }},
		{"reliability above 100", func(th *Thresholds) { th.LowMinReliability = 120 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			if err := th.Validate(); err == nil {
				t.Error("Validate() accepted inconsistent thresholds")
			}
		})
	}
}
