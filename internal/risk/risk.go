// Package risk maps route metrics to a discrete execution-risk tier.
package risk

import (
	"fmt"

	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// Thresholds defines the tier boundaries. All values are configuration, not
// hardwired literals, so they can be tuned without touching logic.
type Thresholds struct {
	// Low tier requires all three of these to hold
	LowMaxImpactPct   float64 `json:"low_max_impact_pct"`
	LowMaxHops        int     `json:"low_max_hops"`
	LowMinReliability float64 `json:"low_min_reliability"`

	// High tier fires when any of these holds
	HighMinImpactPct   float64 `json:"high_min_impact_pct"`
	HighMinHops        int     `json:"high_min_hops"`
	HighMaxReliability float64 `json:"high_max_reliability"`
}

// DefaultThresholds returns the standard tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowMaxImpactPct:    0.5,
		LowMaxHops:         2,
		LowMinReliability:  80,
		HighMinImpactPct:   2.0,
		HighMinHops:        4,
		HighMaxReliability: 40,
	}
}

// Validate rejects threshold sets that cannot classify consistently, e.g.
// a Low impact bound above the High bound.
func (t Thresholds) Validate() error {
	if t.LowMaxImpactPct < 0 || t.HighMinImpactPct < 0 {
		return fmt.Errorf("risk thresholds: negative price impact bound")
	}
	if t.LowMaxImpactPct > t.HighMinImpactPct {
		return fmt.Errorf("risk thresholds: low impact bound %v exceeds high bound %v",
			t.LowMaxImpactPct, t.HighMinImpactPct)
	}
	if t.LowMaxHops < 1 || t.HighMinHops <= t.LowMaxHops {
		return fmt.Errorf("risk thresholds: hop bounds inconsistent (low max %d, high min %d)",
			t.LowMaxHops, t.HighMinHops)
	}
	if t.LowMinReliability < t.HighMaxReliability {
		return fmt.Errorf("risk thresholds: reliability bounds inverted (low min %v, high max %v)",
			t.LowMinReliability, t.HighMaxReliability)
	}
	if t.LowMinReliability > 100 || t.HighMaxReliability < 0 {
		return fmt.Errorf("risk thresholds: reliability bounds out of [0,100]")
	}
	return nil
}

// Classify maps a metric set to its risk tier. Pure and deterministic: the
// High checks run first so that a route violating any High bound never lands
// in Low via the conjunctive rule.
func Classify(m model.MetricSet, t Thresholds) model.RiskTier {
	if m.PriceImpactPct > t.HighMinImpactPct ||
		m.HopCount >= t.HighMinHops ||
		m.ReliabilityScore < t.HighMaxReliability {
		return model.RiskHigh
	}
	if m.PriceImpactPct < t.LowMaxImpactPct &&
		m.HopCount <= t.LowMaxHops &&
		m.ReliabilityScore >= t.LowMinReliability {
		return model.RiskLow
	}
	return model.RiskMedium
}
