// Package scoring combines extracted route metrics into composite efficiency
// scores. Normalization is relative to the candidate set, so scoring is a
// batch operation: extrema are computed in a single pass before any per-route
// work.
package scoring

import (
	"fmt"
	"math"

	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// WeightTolerance is the allowed deviation from 1.0 for the weight sum.
const WeightTolerance = 1e-9

// WeightProfile assigns relative importance to the four scoring dimensions.
// The weights of a valid profile sum to exactly 1.0 within tolerance.
type WeightProfile struct {
	Name        string  `json:"name"`
	Cost        float64 `json:"cost"`
	Speed       float64 `json:"speed"`
	Liquidity   float64 `json:"liquidity"`
	Reliability float64 `json:"reliability"`
}

// InvalidWeightProfileError reports an unknown profile name or a custom
// profile whose weights are out of range or do not sum to 1.0.
type InvalidWeightProfileError struct {
	Name   string
	Sum    float64
	Dim    string
	Weight float64
}

func (e *InvalidWeightProfileError) Error() string {
	switch {
	case e.Dim != "":
		return fmt.Sprintf("invalid weight profile %q: %s weight %v outside [0,1]", e.Name, e.Dim, e.Weight)
	case e.Sum != 0:
		return fmt.Sprintf("invalid weight profile %q: weights sum to %v, want 1.0", e.Name, e.Sum)
	}
	return fmt.Sprintf("unknown weight profile %q", e.Name)
}

// Recognized named profiles.
const (
	ProfileBalanced       = "balanced"
	ProfileCostSensitive  = "cost-sensitive"
	ProfileSpeedSensitive = "speed-sensitive"
	ProfileConservative   = "conservative"
)

// DefaultProfiles returns the built-in named weight profiles.
func DefaultProfiles() map[string]WeightProfile {
	return map[string]WeightProfile{
		ProfileBalanced: {
			Name: ProfileBalanced, Cost: 0.25, Speed: 0.25, Liquidity: 0.25, Reliability: 0.25,
		},
		ProfileCostSensitive: {
			Name: ProfileCostSensitive, Cost: 0.45, Speed: 0.15, Liquidity: 0.20, Reliability: 0.20,
		},
		ProfileSpeedSensitive: {
			Name: ProfileSpeedSensitive, Cost: 0.20, Speed: 0.45, Liquidity: 0.15, Reliability: 0.20,
		},
		ProfileConservative: {
			Name: ProfileConservative, Cost: 0.20, Speed: 0.10, Liquidity: 0.30, Reliability: 0.40,
		},
	}
}

// Validate checks that every weight lies in [0,1] and the four weights sum
// to 1.0 within tolerance. The range check keeps composites inside [0,100]:
// a negative weight paired with a compensating one above 1 still sums to 1.
func (p WeightProfile) Validate() error {
	for _, dim := range model.Dimensions {
		if w := p.weight(dim); w < 0 || w > 1 {
			return &InvalidWeightProfileError{Name: p.Name, Dim: dim, Weight: w}
		}
	}
	sum := p.Cost + p.Speed + p.Liquidity + p.Reliability
	if math.Abs(sum-1.0) > WeightTolerance {
		return &InvalidWeightProfileError{Name: p.Name, Sum: sum}
	}
	return nil
}

// weight returns the profile weight for a dimension name.
func (p WeightProfile) weight(dim string) float64 {
	switch dim {
	case model.DimCost:
		return p.Cost
	case model.DimSpeed:
		return p.Speed
	case model.DimLiquidity:
		return p.Liquidity
	case model.DimReliability:
		return p.Reliability
	}
	return 0
}

// extrema holds the observed min/max per dimension across a candidate set.
type extrema struct {
	min, max map[string]float64
}

// rawValue maps a dimension name to the underlying metric value. For cost
// and speed lower raw values are better; the inversion happens during
// normalization.
func rawValue(m model.MetricSet, dim string) float64 {
	switch dim {
	case model.DimCost:
		return m.FeeCost
	case model.DimSpeed:
		return float64(m.HopCount)
	case model.DimLiquidity:
		return m.LiquidityScore
	case model.DimReliability:
		return m.ReliabilityScore
	}
	return 0
}

// lowerIsBetter reports whether the raw scale of a dimension is inverted.
func lowerIsBetter(dim string) bool {
	return dim == model.DimCost || dim == model.DimSpeed
}

// computeExtrema walks the batch once and records min/max per dimension.
func computeExtrema(sets []model.MetricSet) extrema {
	e := extrema{
		min: make(map[string]float64, len(model.Dimensions)),
		max: make(map[string]float64, len(model.Dimensions)),
	}
	for _, dim := range model.Dimensions {
		e.min[dim] = math.Inf(1)
		e.max[dim] = math.Inf(-1)
	}
	for _, m := range sets {
		for _, dim := range model.Dimensions {
			v := rawValue(m, dim)
			if v < e.min[dim] {
				e.min[dim] = v
			}
			if v > e.max[dim] {
				e.max[dim] = v
			}
		}
	}
	return e
}

// normalize scales a raw value into [0,100] against the batch extrema, with
// 100 always meaning most favorable. A degenerate dimension (min == max)
// carries no information and normalizes to 100 for every route.
func (e extrema) normalize(dim string, raw float64) float64 {
	lo, hi := e.min[dim], e.max[dim]
	if hi <= lo {
		return 100
	}
	scaled := (raw - lo) / (hi - lo) * 100
	if lowerIsBetter(dim) {
		scaled = 100 - scaled
	}
	return scaled
}

// Score computes one ScoreBreakdown per route, normalized against the whole
// candidate set. The metric slice must be parallel to the route batch that
// produced it. The profile must already be validated.
func Score(sets []model.MetricSet, profile WeightProfile) []model.ScoreBreakdown {
	if len(sets) == 0 {
		return nil
	}

	e := computeExtrema(sets)
	out := make([]model.ScoreBreakdown, len(sets))
	for i, m := range sets {
		dims := make(map[string]model.DimensionScore, len(model.Dimensions))
		composite := 0.0
		for _, dim := range model.Dimensions {
			raw := rawValue(m, dim)
			norm := e.normalize(dim, raw)
			weighted := norm * profile.weight(dim)
			dims[dim] = model.DimensionScore{
				Raw:        raw,
				Normalized: norm,
				Weighted:   weighted,
			}
			composite += weighted
		}
		out[i] = model.ScoreBreakdown{
			Dimensions:     dims,
			CompositeScore: composite,
			Profile:        profile.Name,
		}
	}
	return out
}

// Resolve picks a weight profile by name from the given table, or validates
// the supplied custom profile when one is provided. Custom profiles win over
// the name.
func Resolve(name string, custom *WeightProfile, profiles map[string]WeightProfile) (WeightProfile, error) {
	if custom != nil {
		p := *custom
		if p.Name == "" {
			p.Name = "custom"
		}
		if err := p.Validate(); err != nil {
			return WeightProfile{}, err
		}
		return p, nil
	}

	if name == "" {
		name = ProfileBalanced
	}
	p, ok := profiles[name]
	if !ok {
		return WeightProfile{}, &InvalidWeightProfileError{Name: name}
	}
	return p, nil
}
