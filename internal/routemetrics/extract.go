// Package routemetrics derives comparable numeric features from validated
// routes. Extraction never fails for a valid route: missing upstream data
// degrades to configured neutral defaults plus a diagnostic flag.
package routemetrics

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// Options holds the injected configuration for metric extraction.
type Options struct {
	// ReputationTable maps lowercase platform labels to scores in [0,100]
	ReputationTable map[string]float64

	// NeutralReliability is used for platforms absent from the table
	NeutralReliability float64

	// NeutralLiquidity is used when pool depth data is unavailable
	NeutralLiquidity float64

	// GasConversionRate converts compute units into output-token cost units
	GasConversionRate float64

	// DepthSaturation is the pool depth that maps to a liquidity score of
	// 100 on the log scale; deeper pools are clamped
	DepthSaturation float64
}

// DefaultOptions returns extraction defaults, including the built-in
// platform reputation table. Callers normally override the table from
// configuration.
func DefaultOptions() Options {
	return Options{
		ReputationTable:    DefaultReputationTable(),
		NeutralReliability: 50,
		NeutralLiquidity:   50,
		GasConversionRate:  0.000005,
		DepthSaturation:    1e9,
	}
}

// DefaultReputationTable is the built-in platform reputation seed. Scores
// reflect venue track record; unknown platforms fall back to the neutral
// default at extraction time.
func DefaultReputationTable() map[string]float64 {
	return map[string]float64{
		"orca":      92,
		"raydium":   90,
		"whirlpool": 90,
		"meteora":   85,
		"phoenix":   85,
		"lifinity":  80,
		"openbook":  78,
		"saber":     75,
		"mercurial": 72,
		"invariant": 70,
		"crema":     68,
		"aldrin":    65,
		"cropper":   62,
		"goosefx":   60,
		"deltafi":   58,
		"stepn":     55,
		"pump":      45,
	}
}

// Extract computes the MetricSet for a single validated route.
func Extract(route model.Route, opts Options) model.MetricSet {
	m := model.MetricSet{
		HopCount: route.HopCount(),
	}

	m.PriceImpactPct = priceImpact(route, &m)
	m.FeeCost = feeCost(route, opts)
	m.LiquidityScore = liquidity(route, opts, &m)
	m.ReliabilityScore = reliability(route, opts, &m)

	if len(m.Flags) > 0 {
		logrus.WithFields(logrus.Fields{
			"route": route.RouteID,
			"flags": m.Flags,
		}).Debug("Metric extraction used fallback defaults")
	}
	return m
}

// ExtractAll computes metric sets for a whole candidate batch, preserving
// order.
func ExtractAll(routes []model.Route, opts Options) []model.MetricSet {
	sets := make([]model.MetricSet, len(routes))
	for i, r := range routes {
		sets[i] = Extract(r, opts)
	}
	return sets
}

// priceImpact returns the quoted aggregate impact, or estimates it from the
// gap between the quoted output and the slippage floor when absent.
func priceImpact(route model.Route, m *model.MetricSet) float64 {
	if route.PriceImpactPct != nil {
		return math.Max(*route.PriceImpactPct, 0)
	}

	m.Flags = append(m.Flags, "price_impact_estimated")
	if route.OutAmount <= 0 || route.MinOutAmount <= 0 {
		return 0
	}
	est := (route.OutAmount - route.MinOutAmount) / route.OutAmount * 100
	return math.Max(est, 0)
}

// feeCost sums the per-hop fee-bps contributions in output-token units and
// adds the converted compute cost.
func feeCost(route model.Route, opts Options) float64 {
	var totalBps float64
	for _, h := range route.Hops {
		totalBps += h.FeeBps
	}
	cost := totalBps / 10000 * route.OutAmount
	cost += route.ComputeUnits * opts.GasConversionRate
	return cost
}

// liquidity scores the bottleneck pool depth on a log scale. The shallowest
// pool along the path gates execution, so it dominates.
func liquidity(route model.Route, opts Options, m *model.MetricSet) float64 {
	minDepth := math.Inf(1)
	haveDepth := true
	for _, h := range route.Hops {
		if h.PoolDepth == nil {
			haveDepth = false
			break
		}
		if *h.PoolDepth < minDepth {
			minDepth = *h.PoolDepth
		}
	}

	if !haveDepth {
		m.Flags = append(m.Flags, "liquidity_default")
		return opts.NeutralLiquidity
	}
	if minDepth <= 0 {
		return 0
	}

	saturation := opts.DepthSaturation
	if saturation <= 1 {
		saturation = 1e9
	}
	score := 100 * math.Log10(1+minDepth) / math.Log10(1+saturation)
	return clamp(score, 0, 100)
}

// reliability combines per-hop platform reputation via the minimum: a route
// is only as reliable as its weakest venue.
func reliability(route model.Route, opts Options, m *model.MetricSet) float64 {
	score := math.Inf(1)
	for _, h := range route.Hops {
		rep, ok := opts.ReputationTable[strings.ToLower(h.Platform)]
		if !ok {
			rep = opts.NeutralReliability
			m.Flags = append(m.Flags, "reliability_default:"+strings.ToLower(h.Platform))
		}
		if rep < score {
			score = rep
		}
	}
	if math.IsInf(score, 1) {
		return opts.NeutralReliability
	}
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
