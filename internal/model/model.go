// Package model defines the core data structures for the swap route analyzer.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// RawHop is one leg of a route as delivered by the external quoting service.
// The shape is deliberately loose; the normalizer turns it into a Hop.
type RawHop struct {
	// SourceToken is the input token identifier (mint address or symbol)
	SourceToken string `json:"sourceToken"`

	// DestToken is the output token identifier
	DestToken string `json:"destToken"`

	// Platform is the DEX/AMM label executing this leg
	Platform string `json:"platform"`

	// PoolID identifies the liquidity pool used
	PoolID string `json:"poolId"`

	// FeeBps is the pool fee in basis points
	FeeBps float64 `json:"feeBps"`

	// PoolDepth is an optional pool depth estimate in output-token units
	PoolDepth *float64 `json:"poolDepth,omitempty"`
}

// RawRoute is a candidate route record as delivered by the quoting service,
// before any validation has been applied.
type RawRoute struct {
	RouteID     string `json:"routeId,omitempty"`
	InputToken  string `json:"inputToken"`
	OutputToken string `json:"outputToken"`

	// Amounts are in raw token units of the respective side
	InAmount     float64 `json:"inAmount"`
	OutAmount    float64 `json:"outAmount"`
	MinOutAmount float64 `json:"minOutAmount"`

	// PriceImpactPct is the aggregate price impact in percent; optional,
	// the extractor estimates it from the slippage floor when absent
	PriceImpactPct *float64 `json:"priceImpactPct,omitempty"`

	// ComputeUnits is the estimated compute/gas cost of executing the route
	ComputeUnits float64 `json:"computeUnits,omitempty"`

	Hops []RawHop `json:"hops"`
}

// Hop is one validated token-to-token leg of a route.
type Hop struct {
	SourceToken string   `json:"sourceToken"`
	DestToken   string   `json:"destToken"`
	Platform    string   `json:"platform"`
	PoolID      string   `json:"poolId"`
	FeeBps      float64  `json:"feeBps"`
	PoolDepth   *float64 `json:"poolDepth,omitempty"`
}

// Route is the canonical, validated route model. Instances are created by
// the normalizer and never mutated afterwards.
type Route struct {
	RouteID        string   `json:"routeId"`
	InputToken     string   `json:"inputToken"`
	OutputToken    string   `json:"outputToken"`
	InAmount       float64  `json:"inAmount"`
	OutAmount      float64  `json:"outAmount"`
	MinOutAmount   float64  `json:"minOutAmount"`
	PriceImpactPct *float64 `json:"priceImpactPct,omitempty"`
	ComputeUnits   float64  `json:"computeUnits,omitempty"`
	Hops           []Hop    `json:"hops"`

	// Platforms is the sorted set of distinct platform labels along the path
	Platforms []string `json:"platforms"`
}

// HopCount returns the number of legs in the route.
func (r Route) HopCount() int {
	return len(r.Hops)
}

// PlatformSignature returns a deterministic signature for the platform set,
// used as a ranking tie-break independent of input order.
func (r Route) PlatformSignature() string {
	return strings.Join(r.Platforms, ",")
}

// DistinctPlatforms derives the sorted platform set from a hop list.
func DistinctPlatforms(hops []Hop) []string {
	seen := make(map[string]struct{}, len(hops))
	platforms := make([]string, 0, len(hops))
	for _, h := range hops {
		key := strings.ToLower(h.Platform)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		platforms = append(platforms, key)
	}
	sort.Strings(platforms)
	return platforms
}

// MetricSet holds the comparable numeric features derived from one route.
// It is recomputed fresh for every analysis because scoring is relative to
// the candidate set.
type MetricSet struct {
	HopCount         int     `json:"hopCount"`
	PriceImpactPct   float64 `json:"priceImpactPct"`
	FeeCost          float64 `json:"feeCost"`
	LiquidityScore   float64 `json:"liquidityScore"`
	ReliabilityScore float64 `json:"reliabilityScore"`

	// Flags records which values fell back to neutral defaults
	Flags []string `json:"flags,omitempty"`
}

// Dimension names used across scoring, explanation and comparison output.
const (
	DimCost        = "cost"
	DimSpeed       = "speed"
	DimLiquidity   = "liquidity"
	DimReliability = "reliability"
)

// Dimensions lists the four scoring dimensions in canonical order.
var Dimensions = []string{DimCost, DimSpeed, DimLiquidity, DimReliability}

// DimensionScore is one normalized dimension of a route's score.
type DimensionScore struct {
	// Raw is the underlying metric value before normalization
	Raw float64 `json:"raw"`

	// Normalized is the min-max scaled value in [0,100], 100 = most favorable
	Normalized float64 `json:"normalized"`

	// Weighted is Normalized multiplied by the profile weight
	Weighted float64 `json:"weighted"`
}

// ScoreBreakdown holds the per-dimension contributions and the composite
// efficiency score for a route, relative to its candidate set.
type ScoreBreakdown struct {
	Dimensions     map[string]DimensionScore `json:"dimensions"`
	CompositeScore float64                   `json:"compositeScore"`
	Profile        string                    `json:"profile"`
}

// RiskTier is the coarse execution-risk classification of a route.
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// RankedRoute joins a route with its score, risk tier, rank position and
// generated explanation.
type RankedRoute struct {
	Route       Route          `json:"route"`
	Metrics     MetricSet      `json:"metrics"`
	Score       ScoreBreakdown `json:"score"`
	RiskTier    RiskTier       `json:"riskTier"`
	Rank        int            `json:"rank"`
	Explanation string         `json:"explanation"`
}

// DimensionDelta is a signed per-dimension difference between two routes.
type DimensionDelta struct {
	RawDelta        float64 `json:"rawDelta"`
	NormalizedDelta float64 `json:"normalizedDelta"`

	// Winner names the route ahead on this dimension, empty on a tie
	Winner string `json:"winner,omitempty"`
}

// ComparisonResult holds the per-dimension deltas and overall verdict for a
// pairwise route comparison.
type ComparisonResult struct {
	RouteA  string                    `json:"routeA"`
	RouteB  string                    `json:"routeB"`
	Profile string                    `json:"profile"`
	Deltas  map[string]DimensionDelta `json:"deltas"`

	// CompositeA/B are the two-route composite scores under the profile
	CompositeA float64 `json:"compositeA"`
	CompositeB float64 `json:"compositeB"`

	// Verdict names the overall winner and the dimensions that carried it
	Verdict string `json:"verdict"`
}

// Diagnostic reports a raw route record that was rejected during
// normalization, or a soft data gap noticed during extraction.
type Diagnostic struct {
	// Index is the position of the record in the submitted batch
	Index int `json:"index"`

	// RouteID echoes the record's identifier when one was present
	RouteID string `json:"routeId,omitempty"`

	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	if d.RouteID != "" {
		return fmt.Sprintf("route %s (index %d): %s", d.RouteID, d.Index, d.Reason)
	}
	return fmt.Sprintf("route index %d: %s", d.Index, d.Reason)
}
