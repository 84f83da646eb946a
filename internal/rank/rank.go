// Package rank orders scored routes into a total, reproducible ranking.
package rank

import (
	"sort"

	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// Rank joins the parallel slices produced by the earlier stages and sorts
// them into rank order. Ordering keys, in priority:
//
//  1. composite score, descending
//  2. fewer hops
//  3. lexicographically smaller platform-set signature
//  4. original input order (stable sort)
//
// The input slices are not mutated; a fresh RankedRoute slice is returned
// with Rank positions assigned starting at 1.
func Rank(routes []model.Route, sets []model.MetricSet, scores []model.ScoreBreakdown, tiers []model.RiskTier) []model.RankedRoute {
	ranked := make([]model.RankedRoute, len(routes))
	for i := range routes {
		ranked[i] = model.RankedRoute{
			Route:    routes[i],
			Metrics:  sets[i],
			Score:    scores[i],
			RiskTier: tiers[i],
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score.CompositeScore != b.Score.CompositeScore {
			return a.Score.CompositeScore > b.Score.CompositeScore
		}
		if a.Route.HopCount() != b.Route.HopCount() {
			return a.Route.HopCount() < b.Route.HopCount()
		}
		sigA, sigB := a.Route.PlatformSignature(), b.Route.PlatformSignature()
		if sigA != sigB {
			return sigA < sigB
		}
		// Fully tied: stable sort preserves input order.
		return false
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// TiedWithNext reports whether the route at position i is fully tied with
// its successor before tie-breaking, i.e. every normalized dimension value
// matches. Used by the explanation generator to surface the tie-break rule.
func TiedWithNext(ranked []model.RankedRoute, i int) bool {
	if i < 0 || i+1 >= len(ranked) {
		return false
	}
	a, b := ranked[i].Score.Dimensions, ranked[i+1].Score.Dimensions
	for _, dim := range model.Dimensions {
		if a[dim].Normalized != b[dim].Normalized {
			return false
		}
	}
	return true
}
