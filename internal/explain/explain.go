// Package explain generates the textual rationale attached to each ranked
// route. Output is templated and fully determined by the score breakdowns,
// so identical input always produces identical text.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yourorg/swap-route-analyzer/internal/model"
	"github.com/yourorg/swap-route-analyzer/internal/platform"
	"github.com/yourorg/swap-route-analyzer/internal/rank"
)

// phrases render a dimension as lead/deficit wording.
var leadPhrases = map[string]string{
	model.DimCost:        "lower total cost",
	model.DimSpeed:       "fewer hops",
	model.DimLiquidity:   "deeper liquidity",
	model.DimReliability: "higher platform reliability",
}

// margin is one dimension's normalized lead of one route over another.
type margin struct {
	dim   string
	value float64
}

// topMargins returns the dimensions where a leads b, largest normalized
// margin first; ties resolve in canonical dimension order (the order of
// model.Dimensions), keeping output deterministic.
func topMargins(a, b model.ScoreBreakdown, limit int) []margin {
	margins := make([]margin, 0, len(model.Dimensions))
	for _, dim := range model.Dimensions {
		diff := a.Dimensions[dim].Normalized - b.Dimensions[dim].Normalized
		if diff > 0 {
			margins = append(margins, margin{dim: dim, value: diff})
		}
	}
	sort.SliceStable(margins, func(i, j int) bool {
		return margins[i].value > margins[j].value
	})
	if len(margins) > limit {
		margins = margins[:limit]
	}
	return margins
}

func phraseList(margins []margin) string {
	parts := make([]string, len(margins))
	for i, m := range margins {
		parts[i] = fmt.Sprintf("%s (+%.1f)", leadPhrases[m.dim], m.value)
	}
	return strings.Join(parts, " and ")
}

// tieBreakText names the rule that separated two fully tied routes.
func tieBreakText(a, b model.RankedRoute) string {
	if a.Route.HopCount() != b.Route.HopCount() {
		return "fully tied on all dimensions; ranked ahead by fewer hops"
	}
	if a.Route.PlatformSignature() != b.Route.PlatformSignature() {
		return "fully tied on all dimensions; ranked ahead by platform-set order"
	}
	return "fully tied on all dimensions; original submission order preserved"
}

// Annotate fills the Explanation field of every ranked route in place on
// the returned copy. Each route is explained relative to its neighbor: the
// leader against the runner-up, everything else against the route above it.
func Annotate(ranked []model.RankedRoute) []model.RankedRoute {
	out := make([]model.RankedRoute, len(ranked))
	copy(out, ranked)

	for i := range out {
		out[i].Explanation = explainAt(out, i)
	}
	return out
}

func explainAt(ranked []model.RankedRoute, i int) string {
	r := ranked[i]
	via := platform.JoinDisplayNames(r.Route.Platforms)

	if len(ranked) == 1 {
		return fmt.Sprintf("Ranked #1 via %s: only valid candidate (composite %.1f, risk %s).",
			via, r.Score.CompositeScore, r.RiskTier)
	}

	if i == 0 {
		next := ranked[1]
		if rank.TiedWithNext(ranked, 0) {
			return fmt.Sprintf("Ranked #1 via %s: %s.", via, tieBreakText(r, next))
		}
		margins := topMargins(r.Score, next.Score, 2)
		if len(margins) == 0 {
			return fmt.Sprintf("Ranked #1 via %s: edges out the next route on the %s weighting (composite %.1f vs %.1f).",
				via, r.Score.Profile, r.Score.CompositeScore, next.Score.CompositeScore)
		}
		return fmt.Sprintf("Ranked #1 via %s: leads the next best route on %s.",
			via, phraseList(margins))
	}

	above := ranked[i-1]
	if rank.TiedWithNext(ranked, i-1) {
		return fmt.Sprintf("Ranked #%d via %s: %s.", r.Rank, via,
			strings.Replace(tieBreakText(above, r), "ranked ahead", "ranked behind", 1))
	}
	margins := topMargins(above.Score, r.Score, 2)
	if len(margins) == 0 {
		return fmt.Sprintf("Ranked #%d via %s: trails the route above on the %s weighting (composite %.1f vs %.1f).",
			r.Rank, via, r.Score.Profile, r.Score.CompositeScore, above.Score.CompositeScore)
	}
	return fmt.Sprintf("Ranked #%d via %s: the route above leads on %s.",
		r.Rank, via, phraseList(margins))
}
