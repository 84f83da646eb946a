// Package compare computes pairwise route comparisons. The two routes are
// normalized against each other as if they were the entire candidate set,
// independent of any larger batch they may have come from.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yourorg/swap-route-analyzer/internal/model"
	"github.com/yourorg/swap-route-analyzer/internal/platform"
	"github.com/yourorg/swap-route-analyzer/internal/routemetrics"
	"github.com/yourorg/swap-route-analyzer/internal/scoring"
)

// Routes compares two validated routes under the given weight profile and
// extraction options. Symmetric by construction: swapping the arguments
// negates every delta and flips the verdict.
func Routes(a, b model.Route, opts routemetrics.Options, profile scoring.WeightProfile) model.ComparisonResult {
	sets := routemetrics.ExtractAll([]model.Route{a, b}, opts)
	scores := scoring.Score(sets, profile)

	deltas := make(map[string]model.DimensionDelta, len(model.Dimensions))
	for _, dim := range model.Dimensions {
		da, db := scores[0].Dimensions[dim], scores[1].Dimensions[dim]
		delta := model.DimensionDelta{
			RawDelta:        da.Raw - db.Raw,
			NormalizedDelta: da.Normalized - db.Normalized,
		}
		switch {
		case da.Normalized > db.Normalized:
			delta.Winner = a.RouteID
		case db.Normalized > da.Normalized:
			delta.Winner = b.RouteID
		}
		deltas[dim] = delta
	}

	return model.ComparisonResult{
		RouteA:     a.RouteID,
		RouteB:     b.RouteID,
		Profile:    profile.Name,
		Deltas:     deltas,
		CompositeA: scores[0].CompositeScore,
		CompositeB: scores[1].CompositeScore,
		Verdict:    verdict(a, b, scores[0], scores[1], deltas),
	}
}

// verdict names the overall winner and the dimensions that carried it.
func verdict(a, b model.Route, sa, sb model.ScoreBreakdown, deltas map[string]model.DimensionDelta) string {
	if sa.CompositeScore == sb.CompositeScore {
		return fmt.Sprintf("%s and %s are tied (composite %.1f) under the %s profile",
			a.RouteID, b.RouteID, sa.CompositeScore, sa.Profile)
	}

	winner, loser := a, b
	winScore, loseScore := sa, sb
	if sb.CompositeScore > sa.CompositeScore {
		winner, loser = b, a
		winScore, loseScore = sb, sa
	}

	leads := leadingDimensions(winner.RouteID, deltas)
	via := platform.JoinDisplayNames(winner.Platforms)
	if len(leads) == 0 {
		return fmt.Sprintf("%s (via %s) wins overall: composite %.1f vs %.1f for %s under the %s profile",
			winner.RouteID, via, winScore.CompositeScore, loseScore.CompositeScore, loser.RouteID, winScore.Profile)
	}
	return fmt.Sprintf("%s (via %s) wins overall on %s: composite %.1f vs %.1f under the %s profile",
		winner.RouteID, via, strings.Join(leads, " and "),
		winScore.CompositeScore, loseScore.CompositeScore, winScore.Profile)
}

// leadingDimensions lists, largest margin first, up to two dimensions the
// winner is ahead on. Equal margins keep canonical dimension order.
func leadingDimensions(winnerID string, deltas map[string]model.DimensionDelta) []string {
	type lead struct {
		dim    string
		margin float64
	}
	leads := make([]lead, 0, len(model.Dimensions))
	for _, dim := range model.Dimensions {
		d := deltas[dim]
		if d.Winner != winnerID {
			continue
		}
		margin := d.NormalizedDelta
		if margin < 0 {
			margin = -margin
		}
		leads = append(leads, lead{dim: dim, margin: margin})
	}
	sort.SliceStable(leads, func(i, j int) bool { return leads[i].margin > leads[j].margin })
	if len(leads) > 2 {
		leads = leads[:2]
	}
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.dim
	}
	return out
}
