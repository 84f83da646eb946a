package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

func route(id string, platforms ...string) model.Route {
	hops := make([]model.Hop, len(platforms))
	src := "SOL"
	for i, p := range platforms {
		dst := "USDC"
		if i < len(platforms)-1 {
			dst = "MID" + string(rune('0'+i))
		}
		hops[i] = model.Hop{SourceToken: src, DestToken: dst, Platform: p}
		src = dst
	}
	return model.Route{
		RouteID:   id,
		Hops:      hops,
		Platforms: model.DistinctPlatforms(hops),
	}
}

func breakdown(composite float64, dims map[string]float64) model.ScoreBreakdown {
	b := model.ScoreBreakdown{
		Dimensions:     make(map[string]model.DimensionScore),
		CompositeScore: composite,
		Profile:        "balanced",
	}
	for _, dim := range model.Dimensions {
		b.Dimensions[dim] = model.DimensionScore{Normalized: dims[dim]}
	}
	return b
}

func flat(v float64) map[string]float64 {
	return map[string]float64{
		model.DimCost: v, model.DimSpeed: v, model.DimLiquidity: v, model.DimReliability: v,
	}
}

func TestRank_OrdersByCompositeDescending(t *testing.T) {
	routes := []model.Route{route("low", "orca"), route("high", "saber"), route("mid", "raydium")}
	sets := make([]model.MetricSet, 3)
	scores := []model.ScoreBreakdown{
		breakdown(20, flat(20)), breakdown(90, flat(90)), breakdown(50, flat(50)),
	}
	tiers := []model.RiskTier{model.RiskLow, model.RiskLow, model.RiskLow}

	ranked := Rank(routes, sets, scores, tiers)
	require.Len(t, ranked, 3)
	assert.Equal(t, "high", ranked[0].Route.RouteID)
	assert.Equal(t, "mid", ranked[1].Route.RouteID)
	assert.Equal(t, "low", ranked[2].Route.RouteID)
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRank_TieBrokenByFewerHops(t *testing.T) {
	routes := []model.Route{
		route("threehop", "orca", "saber", "raydium"),
		route("onehop", "orca"),
	}
	scores := []model.ScoreBreakdown{breakdown(50, flat(50)), breakdown(50, flat(50))}
	tiers := []model.RiskTier{model.RiskMedium, model.RiskLow}

	ranked := Rank(routes, make([]model.MetricSet, 2), scores, tiers)
	assert.Equal(t, "onehop", ranked[0].Route.RouteID)
}

func TestRank_TieBrokenByPlatformSignature(t *testing.T) {
	routes := []model.Route{route("viasaber", "saber"), route("viaorca", "orca")}
	scores := []model.ScoreBreakdown{breakdown(50, flat(50)), breakdown(50, flat(50))}
	tiers := []model.RiskTier{model.RiskLow, model.RiskLow}

	ranked := Rank(routes, make([]model.MetricSet, 2), scores, tiers)
	assert.Equal(t, "viaorca", ranked[0].Route.RouteID, "orca sorts before saber")
}

func TestRank_FullTiePreservesInputOrder(t *testing.T) {
	routes := []model.Route{route("first", "orca"), route("second", "orca")}
	scores := []model.ScoreBreakdown{breakdown(50, flat(50)), breakdown(50, flat(50))}
	tiers := []model.RiskTier{model.RiskLow, model.RiskLow}

	ranked := Rank(routes, make([]model.MetricSet, 2), scores, tiers)
	assert.Equal(t, "first", ranked[0].Route.RouteID)
	assert.Equal(t, "second", ranked[1].Route.RouteID)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	routes := []model.Route{route("a", "saber"), route("b", "orca")}
	scores := []model.ScoreBreakdown{breakdown(10, flat(10)), breakdown(90, flat(90))}
	tiers := []model.RiskTier{model.RiskLow, model.RiskLow}

	_ = Rank(routes, make([]model.MetricSet, 2), scores, tiers)
	assert.Equal(t, "a", routes[0].RouteID)
	assert.Equal(t, 10.0, scores[0].CompositeScore)
}

func TestTiedWithNext(t *testing.T) {
	ranked := []model.RankedRoute{
		{Score: breakdown(50, flat(50))},
		{Score: breakdown(50, flat(50))},
		{Score: breakdown(50, map[string]float64{
			model.DimCost: 40, model.DimSpeed: 60, model.DimLiquidity: 50, model.DimReliability: 50,
		})},
	}

	assert.True(t, TiedWithNext(ranked, 0), "identical normalized dimensions are a full tie")
	assert.False(t, TiedWithNext(ranked, 1), "equal composite with different dimensions is not")
	assert.False(t, TiedWithNext(ranked, 2), "last position has no successor")
	assert.False(t, TiedWithNext(ranked, -1))
}
