package routemetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

func fptr(v float64) *float64 { return &v }

func singleHopRoute(platform string, depth *float64) model.Route {
	hops := []model.Hop{
		{SourceToken: "SOL", DestToken: "USDC", Platform: platform, FeeBps: 25, PoolDepth: depth},
	}
	return model.Route{
		RouteID:        "r1",
		InAmount:       1000000,
		OutAmount:      1000000,
		MinOutAmount:   950000,
		PriceImpactPct: fptr(0.1),
		ComputeUnits:   5000,
		Hops:           hops,
		Platforms:      model.DistinctPlatforms(hops),
	}
}

func TestExtract_QuotedImpactUsed(t *testing.T) {
	m := Extract(singleHopRoute("Orca", nil), DefaultOptions())
	assert.Equal(t, 0.1, m.PriceImpactPct)
	assert.NotContains(t, m.Flags, "price_impact_estimated")
}

func TestExtract_ImpactEstimatedFromSlippageFloor(t *testing.T) {
	r := singleHopRoute("Orca", nil)
	r.PriceImpactPct = nil

	m := Extract(r, DefaultOptions())
	// (1000000 - 950000) / 1000000 * 100
	assert.InDelta(t, 5.0, m.PriceImpactPct, 1e-9)
	assert.Contains(t, m.Flags, "price_impact_estimated")
}

func TestExtract_NegativeQuotedImpactClampedToZero(t *testing.T) {
	r := singleHopRoute("Orca", nil)
	r.PriceImpactPct = fptr(-0.3)

	m := Extract(r, DefaultOptions())
	assert.Equal(t, 0.0, m.PriceImpactPct)
}

func TestExtract_FeeCost(t *testing.T) {
	m := Extract(singleHopRoute("Orca", nil), DefaultOptions())
	// 25 bps of 1000000 output plus 5000 compute units at the default rate
	assert.InDelta(t, 2500.025, m.FeeCost, 1e-9)
}

func TestExtract_LiquidityFallsBackWithoutDepth(t *testing.T) {
	opts := DefaultOptions()
	m := Extract(singleHopRoute("Orca", nil), opts)
	assert.Equal(t, opts.NeutralLiquidity, m.LiquidityScore)
	assert.Contains(t, m.Flags, "liquidity_default")
}

func TestExtract_LiquidityScalesWithDepth(t *testing.T) {
	opts := DefaultOptions()

	shallow := Extract(singleHopRoute("Orca", fptr(1e3)), opts)
	deep := Extract(singleHopRoute("Orca", fptr(1e8)), opts)
	saturated := Extract(singleHopRoute("Orca", fptr(1e12)), opts)

	assert.Less(t, shallow.LiquidityScore, deep.LiquidityScore)
	assert.Equal(t, 100.0, saturated.LiquidityScore, "depth beyond saturation clamps to 100")
	assert.NotContains(t, deep.Flags, "liquidity_default")
}

func TestExtract_LiquidityGatedByShallowestPool(t *testing.T) {
	hops := []model.Hop{
		{SourceToken: "SOL", DestToken: "USDT", Platform: "Orca", FeeBps: 10, PoolDepth: fptr(1e8)},
		{SourceToken: "USDT", DestToken: "USDC", Platform: "Saber", FeeBps: 10, PoolDepth: fptr(1e4)},
	}
	multi := model.Route{
		RouteID: "m", InAmount: 100, OutAmount: 99, Hops: hops,
		Platforms: model.DistinctPlatforms(hops),
	}

	opts := DefaultOptions()
	got := Extract(multi, opts)
	bottleneck := Extract(singleHopRoute("Saber", fptr(1e4)), opts)
	assert.InDelta(t, bottleneck.LiquidityScore, got.LiquidityScore, 1e-9)
}

func TestExtract_ReliabilityIsWeakestVenue(t *testing.T) {
	hops := []model.Hop{
		{SourceToken: "SOL", DestToken: "USDT", Platform: "Orca", FeeBps: 10},
		{SourceToken: "USDT", DestToken: "USDC", Platform: "Saber", FeeBps: 10},
	}
	r := model.Route{RouteID: "m", InAmount: 100, OutAmount: 99, Hops: hops,
		Platforms: model.DistinctPlatforms(hops)}

	m := Extract(r, DefaultOptions())
	assert.Equal(t, 75.0, m.ReliabilityScore, "saber's reputation gates the route")
}

func TestExtract_UnknownPlatformGetsNeutralReliability(t *testing.T) {
	opts := DefaultOptions()
	m := Extract(singleHopRoute("BrandNewDEX", nil), opts)
	assert.Equal(t, opts.NeutralReliability, m.ReliabilityScore)
	assert.Contains(t, m.Flags, "reliability_default:brandnewdex")
}

func TestExtract_ReputationLookupIsCaseInsensitive(t *testing.T) {
	m := Extract(singleHopRoute("ORCA", nil), DefaultOptions())
	assert.Equal(t, 92.0, m.ReliabilityScore)
}

func TestExtractAll_PreservesOrder(t *testing.T) {
	routes := []model.Route{
		singleHopRoute("Orca", nil),
		singleHopRoute("Saber", nil),
	}
	routes[1].RouteID = "r2"

	sets := ExtractAll(routes, DefaultOptions())
	require.Len(t, sets, 2)
	assert.Equal(t, 92.0, sets[0].ReliabilityScore)
	assert.Equal(t, 75.0, sets[1].ReliabilityScore)
}
