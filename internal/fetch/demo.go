package fetch

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// DemoProvider serves a fixed candidate set so the service can run without
// network access. The amounts mirror a typical SOL/USDC quote.
type DemoProvider struct{}

// NewDemoProvider creates a demo quote provider.
func NewDemoProvider() *DemoProvider {
	return &DemoProvider{}
}

func ptr(v float64) *float64 { return &v }

// FetchCandidates returns the canned candidate set, re-labeled with the
// requested token pair. The amount parameter scales nothing; the set is
// meant for exercising the pipeline, not for pricing.
func (p *DemoProvider) FetchCandidates(ctx context.Context, req QuoteRequest) ([]model.RawRoute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, out := req.InputMint, req.OutputMint
	if in == "" {
		in = "SOL"
	}
	if out == "" {
		out = "USDC"
	}

	routes := []model.RawRoute{
		{
			RouteID:        "route_1",
			InputToken:     in,
			OutputToken:    out,
			InAmount:       1000000,
			OutAmount:      1000000,
			MinOutAmount:   950000,
			PriceImpactPct: ptr(0.1),
			ComputeUnits:   5000,
			Hops: []model.RawHop{
				{SourceToken: in, DestToken: out, Platform: "Raydium", PoolID: "demo-ray-1", FeeBps: 25, PoolDepth: ptr(8_500_000)},
			},
		},
		{
			RouteID:        "route_2",
			InputToken:     in,
			OutputToken:    out,
			InAmount:       1000000,
			OutAmount:      980000,
			MinOutAmount:   930000,
			PriceImpactPct: ptr(0.2),
			ComputeUnits:   3000,
			Hops: []model.RawHop{
				{SourceToken: in, DestToken: out, Platform: "Orca", PoolID: "demo-orca-1", FeeBps: 30, PoolDepth: ptr(12_000_000)},
			},
		},
		{
			RouteID:        "route_3",
			InputToken:     in,
			OutputToken:    out,
			InAmount:       1000000,
			OutAmount:      995000,
			MinOutAmount:   940000,
			PriceImpactPct: ptr(0.8),
			ComputeUnits:   9000,
			Hops: []model.RawHop{
				{SourceToken: in, DestToken: "USDT", Platform: "Whirlpool", PoolID: "demo-whirl-1", FeeBps: 20, PoolDepth: ptr(4_000_000)},
				{SourceToken: "USDT", DestToken: out, Platform: "Meteora", PoolID: "demo-met-1", FeeBps: 15, PoolDepth: ptr(2_500_000)},
			},
		},
		{
			RouteID:      "route_4",
			InputToken:   in,
			OutputToken:  out,
			InAmount:     1000000,
			OutAmount:    968000,
			MinOutAmount: 900000,
			ComputeUnits: 14000,
			Hops: []model.RawHop{
				{SourceToken: in, DestToken: "mSOL", Platform: "Lifinity", PoolID: "demo-lif-1", FeeBps: 10},
				{SourceToken: "mSOL", DestToken: "USDT", Platform: "Phoenix", PoolID: "demo-phx-1", FeeBps: 20},
				{SourceToken: "USDT", DestToken: out, Platform: "Saber", PoolID: "demo-sab-1", FeeBps: 40},
			},
		},
	}

	logrus.WithFields(logrus.Fields{
		"routes": len(routes),
		"pair":   in + "/" + out,
	}).Debug("Serving demo candidate set")
	return routes, nil
}
