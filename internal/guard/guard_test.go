package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

func impact(v float64) *float64 { return &v }

func candidateSet(outAmounts ...float64) []model.RawRoute {
	routes := make([]model.RawRoute, len(outAmounts))
	for i, out := range outAmounts {
		routes[i] = model.RawRoute{
			RouteID:        "route_" + string(rune('a'+i)),
			InAmount:       1000000,
			OutAmount:      out,
			PriceImpactPct: impact(0.2),
			Hops: []model.RawHop{
				{SourceToken: "SOL", DestToken: "USDC", Platform: "Orca", FeeBps: 25},
			},
		}
	}
	return routes
}

func TestQuoteGuard_BasicFunctionality(t *testing.T) {
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 2, MaxOutputSwing: 0.3}).
		WithResetDelay(50 * time.Millisecond)
	assert.Equal(t, StateClosed, g.GetState(), "Guard should start closed")

	err := g.Check(candidateSet(1000000, 980000))
	assert.NoError(t, err, "Valid candidates should pass checks")
	assert.Equal(t, StateClosed, g.GetState(), "Guard should remain closed for valid candidates")
}

func TestQuoteGuard_EmptyCandidates(t *testing.T) {
	g := New(DefaultThresholds())

	err := g.Check(nil)
	assert.Error(t, err, "Empty candidate set should trip the guard")
	assert.Contains(t, err.Error(), "empty candidate set")
	assert.Equal(t, StateOpen, g.GetState(), "Guard should be open after trip")
}

func TestQuoteGuard_ImpactThreshold(t *testing.T) {
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 1})

	bad := candidateSet(1000000)
	bad[0].PriceImpactPct = impact(7.5)

	err := g.Check(bad)
	assert.Error(t, err, "Excessive price impact should trip the guard")
	assert.Contains(t, err.Error(), "price impact exceeds maximum threshold")
	assert.Equal(t, StateOpen, g.GetState())
}

func TestQuoteGuard_InsufficientCandidates(t *testing.T) {
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 3})

	err := g.Check(candidateSet(1000000, 980000))
	assert.Error(t, err, "Too few candidates should trip the guard")
	assert.Contains(t, err.Error(), "insufficient candidate count")
}

func TestQuoteGuard_OutputSwing(t *testing.T) {
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 1, MaxOutputSwing: 0.3})

	require.NoError(t, g.Check(candidateSet(1000000)), "Baseline batch should pass")

	err := g.Check(candidateSet(300000))
	assert.Error(t, err, "Drastic output swing should trip the guard")
	assert.Contains(t, err.Error(), "best output swing too drastic")
}

func TestQuoteGuard_Recovery(t *testing.T) {
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 2}).
		WithResetDelay(50 * time.Millisecond).
		WithSuccessThreshold(1)

	err := g.Check(candidateSet(1000000))
	require.Error(t, err, "Should trip on insufficient candidates")
	assert.Equal(t, StateOpen, g.GetState())

	// Open circuit blocks everything before the reset delay
	err = g.Check(candidateSet(1000000, 980000))
	assert.Error(t, err, "Open guard should block checks")
	assert.Contains(t, err.Error(), "quote guard open")

	time.Sleep(60 * time.Millisecond)

	err = g.Check(candidateSet(1000000, 980000))
	assert.NoError(t, err, "Valid batch should pass in half-open state")
	assert.Equal(t, StateClosed, g.GetState(), "Guard should close after successful half-open check")
}

func TestQuoteGuard_LastGoodCandidates(t *testing.T) {
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 1})

	assert.Nil(t, g.LastGoodCandidates(), "No fallback before any successful check")

	good := candidateSet(1000000, 980000)
	require.NoError(t, g.Check(good))

	fallback := g.LastGoodCandidates()
	require.Len(t, fallback, 2)
	assert.Equal(t, good[0].RouteID, fallback[0].RouteID)

	// A failing batch must not overwrite the fallback
	bad := candidateSet(990000)
	bad[0].PriceImpactPct = impact(50)
	require.Error(t, g.Check(bad))
	assert.Len(t, g.LastGoodCandidates(), 2, "Fallback should survive a tripped check")
}

func TestQuoteGuard_CallbackExecution(t *testing.T) {
	tripped := make(chan string, 1)
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 2}).
		WithTripCallback(func(reason string, candidates []model.RawRoute) {
			tripped <- reason
		})

	err := g.Check(candidateSet(1000000))
	require.Error(t, err)

	select {
	case reason := <-tripped:
		assert.Contains(t, reason, "insufficient candidate count")
	case <-time.After(time.Second):
		t.Fatal("trip callback was not invoked")
	}
}

func TestQuoteGuard_ManualReset(t *testing.T) {
	g := New(Thresholds{MaxImpactPct: 5.0, MinCandidates: 2})

	require.Error(t, g.Check(candidateSet(1000000)))
	assert.Equal(t, StateOpen, g.GetState())

	g.Reset()
	assert.Equal(t, StateClosed, g.GetState(), "Guard should be closed after manual reset")

	assert.NoError(t, g.Check(candidateSet(1000000, 980000)))
}
