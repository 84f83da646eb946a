// Package guard protects the quote-driven analysis path against degraded or
// erroneous quote feeds. A tripped guard blocks fresh quote analysis and lets
// the server fall back to the last good candidate set.
package guard

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// State represents the current state of the quote guard
type State int

// Quote guard states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, quote analysis blocked
	StateHalfOpen              // Testing if the feed has recovered
)

// QuoteGuard implements a circuit-breaker style gate over candidate sets
// coming from an external quote feed. It rejects batches that look like feed
// failures rather than genuine market conditions.
type QuoteGuard struct {
	// Configuration thresholds for tripping the guard
	thresholds Thresholds

	// Current state of the guard (Closed, Open, HalfOpen)
	state State

	// Timestamp of the last trip
	lastTrip time.Time

	// Duration before auto-reset attempt
	resetDelay time.Duration

	// Mutex for thread safety
	mu sync.RWMutex

	// Last candidate set that passed all checks, kept for fallback
	lastGood []model.RawRoute

	// Best observed output amount of the previous good batch
	lastBestOut float64

	// Count of consecutive successful checks in HalfOpen state
	successCount int

	// Number of successful checks required to close the circuit
	successThreshold int

	// Event callback for monitoring/alerting
	onTripCallback func(reason string, candidates []model.RawRoute)
}

// Thresholds defines the limits that will trip the quote guard
type Thresholds struct {
	// Maximum allowed price impact for any single candidate, in percent
	MaxImpactPct float64 `json:"max_impact_pct"`

	// Minimum number of candidates required for a trustworthy batch
	MinCandidates int `json:"min_candidates"`

	// Maximum allowed change in the best output amount between consecutive
	// batches, as a ratio (0.5 for 50%). Zero disables the check.
	MaxOutputSwing float64 `json:"max_output_swing,omitempty"`
}

// DefaultThresholds returns the guard limits used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxImpactPct:   15.0,
		MinCandidates:  1,
		MaxOutputSwing: 0.5,
	}
}

// New creates a new QuoteGuard with the provided thresholds
func New(t Thresholds) *QuoteGuard {
	return &QuoteGuard{
		thresholds:       t,
		state:            StateClosed,
		resetDelay:       2 * time.Minute,
		successThreshold: 3,
	}
}

// WithResetDelay sets a custom reset delay and returns the guard
func (g *QuoteGuard) WithResetDelay(delay time.Duration) *QuoteGuard {
	g.resetDelay = delay
	return g
}

// WithSuccessThreshold sets the number of successful checks needed to close the circuit
func (g *QuoteGuard) WithSuccessThreshold(threshold int) *QuoteGuard {
	g.successThreshold = threshold
	return g
}

// WithTripCallback sets a callback function that is called when the guard trips
func (g *QuoteGuard) WithTripCallback(callback func(reason string, candidates []model.RawRoute)) *QuoteGuard {
	g.onTripCallback = callback
	return g
}

// Check evaluates a fetched candidate batch against the thresholds. If the
// guard is open it blocks the operation; if the batch violates a threshold it
// trips the guard and returns an error. A passing batch is recorded as the
// new fallback set.
func (g *QuoteGuard) Check(candidates []model.RawRoute) error {
	g.mu.RLock()
	state := g.state
	lastTripTime := g.lastTrip
	g.mu.RUnlock()

	if state == StateOpen {
		if time.Since(lastTripTime) > g.resetDelay {
			g.transitionToHalfOpen()
		} else {
			return errors.New("quote guard open: feed protection engaged")
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(candidates) == 0 {
		reason := "empty candidate set from quote feed"
		g.trip(reason, candidates)
		return errors.New(reason)
	}

	if len(candidates) < g.thresholds.MinCandidates {
		reason := fmt.Sprintf("insufficient candidate count: got %d, need %d",
			len(candidates), g.thresholds.MinCandidates)
		g.trip(reason, candidates)
		return errors.New(reason)
	}

	for _, c := range candidates {
		if c.PriceImpactPct != nil && *c.PriceImpactPct > g.thresholds.MaxImpactPct {
			reason := fmt.Sprintf("price impact exceeds maximum threshold: %.2f%% > %.2f%%",
				*c.PriceImpactPct, g.thresholds.MaxImpactPct)
			g.trip(reason, candidates)
			return errors.New(reason)
		}
	}

	// Compare the best quote against the previous good batch. A sudden large
	// swing usually means the feed is returning garbage, not that the market
	// moved.
	bestOut := bestOutput(candidates)
	if g.thresholds.MaxOutputSwing > 0 && g.lastBestOut > 1.0 {
		swing := math.Abs(bestOut-g.lastBestOut) / g.lastBestOut
		if swing > g.thresholds.MaxOutputSwing {
			reason := fmt.Sprintf("best output swing too drastic: %.2f%% (threshold: %.2f%%)",
				swing*100, g.thresholds.MaxOutputSwing*100)
			g.trip(reason, candidates)
			return errors.New(reason)
		}
	}

	logrus.Debug("Quote guard checks passed")

	g.lastGood = append(g.lastGood[:0:0], candidates...)
	g.lastBestOut = bestOut

	if g.state == StateHalfOpen {
		g.successCount++
		if g.successCount >= g.successThreshold {
			g.state = StateClosed
			g.successCount = 0
			logrus.Info("Quote guard closed: feed has recovered")
		}
	}

	return nil
}

// GetState returns the current state of the guard
func (g *QuoteGuard) GetState() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Reset forcibly resets the guard to closed state
func (g *QuoteGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateClosed
	g.successCount = 0
	logrus.Info("Quote guard manually reset to closed state")
}

// LastGoodCandidates returns a copy of the most recent candidate set that
// passed all checks, or nil if none has yet.
func (g *QuoteGuard) LastGoodCandidates() []model.RawRoute {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.lastGood) == 0 {
		return nil
	}
	out := make([]model.RawRoute, len(g.lastGood))
	copy(out, g.lastGood)
	return out
}

// transitionToHalfOpen changes the guard state to half-open for testing recovery
func (g *QuoteGuard) transitionToHalfOpen() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateOpen {
		g.state = StateHalfOpen
		g.successCount = 0
		logrus.Info("Quote guard half-open: testing feed recovery")
	}
}

// trip sets the guard to open state with the current time
func (g *QuoteGuard) trip(reason string, candidates []model.RawRoute) {
	g.state = StateOpen
	g.lastTrip = time.Now()
	logrus.Warnf("Quote guard tripped: %s", reason)

	if g.onTripCallback != nil {
		go g.onTripCallback(reason, candidates)
	}
}

// bestOutput returns the highest output amount across the candidates.
func bestOutput(candidates []model.RawRoute) float64 {
	var best float64
	for _, c := range candidates {
		if c.OutAmount > best {
			best = c.OutAmount
		}
	}
	return best
}
