// Package engine wires the analysis pipeline together: normalization,
// metric extraction, scoring, risk classification, ranking and explanation.
// The engine itself is stateless per request; the only process-lifetime
// state is the injected configuration, held as an immutable snapshot that
// can be swapped atomically on reload.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/swap-route-analyzer/internal/compare"
	"github.com/yourorg/swap-route-analyzer/internal/explain"
	"github.com/yourorg/swap-route-analyzer/internal/model"
	"github.com/yourorg/swap-route-analyzer/internal/normalize"
	"github.com/yourorg/swap-route-analyzer/internal/rank"
	"github.com/yourorg/swap-route-analyzer/internal/risk"
	"github.com/yourorg/swap-route-analyzer/internal/routemetrics"
	"github.com/yourorg/swap-route-analyzer/internal/scoring"
)

// Options is the injected configuration of the engine: reputation table and
// extraction knobs, risk thresholds, and the weight profile table.
type Options struct {
	Extraction     routemetrics.Options
	Thresholds     risk.Thresholds
	Profiles       map[string]scoring.WeightProfile
	DefaultProfile string
}

// DefaultOptions returns a fully populated engine configuration.
func DefaultOptions() Options {
	return Options{
		Extraction:     routemetrics.DefaultOptions(),
		Thresholds:     risk.DefaultThresholds(),
		Profiles:       scoring.DefaultProfiles(),
		DefaultProfile: scoring.ProfileBalanced,
	}
}

// validate checks the configuration once, at load time, so that per-request
// paths never re-validate static configuration.
func (o Options) validate() error {
	if err := o.Thresholds.Validate(); err != nil {
		return err
	}
	if len(o.Profiles) == 0 {
		return fmt.Errorf("no weight profiles configured")
	}
	for name, p := range o.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	if o.DefaultProfile != "" {
		if _, ok := o.Profiles[o.DefaultProfile]; !ok {
			return fmt.Errorf("default profile %q not in profile table", o.DefaultProfile)
		}
	}
	for platformName, score := range o.Extraction.ReputationTable {
		if score < 0 || score > 100 {
			return fmt.Errorf("reputation for %q out of [0,100]: %v", platformName, score)
		}
	}
	return nil
}

// Engine is the route analysis core. Safe for concurrent use: every request
// reads one immutable configuration snapshot and shares no mutable state
// with other requests.
type Engine struct {
	snap atomic.Pointer[Options]
}

// New validates the configuration and constructs an engine around it.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("engine configuration: %w", err)
	}
	e := &Engine{}
	e.snap.Store(&opts)
	return e, nil
}

// Reload atomically swaps in a new configuration snapshot. In-flight
// requests keep the snapshot they started with.
func (e *Engine) Reload(opts Options) error {
	if err := opts.validate(); err != nil {
		return fmt.Errorf("engine configuration: %w", err)
	}
	e.snap.Store(&opts)
	logrus.Info("Engine configuration reloaded")
	return nil
}

// AnalysisRequest is one self-contained unit of work: a candidate set plus
// the weight profile to score it under.
type AnalysisRequest struct {
	Routes  []model.RawRoute       `json:"routes"`
	Profile string                 `json:"profile,omitempty"`
	Weights *scoring.WeightProfile `json:"weights,omitempty"`
}

// Summary holds batch-level statistics over the ranked output.
type Summary struct {
	TotalRoutes    int      `json:"totalRoutes"`
	AvgHops        float64  `json:"avgHops"`
	AvgImpactPct   float64  `json:"avgImpactPct"`
	BestComposite  float64  `json:"bestComposite"`
	WorstComposite float64  `json:"worstComposite"`
	Platforms      []string `json:"platforms"`
}

// AnalysisResult is the full ranked output of one analysis.
type AnalysisResult struct {
	Routes  []model.RankedRoute `json:"routes"`
	Skipped []model.Diagnostic  `json:"skipped"`
	Profile string              `json:"profile"`
	Summary Summary             `json:"summary"`
}

// Analyze runs the full pipeline over a candidate batch. The weight profile
// is resolved and validated before any other work so that a bad profile is
// rejected without touching the routes. Per-record validation failures are
// returned as diagnostics; the request fails only on an empty valid set or
// an invalid profile.
func (e *Engine) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	cfg := e.snap.Load()

	name := req.Profile
	if name == "" {
		name = cfg.DefaultProfile
	}
	profile, err := scoring.Resolve(name, req.Weights, cfg.Profiles)
	if err != nil {
		return nil, err
	}

	normalized, err := normalize.Routes(req.Routes)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	routes := normalized.Routes
	sets := routemetrics.ExtractAll(routes, cfg.Extraction)
	scores := scoring.Score(sets, profile)

	tiers := make([]model.RiskTier, len(sets))
	for i, m := range sets {
		tiers[i] = risk.Classify(m, cfg.Thresholds)
	}

	ranked := rank.Rank(routes, sets, scores, tiers)
	ranked = explain.Annotate(ranked)

	result := &AnalysisResult{
		Routes:  ranked,
		Skipped: normalized.Skipped,
		Profile: profile.Name,
		Summary: summarize(ranked),
	}

	logrus.WithFields(logrus.Fields{
		"submitted": len(req.Routes),
		"ranked":    len(ranked),
		"skipped":   len(normalized.Skipped),
		"profile":   profile.Name,
		"best":      result.Summary.BestComposite,
	}).Info("Route analysis complete")

	return result, nil
}

// Compare scores two routes against each other under the named profile
// (engine default when empty), using the current extraction snapshot.
func (e *Engine) Compare(a, b model.Route, profileName string, custom *scoring.WeightProfile) (model.ComparisonResult, error) {
	cfg := e.snap.Load()

	name := profileName
	if name == "" {
		name = scoring.ProfileBalanced
	}
	profile, err := scoring.Resolve(name, custom, cfg.Profiles)
	if err != nil {
		return model.ComparisonResult{}, err
	}

	return compare.Routes(a, b, cfg.Extraction, profile), nil
}

// summarize computes batch statistics over the ranked routes.
func summarize(ranked []model.RankedRoute) Summary {
	if len(ranked) == 0 {
		return Summary{}
	}

	s := Summary{
		TotalRoutes:    len(ranked),
		BestComposite:  ranked[0].Score.CompositeScore,
		WorstComposite: ranked[0].Score.CompositeScore,
	}

	seen := make(map[string]struct{})
	var hops, impact float64
	for _, r := range ranked {
		hops += float64(r.Route.HopCount())
		impact += r.Metrics.PriceImpactPct
		if r.Score.CompositeScore > s.BestComposite {
			s.BestComposite = r.Score.CompositeScore
		}
		if r.Score.CompositeScore < s.WorstComposite {
			s.WorstComposite = r.Score.CompositeScore
		}
		for _, p := range r.Route.Platforms {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				s.Platforms = append(s.Platforms, p)
			}
		}
	}
	sort.Strings(s.Platforms)
	s.AvgHops = hops / float64(len(ranked))
	s.AvgImpactPct = impact / float64(len(ranked))
	return s
}
