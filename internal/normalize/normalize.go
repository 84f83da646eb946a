// Package normalize converts raw route records from the quoting service into
// validated canonical routes.
package normalize

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// EmptyRouteSetError is returned when no raw record survives validation.
// Per-record failures are reported as diagnostics, this error fires only
// when the whole batch is unusable.
type EmptyRouteSetError struct {
	Submitted int
}

func (e *EmptyRouteSetError) Error() string {
	return fmt.Sprintf("no valid routes in batch: all %d submitted records were rejected", e.Submitted)
}

// Result carries the validated routes and the per-record rejection
// diagnostics of one normalization pass.
type Result struct {
	Routes  []model.Route
	Skipped []model.Diagnostic
}

// Routes validates a batch of raw route records. Malformed records are
// dropped and reported as diagnostics; the call fails only when nothing
// survives.
func Routes(raw []model.RawRoute) (Result, error) {
	res := Result{
		Routes:  make([]model.Route, 0, len(raw)),
		Skipped: make([]model.Diagnostic, 0),
	}

	for i, rec := range raw {
		route, err := one(rec, i)
		if err != nil {
			diag := model.Diagnostic{Index: i, RouteID: rec.RouteID, Reason: err.Error()}
			res.Skipped = append(res.Skipped, diag)
			logrus.WithFields(logrus.Fields{
				"index":  i,
				"route":  rec.RouteID,
				"reason": err.Error(),
			}).Debug("Skipped invalid route record")
			continue
		}
		res.Routes = append(res.Routes, route)
	}

	if len(res.Routes) == 0 {
		return res, &EmptyRouteSetError{Submitted: len(raw)}
	}
	return res, nil
}

// one validates a single record and builds the canonical Route.
func one(rec model.RawRoute, index int) (model.Route, error) {
	if len(rec.Hops) == 0 {
		return model.Route{}, fmt.Errorf("empty hop list")
	}
	if rec.InAmount <= 0 {
		return model.Route{}, fmt.Errorf("non-positive input amount: %v", rec.InAmount)
	}
	if rec.OutAmount <= 0 {
		return model.Route{}, fmt.Errorf("non-positive output amount: %v", rec.OutAmount)
	}

	hops := make([]model.Hop, 0, len(rec.Hops))
	for j, rh := range rec.Hops {
		if strings.TrimSpace(rh.Platform) == "" {
			return model.Route{}, fmt.Errorf("hop %d: missing platform label", j)
		}
		if rh.SourceToken == "" || rh.DestToken == "" {
			return model.Route{}, fmt.Errorf("hop %d: missing token identifier", j)
		}
		if j > 0 && rec.Hops[j-1].DestToken != rh.SourceToken {
			return model.Route{}, fmt.Errorf("hop %d: token chain broken (%s -> %s)",
				j, rec.Hops[j-1].DestToken, rh.SourceToken)
		}
		hops = append(hops, model.Hop{
			SourceToken: rh.SourceToken,
			DestToken:   rh.DestToken,
			Platform:    rh.Platform,
			PoolID:      rh.PoolID,
			FeeBps:      rh.FeeBps,
			PoolDepth:   rh.PoolDepth,
		})
	}

	if rec.InputToken != "" && hops[0].SourceToken != rec.InputToken {
		return model.Route{}, fmt.Errorf("first hop source %s does not match declared input token %s",
			hops[0].SourceToken, rec.InputToken)
	}
	last := hops[len(hops)-1]
	if rec.OutputToken != "" && last.DestToken != rec.OutputToken {
		return model.Route{}, fmt.Errorf("last hop destination %s does not match declared output token %s",
			last.DestToken, rec.OutputToken)
	}

	routeID := rec.RouteID
	if routeID == "" {
		routeID = fmt.Sprintf("route-%d", index+1)
	}

	inputToken := rec.InputToken
	if inputToken == "" {
		inputToken = hops[0].SourceToken
	}
	outputToken := rec.OutputToken
	if outputToken == "" {
		outputToken = last.DestToken
	}

	return model.Route{
		RouteID:        routeID,
		InputToken:     inputToken,
		OutputToken:    outputToken,
		InAmount:       rec.InAmount,
		OutAmount:      rec.OutAmount,
		MinOutAmount:   rec.MinOutAmount,
		PriceImpactPct: rec.PriceImpactPct,
		ComputeUnits:   rec.ComputeUnits,
		Hops:           hops,
		Platforms:      model.DistinctPlatforms(hops),
	}, nil
}
