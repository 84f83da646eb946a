package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// JupiterClient fetches quotes from the Jupiter aggregator quote API.
type JupiterClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewJupiterClient creates a client for the given quote API base URL.
func NewJupiterClient(baseURL string) *JupiterClient {
	if baseURL == "" {
		baseURL = "https://quote-api.jup.ag/v6"
	}
	return &JupiterClient{
		baseURL:    baseURL,
		httpClient: newRetryClient(),
	}
}

// Jupiter wire types. Amounts arrive as strings.
type jupiterSwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

type jupiterRoutePlanStep struct {
	SwapInfo jupiterSwapInfo `json:"swapInfo"`
	Percent  float64         `json:"percent"`
}

type jupiterRoute struct {
	RouteID              string                 `json:"routeId"`
	InputMint            string                 `json:"inputMint"`
	OutputMint           string                 `json:"outputMint"`
	InAmount             string                 `json:"inAmount"`
	OutAmount            string                 `json:"outAmount"`
	OtherAmountThreshold string                 `json:"otherAmountThreshold"`
	PriceImpactPct       string                 `json:"priceImpactPct"`
	ComputeUnits         string                 `json:"computeUnitPriceMicroLamports"`
	RoutePlan            []jupiterRoutePlanStep `json:"routePlan"`
}

type jupiterQuoteResponse struct {
	// Older API versions return a data array of alternatives; v6 returns a
	// single route object at the top level.
	Data []jupiterRoute `json:"data"`
	jupiterRoute
}

// FetchCandidates retrieves candidate routes for the requested swap.
func (c *JupiterClient) FetchCandidates(ctx context.Context, req QuoteRequest) ([]model.RawRoute, error) {
	endpoint := fmt.Sprintf("%s/quote?%s", c.baseURL, url.Values{
		"inputMint":   {req.InputMint},
		"outputMint":  {req.OutputMint},
		"amount":      {strconv.FormatInt(req.Amount, 10)},
		"slippageBps": {strconv.Itoa(req.SlippageBps)},
	}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching quote from Jupiter: %s", c.baseURL)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error fetching quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var quote jupiterQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("error decoding quote response: %w", err)
	}

	alternatives := quote.Data
	if len(alternatives) == 0 {
		if len(quote.RoutePlan) == 0 {
			return nil, fmt.Errorf("no routes returned by quote API")
		}
		alternatives = []jupiterRoute{quote.jupiterRoute}
	}

	routes := make([]model.RawRoute, 0, len(alternatives))
	for i, alt := range alternatives {
		routes = append(routes, convertRoute(alt, i))
	}

	logrus.Debugf("Received %d candidate routes from Jupiter", len(routes))
	return routes, nil
}

// convertRoute maps one Jupiter route to the raw candidate shape.
func convertRoute(r jupiterRoute, index int) model.RawRoute {
	raw := model.RawRoute{
		RouteID:      r.RouteID,
		InputToken:   r.InputMint,
		OutputToken:  r.OutputMint,
		InAmount:     parseAmount(r.InAmount),
		OutAmount:    parseAmount(r.OutAmount),
		MinOutAmount: parseAmount(r.OtherAmountThreshold),
		ComputeUnits: parseAmount(r.ComputeUnits),
	}
	if raw.RouteID == "" {
		raw.RouteID = fmt.Sprintf("jupiter-%d", index+1)
	}
	if impact, err := strconv.ParseFloat(r.PriceImpactPct, 64); err == nil {
		raw.PriceImpactPct = &impact
	}

	for _, step := range r.RoutePlan {
		hop := model.RawHop{
			SourceToken: step.SwapInfo.InputMint,
			DestToken:   step.SwapInfo.OutputMint,
			Platform:    step.SwapInfo.Label,
			PoolID:      step.SwapInfo.AmmKey,
		}
		// Jupiter reports absolute fee amounts per leg; expressed as bps of
		// the leg's input so downstream fee math stays uniform.
		feeAmt := parseAmount(step.SwapInfo.FeeAmount)
		inAmt := parseAmount(step.SwapInfo.InAmount)
		if inAmt > 0 {
			hop.FeeBps = feeAmt / inAmt * 10000
		}
		raw.Hops = append(raw.Hops, hop)
	}
	return raw
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
