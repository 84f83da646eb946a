// Package fetch provides clients for retrieving candidate swap routes from
// external quoting services. The engine core never talks to these directly;
// the server feeds their output through normalization like any other batch.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yourorg/swap-route-analyzer/internal/model"
)

// QuoteProvider is implemented by any source of candidate routes.
type QuoteProvider interface {
	// FetchCandidates retrieves raw candidate routes for a swap request
	FetchCandidates(ctx context.Context, req QuoteRequest) ([]model.RawRoute, error)
}

// QuoteRequest describes the swap to quote.
type QuoteRequest struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      int64  `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
}

// NewProvider selects a quote provider by name.
func NewProvider(name, baseURL string) QuoteProvider {
	switch name {
	case "demo":
		return NewDemoProvider()
	default:
		return NewJupiterClient(baseURL)
	}
}

// newRetryClient creates an HTTP client with retry capabilities.
func newRetryClient() *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c.StandardClient()
}
