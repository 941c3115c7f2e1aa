package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// QuoteClient fetches the latest traded price for a symbol.
type QuoteClient interface {
	Quote(ctx context.Context, ticker string) (float64, error)
}

// YahooClient fetches quotes from the Yahoo Finance chart endpoint.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// NewYahooClient creates a quote client. An empty baseURL selects the
// public Yahoo endpoint; tests point it at a local server.
func NewYahooClient(baseURL string) *YahooClient {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Compile-time interface check.
var _ QuoteClient = (*YahooClient)(nil)

// chartResponse mirrors the subset of the chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PreviousClose      *float64 `json:"previousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote returns the latest price for ticker, preferring the regular
// market price and falling back to the previous close.
func (c *YahooClient) Quote(ctx context.Context, ticker string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("User-Agent", "structured-notes-tracker/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch quote for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch quote for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode quote for %s: %w", ticker, err)
	}

	if payload.Chart.Error != nil {
		return 0, fmt.Errorf("quote for %s: %s (%s)", ticker, payload.Chart.Error.Description, payload.Chart.Error.Code)
	}
	if len(payload.Chart.Result) == 0 {
		return 0, fmt.Errorf("quote for %s: empty result", ticker)
	}

	meta := payload.Chart.Result[0].Meta
	switch {
	case meta.RegularMarketPrice != nil && *meta.RegularMarketPrice > 0:
		return *meta.RegularMarketPrice, nil
	case meta.PreviousClose != nil && *meta.PreviousClose > 0:
		return *meta.PreviousClose, nil
	}
	return 0, fmt.Errorf("quote for %s: no price in response", ticker)
}
