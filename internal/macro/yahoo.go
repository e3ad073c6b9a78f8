package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lulabot/lula/internal/market"
)

// YahooClient fetches auxiliary series from a Yahoo-chart style endpoint.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooClient builds a market data client with a bounded timeout.
func NewYahooClient(baseURL string, timeout time.Duration) *YahooClient {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries returns the close series for a ticker. Null closes (gaps in
// the aux market's session) are dropped; alignment later carries the last
// known value forward.
func (c *YahooClient) FetchSeries(ctx context.Context, ticker, period, interval string) (market.Series, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=%s", c.baseURL, url.PathEscape(ticker),
		url.QueryEscape(period), url.QueryEscape(interval))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("market data request: %w", err)
	}
	req.Header.Set("User-Agent", "lula/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: chart endpoint returned %d for %s", ErrUnavailable, resp.StatusCode, ticker)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode chart: %v", ErrUnavailable, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: empty chart for %s", ErrUnavailable, ticker)
	}

	result := payload.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	series := make(market.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		series = append(series, market.Point{
			Timestamp: time.Unix(ts, 0).UTC(),
			Value:     *closes[i],
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no defined closes for %s", ErrUnavailable, ticker)
	}
	return series, nil
}
