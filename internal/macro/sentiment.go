package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// FearGreedClient polls an alternative.me-style fear & greed endpoint.
type FearGreedClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewFearGreedClient builds a sentiment client with a bounded timeout.
func NewFearGreedClient(baseURL string, timeout time.Duration) *FearGreedClient {
	if baseURL == "" {
		baseURL = "https://api.alternative.me/fng/"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FearGreedClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchIndex returns the latest index value. Any transport or decode
// failure wraps ErrUnavailable; there is no neutral fallback value here,
// the guardian decides what a missing reading means.
func (c *FearGreedClient) FetchIndex(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return 0, fmt.Errorf("sentiment request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: sentiment endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			Value string `json:"value"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode sentiment: %v", ErrUnavailable, err)
	}
	if len(payload.Data) == 0 {
		return 0, fmt.Errorf("%w: empty sentiment payload", ErrUnavailable)
	}
	v, err := strconv.Atoi(payload.Data[0].Value)
	if err != nil {
		return 0, fmt.Errorf("%w: bad sentiment value %q", ErrUnavailable, payload.Data[0].Value)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: sentiment %d out of range", ErrUnavailable, v)
	}
	return v, nil
}
