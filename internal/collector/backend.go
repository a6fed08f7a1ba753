package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"finsent/internal/model"
)

// BackendFetcher implements Fetcher against the financial intelligence
// backend's REST API.
type BackendFetcher struct {
	BaseURL string
	Client  *http.Client

	inFlight atomic.Int64
}

// NewBackendFetcher creates a fetcher for the backend at baseURL. The timeout
// bounds chart and quote requests; liveness probes carry their own deadline
// through the context.
func NewBackendFetcher(baseURL string, timeout time.Duration) *BackendFetcher {
	return &BackendFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (f *BackendFetcher) Name() string { return "backend" }

// InFlight returns the number of requests currently outstanding, counted
// until their body has been read.
func (f *BackendFetcher) InFlight() int64 { return f.inFlight.Load() }

// Ping issues GET /ping. Any 2xx response is success; everything else wraps
// model.ErrProbeFailure.
func (f *BackendFetcher) Ping(ctx context.Context) error {
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	resp, err := f.get(ctx, f.BaseURL+"/ping")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrProbeFailure, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", model.ErrProbeFailure, resp.StatusCode)
	}
	return nil
}

// chartResponse is the envelope of GET /api/v1/chart-data.
type chartResponse struct {
	Data json.RawMessage `json:"data"`
}

func (f *BackendFetcher) FetchChartData(ctx context.Context, symbol string, tf model.Timeframe) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	endpoint := f.BaseURL + "/api/v1/chart-data?" + q.Encode()

	body, err := f.getBody(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch chart data: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("fetch chart data: %w: response is not an object", model.ErrMalformedPayload)
	}
	var result chartResponse
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("fetch chart data: %w: %v", model.ErrMalformedPayload, err)
	}
	return result.Data, nil
}

func (f *BackendFetcher) FetchLivePrice(ctx context.Context, symbol string) (*model.Ticker, error) {
	endpoint := f.BaseURL + "/api/v1/live-price?symbol=" + url.QueryEscape(symbol)
	body, err := f.getBody(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch live price: %w", err)
	}
	var t model.Ticker
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("fetch live price: %w: %v", model.ErrMalformedPayload, err)
	}
	if t.Symbol == "" {
		t.Symbol = symbol
	}
	t.FetchedAt = time.Now()
	return &t, nil
}

// getBody performs a GET and returns the body of a 2xx response. Transport
// failures and other statuses wrap model.ErrNetwork.
func (f *BackendFetcher) getBody(ctx context.Context, endpoint string) ([]byte, error) {
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	resp, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", model.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d, body: %s", model.ErrNetwork, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func (f *BackendFetcher) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return f.Client.Do(req)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
