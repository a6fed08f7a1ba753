package collector

import (
	"context"
	"encoding/json"

	"finsent/internal/model"
)

// Fetcher defines the interface for talking to the data backend.
type Fetcher interface {
	// FetchChartData returns the raw data member of the chart-data response.
	FetchChartData(ctx context.Context, symbol string, tf model.Timeframe) (json.RawMessage, error)
	FetchLivePrice(ctx context.Context, symbol string) (*model.Ticker, error)
	// Ping succeeds only when the backend answers its liveness endpoint.
	Ping(ctx context.Context) error
	Name() string
}
