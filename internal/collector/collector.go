package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"finsent/internal/calculator"
	"finsent/internal/model"
	"finsent/internal/render"
)

// MockFetcher returns controllable fixed data for development and testing.
// The first ColdStartPings pings fail to simulate a sleeping backend.
type MockFetcher struct {
	Price          float64
	ChartData      json.RawMessage
	ChartErr       error
	ColdStartPings int

	mu    sync.Mutex
	pings int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pings++
	if m.pings <= m.ColdStartPings {
		return fmt.Errorf("%w: mock backend warming up (%d/%d)", model.ErrProbeFailure, m.pings, m.ColdStartPings)
	}
	return nil
}

func (m *MockFetcher) FetchChartData(_ context.Context, _ string, tf model.Timeframe) (json.RawMessage, error) {
	if m.ChartErr != nil {
		return nil, m.ChartErr
	}
	if m.ChartData != nil {
		return m.ChartData, nil
	}
	return generateMockChart(m.Price, tf, 50, time.Now().UTC()), nil
}

func (m *MockFetcher) FetchLivePrice(_ context.Context, symbol string) (*model.Ticker, error) {
	return &model.Ticker{
		Symbol:        strings.ToUpper(symbol),
		Price:         m.Price,
		Change:        m.Price * 0.004,
		PercentChange: 0.4,
		FetchedAt:     time.Now(),
	}, nil
}

// mockStep is the spacing between generated records for each timeframe.
func mockStep(tf model.Timeframe) time.Duration {
	switch tf {
	case model.Timeframe1W:
		return 4 * time.Hour
	case model.Timeframe1M:
		return 12 * time.Hour
	case model.Timeframe1Y:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// generateMockChart builds a deterministic chart-data payload ending at end.
// Every seventh record has no articles so the sentiment series has gaps.
func generateMockChart(basePrice float64, tf model.Timeframe, count int, end time.Time) json.RawMessage {
	type record struct {
		Time         string   `json:"time"`
		Close        *float64 `json:"close"`
		GoogleScore  *float64 `json:"google_score"`
		AvgSentiment *float64 `json:"avg_sentiment"`
	}
	step := mockStep(tf)
	records := make([]record, count)
	for i := 0; i < count; i++ {
		ts := end.Add(-time.Duration(count-1-i) * step)
		price := basePrice*(1+float64(i-count/2)*0.001) + math.Sin(float64(i)/5)*basePrice*0.02
		trend := 50 + 25*math.Cos(float64(i)/6)
		rec := record{Time: ts.Format(time.RFC3339), Close: &price, GoogleScore: &trend}
		if i%7 != 3 {
			sentiment := 0.6 * math.Sin(float64(i)/4)
			rec.AvgSentiment = &sentiment
		}
		records[i] = rec
	}
	data, _ := json.Marshal(records)
	return data
}

// Collector orchestrates chart data fetching and the chart pipeline.
type Collector struct {
	Fetcher Fetcher
	Log     *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Log: log}
}

// Collect fetches chart data for a symbol and runs it through normalization,
// domain calculation and render selection. Network and payload errors are
// returned to the caller; nothing is retried here.
func (c *Collector) Collect(ctx context.Context, symbol string, tf model.Timeframe, repr model.Representation) (*model.ChartView, error) {
	raw, err := c.Fetcher.FetchChartData(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	samples, err := Normalize(raw, tf)
	if err != nil {
		return nil, fmt.Errorf("normalize %s %s: %w", symbol, tf, err)
	}

	domains := calculator.Domains(samples)
	view := &model.ChartView{
		Symbol:       symbol,
		Timeframe:    tf,
		Samples:      samples,
		Domains:      domains,
		Instructions: render.Select(samples, repr, domains),
	}
	c.Log.Debug("chart collected",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(tf)),
		zap.Int("samples", len(samples)),
		zap.Float64("price_min", domains.Price.Min),
		zap.Float64("price_max", domains.Price.Max),
	)
	return view, nil
}

// Ticker fetches the live quote for a symbol.
func (c *Collector) Ticker(ctx context.Context, symbol string) (*model.Ticker, error) {
	return c.Fetcher.FetchLivePrice(ctx, symbol)
}
