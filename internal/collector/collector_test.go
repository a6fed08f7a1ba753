package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"finsent/internal/model"
)

func TestMockFetcher_ColdStart(t *testing.T) {
	m := &MockFetcher{Price: 100, ColdStartPings: 2}
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if err := m.Ping(ctx); !errors.Is(err, model.ErrProbeFailure) {
			t.Fatalf("ping %d: error = %v, want ErrProbeFailure", i, err)
		}
	}
	if err := m.Ping(ctx); err != nil {
		t.Fatalf("ping 3: %v", err)
	}
}

func TestGenerateMockChart(t *testing.T) {
	end := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := generateMockChart(100, model.Timeframe1W, 20, end)

	samples, err := Normalize(raw, model.Timeframe1W)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(samples) != 20 {
		t.Fatalf("got %d samples, want 20", len(samples))
	}
	if !samples[19].Timestamp.Equal(end) {
		t.Errorf("last timestamp = %v, want %v", samples[19].Timestamp, end)
	}
	if step := samples[1].Timestamp.Sub(samples[0].Timestamp); step != 4*time.Hour {
		t.Errorf("step = %v, want 4h", step)
	}
	if samples[3].Sentiment.Valid || samples[10].Sentiment.Valid {
		t.Error("expected sentiment gaps at every seventh record")
	}

	again := generateMockChart(100, model.Timeframe1W, 20, end)
	if string(raw) != string(again) {
		t.Error("mock chart is not deterministic")
	}
}

func TestCollector_Collect(t *testing.T) {
	m := &MockFetcher{ChartData: []byte(`[
		{"time":"2024-01-01T10:00:00Z","close":100,"google_score":40,"avg_sentiment":0.3},
		{"time":"2024-01-01T14:00:00Z","close":110,"google_score":60,"avg_sentiment":-0.2},
		{"time":"2024-01-01T18:00:00Z","close":null,"google_score":null,"avg_sentiment":null}
	]`)}
	c := NewCollector(m, nil)

	view, err := c.Collect(context.Background(), "AAPL", model.Timeframe1W, model.RepresentationLine)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if view.Symbol != "AAPL" || view.Timeframe != model.Timeframe1W {
		t.Errorf("view header = %s %s", view.Symbol, view.Timeframe)
	}
	if len(view.Samples) != 3 {
		t.Errorf("got %d samples, want 3 (gaps kept)", len(view.Samples))
	}

	wantPrice := model.AxisDomain{Min: 99, Max: 111, Kind: model.UnboundedPositive}
	if view.Domains.Price != wantPrice {
		t.Errorf("price domain = %+v, want %+v", view.Domains.Price, wantPrice)
	}
	if d := view.Domains.Sentiment; d.Min != -1 || d.Max != 1 {
		t.Errorf("sentiment domain = %+v", d)
	}

	if len(view.Instructions) != 3 {
		t.Fatalf("got %d instructions, want 3", len(view.Instructions))
	}
	if view.Instructions[0].Representation != model.RepresentationLine {
		t.Errorf("price representation = %s", view.Instructions[0].Representation)
	}
	if n := len(view.Instructions[2].Points); n != 2 {
		t.Errorf("sentiment points = %d, want 2", n)
	}
}

func TestCollector_CollectErrors(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *MockFetcher
		wantErr error
	}{
		{"network", &MockFetcher{ChartErr: model.ErrNetwork}, model.ErrNetwork},
		{"malformed", &MockFetcher{ChartData: []byte(`{"data":1}`)}, model.ErrMalformedPayload},
		{"null data", &MockFetcher{ChartData: []byte(`null`)}, model.ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := NewCollector(tt.fetcher, nil).Collect(context.Background(), "AAPL", model.Timeframe1Y, model.RepresentationArea)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if view != nil {
				t.Error("expected no view on error")
			}
		})
	}
}

func TestCollector_Ticker(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 200}, nil)
	tk, err := c.Ticker(context.Background(), "nvda")
	if err != nil {
		t.Fatalf("Ticker: %v", err)
	}
	if tk.Symbol != "NVDA" || tk.Price != 200 {
		t.Errorf("ticker = %+v", tk)
	}
}
