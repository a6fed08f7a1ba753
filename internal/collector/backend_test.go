package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finsent/internal/model"
)

func newTestBackend(t *testing.T, h http.HandlerFunc) *BackendFetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewBackendFetcher(srv.URL+"/", 5*time.Second)
}

func TestBackendFetcher_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"not found", http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/ping" {
					t.Errorf("path = %s, want /ping", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			})
			err := f.Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Ping error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, model.ErrProbeFailure) {
				t.Errorf("error %v does not wrap ErrProbeFailure", err)
			}
		})
	}
}

func TestBackendFetcher_PingTimeout(t *testing.T) {
	f := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.Ping(ctx); !errors.Is(err, model.ErrProbeFailure) {
		t.Fatalf("Ping error = %v, want ErrProbeFailure", err)
	}
}

func TestBackendFetcher_PingConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewBackendFetcher(url, time.Second)
	if err := f.Ping(context.Background()); !errors.Is(err, model.ErrProbeFailure) {
		t.Fatalf("Ping error = %v, want ErrProbeFailure", err)
	}
}

func TestBackendFetcher_FetchChartData(t *testing.T) {
	f := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chart-data" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q", got)
		}
		if got := r.URL.Query().Get("timeframe"); got != "1M" {
			t.Errorf("timeframe = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"time":"2024-01-01","close":101.5,"google_score":40,"avg_sentiment":0.2}]}`))
	})

	raw, err := f.FetchChartData(context.Background(), "AAPL", model.Timeframe1M)
	if err != nil {
		t.Fatalf("FetchChartData: %v", err)
	}
	samples, err := Normalize(raw, model.Timeframe1M)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(samples) != 1 || samples[0].Price.Float64 != 101.5 {
		t.Errorf("samples = %+v", samples)
	}
	if n := f.InFlight(); n != 0 {
		t.Errorf("in-flight = %d after completion", n)
	}
}

func TestBackendFetcher_FetchChartDataErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, model.ErrNetwork},
		{"array envelope", http.StatusOK, `[1,2,3]`, model.ErrMalformedPayload},
		{"html", http.StatusOK, `<html></html>`, model.ErrMalformedPayload},
		{"broken json", http.StatusOK, `{"data":[`, model.ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := f.FetchChartData(context.Background(), "AAPL", model.Timeframe1W)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackendFetcher_MissingDataIsMalformedDownstream(t *testing.T) {
	f := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail":"unknown symbol"}`))
	})
	raw, err := f.FetchChartData(context.Background(), "ZZZZ", model.Timeframe1W)
	if err != nil {
		t.Fatalf("FetchChartData: %v", err)
	}
	if _, err := Normalize(raw, model.Timeframe1W); !errors.Is(err, model.ErrMalformedPayload) {
		t.Fatalf("Normalize error = %v, want ErrMalformedPayload", err)
	}
}

func TestBackendFetcher_FetchLivePrice(t *testing.T) {
	f := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/live-price" || r.URL.Query().Get("symbol") != "MSFT" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"price":410.2,"change":-1.1,"percent_change":-0.27}`))
	})

	tk, err := f.FetchLivePrice(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("FetchLivePrice: %v", err)
	}
	if tk.Symbol != "MSFT" || tk.Price != 410.2 || tk.PercentChange != -0.27 {
		t.Errorf("ticker = %+v", tk)
	}
	if tk.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestBackendFetcher_InFlightUntilBodyRead(t *testing.T) {
	flushed := make(chan struct{})
	release := make(chan struct{})
	f := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(flushed)
		<-release
		w.Write([]byte(`{"data":[]}`))
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.FetchChartData(context.Background(), "AAPL", model.Timeframe1W)
		done <- err
	}()

	<-flushed
	// Headers are out; the client is now waiting on the body.
	time.Sleep(50 * time.Millisecond)
	if n := f.InFlight(); n != 1 {
		t.Errorf("in-flight while body pending = %d, want 1", n)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("FetchChartData: %v", err)
	}
	if n := f.InFlight(); n != 0 {
		t.Errorf("in-flight after completion = %d, want 0", n)
	}
}
