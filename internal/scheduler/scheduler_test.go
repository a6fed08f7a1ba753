package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"finsent/internal/collector"
)

func TestRefreshNow_WaitsForReady(t *testing.T) {
	var ready atomic.Bool
	col := collector.NewCollector(&collector.MockFetcher{Price: 150}, nil)
	s := NewScheduler(context.Background(), col, ready.Load, nil)

	if !s.Watch("aapl") {
		t.Fatal("Watch should report a new symbol")
	}
	if s.Watch("AAPL ") {
		t.Error("Watch should dedupe case and whitespace")
	}

	s.RefreshNow()
	if _, ok := s.Ticker("AAPL"); ok {
		t.Fatal("ticker refreshed before backend was ready")
	}

	ready.Store(true)
	s.RefreshNow()
	tk, ok := s.Ticker("aapl")
	if !ok {
		t.Fatal("ticker missing after refresh")
	}
	if tk.Symbol != "AAPL" || tk.Price != 150 {
		t.Errorf("ticker = %+v", tk)
	}
}

func TestRefreshNow_ManySymbols(t *testing.T) {
	col := collector.NewCollector(&collector.MockFetcher{Price: 10}, nil)
	s := NewScheduler(context.Background(), col, nil, nil)
	syms := []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "META"}
	for _, sym := range syms {
		s.Watch(sym)
	}

	s.RefreshNow()
	for _, sym := range syms {
		if _, ok := s.Ticker(sym); !ok {
			t.Errorf("%s not refreshed", sym)
		}
	}
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), nil, nil, nil)
	if err := s.RegisterAll("@every 10s"); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if err := s.RegisterAll("every ten seconds"); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}
