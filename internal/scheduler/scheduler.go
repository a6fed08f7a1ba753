package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finsent/internal/collector"
	"finsent/internal/model"
)

// refreshLimit caps concurrent quote requests per refresh.
const refreshLimit = 4

// Scheduler manages the cron tasks that keep live tickers fresh.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Log       *zap.Logger
	Ctx       context.Context

	// ready gates refreshes until the backend has answered a probe.
	ready func() bool

	mu      sync.RWMutex
	watched map[string]struct{}
	tickers map[string]*model.Ticker
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, ready func() bool, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron:      cron.New(),
		Collector: col,
		Log:       log,
		Ctx:       ctx,
		ready:     ready,
		watched:   make(map[string]struct{}),
		tickers:   make(map[string]*model.Ticker),
	}
}

// RegisterAll registers the ticker refresh task.
func (s *Scheduler) RegisterAll(tickerCron string) error {
	if _, err := s.Cron.AddFunc(tickerCron, s.refreshTickers); err != nil {
		return fmt.Errorf("register ticker task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// Watch adds a symbol to the refresh set. It reports whether the symbol was
// newly added.
func (s *Scheduler) Watch(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watched[symbol]; ok {
		return false
	}
	s.watched[symbol] = struct{}{}
	return true
}

// Ticker returns the last refreshed quote for symbol.
func (s *Scheduler) Ticker(symbol string) (*model.Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickers[strings.ToUpper(symbol)]
	return t, ok
}

// RefreshNow runs the ticker refresh immediately.
func (s *Scheduler) RefreshNow() {
	s.refreshTickers()
}

func (s *Scheduler) symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.watched))
	for sym := range s.watched {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// refreshTickers fetches a quote for every watched symbol. A failed fetch
// keeps the previous quote.
func (s *Scheduler) refreshTickers() {
	if s.ready != nil && !s.ready() {
		s.Log.Debug("backend not ready, skipping ticker refresh")
		return
	}
	symbols := s.symbols()
	if len(symbols) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(refreshLimit)
	for _, sym := range symbols {
		g.Go(func() error {
			t, err := s.Collector.Ticker(s.Ctx, sym)
			if err != nil {
				s.Log.Warn("ticker refresh failed", zap.String("symbol", sym), zap.Error(err))
				return nil
			}
			s.mu.Lock()
			s.tickers[sym] = t
			s.mu.Unlock()
			return nil
		})
	}
	g.Wait()
	s.Log.Debug("tickers refreshed", zap.Int("symbols", len(symbols)))
}
