package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"finsent/internal/collector"
	"finsent/internal/config"
	"finsent/internal/logging"
	"finsent/internal/model"
	"finsent/internal/readiness"
	"finsent/internal/scheduler"
	"finsent/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("[FATAL] load .env: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("[FATAL] init logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config validation", zap.Error(err))
	}
	logger.Info("finsent dashboard starting...")

	// Init fetcher
	var fetcher collector.Fetcher
	var inFlight func() int64
	if cfg.Backend.Mock {
		fetcher = &collector.MockFetcher{Price: 189.5, ColdStartPings: 3}
	} else {
		bf := collector.NewBackendFetcher(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout)
		fetcher, inFlight = bf, bf.InFlight
	}
	logger.Info("data source", zap.String("fetcher", fetcher.Name()), zap.String("base_url", cfg.Backend.BaseURL))

	col := collector.NewCollector(fetcher, logger.Named("collector"))

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poller := readiness.New(fetcher.Ping, readiness.Options{
		Interval:      cfg.Readiness.Interval,
		ProbeTimeout:  cfg.Readiness.ProbeTimeout,
		MaxAttempts:   cfg.Readiness.MaxAttempts,
		DebugProgress: cfg.Readiness.DebugProgress,
		StartInDebug:  cfg.Readiness.StartInDebug,
		Log:           logger.Named("readiness"),
	})

	sched := scheduler.NewScheduler(ctx, col, func() bool { return poller.Snapshot().Ready() }, logger.Named("scheduler"))
	sched.Watch(cfg.Dashboard.DefaultSymbol)
	if err := sched.RegisterAll(cfg.Dashboard.TickerCron); err != nil {
		logger.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	poller.OnStateChange(func(r model.Readiness) {
		logger.Info("readiness",
			zap.String("state", string(r.State)),
			zap.Int("attempt", r.AttemptCount),
			zap.Float64("progress", r.Progress),
		)
		if r.Ready() {
			go sched.RefreshNow()
		}
	})
	poller.Start()
	defer poller.Stop()

	tf, _ := model.ParseTimeframe(cfg.Dashboard.DefaultTimeframe)
	srv, err := server.NewHTTPServer(server.Config{
		Addr:             cfg.Dashboard.Addr,
		Readiness:        poller,
		Charts:           col,
		Tickers:          sched,
		DefaultSymbol:    cfg.Dashboard.DefaultSymbol,
		DefaultTimeframe: tf,
		ChartWidth:       cfg.Dashboard.ChartWidth,
		PanelHeight:      cfg.Dashboard.PanelHeight,
		InFlight:         inFlight,
		Log:              logger.Named("http"),
	})
	if err != nil {
		logger.Fatal("init http server", zap.Error(err))
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("http server", zap.Error(err))
	}
	logger.Info("finsent dashboard stopped")
}
