// Package server is the dashboard shell: it exposes readiness, the chart
// pipeline and live tickers over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finsent/internal/model"
	"finsent/internal/render"
)

// ReadinessSource is the readiness poller as seen by the shell.
type ReadinessSource interface {
	Snapshot() model.Readiness
	EnterDebug()
	ExitDebug()
}

// ChartSource produces chart views.
type ChartSource interface {
	Collect(ctx context.Context, symbol string, tf model.Timeframe, repr model.Representation) (*model.ChartView, error)
}

// TickerSource serves cached live quotes.
type TickerSource interface {
	Watch(symbol string) bool
	Ticker(symbol string) (*model.Ticker, bool)
	RefreshNow()
}

type Config struct {
	Addr             string
	Readiness        ReadinessSource
	Charts           ChartSource
	Tickers          TickerSource
	DefaultSymbol    string
	DefaultTimeframe model.Timeframe
	ChartWidth       int
	PanelHeight      int
	InFlight         func() int64 // optional, outstanding backend requests
	Log              *zap.Logger
}

// HTTPServer serves the dashboard shell API.
type HTTPServer struct {
	cfg    Config
	log    *zap.Logger
	router *gin.Engine
}

func NewHTTPServer(cfg Config) (*HTTPServer, error) {
	if cfg.Readiness == nil || cfg.Charts == nil || cfg.Tickers == nil {
		return nil, errors.New("readiness, chart and ticker sources are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DefaultSymbol == "" {
		cfg.DefaultSymbol = "AAPL"
	}
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = model.Timeframe1W
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Log))

	s := &HTTPServer{cfg: cfg, log: cfg.Log, router: router}
	s.registerRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler { return s.router }

func (s *HTTPServer) registerRoutes() {
	s.router.GET("/status", s.handleStatus)
	s.router.POST("/debug/enter", s.handleDebugEnter)
	s.router.POST("/debug/exit", s.handleDebugExit)
	s.router.GET("/chart.png", s.handleChartPNG)

	api := s.router.Group("/api")
	api.GET("/chart", s.handleChart)
	api.GET("/ticker", s.handleTicker)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("dashboard listening", zap.String("addr", s.cfg.Addr))

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *HTTPServer) statusBody() gin.H {
	r := s.cfg.Readiness.Snapshot()
	var fetching int64
	if s.cfg.InFlight != nil {
		fetching = s.cfg.InFlight()
	}
	return gin.H{
		"readiness":      r,
		"message":        render.LoadingMessage(r),
		"progress_label": render.FormatProgress(r),
		"fetching":       fetching,
	}
}

func (s *HTTPServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.statusBody())
}

func (s *HTTPServer) handleDebugEnter(c *gin.Context) {
	s.cfg.Readiness.EnterDebug()
	c.JSON(http.StatusOK, s.statusBody())
}

func (s *HTTPServer) handleDebugExit(c *gin.Context) {
	s.cfg.Readiness.ExitDebug()
	c.JSON(http.StatusOK, s.statusBody())
}

type chartQuery struct {
	symbol string
	tf     model.Timeframe
	repr   model.Representation
}

func (s *HTTPServer) parseChartQuery(c *gin.Context) (chartQuery, error) {
	q := chartQuery{symbol: strings.ToUpper(strings.TrimSpace(c.Query("symbol")))}
	if q.symbol == "" {
		q.symbol = s.cfg.DefaultSymbol
	}
	q.tf = s.cfg.DefaultTimeframe
	if v := c.Query("timeframe"); v != "" {
		tf, err := model.ParseTimeframe(v)
		if err != nil {
			return q, err
		}
		q.tf = tf
	}
	repr, err := model.ParseRepresentation(c.Query("repr"))
	if err != nil {
		return q, err
	}
	q.repr = repr
	return q, nil
}

// loadChart runs the chart pipeline and writes the error response itself
// when it fails.
func (s *HTTPServer) loadChart(c *gin.Context) (*model.ChartView, bool) {
	if !s.cfg.Readiness.Snapshot().Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": model.ErrNotReady.Error()})
		return nil, false
	}
	q, err := s.parseChartQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	view, err := s.cfg.Charts.Collect(c.Request.Context(), q.symbol, q.tf, q.repr)
	if err != nil {
		s.log.Warn("chart load failed", zap.String("symbol", q.symbol), zap.String("timeframe", string(q.tf)), zap.Error(err))
		if errors.Is(err, model.ErrNetwork) || errors.Is(err, model.ErrMalformedPayload) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "error loading chart data"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return view, true
}

func (s *HTTPServer) handleChart(c *gin.Context) {
	view, ok := s.loadChart(c)
	if !ok {
		return
	}
	summary := render.Summary(view.Instructions)
	c.JSON(http.StatusOK, gin.H{
		"chart":        view,
		"summary":      summary,
		"summary_text": render.FormatSummary(summary),
	})
}

func (s *HTTPServer) handleChartPNG(c *gin.Context) {
	view, ok := s.loadChart(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := render.RenderPNG(&buf, view.Instructions, render.RenderOptions{
		Title:       view.Symbol,
		Width:       s.cfg.ChartWidth,
		PanelHeight: s.cfg.PanelHeight,
		TimeLayout:  view.Timeframe.LabelLayout(),
	})
	if err != nil {
		s.log.Error("render chart", zap.String("symbol", view.Symbol), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render chart failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *HTTPServer) handleTicker(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		symbol = s.cfg.DefaultSymbol
	}
	if !s.cfg.Readiness.Snapshot().Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": model.ErrNotReady.Error()})
		return
	}
	if s.cfg.Tickers.Watch(symbol) {
		s.cfg.Tickers.RefreshNow()
	}
	t, ok := s.cfg.Tickers.Ticker(symbol)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("no quote for %s", symbol)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticker": t, "text": render.FormatTicker(t)})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
