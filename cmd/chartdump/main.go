// Command chartdump fetches one chart from the backend and prints it as a
// table, optionally writing the rendered PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"finsent/internal/collector"
	"finsent/internal/config"
	"finsent/internal/logging"
	"finsent/internal/model"
	"finsent/internal/render"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("[FATAL] load .env: %v", err)
	}
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}

	symbol := flag.String("symbol", cfg.Dashboard.DefaultSymbol, "instrument symbol")
	timeframe := flag.String("timeframe", cfg.Dashboard.DefaultTimeframe, "1W, 1M, 1Y or ALL")
	repr := flag.String("repr", "area", "price representation: area or line")
	out := flag.String("png", "", "write the rendered chart to this file")
	mock := flag.Bool("mock", cfg.Backend.Mock, "use generated data instead of the backend")
	flag.Parse()

	tf, err := model.ParseTimeframe(*timeframe)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	rp, err := model.ParseRepresentation(*repr)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("[FATAL] init logger: %v", err)
	}
	defer logger.Sync()

	var fetcher collector.Fetcher = collector.NewBackendFetcher(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout)
	if *mock {
		fetcher = &collector.MockFetcher{Price: 189.5}
	}
	col := collector.NewCollector(fetcher, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.RequestTimeout+5*time.Second)
	defer cancel()

	view, err := col.Collect(ctx, *symbol, tf, rp)
	if err != nil {
		if errors.Is(err, model.ErrNetwork) || errors.Is(err, model.ErrMalformedPayload) {
			log.Fatalf("[FATAL] error loading chart data: %v", err)
		}
		log.Fatalf("[FATAL] collect: %v", err)
	}

	fmt.Printf("%s %s\n", view.Symbol, view.Timeframe)
	fmt.Println(render.SamplesTable(view.Samples, view.Domains))
	fmt.Println(render.FormatSummary(render.Summary(view.Instructions)))

	if *out == "" {
		return
	}
	err = writePNG(*out, view.Instructions, render.RenderOptions{
		Title:       view.Symbol,
		Width:       cfg.Dashboard.ChartWidth,
		PanelHeight: cfg.Dashboard.PanelHeight,
		TimeLayout:  tf.LabelLayout(),
	})
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	fmt.Printf("chart written to %s\n", *out)
}

// writePNG renders instrs into path. On failure no partial file is left.
func writePNG(path string, instrs []model.DrawInstruction, opts render.RenderOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render.RenderPNG(f, instrs, opts); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
