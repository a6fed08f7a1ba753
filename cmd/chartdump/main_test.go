package main

import (
	"errors"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"finsent/internal/model"
	"finsent/internal/render"
)

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	instrs := render.Select(nil, model.RepresentationArea, model.Domains{
		Price:     model.AxisDomain{Min: 0, Max: 100, Kind: model.UnboundedPositive},
		Trend:     model.AxisDomain{Min: 0, Max: 100, Kind: model.UnboundedPositive},
		Sentiment: model.AxisDomain{Min: -1, Max: 1, Kind: model.SymmetricBounded},
	})

	if err := writePNG(path, instrs, render.RenderOptions{Width: 200, PanelHeight: 80}); err != nil {
		t.Fatalf("writePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("decode written file: %v", err)
	}
}

func TestWritePNG_RenderErrorLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	if err := writePNG(path, nil, render.RenderOptions{}); err == nil {
		t.Fatal("expected render error for no instructions")
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("stat after failure = %v, want not exist", err)
	}
}
