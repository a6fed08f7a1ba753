package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"finsent/internal/model"
)

// PriceSummary is the low/high footer shown under the price chart.
type PriceSummary struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Valid bool    `json:"valid"`
}

// Summary returns the observed low and high of the price instruction.
func Summary(instrs []model.DrawInstruction) PriceSummary {
	var s PriceSummary
	for _, in := range instrs {
		if in.Series != model.SeriesPrice {
			continue
		}
		s.Low, s.High = math.Inf(1), math.Inf(-1)
		for _, p := range in.Points {
			s.Low = math.Min(s.Low, p.Value)
			s.High = math.Max(s.High, p.Value)
		}
		s.Valid = len(in.Points) > 0
	}
	if !s.Valid {
		return PriceSummary{}
	}
	return s
}

// FormatSummary renders the price footer, e.g. "Low: $94.10  High: $101.20".
func FormatSummary(s PriceSummary) string {
	if !s.Valid {
		return "Low: -  High: -"
	}
	return fmt.Sprintf("Low: $%.2f  High: $%.2f", s.Low, s.High)
}

// FormatTicker renders a quote line with a signed change.
func FormatTicker(t *model.Ticker) string {
	if t == nil {
		return "-"
	}
	sign := ""
	if t.PercentChange >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s $%.2f %s%.2f (%s%.2f%%)",
		strings.ToUpper(t.Symbol), t.Price, sign, t.Change, sign, t.PercentChange)
}

// LoadingMessage is the line shown above the progress bar while waiting.
func LoadingMessage(r model.Readiness) string {
	switch r.State {
	case model.StateDebug:
		return "Debug Mode: Simulating cold start..."
	case model.StateReady:
		return "Backend ready"
	default:
		return "Warming up the Financial Intelligence Backend..."
	}
}

// FormatProgress renders the progress percentage without decimals.
func FormatProgress(r model.Readiness) string {
	return fmt.Sprintf("%.0f%% Complete", r.Progress)
}

// SamplesTable renders samples and their axis domains as a text table.
func SamplesTable(samples []model.SeriesSample, domains model.Domains) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time", "Price", "Sentiment", "Trend"})
	for _, s := range samples {
		t.AppendRow(table.Row{s.Label, cell(s.Price.Valid, s.Price.Float64), cell(s.Sentiment.Valid, s.Sentiment.Float64), cell(s.TrendScore.Valid, s.TrendScore.Float64)})
	}
	t.AppendFooter(table.Row{"Domain", formatDomain(domains.Price), formatDomain(domains.Sentiment), formatDomain(domains.Trend)})
	return t.Render()
}

func cell(valid bool, v float64) string {
	if !valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatDomain(d model.AxisDomain) string {
	return fmt.Sprintf("[%g, %g]", d.Min, d.Max)
}
