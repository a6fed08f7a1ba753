package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"finsent/internal/model"
)

var (
	colorPrice    = drawing.ColorFromHex("3b82f6")
	colorTrend    = drawing.ColorFromHex("f59e0b")
	colorPositive = drawing.ColorFromHex("22c55e")
	colorNegative = drawing.ColorFromHex("ef4444")
	colorBaseline = drawing.ColorFromHex("9ca3af")
)

var seriesTitles = map[model.SeriesID]string{
	model.SeriesPrice:     "Price",
	model.SeriesTrend:     "Search Interest",
	model.SeriesSentiment: "Sentiment",
}

// RenderOptions sizes the rendered image.
type RenderOptions struct {
	Title       string
	Width       int
	PanelHeight int
	TimeLayout  string
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.Width <= 0 {
		o.Width = 960
	}
	if o.PanelHeight <= 0 {
		o.PanelHeight = 240
	}
	if o.TimeLayout == "" {
		o.TimeLayout = "Jan 2"
	}
	return o
}

// RenderPNG draws each instruction as its own panel, stacked top to bottom
// in instruction order, and writes a single PNG. All panels share the time
// axis; each uses its instruction's domain as Y range.
func RenderPNG(w io.Writer, instrs []model.DrawInstruction, opts RenderOptions) error {
	opts = opts.withDefaults()
	if len(instrs) == 0 {
		return fmt.Errorf("render: no instructions")
	}

	xMin, xMax := timeBounds(instrs)
	canvas := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.PanelHeight*len(instrs)))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	for i, in := range instrs {
		title := seriesTitles[in.Series]
		if i == 0 && opts.Title != "" {
			title = opts.Title + " " + title
		}
		ch := panel(in, title, xMin, xMax, opts)

		var buf bytes.Buffer
		if err := ch.Render(chart.PNG, &buf); err != nil {
			return fmt.Errorf("render %s panel: %w", in.Series, err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			return fmt.Errorf("decode %s panel: %w", in.Series, err)
		}
		offset := image.Pt(0, i*opts.PanelHeight)
		draw.Draw(canvas, img.Bounds().Add(offset), img, img.Bounds().Min, draw.Over)
	}

	return png.Encode(w, canvas)
}

func panel(in model.DrawInstruction, title string, xMin, xMax time.Time, opts RenderOptions) chart.Chart {
	lo, hi := displayRange(in.Domain)

	series := []chart.Series{baseline(in, xMin, xMax, lo)}
	switch in.Representation {
	case model.RepresentationBar:
		series = append(series,
			dotSeries("Positive", in.Points, model.StylePositive, colorPositive),
			dotSeries("Negative", in.Points, model.StyleNegative, colorNegative),
		)
	default:
		c := colorPrice
		if in.Series == model.SeriesTrend {
			c = colorTrend
		}
		style := chart.Style{StrokeColor: c, StrokeWidth: 2}
		if in.Representation == model.RepresentationArea {
			style.FillColor = c.WithAlpha(64)
		}
		xs, ys := xy(in.Points, func(model.DrawPoint) bool { return true })
		if len(xs) > 0 {
			series = append(series, chart.TimeSeries{Name: title, Style: style, XValues: xs, YValues: ys})
		}
	}

	return chart.Chart{
		Title:      title,
		Width:      opts.Width,
		Height:     opts.PanelHeight,
		Background: chart.Style{Padding: chart.Box{Top: 36, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat(opts.TimeLayout),
			Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(xMin), Max: chart.TimeToFloat64(xMax)},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: series,
	}
}

// baseline is a two-point series across the whole time range. For sentiment
// it is the zero reference line; elsewhere it draws nothing and only keeps
// empty panels renderable, since go-chart needs one visible series.
func baseline(in model.DrawInstruction, xMin, xMax time.Time, lo float64) chart.Series {
	style := chart.Style{StrokeWidth: chart.Disabled}
	y := lo
	if in.Domain.Kind == model.SymmetricBounded {
		style = chart.Style{StrokeColor: colorBaseline, StrokeWidth: 1}
		y = 0
	}
	return chart.TimeSeries{
		Name:    "baseline",
		Style:   style,
		XValues: []time.Time{xMin, xMax},
		YValues: []float64{y, y},
	}
}

func dotSeries(name string, points []model.DrawPoint, want model.PointStyle, c drawing.Color) chart.Series {
	xs, ys := xy(points, func(p model.DrawPoint) bool { return p.Style == want })
	style := chart.Style{StrokeWidth: chart.Disabled, DotWidth: 4, DotColor: c}
	if len(xs) == 0 {
		style.Hidden = true
		xs, ys = []time.Time{time.Unix(0, 0)}, []float64{0}
	}
	return chart.TimeSeries{Name: name, Style: style, XValues: xs, YValues: ys}
}

func xy(points []model.DrawPoint, keep func(model.DrawPoint) bool) ([]time.Time, []float64) {
	var xs []time.Time
	var ys []float64
	for _, p := range points {
		if !keep(p) {
			continue
		}
		xs = append(xs, p.Timestamp)
		ys = append(ys, p.Value)
	}
	return xs, ys
}

// displayRange widens a degenerate domain so the axis has non-zero height.
func displayRange(d model.AxisDomain) (float64, float64) {
	if d.Degenerate() {
		return d.Min - 1, d.Max + 1
	}
	return d.Min, d.Max
}

// timeBounds returns the time span covered by all points, never empty.
func timeBounds(instrs []model.DrawInstruction) (time.Time, time.Time) {
	var lo, hi time.Time
	for _, in := range instrs {
		for _, p := range in.Points {
			if lo.IsZero() || p.Timestamp.Before(lo) {
				lo = p.Timestamp
			}
			if hi.IsZero() || p.Timestamp.After(hi) {
				hi = p.Timestamp
			}
		}
	}
	if lo.IsZero() {
		hi = time.Now().UTC().Truncate(time.Hour)
		lo = hi.Add(-24 * time.Hour)
	}
	if !hi.After(lo) {
		hi = lo.Add(time.Hour)
	}
	return lo, hi
}
