package model

import (
	"fmt"
	"strings"
	"time"
)

// DomainKind tags how an axis range is shaped.
type DomainKind string

const (
	UnboundedPositive DomainKind = "unbounded-positive"
	SymmetricBounded  DomainKind = "symmetric-bounded"
)

// AxisDomain is a closed interval [Min, Max]. For SymmetricBounded domains
// Max == -Min and Max >= 1.
type AxisDomain struct {
	Min  float64    `json:"min"`
	Max  float64    `json:"max"`
	Kind DomainKind `json:"kind"`
}

// Degenerate reports whether the domain has zero width.
func (d AxisDomain) Degenerate() bool { return d.Max <= d.Min }

// SeriesID identifies one of the chart's three signals.
type SeriesID string

const (
	SeriesPrice     SeriesID = "price"
	SeriesTrend     SeriesID = "trend"
	SeriesSentiment SeriesID = "sentiment"
)

// Kind returns the domain shape used for the series.
func (id SeriesID) Kind() DomainKind {
	if id == SeriesSentiment {
		return SymmetricBounded
	}
	return UnboundedPositive
}

// Domains holds one axis range per series.
type Domains struct {
	Price     AxisDomain `json:"price"`
	Trend     AxisDomain `json:"trend"`
	Sentiment AxisDomain `json:"sentiment"`
}

// For returns the domain for the given series.
func (d Domains) For(id SeriesID) AxisDomain {
	switch id {
	case SeriesTrend:
		return d.Trend
	case SeriesSentiment:
		return d.Sentiment
	default:
		return d.Price
	}
}

// Representation is how a series is drawn.
type Representation string

const (
	RepresentationArea Representation = "area"
	RepresentationLine Representation = "line"
	RepresentationBar  Representation = "bar"
)

// ParseRepresentation accepts the user-selectable price representations.
// An empty string selects area.
func ParseRepresentation(s string) (Representation, error) {
	switch r := Representation(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RepresentationArea, nil
	case RepresentationArea, RepresentationLine:
		return r, nil
	}
	return "", fmt.Errorf("unknown representation %q", s)
}

// PointStyle is the visual treatment for a single drawn point.
type PointStyle string

const (
	StyleDefault  PointStyle = "default"
	StylePositive PointStyle = "positive"
	StyleNegative PointStyle = "negative"
)

// DrawPoint is one mark handed to the renderer.
type DrawPoint struct {
	Timestamp time.Time  `json:"timestamp"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Style     PointStyle `json:"style"`
}

// DrawInstruction describes how to draw one series.
type DrawInstruction struct {
	Series         SeriesID       `json:"series"`
	Representation Representation `json:"representation"`
	Domain         AxisDomain     `json:"domain"`
	Points         []DrawPoint    `json:"points"`
}

// ChartView is everything one render cycle needs. It is replaced wholesale
// on new data, never mutated.
type ChartView struct {
	Symbol       string            `json:"symbol"`
	Timeframe    Timeframe         `json:"timeframe"`
	Samples      []SeriesSample    `json:"samples"`
	Domains      Domains           `json:"domains"`
	Instructions []DrawInstruction `json:"instructions"`
}
