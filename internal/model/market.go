package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// SeriesSample is one time-bucketed observation. A sample with every signal
// absent is a gap and still occupies its slot on the shared time axis.
type SeriesSample struct {
	Timestamp  time.Time  `json:"timestamp"`
	Label      string     `json:"label"`
	Price      null.Float `json:"price"`
	Sentiment  null.Float `json:"sentiment"`  // conceptually within [-1, 1]
	TrendScore null.Float `json:"trendScore"` // non-negative, no ceiling
}

// Value returns the sample's value for the given series.
func (s SeriesSample) Value(id SeriesID) null.Float {
	switch id {
	case SeriesPrice:
		return s.Price
	case SeriesSentiment:
		return s.Sentiment
	case SeriesTrend:
		return s.TrendScore
	}
	return null.Float{}
}

// Timeframe selects the query granularity and the label format.
type Timeframe string

const (
	Timeframe1W  Timeframe = "1W"
	Timeframe1M  Timeframe = "1M"
	Timeframe1Y  Timeframe = "1Y"
	TimeframeAll Timeframe = "ALL"
)

// Timeframes lists every supported timeframe in display order.
var Timeframes = []Timeframe{Timeframe1W, Timeframe1M, Timeframe1Y, TimeframeAll}

// ParseTimeframe accepts the closed set of timeframes, case-insensitively.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	switch tf {
	case Timeframe1W, Timeframe1M, Timeframe1Y, TimeframeAll:
		return tf, nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// LabelLayout returns the time layout used for sample labels: hour and day
// for short windows, month and day for long ones.
func (tf Timeframe) LabelLayout() string {
	switch tf {
	case Timeframe1W, Timeframe1M:
		return "Jan 2, 15:04"
	default:
		return "Jan 2"
	}
}

// Ticker is the latest quote for a symbol.
type Ticker struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	PercentChange float64   `json:"percent_change"`
	FetchedAt     time.Time `json:"fetched_at"`
}
