package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"finsent/internal/model"
)

// chartPoint is one record of the chart-data response.
type chartPoint struct {
	Time         string     `json:"time"`
	Close        null.Float `json:"close"`
	GoogleScore  null.Float `json:"google_score"`
	AvgSentiment null.Float `json:"avg_sentiment"`
}

// timeLayouts are tried in order when parsing a record's time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize turns the data member of a chart-data response into samples, one
// per record and in the same order. It performs no I/O. Anything that is not
// an array of records fails with model.ErrMalformedPayload before any sample
// is produced.
//
// A value of exactly 0 is treated as absent, like null. The backend uses zero
// as its missing-value sentinel, so a true zero reading cannot be told apart.
func Normalize(data json.RawMessage, tf model.Timeframe) ([]model.SeriesSample, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: chart data is not a sequence", model.ErrMalformedPayload)
	}

	var points []chartPoint
	if err := json.Unmarshal(trimmed, &points); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
	}

	layout := tf.LabelLayout()
	samples := make([]model.SeriesSample, len(points))
	for i, p := range points {
		ts, err := parseTime(p.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", model.ErrMalformedPayload, i, err)
		}
		samples[i] = model.SeriesSample{
			Timestamp:  ts,
			Label:      ts.Format(layout),
			Price:      roundPresent(p.Close),
			Sentiment:  roundPresent(p.AvgSentiment),
			TrendScore: roundPresent(p.GoogleScore),
		}
	}
	return samples, nil
}

// roundPresent rounds to 2 decimal places, mapping null, non-finite values
// and anything that rounds to zero to absent.
func roundPresent(v null.Float) null.Float {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return null.Float{}
	}
	rounded, _ := decimal.NewFromFloat(v.Float64).Round(2).Float64()
	if rounded == 0 {
		return null.Float{}
	}
	return null.FloatFrom(rounded)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}
