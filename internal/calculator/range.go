package calculator

import (
	"math"

	"finsent/internal/model"
)

// paddingRatio widens an observed range on both sides before rounding.
const paddingRatio = 0.1

// Fallback domains used when a series has no defined values.
var (
	fallbackUnbounded = model.AxisDomain{Min: 0, Max: 100, Kind: model.UnboundedPositive}
	fallbackSymmetric = model.AxisDomain{Min: -1, Max: 1, Kind: model.SymmetricBounded}
)

// Domain computes the axis range for one series. Absent and non-finite values
// are ignored; a series with no defined values gets a fixed fallback. A
// constant series yields a degenerate [v, v] price/trend domain, which the
// renderer widens for display.
func Domain(samples []model.SeriesSample, series model.SeriesID) model.AxisDomain {
	values := definedValues(samples, series)
	kind := series.Kind()

	if len(values) == 0 {
		if kind == model.SymmetricBounded {
			return fallbackSymmetric
		}
		return fallbackUnbounded
	}

	lo, hi := valueRange(values)
	padding := (hi - lo) * paddingRatio
	paddedMin := math.Floor(lo - padding)
	paddedMax := math.Ceil(hi + padding)

	if kind == model.SymmetricBounded {
		bound := math.Max(math.Max(math.Abs(paddedMin), math.Abs(paddedMax)), 1)
		return model.AxisDomain{Min: -bound, Max: bound, Kind: kind}
	}
	return model.AxisDomain{Min: paddedMin, Max: paddedMax, Kind: kind}
}

// Domains computes the axis ranges for all three series.
func Domains(samples []model.SeriesSample) model.Domains {
	return model.Domains{
		Price:     Domain(samples, model.SeriesPrice),
		Trend:     Domain(samples, model.SeriesTrend),
		Sentiment: Domain(samples, model.SeriesSentiment),
	}
}

func definedValues(samples []model.SeriesSample, series model.SeriesID) []float64 {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		v := s.Value(series)
		if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
			continue
		}
		values = append(values, v.Float64)
	}
	return values
}

// valueRange returns the min and max of a non-empty slice.
func valueRange(values []float64) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
