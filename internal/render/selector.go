// Package render maps normalized chart samples onto draw instructions and
// draws them.
package render

import (
	"finsent/internal/model"
)

// Select builds one draw instruction per series, in price, trend, sentiment
// order. The price series uses repr; trend is a line and sentiment is bars.
// Only defined values become points. Sentiment points are styled by sign,
// and a zero sentiment is treated as absent so no zero-height bar is drawn.
func Select(samples []model.SeriesSample, repr model.Representation, domains model.Domains) []model.DrawInstruction {
	if repr != model.RepresentationLine {
		repr = model.RepresentationArea
	}
	reprs := map[model.SeriesID]model.Representation{
		model.SeriesPrice:     repr,
		model.SeriesTrend:     model.RepresentationLine,
		model.SeriesSentiment: model.RepresentationBar,
	}

	out := make([]model.DrawInstruction, 0, len(seriesOrder))
	for _, id := range seriesOrder {
		out = append(out, model.DrawInstruction{
			Series:         id,
			Representation: reprs[id],
			Domain:         domains.For(id),
			Points:         points(samples, id),
		})
	}
	return out
}

var seriesOrder = []model.SeriesID{model.SeriesPrice, model.SeriesTrend, model.SeriesSentiment}

func signStyle(v float64) model.PointStyle {
	if v < 0 {
		return model.StyleNegative
	}
	return model.StylePositive
}

func points(samples []model.SeriesSample, id model.SeriesID) []model.DrawPoint {
	bars := id == model.SeriesSentiment
	out := make([]model.DrawPoint, 0, len(samples))
	for _, s := range samples {
		v := s.Value(id)
		if !v.Valid || (bars && v.Float64 == 0) {
			continue
		}
		style := model.StyleDefault
		if bars {
			style = signStyle(v.Float64)
		}
		out = append(out, model.DrawPoint{
			Timestamp: s.Timestamp,
			Label:     s.Label,
			Value:     v.Float64,
			Style:     style,
		})
	}
	return out
}
