package legend

import (
	"math"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/stats"
)

// Colors is the ramp of legend colors, lowest bucket first. A legend has one bucket per color.
var Colors = []string{"#fee5d9", "#fcbba1", "#fc9272", "#fb6a4a", "#de2d26", "#a50f15"}

// Item is one legend bucket, covering values up to and including Value.
type Item struct {
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

type Legend []Item

// FromFeatures builds a legend from the values of the given statistic property of the features.
// Features without a numeric value for the statistic are ignored.
func FromFeatures(features []*geojson.Feature, statistic string) Legend {
	values := make([]float64, 0, len(features))
	for _, feature := range features {
		if feature == nil {
			continue
		}
		if number, ok := stats.ToFloat(feature.Properties[statistic]); ok {
			values = append(values, number)
		}
	}
	return FromValues(values)
}

// FromValues splits the range of the values into equal intervals, one per color. Breakpoints are
// rounded up to whole numbers when the interval is wider than 1, and never exceed the maximum.
// Returns an empty legend if there are no values.
func FromValues(values []float64) Legend {
	if len(values) == 0 {
		return Legend{}
	}

	min, max := values[0], values[0]
	for _, value := range values[1:] {
		min = math.Min(min, value)
		max = math.Max(max, value)
	}

	delta := (max - min) / float64(len(Colors))

	legend := make(Legend, 0, len(Colors))
	for i, color := range Colors {
		breakpoint := min + float64(i+1)*delta
		if delta > 1 {
			breakpoint = math.Ceil(breakpoint)
		}
		legend = append(legend, Item{Value: math.Min(breakpoint, max), Color: color})
	}
	return legend
}
