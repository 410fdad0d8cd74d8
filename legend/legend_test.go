package legend

import (
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func breakpoints(legend Legend) []float64 {
	values := make([]float64, 0, len(legend))
	for _, item := range legend {
		values = append(values, item.Value)
	}
	return values
}

func TestFromValues(t *testing.T) {
	for _, test := range []struct {
		name     string
		values   []float64
		expected []float64
	}{
		{"wide range", []float64{0, 60}, []float64{10, 20, 30, 40, 50, 60}},
		{"rounded up", []float64{0, 9}, []float64{2, 3, 5, 6, 8, 9}},
		{"narrow range", []float64{0, 3}, []float64{0.5, 1, 1.5, 2, 2.5, 3}},
		{"single value", []float64{4}, []float64{4, 4, 4, 4, 4, 4}},
	} {
		t.Run(test.name, func(t *testing.T) {
			legend := FromValues(test.values)
			if len(legend) != len(Colors) {
				t.Fatalf("expected %d buckets, got %d", len(Colors), len(legend))
			}
			if got := breakpoints(legend); !reflect.DeepEqual(got, test.expected) {
				t.Errorf("expected breakpoints %v, got %v", test.expected, got)
			}
			for i, item := range legend {
				if item.Color != Colors[i] {
					t.Errorf("expected color %s at bucket %d, got %s", Colors[i], i, item.Color)
				}
			}
		})
	}
}

func TestFromFeatures(t *testing.T) {
	features := []*geojson.Feature{
		geojson.NewFeature(orb.Point{0, 0}),
		geojson.NewFeature(orb.Point{1, 1}),
		geojson.NewFeature(orb.Point{2, 2}),
		nil,
	}
	features[0].Properties["mean"] = 0.0
	features[1].Properties["mean"] = 60.0
	features[2].Properties["mean"] = nil

	expected := []float64{10, 20, 30, 40, 50, 60}
	if got := breakpoints(FromFeatures(features, "mean")); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected breakpoints %v, got %v", expected, got)
	}
}

func TestEmptyLegend(t *testing.T) {
	if legend := FromValues(nil); len(legend) != 0 {
		t.Errorf("expected empty legend, got %v", legend)
	}

	allNull := []*geojson.Feature{geojson.NewFeature(orb.Point{0, 0})}
	allNull[0].Properties["mean"] = nil
	if legend := FromFeatures(allNull, "mean"); len(legend) != 0 {
		t.Errorf("expected empty legend for all-null values, got %v", legend)
	}
}
