package zonal

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/stats"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func collection(features ...*geojson.Feature) *geojson.FeatureCollection {
	collection := geojson.NewFeatureCollection()
	for _, feature := range features {
		collection.Append(feature)
	}
	return collection
}

func feature(geometry orb.Geometry, properties geojson.Properties) *geojson.Feature {
	feature := geojson.NewFeature(geometry)
	feature.Properties = properties
	return feature
}

func testZones() *geojson.FeatureCollection {
	return collection(
		feature(square(0, 0, 1, 1), geojson.Properties{"district_name": "DistrictY", "pop": 10}),
		feature(square(10, 10, 11, 11), geojson.Properties{"district_name": "DistrictZ"}),
	)
}

func overlayInput(classes *geojson.FeatureCollection, options Options) Input {
	return Input{
		Zones:           testZones(),
		ZoneProperties:  []string{"district_name"},
		Classes:         classes,
		ClassProperties: []string{"label"},
		Options:         options,
	}
}

func approximately(first float64, second float64) bool {
	return math.Abs(first-second) < 1e-6
}

func TestGridOverlay(t *testing.T) {
	classes := collection(feature(square(0, 0, 0.5, 1), geojson.Properties{"label": "High"}))

	result, err := NewGridOverlay(10).Overlay(context.Background(), overlayInput(classes, Options{
		DissolveClasses:             true,
		RemoveFeaturesWithNoOverlap: true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row for the overlapping zone, got %d", len(result.Rows))
	}
	row := result.Rows[0]

	if row["zone:district_name"] != "DistrictY" || row["class:label"] != "High" {
		t.Errorf("unexpected zone/class columns in row %v", row)
	}
	if percentage := row[StatPercentage].(float64); !approximately(percentage, 50) {
		t.Errorf("expected 50%% overlap, got %v", percentage)
	}

	expectedArea := geo.Area(square(0, 0, 1, 1)) / 2
	if area := row[StatArea].(float64); !approximately(area, expectedArea) {
		t.Errorf("expected area %v, got %v", expectedArea, area)
	}

	if len(result.GeoJSON.Features) != 1 {
		t.Fatalf("expected 1 output feature, got %d", len(result.GeoJSON.Features))
	}
	if _, preserved := result.GeoJSON.Features[0].Properties["pop"]; preserved {
		t.Error("expected zone properties not to be preserved")
	}
}

func TestGridOverlayDissolve(t *testing.T) {
	classes := collection(
		feature(square(0, 0, 0.5, 1), geojson.Properties{"label": "High"}),
		feature(square(0.3, 0, 0.7, 1), geojson.Properties{"label": "High"}),
	)

	dissolved, err := NewGridOverlay(10).Overlay(
		context.Background(), overlayInput(classes, Options{DissolveClasses: true}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dissolved.Rows) != 2 {
		t.Fatalf("expected a row per zone with dissolved classes, got %d", len(dissolved.Rows))
	}
	if percentage := dissolved.Rows[0][StatPercentage].(float64); !approximately(percentage, 70) {
		t.Errorf("expected dissolved class to cover 70%%, got %v", percentage)
	}
	if _, hasStats := dissolved.Rows[1][StatArea]; hasStats {
		t.Errorf("expected zone without overlap to have no statistics, got %v", dissolved.Rows[1])
	}

	separate, err := NewGridOverlay(10).Overlay(
		context.Background(),
		overlayInput(classes, Options{RemoveFeaturesWithNoOverlap: true}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(separate.Rows) != 2 {
		t.Fatalf("expected a row per class feature, got %d", len(separate.Rows))
	}
	for i, expected := range []float64{50, 40} {
		if percentage := separate.Rows[i][StatPercentage].(float64); !approximately(percentage, expected) {
			t.Errorf("expected class %d to cover %v%%, got %v", i, expected, percentage)
		}
	}
}

func TestGridOverlayNullClassRows(t *testing.T) {
	classes := collection(feature(square(0, 0, 0.5, 1), geojson.Properties{"label": "High"}))

	result, err := NewGridOverlay(10).Overlay(context.Background(), overlayInput(classes, Options{
		DissolveClasses:             true,
		RemoveFeaturesWithNoOverlap: true,
		IncludeNullClassRows:        true,
		PreserveFeatures:            true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Rows) != 2 {
		t.Fatalf("expected class row and null class row, got %d rows", len(result.Rows))
	}
	if label, ok := result.Rows[1]["class:label"]; !ok || label != nil {
		t.Errorf("expected null class label, got %v", result.Rows[1])
	}
	if result.GeoJSON.Features[0].Properties["pop"] != 10 {
		t.Error("expected zone properties to be preserved")
	}
}

func TestGridOverlayInvalidGridSize(t *testing.T) {
	if _, err := NewGridOverlay(0).Overlay(context.Background(), Input{}); err == nil {
		t.Error("expected error for zero grid size")
	}
}

func TestReshapeRows(t *testing.T) {
	for _, test := range []struct {
		squareMeters float64
		expected     float64
	}{
		{1_500_000, 2},
		{2_500_000, 3},
		{2_000_000, 2},
		{1_499_999, 1},
		{0, 0},
	} {
		reshaped := ReshapeRows([]stats.Row{{
			"zone:district_name": "DistrictY",
			"class:label":        "High",
			StatArea:             test.squareMeters,
			StatPercentage:       40.0,
			"stat:other":         1.0,
		}})

		row := reshaped[0]
		if row[Area] != test.expected {
			t.Errorf("expected %v m² to become %v km², got %v", test.squareMeters, test.expected, row[Area])
		}
		if row[Percentage] != 40.0 {
			t.Errorf("expected percentage to be kept, got %v", row[Percentage])
		}
		if row["district_name"] != "DistrictY" || row["label"] != "High" {
			t.Errorf("expected prefixes to be stripped, got %v", row)
		}
		if _, ok := row["other"]; ok {
			t.Errorf("expected other statistic columns to be dropped, got %v", row)
		}
		if len(row) != 4 {
			t.Errorf("expected 4 columns, got %v", row)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	for value, expected := range map[float64]float64{1.5: 2, 2.5: 3, 2.49: 2, 0.5: 1, -0.5: 0} {
		if rounded := RoundHalfUp(value); rounded != expected {
			t.Errorf("expected %v to round to %v, got %v", value, expected, rounded)
		}
	}
}
