package zonal

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"hermannm.dev/hazardanalysis/stats"
)

// Column prefixes of overlay output rows.
const (
	ZonePrefix  = "zone:"
	ClassPrefix = "class:"
	StatPrefix  = "stat:"
)

const (
	StatArea       = StatPrefix + "area"
	StatPercentage = StatPrefix + "percentage"
)

type Options struct {
	// Merges class features with equal class property values into one class.
	DissolveClasses bool
	// Keeps all original zone properties on the output features.
	PreserveFeatures bool
	// Leaves out zones that no class overlaps.
	RemoveFeaturesWithNoOverlap bool
	// Adds a row per zone for the part of it that no class covers.
	IncludeNullClassRows bool
}

type Input struct {
	Zones           *geojson.FeatureCollection
	ZoneProperties  []string
	Classes         *geojson.FeatureCollection
	ClassProperties []string
	Options         Options
}

// Result has one row per overlapping zone and class, with the zone and class properties prefixed by
// ZonePrefix and ClassPrefix, and the area (m²) and percentage of the zone covered by the class.
// The GeoJSON has one feature per row, with the zone geometry.
type Result struct {
	Rows    []stats.Row
	GeoJSON *geojson.FeatureCollection
}

// Overlayer computes the intersection of zone polygons with classified polygons.
type Overlayer interface {
	Overlay(ctx context.Context, input Input) (Result, error)
}

// GridOverlay estimates overlap by sampling each zone's bounding box on a regular grid of
// GridSize × GridSize points, and scaling the zone's geodesic area by the share of sampled points
// inside the zone that fall in each class.
type GridOverlay struct {
	GridSize int
}

func NewGridOverlay(gridSize int) GridOverlay {
	return GridOverlay{GridSize: gridSize}
}

type hazardClass struct {
	properties geojson.Properties
	features   []*geojson.Feature
}

func (overlay GridOverlay) Overlay(ctx context.Context, input Input) (Result, error) {
	if overlay.GridSize <= 0 {
		return Result{}, fmt.Errorf("overlay grid size must be positive, got %d", overlay.GridSize)
	}

	classes := groupClasses(input.Classes, input.ClassProperties, input.Options.DissolveClasses)

	result := Result{Rows: []stats.Row{}, GeoJSON: geojson.NewFeatureCollection()}

	if input.Zones == nil {
		return result, nil
	}

	for _, zone := range input.Zones.Features {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if zone == nil || !isPolygonal(zone.Geometry) {
			continue
		}

		counts, insideCount := overlay.sampleZone(zone.Geometry, classes)
		if insideCount == 0 {
			continue
		}

		zoneArea := geo.Area(zone.Geometry)
		overlapped := false

		for i, class := range classes {
			if counts[i] == 0 {
				continue
			}
			overlapped = true

			share := float64(counts[i]) / float64(insideCount)
			row := zoneRow(zone, input.ZoneProperties)
			for _, property := range input.ClassProperties {
				row[ClassPrefix+property] = class.properties[property]
			}
			row[StatArea] = zoneArea * share
			row[StatPercentage] = share * 100

			result.append(zone, row, input.Options.PreserveFeatures)
		}

		uncovered := insideCount
		for _, count := range counts {
			uncovered -= count
		}

		if !overlapped && input.Options.RemoveFeaturesWithNoOverlap {
			continue
		}

		if input.Options.IncludeNullClassRows && uncovered > 0 {
			share := float64(uncovered) / float64(insideCount)
			row := zoneRow(zone, input.ZoneProperties)
			for _, property := range input.ClassProperties {
				row[ClassPrefix+property] = nil
			}
			row[StatArea] = zoneArea * share
			row[StatPercentage] = share * 100

			result.append(zone, row, input.Options.PreserveFeatures)
		} else if !overlapped {
			result.append(zone, zoneRow(zone, input.ZoneProperties), input.Options.PreserveFeatures)
		}
	}

	return result, nil
}

// sampleZone counts the sample points inside the zone, and how many of those fall in each class.
// With overlapping features in one class, a point is only counted once for that class.
func (overlay GridOverlay) sampleZone(
	zoneGeometry orb.Geometry,
	classes []hazardClass,
) (counts []int, insideCount int) {
	counts = make([]int, len(classes))

	bound := zoneGeometry.Bound()
	stepX := (bound.Max.X() - bound.Min.X()) / float64(overlay.GridSize)
	stepY := (bound.Max.Y() - bound.Min.Y()) / float64(overlay.GridSize)

	for i := 0; i < overlay.GridSize; i++ {
		for j := 0; j < overlay.GridSize; j++ {
			point := orb.Point{
				bound.Min.X() + (float64(i)+0.5)*stepX,
				bound.Min.Y() + (float64(j)+0.5)*stepY,
			}
			if !contains(zoneGeometry, point) {
				continue
			}
			insideCount++

			for classIndex, class := range classes {
				for _, feature := range class.features {
					if contains(feature.Geometry, point) {
						counts[classIndex]++
						break
					}
				}
			}
		}
	}

	return counts, insideCount
}

func groupClasses(
	collection *geojson.FeatureCollection,
	classProperties []string,
	dissolve bool,
) []hazardClass {
	if collection == nil {
		return nil
	}

	var classes []hazardClass
	indexByKey := make(map[string]int)

	for i, feature := range collection.Features {
		if feature == nil || !isPolygonal(feature.Geometry) {
			continue
		}

		key := fmt.Sprint(i)
		if dissolve {
			values := make([]string, 0, len(classProperties))
			for _, property := range classProperties {
				values = append(values, fmt.Sprintf("%v", feature.Properties[property]))
			}
			key = strings.Join(values, "\x00")
		}

		if index, ok := indexByKey[key]; ok {
			classes[index].features = append(classes[index].features, feature)
			continue
		}

		indexByKey[key] = len(classes)
		classes = append(classes, hazardClass{
			properties: feature.Properties,
			features:   []*geojson.Feature{feature},
		})
	}

	return classes
}

func zoneRow(zone *geojson.Feature, zoneProperties []string) stats.Row {
	row := make(stats.Row, len(zoneProperties)+2)
	for _, property := range zoneProperties {
		row[ZonePrefix+property] = zone.Properties[property]
	}
	return row
}

func (result *Result) append(zone *geojson.Feature, row stats.Row, preserveFeatures bool) {
	result.Rows = append(result.Rows, row)

	feature := geojson.NewFeature(zone.Geometry)
	if preserveFeatures {
		for key, value := range zone.Properties {
			feature.Properties[key] = value
		}
	}
	for key, value := range row {
		feature.Properties[key] = value
	}
	result.GeoJSON.Append(feature)
}

func isPolygonal(geometry orb.Geometry) bool {
	switch geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	default:
		return false
	}
}

func contains(geometry orb.Geometry, point orb.Point) bool {
	if !geometry.Bound().Contains(point) {
		return false
	}

	switch geometry := geometry.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geometry, point)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geometry, point)
	default:
		return false
	}
}

// SquareMetersToKilometers converts an area from m² to km².
func SquareMetersToKilometers(squareMeters float64) float64 {
	return squareMeters / 1_000_000
}

// RoundHalfUp rounds to the nearest integer, with halves rounded towards positive infinity.
func RoundHalfUp(value float64) float64 {
	return math.Floor(value + 0.5)
}
