package boundary

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// AppendBoundaryProperties returns copies of the given features, each with the properties of the
// boundary feature it belongs to added. A feature belongs to the boundary with the same admin code,
// or else to the boundary containing the feature's centroid. Properties already on the feature are
// kept as they are.
func (set FeatureSet) AppendBoundaryProperties(features []*geojson.Feature) []*geojson.Feature {
	appended := make([]*geojson.Feature, 0, len(features))

	for _, feature := range features {
		if feature == nil {
			continue
		}

		copied := *feature
		copied.Properties = feature.Properties.Clone()
		if copied.Properties == nil {
			copied.Properties = make(geojson.Properties)
		}

		if boundary, found := set.correlate(feature); found {
			for key, value := range boundary.Properties {
				if _, exists := copied.Properties[key]; !exists {
					copied.Properties[key] = value
				}
			}
		}

		appended = append(appended, &copied)
	}

	return appended
}

func (set FeatureSet) correlate(feature *geojson.Feature) (*geojson.Feature, bool) {
	if set.AdminCode != "" {
		if code, ok := feature.Properties[set.AdminCode]; ok {
			for _, boundary := range set.Features() {
				if boundary != nil && ValuesEqual(code, boundary.Properties[set.AdminCode]) {
					return boundary, true
				}
			}
		}
	}

	point, ok := representativePoint(feature.Geometry)
	if !ok {
		return nil, false
	}
	return set.Containing(point)
}

// Containing returns the first boundary feature whose polygon contains the given point.
func (set FeatureSet) Containing(point orb.Point) (*geojson.Feature, bool) {
	for _, boundary := range set.Features() {
		if boundary == nil || boundary.Geometry == nil {
			continue
		}
		if !boundary.Geometry.Bound().Contains(point) {
			continue
		}

		switch geometry := boundary.Geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(geometry, point) {
				return boundary, true
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(geometry, point) {
				return boundary, true
			}
		}
	}

	return nil, false
}

func representativePoint(geometry orb.Geometry) (orb.Point, bool) {
	if geometry == nil {
		return orb.Point{}, false
	}
	if point, ok := geometry.(orb.Point); ok {
		return point, true
	}

	centroid, _ := planar.CentroidArea(geometry)
	return centroid, true
}
