package boundary

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/layers"
)

// FeatureSet is the loaded polygon features of a boundary layer, along with the property keys
// describing its admin hierarchy.
type FeatureSet struct {
	Collection *geojson.FeatureCollection
	// Ordered coarsest to finest.
	AdminLevelNames []string
	// Parallel to AdminLevelNames.
	AdminLevelLocalNames []string
	AdminCode            string
}

func NewFeatureSet(
	collection *geojson.FeatureCollection,
	adminLevelNames []string,
	adminLevelLocalNames []string,
	adminCode string,
) (FeatureSet, error) {
	if len(adminLevelNames) != len(adminLevelLocalNames) {
		return FeatureSet{}, fmt.Errorf(
			"admin level names and local names must have equal length, got %d and %d",
			len(adminLevelNames),
			len(adminLevelLocalNames),
		)
	}
	if collection == nil {
		collection = geojson.NewFeatureCollection()
	}

	return FeatureSet{
		Collection:           collection,
		AdminLevelNames:      adminLevelNames,
		AdminLevelLocalNames: adminLevelLocalNames,
		AdminCode:            adminCode,
	}, nil
}

// NewLayerFeatureSet creates a feature set with the admin hierarchy of the given boundary layer.
func NewLayerFeatureSet(
	layer layers.BoundaryLayer,
	collection *geojson.FeatureCollection,
) (FeatureSet, error) {
	return NewFeatureSet(
		collection, layer.AdminLevelNames, layer.AdminLevelLocalNames, layer.AdminCode,
	)
}

func (set FeatureSet) Features() []*geojson.Feature {
	if set.Collection == nil {
		return nil
	}
	return set.Collection.Features
}

// AdminIndex returns the index of the given property key in the admin level names, or the index of
// the finest level if it is not an admin level name.
func (set FeatureSet) AdminIndex(groupBy string) int {
	for i, name := range set.AdminLevelNames {
		if name == groupBy {
			return i
		}
	}
	return len(set.AdminLevelNames) - 1
}

// FirstCoordinate returns the first vertex of the feature's geometry, if it has one.
func FirstCoordinate(feature *geojson.Feature) (orb.Point, bool) {
	if feature == nil || feature.Geometry == nil {
		return orb.Point{}, false
	}

	switch geometry := feature.Geometry.(type) {
	case orb.Point:
		return geometry, true
	case orb.MultiPoint:
		if len(geometry) > 0 {
			return geometry[0], true
		}
	case orb.LineString:
		if len(geometry) > 0 {
			return geometry[0], true
		}
	case orb.Ring:
		if len(geometry) > 0 {
			return geometry[0], true
		}
	case orb.Polygon:
		if len(geometry) > 0 && len(geometry[0]) > 0 {
			return geometry[0][0], true
		}
	case orb.MultiPolygon:
		if len(geometry) > 0 && len(geometry[0]) > 0 && len(geometry[0][0]) > 0 {
			return geometry[0][0][0], true
		}
	case orb.MultiLineString:
		if len(geometry) > 0 && len(geometry[0]) > 0 {
			return geometry[0][0], true
		}
	}

	return orb.Point{}, false
}
