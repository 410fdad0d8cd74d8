package boundary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/metrics"
	"hermannm.dev/wrap"
)

type Loader interface {
	LoadBoundary(ctx context.Context, layer layers.BoundaryLayer) (FeatureSet, error)
}

// FileLoader loads boundary layers from GeoJSON files.
type FileLoader struct {
	files layers.FileReader
}

func NewFileLoader(files layers.FileReader) FileLoader {
	return FileLoader{files: files}
}

func (loader FileLoader) LoadBoundary(
	ctx context.Context,
	layer layers.BoundaryLayer,
) (FeatureSet, error) {
	data, err := loader.files.Read(ctx, layer.Path)
	if err != nil {
		return FeatureSet{}, err
	}

	collection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return FeatureSet{}, wrap.Errorf(err, "failed to parse GeoJSON of boundary layer '%s'", layer.ID)
	}

	return NewLayerFeatureSet(layer, collection)
}

// Resolver finds the boundary layer for an admin level, and its loaded features.
type Resolver struct {
	registry *layers.Registry
	cache    *layers.DataCache[FeatureSet]
	loader   Loader
}

// NewResolver creates a boundary resolver. If loader is nil, only boundaries that have been added
// to the resolver's cache can be resolved.
func NewResolver(registry *layers.Registry, loader Loader) *Resolver {
	return &Resolver{
		registry: registry,
		cache:    layers.NewDataCache[FeatureSet](),
		loader:   loader,
	}
}

// FeatureSet returns the boundary layer for the given admin level, along with its features.
func (resolver *Resolver) FeatureSet(
	ctx context.Context,
	adminLevel int,
) (layers.BoundaryLayer, FeatureSet, error) {
	layer := resolver.registry.BoundaryByAdminLevel(adminLevel)
	features, err := resolver.LayerFeatureSet(ctx, layer)
	return layer, features, err
}

// Primary returns the primary boundary layer along with its features.
func (resolver *Resolver) Primary(ctx context.Context) (layers.BoundaryLayer, FeatureSet, error) {
	layer := resolver.registry.PrimaryBoundary()
	features, err := resolver.LayerFeatureSet(ctx, layer)
	return layer, features, err
}

// LayerFeatureSet returns the features of the given boundary layer, loading them if not cached.
func (resolver *Resolver) LayerFeatureSet(
	ctx context.Context,
	layer layers.BoundaryLayer,
) (FeatureSet, error) {
	if features, loaded := resolver.cache.Get(layer.ID); loaded {
		return features, nil
	}

	if resolver.loader == nil {
		return FeatureSet{}, fmt.Errorf("boundary layer '%s' not loaded", layer.ID)
	}

	features, err := resolver.loader.LoadBoundary(ctx, layer)
	if err != nil {
		metrics.LayerLoadsTotal.WithLabelValues(layers.LayerTypeBoundary.String(), "failure").Inc()
		return FeatureSet{}, wrap.Errorf(err, "boundary layer '%s' not loaded", layer.ID)
	}
	metrics.LayerLoadsTotal.WithLabelValues(layers.LayerTypeBoundary.String(), "success").Inc()

	resolver.cache.Set(layer.ID, features)
	log.Info(
		"loaded boundary layer",
		slog.String("layer", layer.ID),
		slog.Int("features", len(features.Features())),
	)
	return features, nil
}

// Cached returns the features of the given boundary layer if they have been loaded.
func (resolver *Resolver) Cached(layerID string) (FeatureSet, bool) {
	return resolver.cache.Get(layerID)
}

// Store adds already loaded boundary features to the cache.
func (resolver *Resolver) Store(layerID string, features FeatureSet) {
	resolver.cache.Set(layerID, features)
}
