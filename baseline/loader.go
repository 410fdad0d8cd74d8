package baseline

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/boundary"
	"hermannm.dev/hazardanalysis/db"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/metrics"
	"hermannm.dev/wrap"
)

// Data is the loaded data of a baseline layer.
type Data struct {
	// Boundary features that have a baseline value, with the value in their "data" property.
	Features *geojson.FeatureCollection
	// Empty for boundary-typed baseline layers.
	Records []Record
}

// WithinExtent returns the data with only the features intersecting the extent, or the data as it
// is if the extent is invalid. The cached feature collection is never modified.
func (data Data) WithinExtent(extent layers.Extent) Data {
	if !extent.IsValid() || data.Features == nil {
		return data
	}

	filtered := geojson.NewFeatureCollection()
	for _, feature := range data.Features.Features {
		if intersectsExtent(feature, extent) {
			filtered.Append(feature)
		}
	}
	data.Features = filtered
	return data
}

func intersectsExtent(feature *geojson.Feature, extent layers.Extent) bool {
	if feature == nil {
		return false
	}
	return !extent.IsValid() || feature.Geometry == nil ||
		feature.Geometry.Bound().Intersects(extent.Bound())
}

// Property key that joined baseline values are stored under on boundary features.
const DataProperty = "data"

type RecordSource interface {
	GetBaselineRecords(ctx context.Context, table string) ([]db.BaselineRecord, error)
}

type BoundaryResolver interface {
	FeatureSet(
		ctx context.Context,
		adminLevel int,
	) (layers.BoundaryLayer, boundary.FeatureSet, error)

	LayerFeatureSet(ctx context.Context, layer layers.BoundaryLayer) (boundary.FeatureSet, error)
}

// Loader loads and caches the data of baseline layers.
type Loader struct {
	records    RecordSource
	files      layers.FileReader
	boundaries BoundaryResolver
	cache      *layers.DataCache[Data]
}

// NewLoader creates a baseline loader. The record source may be nil, in which case admin-level data
// layers can only be read from files.
func NewLoader(records RecordSource, files layers.FileReader, boundaries BoundaryResolver) *Loader {
	return &Loader{
		records:    records,
		files:      files,
		boundaries: boundaries,
		cache:      layers.NewDataCache[Data](),
	}
}

// Load returns the data of the given baseline layer, loading it if not already cached.
// Features outside the extent are left out if the extent is valid. The cache holds the layer's
// full data, so the extent may differ between calls.
func (loader *Loader) Load(ctx context.Context, layer layers.Layer, extent layers.Extent) (Data, error) {
	if data, loaded := loader.cache.Get(layer.LayerID()); loaded {
		return data.WithinExtent(extent), nil
	}

	data, err := loader.load(ctx, layer)
	if err != nil {
		metrics.LayerLoadsTotal.WithLabelValues(layer.LayerType().String(), "failure").Inc()
		return Data{}, wrap.Errorf(err, "failed to load baseline layer '%s'", layer.LayerID())
	}
	metrics.LayerLoadsTotal.WithLabelValues(layer.LayerType().String(), "success").Inc()

	loader.cache.Set(layer.LayerID(), data)
	log.Info(
		"loaded baseline layer",
		slog.String("layer", layer.LayerID()),
		slog.Int("records", len(data.Records)),
		slog.Int("features", len(data.Features.Features)),
	)
	return data.WithinExtent(extent), nil
}

// Invalidate drops the cached data of a layer, so it is reloaded on next use.
func (loader *Loader) Invalidate(layerID string) {
	loader.cache.Delete(layerID)
}

func (loader *Loader) load(ctx context.Context, layer layers.Layer) (Data, error) {
	switch layer := layer.(type) {
	case layers.BoundaryLayer:
		features, err := loader.boundaries.LayerFeatureSet(ctx, layer)
		if err != nil {
			return Data{}, err
		}
		collection := geojson.NewFeatureCollection()
		collection.Features = features.Features()
		return Data{Features: collection}, nil
	case layers.AdminLevelDataLayer:
		records, err := loader.loadRecords(ctx, layer)
		if err != nil {
			return Data{}, err
		}

		_, features, err := loader.boundaries.FeatureSet(ctx, layer.AdminLevel)
		if err != nil {
			return Data{}, err
		}

		joined := JoinRecords(features, records, layers.Extent{})
		return Data{Features: joined, Records: records}, nil
	default:
		return Data{}, fmt.Errorf(
			"layers of type %s cannot be used as baseline layers", layer.LayerType(),
		)
	}
}

func (loader *Loader) loadRecords(
	ctx context.Context,
	layer layers.AdminLevelDataLayer,
) ([]Record, error) {
	if layer.Table != "" && loader.records != nil {
		dbRecords, err := loader.records.GetBaselineRecords(ctx, layer.Table)
		if err != nil {
			return nil, err
		}

		return RecordsFromDB(dbRecords), nil
	}

	if layer.Path == "" {
		return nil, fmt.Errorf(
			"layer is stored in table '%s', but no database is configured", layer.Table,
		)
	}

	data, err := loader.files.Read(ctx, layer.Path)
	if err != nil {
		return nil, err
	}
	return ParseRecords(data, layer.AdminCode, layer.DataField)
}

// RecordsFromDB converts database records in the order of their source rows, so that prefix
// lookups match the same record no matter what order the database returned them in.
func RecordsFromDB(dbRecords []db.BaselineRecord) []Record {
	ordered := slices.Clone(dbRecords)
	slices.SortStableFunc(ordered, func(first db.BaselineRecord, second db.BaselineRecord) int {
		return cmp.Compare(first.RowNumber, second.RowNumber)
	})

	records := make([]Record, 0, len(ordered))
	for _, dbRecord := range ordered {
		records = append(records, Record{AdminKey: dbRecord.AdminKey, Value: dbRecord.Value})
	}
	return records
}

// ParseRecords parses baseline records from a JSON array of objects, or from an object with such an
// array in its "DataList" field. Objects without an admin code are skipped.
func ParseRecords(data []byte, adminCodeField string, dataField string) ([]Record, error) {
	var objects []map[string]any

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			DataList []map[string]any `json:"DataList"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, wrap.Error(err, "failed to parse baseline records")
		}
		if wrapper.DataList == nil {
			return nil, errors.New("expected baseline record object to have a 'DataList' field")
		}
		objects = wrapper.DataList
	} else if err := json.Unmarshal(trimmed, &objects); err != nil {
		return nil, wrap.Error(err, "failed to parse baseline records")
	}

	records := make([]Record, 0, len(objects))
	for _, object := range objects {
		adminKey, ok := AdminCodeString(object[adminCodeField])
		if !ok {
			continue
		}
		records = append(records, Record{AdminKey: adminKey, Value: object[dataField]})
	}
	return records, nil
}

// JoinRecords returns copies of the boundary features that have a baseline value, with the value
// set in their DataProperty.
func JoinRecords(
	features boundary.FeatureSet,
	records []Record,
	extent layers.Extent,
) *geojson.FeatureCollection {
	joined := geojson.NewFeatureCollection()

	for _, feature := range features.Features() {
		if feature == nil {
			continue
		}

		adminCode, ok := AdminCodeString(feature.Properties[features.AdminCode])
		if !ok {
			continue
		}

		value := Lookup(records, adminCode)
		number, hasData := value.Float()
		if !hasData {
			continue
		}

		if !intersectsExtent(feature, extent) {
			continue
		}

		copied := *feature
		copied.Properties = make(geojson.Properties, len(feature.Properties)+1)
		for key, propertyValue := range feature.Properties {
			copied.Properties[key] = propertyValue
		}
		copied.Properties[DataProperty] = number
		joined.Append(&copied)
	}

	return joined
}
