package stats

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Row is one result unit of a statistics computation. Rows are either flat maps of column to value,
// or GeoJSON feature-like maps with the columns nested under "properties".
type Row map[string]any

// Properties returns the nested properties of a feature-like row, or nil if it has none.
func (row Row) Properties() map[string]any {
	switch properties := row["properties"].(type) {
	case map[string]any:
		return properties
	case geojson.Properties:
		return properties
	default:
		return nil
	}
}

// Lookup returns the non-null value of the given column, read from the nested properties if nested
// is true, else from the top level of the row.
func (row Row) Lookup(key string, nested bool) (value any, ok bool) {
	source := map[string]any(row)
	if nested {
		source = row.Properties()
	}
	if source == nil {
		return nil, false
	}

	value, ok = source[key]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// RowFromFeature converts a GeoJSON feature to a nested row.
func RowFromFeature(feature *geojson.Feature) Row {
	row := Row{"type": "Feature", "properties": map[string]any(feature.Properties)}
	if feature.Geometry != nil {
		row["geometry"] = geojson.NewGeometry(feature.Geometry)
	}
	return row
}

// ToFloat converts a numeric value (or numeric string) from decoded JSON to float64. NaN and
// infinite values are treated as non-numeric.
func ToFloat(value any) (float64, bool) {
	float, ok := toFloat(value)
	if !ok || math.IsNaN(float) || math.IsInf(float, 0) {
		return 0, false
	}
	return float, true
}

func toFloat(value any) (float64, bool) {
	switch value := value.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int32:
		return float64(value), true
	case int64:
		return float64(value), true
	case uint:
		return float64(value), true
	case uint32:
		return float64(value), true
	case uint64:
		return float64(value), true
	case json.Number:
		float, err := value.Float64()
		return float, err == nil
	case string:
		float, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return float, err == nil
	default:
		return 0, false
	}
}
