package table

import (
	"encoding/json"
	"strconv"

	"github.com/paulmach/orb"
	"hermannm.dev/hazardanalysis/baseline"
)

// Row is one row of an analysis result table. The same row type is used for all analysis kinds.
type Row struct {
	// Zero-based position of the row in its table, as text. Not stable across regenerations.
	Key       string
	Name      string
	LocalName string
	// First vertex of the matched boundary feature, if any.
	Coordinates   *orb.Point
	BaselineValue baseline.Value
	// One value per requested statistic, 0 when the statistics row had none.
	Statistics map[string]float64
	// Pass-through columns copied verbatim from the statistics row.
	Extra map[string]any
}

const (
	ColumnKey           = "key"
	ColumnName          = "name"
	ColumnLocalName     = "localName"
	ColumnCoordinates   = "coordinates"
	ColumnBaselineValue = "baselineValue"
)

// MarshalJSON encodes the row as one flat object, with a field per statistic and extra column.
func (row Row) MarshalJSON() ([]byte, error) {
	object := make(map[string]any, 5+len(row.Statistics)+len(row.Extra))

	object[ColumnKey] = row.Key
	object[ColumnName] = row.Name
	object[ColumnLocalName] = row.LocalName
	for statistic, value := range row.Statistics {
		object[statistic] = value
	}
	object[ColumnBaselineValue] = row.BaselineValue
	if row.Coordinates != nil {
		object[ColumnCoordinates] = [2]float64{row.Coordinates.X(), row.Coordinates.Y()}
	}
	for column, value := range row.Extra {
		object[column] = value
	}

	return json.Marshal(object)
}

// Value returns the value of the given column for the row, or nil if it has none. Numeric values
// are returned as float64.
func (row Row) Value(column string) any {
	switch column {
	case ColumnKey:
		if index, err := strconv.Atoi(row.Key); err == nil {
			return float64(index)
		}
		return row.Key
	case ColumnName:
		return row.Name
	case ColumnLocalName:
		return row.LocalName
	case ColumnBaselineValue:
		if number, hasData := row.BaselineValue.Float(); hasData {
			return number
		}
		return nil
	}

	if value, ok := row.Statistics[column]; ok {
		return value
	}
	if value, ok := row.Extra[column]; ok {
		return value
	}
	return nil
}

// Column describes one displayed column of a result table.
type Column struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Columns returns the displayed columns of a table with the given statistics and extra columns:
// name and local name first, then extra columns, then statistics, then the baseline value if
// included.
func Columns(statistics []string, extraColumns []string, includeBaseline bool) []Column {
	columns := make([]Column, 0, 3+len(statistics)+len(extraColumns))
	columns = append(
		columns,
		Column{ID: ColumnName, Label: ColumnName},
		Column{ID: ColumnLocalName, Label: ColumnLocalName},
	)

	for _, extraColumn := range extraColumns {
		columns = append(columns, Column{ID: extraColumn, Label: extraColumn})
	}
	for _, statistic := range statistics {
		columns = append(columns, Column{ID: statistic, Label: statistic})
	}
	if includeBaseline {
		columns = append(columns, Column{ID: ColumnBaselineValue, Label: "Baseline"})
	}

	return columns
}
