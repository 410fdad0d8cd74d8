package stats

import "hermannm.dev/hazardanalysis/layers"

// Threshold limits the statistic values kept in an analysis. Both bounds are inclusive.
type Threshold struct {
	Above *float64 `json:"above,omitempty"`
	Below *float64 `json:"below,omitempty"`
}

func (threshold Threshold) Contains(value float64) bool {
	if threshold.Above != nil && value < *threshold.Above {
		return false
	}
	if threshold.Below != nil && value > *threshold.Below {
		return false
	}
	return true
}

// ThresholdTransform post-processes raw statistics rows before they are joined to boundaries.
type ThresholdTransform func(
	rows []Row,
	layer layers.WMSLayer,
	statistic Aggregation,
	threshold Threshold,
) []Row

// ScaleAndFilter is the default ThresholdTransform. It applies the layer's scale and offset to each
// row's statistic, and drops rows whose statistic is missing or outside the threshold.
// The given rows are not modified.
func ScaleAndFilter(
	rows []Row,
	layer layers.WMSLayer,
	statistic Aggregation,
	threshold Threshold,
) []Row {
	key := statistic.String()
	filtered := make([]Row, 0, len(rows))

	for _, row := range rows {
		raw, ok := row.Lookup(key, false)
		if !ok {
			continue
		}
		value, ok := ToFloat(raw)
		if !ok {
			continue
		}

		value = ScaleValue(value, layer.WCSConfig)
		if !threshold.Contains(value) {
			continue
		}

		scaled := make(Row, len(row))
		for column, columnValue := range row {
			scaled[column] = columnValue
		}
		scaled[key] = value
		filtered = append(filtered, scaled)
	}

	return filtered
}

func ScaleValue(value float64, config *layers.WCSConfig) float64 {
	scale, offset := config.ScaleAndOffset()
	return value*scale + offset
}
