package table

import (
	"strconv"

	"hermannm.dev/hazardanalysis/baseline"
	"hermannm.dev/hazardanalysis/boundary"
	"hermannm.dev/hazardanalysis/stats"
)

type GenerateParams struct {
	Statistics []string
	Rows       []stats.Row
	Boundaries boundary.FeatureSet
	GroupBy    string
	// Nil if the analysis has no baseline layer, in which case every baseline value is NoData.
	BaselineRecords []baseline.Record
	ExtraColumns    []string
	// Reads statistic values and match keys from the nested properties of feature-like rows.
	ExposureMode bool
}

// Generate builds one table row per statistics row, in input order. Rows that match no boundary
// feature are kept, with blank names.
func Generate(params GenerateParams) []Row {
	adminIndex := params.Boundaries.AdminIndex(params.GroupBy)

	tableRows := make([]Row, 0, len(params.Rows))
	for i, statsRow := range params.Rows {
		tableRow := Row{
			Key:           strconv.Itoa(i),
			BaselineValue: baseline.NoData,
			Statistics:    make(map[string]float64, len(params.Statistics)),
		}

		feature, found := params.Boundaries.Match(statsRow, params.GroupBy, params.ExposureMode)
		if found {
			tableRow.Name, tableRow.LocalName = params.Boundaries.Names(feature, adminIndex)

			if coordinates, ok := boundary.FirstCoordinate(feature); ok {
				tableRow.Coordinates = &coordinates
			}

			if adminCode, ok := baseline.AdminCodeString(
				feature.Properties[params.Boundaries.AdminCode],
			); ok {
				tableRow.BaselineValue = baseline.Lookup(params.BaselineRecords, adminCode)
			}
		}

		for _, statistic := range params.Statistics {
			var number float64
			if value, ok := statsRow.Lookup(statistic, params.ExposureMode); ok {
				number, _ = stats.ToFloat(value)
			}
			tableRow.Statistics[statistic] = number
		}

		for _, extraColumn := range params.ExtraColumns {
			if value, ok := statsRow[extraColumn]; ok {
				if tableRow.Extra == nil {
					tableRow.Extra = make(map[string]any, len(params.ExtraColumns))
				}
				tableRow.Extra[extraColumn] = value
			}
		}

		tableRows = append(tableRows, tableRow)
	}

	return tableRows
}
