package zonal

import (
	"regexp"
	"strings"

	"hermannm.dev/hazardanalysis/stats"
)

// Statistics of reshaped rows.
const (
	Area       = "area"
	Percentage = "percentage"
)

var columnPrefix = regexp.MustCompile(`(?i)^[a-z]+:`)

// ReshapeRows converts overlay output rows to plain statistics rows: area in whole km² (rounded half
// up), percentage as-is, and every other column with its prefix stripped.
func ReshapeRows(rows []stats.Row) []stats.Row {
	reshaped := make([]stats.Row, 0, len(rows))

	for _, row := range rows {
		reshapedRow := make(stats.Row, len(row))

		for column, value := range row {
			if strings.HasPrefix(column, StatPrefix) {
				continue
			}
			reshapedRow[columnPrefix.ReplaceAllString(column, "")] = value
		}

		if squareMeters, ok := stats.ToFloat(row[StatArea]); ok {
			reshapedRow[Area] = RoundHalfUp(SquareMetersToKilometers(squareMeters))
		} else {
			reshapedRow[Area] = nil
		}
		reshapedRow[Percentage] = row[StatPercentage]

		reshaped = append(reshaped, reshapedRow)
	}

	return reshaped
}
