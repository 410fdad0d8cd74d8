package boundary

import (
	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/stats"
)

// Match finds the boundary feature that a statistics row belongs to. Rows are matched on the
// groupBy property first, then on the name property of the finest admin level in scope. If several
// features match, the first one wins. In exposure mode, row values are read from the row's nested
// properties.
func (set FeatureSet) Match(
	row stats.Row,
	groupBy string,
	exposureMode bool,
) (feature *geojson.Feature, found bool) {
	candidateKeys := make([]string, 0, 2)
	if groupBy != "" {
		candidateKeys = append(candidateKeys, groupBy)
	}
	if adminIndex := set.AdminIndex(groupBy); adminIndex >= 0 {
		if adminLevelName := set.AdminLevelNames[adminIndex]; adminLevelName != groupBy {
			candidateKeys = append(candidateKeys, adminLevelName)
		}
	}

	for _, key := range candidateKeys {
		rowValue, ok := row.Lookup(key, exposureMode)
		if !ok {
			continue
		}

		for _, feature := range set.Features() {
			if feature == nil {
				continue
			}
			if featureValue, ok := feature.Properties[key]; ok && ValuesEqual(rowValue, featureValue) {
				return feature, true
			}
		}
	}

	return nil, false
}

// ValuesEqual compares decoded JSON values. Numbers are compared by value regardless of Go type,
// but a number never equals a string.
func ValuesEqual(first any, second any) bool {
	if first == nil || second == nil {
		return false
	}

	firstString, firstIsString := first.(string)
	secondString, secondIsString := second.(string)
	if firstIsString || secondIsString {
		return firstIsString && secondIsString && firstString == secondString
	}

	firstNumber, firstIsNumber := stats.ToFloat(first)
	secondNumber, secondIsNumber := stats.ToFloat(second)
	if firstIsNumber || secondIsNumber {
		return firstIsNumber && secondIsNumber && firstNumber == secondNumber
	}

	firstBool, firstIsBool := first.(bool)
	secondBool, secondIsBool := second.(bool)
	return firstIsBool && secondIsBool && firstBool == secondBool
}
