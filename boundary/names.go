package boundary

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/stats"
)

const NameSeparator = ", "

// FullLocationName joins the values of the given admin level properties of a feature, from the
// coarsest level up to and including adminIndex. Absent or empty values are skipped.
func FullLocationName(levelNames []string, feature *geojson.Feature, adminIndex int) string {
	if feature == nil {
		return ""
	}

	parts := make([]string, 0, adminIndex+1)
	for i, levelName := range levelNames {
		if i > adminIndex {
			break
		}

		value, ok := feature.Properties[levelName]
		if !ok || value == nil {
			continue
		}

		var part string
		switch value := value.(type) {
		case string:
			part = value
		default:
			if number, ok := stats.ToFloat(value); ok {
				part = fmt.Sprint(number)
			} else {
				part = fmt.Sprint(value)
			}
		}

		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, NameSeparator)
}

// Names returns the full name and local name of a feature up to the given admin level index.
func (set FeatureSet) Names(feature *geojson.Feature, adminIndex int) (name string, localName string) {
	return FullLocationName(set.AdminLevelNames, feature, adminIndex),
		FullLocationName(set.AdminLevelLocalNames, feature, adminIndex)
}
