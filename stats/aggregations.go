package stats

import "hermannm.dev/enumnames"

// Aggregation is a statistic computed per zone by the statistics service.
type Aggregation int8

const (
	AggregationMean Aggregation = iota + 1
	AggregationMedian
	AggregationMax
	AggregationMin
	AggregationSum
	AggregationStd
	AggregationArea
	AggregationPercentage
)

var aggregationMap = enumnames.NewMap(map[Aggregation]string{
	AggregationMean:       "mean",
	AggregationMedian:     "median",
	AggregationMax:        "max",
	AggregationMin:        "min",
	AggregationSum:        "sum",
	AggregationStd:        "std",
	AggregationArea:       "area",
	AggregationPercentage: "percentage",
})

func (aggregation Aggregation) IsValid() bool {
	return aggregationMap.ContainsEnumValue(aggregation)
}

func (aggregation Aggregation) String() string {
	return aggregationMap.GetNameOrFallback(aggregation, "INVALID_AGGREGATION")
}

func (aggregation Aggregation) MarshalJSON() ([]byte, error) {
	return aggregationMap.MarshalToNameJSON(aggregation)
}

func (aggregation *Aggregation) UnmarshalJSON(bytes []byte) error {
	return aggregationMap.UnmarshalFromNameJSON(bytes, aggregation)
}
