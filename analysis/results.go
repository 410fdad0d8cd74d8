package analysis

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/legend"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/hazardanalysis/table"
)

// Result is the outcome of one analysis run: one of BaselineLayerResult, ExposedPopulationResult
// or PolygonAnalysisResult.
type Result interface {
	Kind() Kind
	Meta() ResultMeta
	TableRows() []table.Row
	// SortRows returns a copy of the result with its table rows sorted by the given column.
	SortRows(column string, order table.SortOrder) Result
}

type ResultMeta struct {
	ID uuid.UUID `json:"id"`
	// Generation of the run that produced the result.
	Token Token `json:"token"`
}

func (meta ResultMeta) Meta() ResultMeta {
	return meta
}

type BaselineLayerResult struct {
	ResultMeta
	Rows []table.Row `json:"tableData"`
	// Baseline layer features that had statistics, with the statistics in their properties.
	FeatureCollection *geojson.FeatureCollection `json:"featureCollection"`
	HazardLayerID     string                     `json:"hazardLayerId"`
	BaselineLayerID   string                     `json:"baselineLayerId"`
	Statistic         stats.Aggregation          `json:"statistic"`
	Threshold         stats.Threshold            `json:"threshold"`
	Legend            legend.Legend              `json:"legend"`
	LegendText        string                     `json:"legendText"`
	GroupBy           string                     `json:"groupBy"`
	// Statistics rows as returned by the service, kept outside production for debugging.
	RawAPIData []stats.Row `json:"rawApiData,omitempty"`
	Date       int64       `json:"date"`
}

func (BaselineLayerResult) Kind() Kind {
	return KindBaseline
}

func (result BaselineLayerResult) TableRows() []table.Row {
	return result.Rows
}

func (result BaselineLayerResult) SortRows(column string, order table.SortOrder) Result {
	result.Rows = table.Sort(result.Rows, column, order)
	return result
}

type ExposedPopulationResult struct {
	ResultMeta
	Rows              []table.Row                `json:"tableData"`
	FeatureCollection *geojson.FeatureCollection `json:"featureCollection"`
	// Population raster the exposure is computed from.
	PopulationLayerID string            `json:"populationLayerId"`
	Statistic         stats.Aggregation `json:"statistic"`
	Legend            legend.Legend     `json:"legend"`
	LegendText        string            `json:"legendText"`
	GroupBy           string            `json:"groupBy"`
	// Feature property the exposure is counted by.
	Key  string `json:"key"`
	Date int64  `json:"date"`
}

func (ExposedPopulationResult) Kind() Kind {
	return KindExposure
}

func (result ExposedPopulationResult) TableRows() []table.Row {
	return result.Rows
}

func (result ExposedPopulationResult) SortRows(column string, order table.SortOrder) Result {
	result.Rows = table.Sort(result.Rows, column, order)
	return result
}

type PolygonAnalysisResult struct {
	ResultMeta
	Rows              []table.Row                `json:"tableData"`
	Columns           []table.Column             `json:"tableColumns"`
	FeatureCollection *geojson.FeatureCollection `json:"featureCollection"`
	HazardLayerID     string                     `json:"hazardLayerId"`
	AdminLevel        int                        `json:"adminLevel"`
	Statistic         stats.Aggregation          `json:"statistic"`
	// Legend over the percentage of each zone covered by a hazard class.
	Legend     legend.Legend `json:"legend"`
	LegendText string        `json:"legendText"`
	// Name property of the admin level that zones are grouped by.
	GroupBy    string `json:"groupBy"`
	BoundaryID string `json:"boundaryId"`
	StartDate  int64  `json:"startDate"`
	EndDate    int64  `json:"endDate"`
}

func (PolygonAnalysisResult) Kind() Kind {
	return KindPolygon
}

func (result PolygonAnalysisResult) TableRows() []table.Row {
	return result.Rows
}

func (result PolygonAnalysisResult) SortRows(column string, order table.SortOrder) Result {
	result.Rows = table.Sort(result.Rows, column, order)
	return result
}
