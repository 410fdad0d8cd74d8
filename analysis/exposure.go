package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/legend"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/hazardanalysis/table"
	"hermannm.dev/wrap"
)

const defaultExposureLegendText = "Exposure Analysis"

// ExposureDefinition describes how exposure is computed from a population raster.
type ExposureDefinition struct {
	// ID of the population raster layer.
	ID string `json:"id"`
	// Feature property of the WFS layer that exposure is counted by.
	Key string `json:"key"`
	// Mask combination expression, defaults to stats.DefaultMaskCalcExpr.
	Calc string `json:"calc,omitempty"`
}

type ExposureParams struct {
	Exposure  ExposureDefinition `json:"exposure"`
	Statistic stats.Aggregation  `json:"statistic"`
	Extent    layers.Extent      `json:"extent"`
	Date      int64              `json:"date"`
	// Optional layer that the population is weighted by.
	WFSLayerID string `json:"wfsLayerId,omitempty"`
	// Optional layer that the population raster is masked by.
	MaskLayerID string `json:"maskLayerId,omitempty"`
}

func (params ExposureParams) Validate() error {
	var errs []error
	if params.Exposure.ID == "" {
		errs = append(errs, errors.New("missing exposure layer"))
	}
	if !params.Extent.IsValid() {
		errs = append(errs, fmt.Errorf("invalid extent %v", params.Extent))
	}
	if !params.Statistic.IsValid() {
		errs = append(errs, errors.New("missing or invalid statistic"))
	}
	if len(errs) > 0 {
		return wrap.Errors("invalid exposure analysis parameters", errs...)
	}
	return nil
}

// RunExposureAnalysis computes the population exposed per admin area, optionally weighted by the
// features of a WFS layer and masked by another raster.
func (orchestrator *Orchestrator) RunExposureAnalysis(
	ctx context.Context,
	params ExposureParams,
) (ExposedPopulationResult, error) {
	return run(ctx, orchestrator.state, KindExposure,
		func(ctx context.Context, meta ResultMeta) (ExposedPopulationResult, error) {
			return orchestrator.exposureAnalysis(ctx, params, meta)
		},
	)
}

func (orchestrator *Orchestrator) exposureAnalysis(
	ctx context.Context,
	params ExposureParams,
	meta ResultMeta,
) (ExposedPopulationResult, error) {
	if err := params.Validate(); err != nil {
		return ExposedPopulationResult{}, err
	}

	boundaryLayer, boundaries, err := orchestrator.deps.Boundaries.Primary(ctx)
	if err != nil {
		return ExposedPopulationResult{}, err
	}

	populationLayer, err := orchestrator.deps.Registry.WMSLayer(params.Exposure.ID)
	if err != nil {
		return ExposedPopulationResult{}, wrap.Error(err, "invalid exposure layer")
	}

	requestParams := stats.RequestParams{
		Layer:      populationLayer,
		Extent:     params.Extent,
		Date:       params.Date,
		Boundary:   boundaryLayer,
		GeojsonOut: true,
	}

	legendText := defaultExposureLegendText
	if params.WFSLayerID != "" {
		wfsLayer, err := orchestrator.deps.Registry.WMSLayer(params.WFSLayerID)
		if err != nil {
			return ExposedPopulationResult{}, wrap.Error(err, "invalid WFS layer")
		}
		requestParams.WFS = stats.NewWFSParams(wfsLayer, params.Date, params.Exposure.Key)
		if wfsLayer.Title != "" {
			legendText = wfsLayer.Title
		}
	}
	if params.MaskLayerID != "" {
		maskLayer, err := orchestrator.deps.Registry.WMSLayer(params.MaskLayerID)
		if err != nil {
			return ExposedPopulationResult{}, wrap.Error(err, "invalid mask layer")
		}
		requestParams.Mask = stats.NewMaskParams(
			maskLayer, params.Extent, params.Date, params.Exposure.Calc,
		)
	}

	request := orchestrator.deps.Requests.Build(requestParams)

	apiFeatures, err := orchestrator.deps.Stats.FetchFeatures(ctx, request)
	if err != nil {
		return ExposedPopulationResult{}, err
	}

	statistic := params.Statistic.String()
	features := scaleFeatureStatistics(apiFeatures, populationLayer.WCSConfig, statistic)
	withBoundaryProperties := boundaries.AppendBoundaryProperties(features)

	collection := geojson.NewFeatureCollection()
	rows := make([]stats.Row, 0, len(withBoundaryProperties))
	for _, feature := range withBoundaryProperties {
		collection.Append(feature)
		rows = append(rows, stats.RowFromFeature(feature))
	}

	return ExposedPopulationResult{
		ResultMeta: meta,
		Rows: table.Generate(table.GenerateParams{
			Statistics:   []string{statistic},
			Rows:         rows,
			Boundaries:   boundaries,
			GroupBy:      request.GroupBy,
			ExposureMode: true,
		}),
		FeatureCollection: collection,
		PopulationLayerID: populationLayer.ID,
		Statistic:         params.Statistic,
		Legend:            legend.FromFeatures(features, statistic),
		LegendText:        legendText,
		GroupBy:           request.GroupBy,
		Key:               params.Exposure.Key,
		Date:              params.Date,
	}, nil
}

// scaleFeatureStatistics returns copies of the features with the statistic scaled by the layer's
// scale and offset. Features without a numeric value for the statistic are dropped.
func scaleFeatureStatistics(
	features []*geojson.Feature,
	config *layers.WCSConfig,
	statistic string,
) []*geojson.Feature {
	scaled := make([]*geojson.Feature, 0, len(features))

	for _, feature := range features {
		if feature == nil {
			continue
		}
		value, ok := stats.ToFloat(feature.Properties[statistic])
		if !ok {
			continue
		}

		copied := *feature
		copied.Properties = make(geojson.Properties, len(feature.Properties))
		for key, propertyValue := range feature.Properties {
			copied.Properties[key] = propertyValue
		}
		copied.Properties[statistic] = stats.ScaleValue(value, config)
		scaled = append(scaled, &copied)
	}

	return scaled
}
