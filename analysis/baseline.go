package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/hazardanalysis/boundary"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/legend"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/hazardanalysis/table"
	"hermannm.dev/wrap"
)

type BaselineParams struct {
	HazardLayerID string `json:"hazardLayerId"`
	// Boundary or admin-level data layer.
	BaselineLayerID string            `json:"baselineLayerId"`
	Extent          layers.Extent     `json:"extent"`
	Date            int64             `json:"date"`
	Statistic       stats.Aggregation `json:"statistic"`
	Threshold       stats.Threshold   `json:"threshold"`
}

func (params BaselineParams) Validate() error {
	var errs []error
	if params.HazardLayerID == "" {
		errs = append(errs, errors.New("missing hazard layer"))
	}
	if params.BaselineLayerID == "" {
		errs = append(errs, errors.New("missing baseline layer"))
	}
	if !params.Extent.IsValid() {
		errs = append(errs, fmt.Errorf("invalid extent %v", params.Extent))
	}
	if !params.Statistic.IsValid() {
		errs = append(errs, errors.New("missing or invalid statistic"))
	}
	if len(errs) > 0 {
		return wrap.Errors("invalid baseline analysis parameters", errs...)
	}
	return nil
}

// RunBaselineAnalysis computes statistics of a hazard raster per admin area, and joins them with the
// values of a baseline layer.
func (orchestrator *Orchestrator) RunBaselineAnalysis(
	ctx context.Context,
	params BaselineParams,
) (BaselineLayerResult, error) {
	return run(ctx, orchestrator.state, KindBaseline,
		func(ctx context.Context, meta ResultMeta) (BaselineLayerResult, error) {
			return orchestrator.baselineAnalysis(ctx, params, meta)
		},
	)
}

func (orchestrator *Orchestrator) baselineAnalysis(
	ctx context.Context,
	params BaselineParams,
	meta ResultMeta,
) (BaselineLayerResult, error) {
	if err := params.Validate(); err != nil {
		return BaselineLayerResult{}, err
	}

	hazardLayer, err := orchestrator.deps.Registry.WMSLayer(params.HazardLayerID)
	if err != nil {
		return BaselineLayerResult{}, wrap.Error(err, "invalid hazard layer")
	}

	baselineLayer, ok := orchestrator.deps.Registry.Get(params.BaselineLayerID)
	if !ok {
		return BaselineLayerResult{}, fmt.Errorf("baseline layer '%s' not found", params.BaselineLayerID)
	}
	switch baselineLayer.(type) {
	case layers.BoundaryLayer, layers.AdminLevelDataLayer:
	default:
		return BaselineLayerResult{}, fmt.Errorf(
			"layer '%s' of type %s cannot be used as a baseline layer",
			baselineLayer.LayerID(),
			baselineLayer.LayerType(),
		)
	}

	boundaryLayer, boundaries, err := orchestrator.deps.Boundaries.FeatureSet(
		ctx, layers.AdminLevelOf(baselineLayer),
	)
	if err != nil {
		return BaselineLayerResult{}, err
	}

	request := orchestrator.deps.Requests.Build(stats.RequestParams{
		Layer:    hazardLayer,
		Extent:   params.Extent,
		Date:     params.Date,
		Boundary: boundaryLayer,
	})

	rawRows, err := orchestrator.deps.Stats.Fetch(ctx, request)
	if err != nil {
		return BaselineLayerResult{}, err
	}
	rows := orchestrator.deps.Threshold(rawRows, hazardLayer, params.Statistic, params.Threshold)

	baselineData, err := orchestrator.deps.Baselines.Load(ctx, baselineLayer, params.Extent)
	if err != nil {
		return BaselineLayerResult{}, err
	}

	statistic := params.Statistic.String()
	features := featuresFromRows(rows, baselineData.Features, request.GroupBy, statistic)

	result := BaselineLayerResult{
		ResultMeta: meta,
		Rows: table.Generate(table.GenerateParams{
			Statistics:      []string{statistic},
			Rows:            rows,
			Boundaries:      boundaries,
			GroupBy:         request.GroupBy,
			BaselineRecords: baselineData.Records,
		}),
		FeatureCollection: features,
		HazardLayerID:     hazardLayer.ID,
		BaselineLayerID:   baselineLayer.LayerID(),
		Statistic:         params.Statistic,
		Threshold:         params.Threshold,
		Legend:            legend.FromFeatures(features.Features, statistic),
		LegendText:        hazardLayer.LegendText,
		GroupBy:           request.GroupBy,
		Date:              params.Date,
	}
	if !orchestrator.deps.IsProduction {
		result.RawAPIData = rawRows
	}

	return result, nil
}

// featuresFromRows returns copies of the baseline features that have a statistics row with the
// given statistic, with the row's values added to their properties.
func featuresFromRows(
	rows []stats.Row,
	baselineFeatures *geojson.FeatureCollection,
	groupBy string,
	statistic string,
) *geojson.FeatureCollection {
	collection := geojson.NewFeatureCollection()
	if baselineFeatures == nil {
		return collection
	}

	for _, feature := range baselineFeatures.Features {
		if feature == nil {
			continue
		}
		groupValue, ok := feature.Properties[groupBy]
		if !ok {
			continue
		}

		for _, row := range rows {
			rowValue, ok := row.Lookup(groupBy, false)
			if !ok || !boundary.ValuesEqual(rowValue, groupValue) {
				continue
			}
			if _, hasStatistic := row.Lookup(statistic, false); !hasStatistic {
				break
			}

			copied := *feature
			copied.Properties = make(geojson.Properties, len(feature.Properties)+len(row))
			for key, value := range feature.Properties {
				copied.Properties[key] = value
			}
			for key, value := range row {
				copied.Properties[key] = value
			}
			collection.Append(&copied)
			break
		}
	}

	return collection
}
