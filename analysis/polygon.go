package analysis

import (
	"context"
	"errors"
	"fmt"

	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/legend"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/hazardanalysis/table"
	"hermannm.dev/hazardanalysis/zonal"
	"hermannm.dev/wrap"
)

type PolygonParams struct {
	HazardLayerID string `json:"hazardLayerId"`
	AdminLevel    int    `json:"adminLevel"`
	// Defaults to the boundary layer of the admin level.
	BoundaryLayerID string        `json:"boundaryLayerId,omitempty"`
	Extent          layers.Extent `json:"extent"`
	StartDate       int64         `json:"startDate"`
	EndDate         int64         `json:"endDate"`
}

func (params PolygonParams) Validate() error {
	var errs []error
	if params.HazardLayerID == "" {
		errs = append(errs, errors.New("missing hazard layer"))
	}
	if params.AdminLevel < 1 {
		errs = append(errs, fmt.Errorf("invalid admin level %d", params.AdminLevel))
	}
	if params.EndDate < params.StartDate {
		errs = append(errs, errors.New("end date is before start date"))
	}
	if len(errs) > 0 {
		return wrap.Errors("invalid polygon analysis parameters", errs...)
	}
	return nil
}

var polygonStatistics = []string{zonal.Area, zonal.Percentage}

// RunPolygonAnalysis computes how much of each admin area is covered by each class of a classified
// hazard layer, over a date range.
func (orchestrator *Orchestrator) RunPolygonAnalysis(
	ctx context.Context,
	params PolygonParams,
) (PolygonAnalysisResult, error) {
	return run(ctx, orchestrator.state, KindPolygon,
		func(ctx context.Context, meta ResultMeta) (PolygonAnalysisResult, error) {
			return orchestrator.polygonAnalysis(ctx, params, meta)
		},
	)
}

func (orchestrator *Orchestrator) polygonAnalysis(
	ctx context.Context,
	params PolygonParams,
	meta ResultMeta,
) (PolygonAnalysisResult, error) {
	if err := params.Validate(); err != nil {
		return PolygonAnalysisResult{}, err
	}

	hazardLayer, err := orchestrator.deps.Registry.WMSLayer(params.HazardLayerID)
	if err != nil {
		return PolygonAnalysisResult{}, wrap.Error(err, "invalid hazard layer")
	}

	var boundaryLayer layers.BoundaryLayer
	if params.BoundaryLayerID != "" {
		boundaryLayer, err = orchestrator.deps.Registry.Boundary(params.BoundaryLayerID)
		if err != nil {
			return PolygonAnalysisResult{}, wrap.Error(err, "invalid boundary layer")
		}
	} else {
		boundaryLayer = orchestrator.deps.Registry.BoundaryByAdminLevel(params.AdminLevel)
	}

	boundaries, err := orchestrator.deps.Boundaries.LayerFeatureSet(ctx, boundaryLayer)
	if err != nil {
		return PolygonAnalysisResult{}, err
	}

	adminLevelName, err := adminLevelNameOf(boundaryLayer, params.AdminLevel)
	if err != nil {
		return PolygonAnalysisResult{}, err
	}

	classes, err := orchestrator.deps.Geometry.FetchClassifiedGeometry(
		ctx, hazardLayer, params.StartDate, params.EndDate,
	)
	if err != nil {
		return PolygonAnalysisResult{}, err
	}

	classProperties := hazardLayer.ClassProperties()

	overlay, err := orchestrator.deps.Overlayer.Overlay(ctx, zonal.Input{
		Zones:           boundaries.Collection,
		ZoneProperties:  []string{adminLevelName},
		Classes:         classes,
		ClassProperties: classProperties,
		Options: zonal.Options{
			DissolveClasses:             true,
			PreserveFeatures:            false,
			RemoveFeaturesWithNoOverlap: true,
			IncludeNullClassRows:        false,
		},
	})
	if err != nil {
		return PolygonAnalysisResult{}, wrap.Error(err, "polygon overlay failed")
	}

	rows := zonal.ReshapeRows(overlay.Rows)

	percentages := make([]float64, 0, len(rows))
	for _, row := range rows {
		if percentage, ok := stats.ToFloat(row[zonal.Percentage]); ok {
			percentages = append(percentages, percentage)
		}
	}

	return PolygonAnalysisResult{
		ResultMeta: meta,
		Rows: table.Generate(table.GenerateParams{
			Statistics:   polygonStatistics,
			Rows:         rows,
			Boundaries:   boundaries,
			GroupBy:      adminLevelName,
			ExtraColumns: classProperties,
		}),
		Columns:           table.Columns(polygonStatistics, classProperties, false),
		FeatureCollection: overlay.GeoJSON,
		HazardLayerID:     hazardLayer.ID,
		AdminLevel:        params.AdminLevel,
		Statistic:         stats.AggregationPercentage,
		Legend:            legend.FromValues(percentages),
		LegendText:        hazardLayer.LegendText,
		GroupBy:           adminLevelName,
		BoundaryID:        boundaryLayer.ID,
		StartDate:         params.StartDate,
		EndDate:           params.EndDate,
	}, nil
}

// adminLevelNameOf returns the name property of the given admin level (1 being the coarsest) in the
// boundary layer.
func adminLevelNameOf(layer layers.BoundaryLayer, adminLevel int) (string, error) {
	if adminLevel < 1 || adminLevel > len(layer.AdminLevelNames) {
		return "", fmt.Errorf(
			"boundary layer '%s' has %d admin levels, cannot use admin level %d",
			layer.ID,
			len(layer.AdminLevelNames),
			adminLevel,
		)
	}
	return layer.AdminLevelNames[adminLevel-1], nil
}
