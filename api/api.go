package api

import (
	"context"
	"fmt"
	"net/http"

	"hermannm.dev/hazardanalysis/analysis"
	"hermannm.dev/hazardanalysis/config"
	"hermannm.dev/hazardanalysis/db"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/metrics"
)

type Orchestrator interface {
	RunBaselineAnalysis(
		ctx context.Context,
		params analysis.BaselineParams,
	) (analysis.BaselineLayerResult, error)

	RunExposureAnalysis(
		ctx context.Context,
		params analysis.ExposureParams,
	) (analysis.ExposedPopulationResult, error)

	RunPolygonAnalysis(
		ctx context.Context,
		params analysis.PolygonParams,
	) (analysis.PolygonAnalysisResult, error)

	State() *analysis.State
}

// BaselineCache drops cached baseline data after the data of a layer has been replaced.
type BaselineCache interface {
	Invalidate(layerID string)
}

type AnalysisAPI struct {
	orchestrator Orchestrator
	// Nil if no database is configured, in which case baseline uploads are rejected.
	db        db.BaselineDB
	baselines BaselineCache
	registry  *layers.Registry
	router    *http.ServeMux
	config    config.API
}

func NewAnalysisAPI(
	orchestrator Orchestrator,
	db db.BaselineDB,
	baselines BaselineCache,
	registry *layers.Registry,
	router *http.ServeMux,
	config config.API,
) AnalysisAPI {
	api := AnalysisAPI{
		orchestrator: orchestrator,
		db:           db,
		baselines:    baselines,
		registry:     registry,
		router:       router,
		config:       config,
	}

	api.router.HandleFunc("/analysis/baseline", api.RunBaselineAnalysis)
	api.router.HandleFunc("/analysis/exposure", api.RunExposureAnalysis)
	api.router.HandleFunc("/analysis/polygon", api.RunPolygonAnalysis)
	api.router.HandleFunc("/analysis/state", api.GetAnalysisState)
	api.router.HandleFunc("/analysis/result", api.HandleAnalysisResult)
	api.router.HandleFunc("/baseline/upload", api.UploadBaselineCSV)
	api.router.Handle("/metrics", metrics.Handler())

	return api
}

func (api AnalysisAPI) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	api.router.ServeHTTP(res, req)
}

func (api AnalysisAPI) ListenAndServe() error {
	return http.ListenAndServe(fmt.Sprintf(":%s", api.config.Port), api.router)
}
