package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/baseline"
	"hermannm.dev/hazardanalysis/boundary"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/metrics"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/hazardanalysis/wfs"
	"hermannm.dev/hazardanalysis/zonal"
)

type StatsFetcher interface {
	Fetch(ctx context.Context, request stats.Request) ([]stats.Row, error)
	FetchFeatures(ctx context.Context, request stats.Request) ([]*geojson.Feature, error)
}

type BoundaryResolver interface {
	FeatureSet(
		ctx context.Context,
		adminLevel int,
	) (layers.BoundaryLayer, boundary.FeatureSet, error)

	Primary(ctx context.Context) (layers.BoundaryLayer, boundary.FeatureSet, error)

	LayerFeatureSet(ctx context.Context, layer layers.BoundaryLayer) (boundary.FeatureSet, error)
}

type BaselineLoader interface {
	Load(ctx context.Context, layer layers.Layer, extent layers.Extent) (baseline.Data, error)
}

type Dependencies struct {
	Registry   *layers.Registry
	Boundaries BoundaryResolver
	Baselines  BaselineLoader
	Stats      StatsFetcher
	Requests   stats.RequestBuilder
	// Defaults to stats.ScaleAndFilter.
	Threshold stats.ThresholdTransform
	Overlayer zonal.Overlayer
	Geometry  wfs.Fetcher
	// Raw statistics rows are only kept on results outside production.
	IsProduction bool
}

// Orchestrator runs the analysis flows, and records their progress and results in its State.
type Orchestrator struct {
	deps  Dependencies
	state *State
}

func NewOrchestrator(deps Dependencies, state *State) *Orchestrator {
	if deps.Threshold == nil {
		deps.Threshold = stats.ScaleAndFilter
	}
	if state == nil {
		state = NewState()
	}
	return &Orchestrator{deps: deps, state: state}
}

func (orchestrator *Orchestrator) State() *State {
	return orchestrator.state
}

// run executes one analysis flow, tracking it in the state under a new token. The flow's outcome is
// returned even if a newer run of the same kind has since started and its outcome was discarded.
func run[ResultT Result](
	ctx context.Context,
	state *State,
	kind Kind,
	flow func(ctx context.Context, meta ResultMeta) (ResultT, error),
) (ResultT, error) {
	token := state.Begin(kind)
	meta := ResultMeta{ID: uuid.New(), Token: token}

	log.Info(
		"starting analysis",
		slog.String("kind", kind.String()),
		slog.Uint64("token", uint64(token)),
		slog.String("requestId", meta.ID.String()),
	)

	start := time.Now()
	result, err := flow(ctx, meta)
	duration := time.Since(start)
	metrics.AnalysisDurationMs.WithLabelValues(kind.String()).Observe(float64(duration.Milliseconds()))

	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues(kind.String(), StatusRejected.String()).Inc()
		if applied := state.Reject(kind, token, err); !applied {
			log.Infof("discarded error of superseded %s analysis %d", kind, token)
		}
		log.ErrorCause(err, fmt.Sprintf("%s analysis failed", kind))
		return result, err
	}

	metrics.AnalysisRunsTotal.WithLabelValues(kind.String(), StatusFulfilled.String()).Inc()
	if applied := state.Fulfill(kind, token, result); !applied {
		log.Infof("discarded result of superseded %s analysis %d", kind, token)
	}

	log.Info(
		"finished analysis",
		slog.String("kind", kind.String()),
		slog.Uint64("token", uint64(token)),
		slog.String("requestId", meta.ID.String()),
		slog.Int("rows", len(result.TableRows())),
		slog.Duration("duration", duration),
	)
	return result, nil
}
