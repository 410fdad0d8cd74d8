package api

import (
	"context"
	"encoding/json"
	"net/http"

	"hermannm.dev/hazardanalysis/analysis"
	"hermannm.dev/hazardanalysis/table"
)

// Expects:
//   - body: JSON-encoded analysis.BaselineParams
//
// Returns:
//   - JSON-encoded analysis.BaselineLayerResult
func (api AnalysisAPI) RunBaselineAnalysis(res http.ResponseWriter, req *http.Request) {
	if !requireMethod(res, req, http.MethodPost) {
		return
	}

	var params analysis.BaselineParams
	if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
		sendClientError(res, err, "failed to parse baseline analysis parameters from request body")
		return
	}
	if err := params.Validate(); err != nil {
		sendClientError(res, err, "")
		return
	}

	result, err := api.orchestrator.RunBaselineAnalysis(flowContext(req), params)
	if err != nil {
		sendServerError(res, err, "baseline analysis failed")
		return
	}

	sendJSON(res, result)
}

// Expects:
//   - body: JSON-encoded analysis.ExposureParams
//
// Returns:
//   - JSON-encoded analysis.ExposedPopulationResult
func (api AnalysisAPI) RunExposureAnalysis(res http.ResponseWriter, req *http.Request) {
	if !requireMethod(res, req, http.MethodPost) {
		return
	}

	var params analysis.ExposureParams
	if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
		sendClientError(res, err, "failed to parse exposure analysis parameters from request body")
		return
	}
	if err := params.Validate(); err != nil {
		sendClientError(res, err, "")
		return
	}

	result, err := api.orchestrator.RunExposureAnalysis(flowContext(req), params)
	if err != nil {
		sendServerError(res, err, "exposure analysis failed")
		return
	}

	sendJSON(res, result)
}

// Expects:
//   - body: JSON-encoded analysis.PolygonParams
//
// Returns:
//   - JSON-encoded analysis.PolygonAnalysisResult
func (api AnalysisAPI) RunPolygonAnalysis(res http.ResponseWriter, req *http.Request) {
	if !requireMethod(res, req, http.MethodPost) {
		return
	}

	var params analysis.PolygonParams
	if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
		sendClientError(res, err, "failed to parse polygon analysis parameters from request body")
		return
	}
	if err := params.Validate(); err != nil {
		sendClientError(res, err, "")
		return
	}

	result, err := api.orchestrator.RunPolygonAnalysis(flowContext(req), params)
	if err != nil {
		sendServerError(res, err, "polygon analysis failed")
		return
	}

	sendJSON(res, result)
}

// Analysis runs are not canceled when the client disconnects, so that the run still lands in the
// analysis state.
func flowContext(req *http.Request) context.Context {
	return context.WithoutCancel(req.Context())
}

// Returns:
//   - JSON object of analysis.FlowState, keyed by analysis kind name
func (api AnalysisAPI) GetAnalysisState(res http.ResponseWriter, req *http.Request) {
	if !requireMethod(res, req, http.MethodGet) {
		return
	}

	snapshot := api.orchestrator.State().Snapshot()

	flows := make(map[string]analysis.FlowState, len(snapshot))
	for kind, flow := range snapshot {
		flows[kind.String()] = flow
	}

	sendJSON(res, flows)
}

func (api AnalysisAPI) HandleAnalysisResult(res http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		api.GetAnalysisResult(res, req)
	case http.MethodDelete:
		api.ClearAnalysisResult(res, req)
	default:
		sendMethodNotAllowed(res, req, http.MethodGet, http.MethodDelete)
	}
}

// Expects:
//   - optional query parameter 'kind': analysis kind to get the result of (defaults to the most
//     recent result of any kind)
//   - optional query parameter 'sortBy': table column to sort result rows by
//   - optional query parameter 'order': 'asc' or 'desc' (defaults to 'asc')
//
// Returns:
//   - JSON-encoded analysis.Result
func (api AnalysisAPI) GetAnalysisResult(res http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	state := api.orchestrator.State()

	var result analysis.Result
	var found bool
	if kindName := query.Get("kind"); kindName != "" {
		kind, err := analysis.ParseKind(kindName)
		if err != nil {
			sendClientError(res, err, "")
			return
		}
		result, found = state.Result(kind)
	} else {
		result, found = state.Latest()
	}

	if !found {
		sendError(res, nil, "no analysis result available", http.StatusNotFound)
		return
	}

	if sortBy := query.Get("sortBy"); sortBy != "" {
		order := table.SortOrderAscending
		if orderName := query.Get("order"); orderName != "" {
			var err error
			if order, err = table.ParseSortOrder(orderName); err != nil {
				sendClientError(res, err, "")
				return
			}
		}
		result = result.SortRows(sortBy, order)
	}

	sendJSON(res, result)
}

// Expects:
//   - optional query parameter 'kind': analysis kind to clear (defaults to all kinds)
func (api AnalysisAPI) ClearAnalysisResult(res http.ResponseWriter, req *http.Request) {
	state := api.orchestrator.State()

	kindName := req.URL.Query().Get("kind")
	if kindName == "" {
		state.ClearAll()
		res.WriteHeader(http.StatusNoContent)
		return
	}

	kind, err := analysis.ParseKind(kindName)
	if err != nil {
		sendClientError(res, err, "")
		return
	}

	state.Clear(kind)
	res.WriteHeader(http.StatusNoContent)
}
