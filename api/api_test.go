package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"hermannm.dev/hazardanalysis/analysis"
	"hermannm.dev/hazardanalysis/baseline"
	"hermannm.dev/hazardanalysis/config"
	"hermannm.dev/hazardanalysis/db"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/hazardanalysis/table"
)

type stubOrchestrator struct {
	state          *analysis.State
	err            error
	baselineParams analysis.BaselineParams
	// Error of the context that the last run was given.
	ctxErr error
}

func (orchestrator *stubOrchestrator) RunBaselineAnalysis(
	ctx context.Context,
	params analysis.BaselineParams,
) (analysis.BaselineLayerResult, error) {
	orchestrator.baselineParams = params
	orchestrator.ctxErr = ctx.Err()

	token := orchestrator.state.Begin(analysis.KindBaseline)
	if orchestrator.err != nil {
		orchestrator.state.Reject(analysis.KindBaseline, token, orchestrator.err)
		return analysis.BaselineLayerResult{}, orchestrator.err
	}

	result := analysis.BaselineLayerResult{
		ResultMeta: analysis.ResultMeta{Token: token},
		Rows: []table.Row{
			{Key: "0", Name: "B", BaselineValue: baseline.Number(2)},
			{Key: "1", Name: "A", BaselineValue: baseline.Number(5)},
		},
		HazardLayerID:   params.HazardLayerID,
		BaselineLayerID: params.BaselineLayerID,
		Statistic:       params.Statistic,
	}
	orchestrator.state.Fulfill(analysis.KindBaseline, token, result)
	return result, nil
}

func (orchestrator *stubOrchestrator) RunExposureAnalysis(
	context.Context,
	analysis.ExposureParams,
) (analysis.ExposedPopulationResult, error) {
	return analysis.ExposedPopulationResult{}, errors.New("not implemented in test")
}

func (orchestrator *stubOrchestrator) RunPolygonAnalysis(
	context.Context,
	analysis.PolygonParams,
) (analysis.PolygonAnalysisResult, error) {
	return analysis.PolygonAnalysisResult{}, errors.New("not implemented in test")
}

func (orchestrator *stubOrchestrator) State() *analysis.State {
	return orchestrator.state
}

type memoryDB struct {
	tables map[string][]db.BaselineRecord
}

func (memory *memoryDB) CreateBaselineTable(_ context.Context, table string) error {
	memory.tables[table] = []db.BaselineRecord{}
	return nil
}

func (memory *memoryDB) StoreBaselineRecords(
	_ context.Context,
	table string,
	schema db.RecordSchema,
	data db.DataSource,
) (int, error) {
	count := 0
	for {
		row, rowNumber, done, err := data.ReadRow()
		if err != nil {
			return count, err
		}
		if done {
			return count, nil
		}

		record, err := schema.ConvertRow(row, rowNumber)
		if err != nil {
			return count, err
		}
		memory.tables[table] = append(memory.tables[table], record)
		count++
	}
}

func (memory *memoryDB) GetBaselineRecords(
	_ context.Context,
	table string,
) ([]db.BaselineRecord, error) {
	return memory.tables[table], nil
}

func (memory *memoryDB) DropTable(_ context.Context, table string) (bool, error) {
	_, exists := memory.tables[table]
	delete(memory.tables, table)
	return !exists, nil
}

type invalidations []string

func (invalidated *invalidations) Invalidate(layerID string) {
	*invalidated = append(*invalidated, layerID)
}

type testAPI struct {
	api          AnalysisAPI
	orchestrator *stubOrchestrator
	db           *memoryDB
	invalidated  *invalidations
}

func newTestAPI(t *testing.T, withDB bool) testAPI {
	t.Helper()

	registry, err := layers.NewRegistry(
		layers.BoundaryLayer{
			ID:                   "admin_boundaries",
			Path:                 "admin_boundaries.json",
			AdminCode:            "adm_code",
			AdminLevelNames:      []string{"state_name"},
			AdminLevelLocalNames: []string{"state_local"},
		},
		layers.AdminLevelDataLayer{
			ID:         "population",
			Table:      "population",
			AdminLevel: 1,
			AdminCode:  "adm",
			DataField:  "pop",
		},
		layers.AdminLevelDataLayer{
			ID:         "households",
			Table:      "households",
			AdminLevel: 1,
			AdminCode:  "adm",
			DataField:  "count",
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	setup := testAPI{
		orchestrator: &stubOrchestrator{state: analysis.NewState()},
		invalidated:  &invalidations{},
	}

	var database db.BaselineDB
	if withDB {
		setup.db = &memoryDB{tables: make(map[string][]db.BaselineRecord)}
		database = setup.db
	}

	setup.api = NewAnalysisAPI(
		setup.orchestrator,
		database,
		setup.invalidated,
		registry,
		http.NewServeMux(),
		config.API{Port: "0"},
	)
	return setup
}

func (setup testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	setup.api.ServeHTTP(recorder, req)
	return recorder
}

const validBaselineBody = `{
	"hazardLayerId": "rainfall",
	"baselineLayerId": "population",
	"extent": [-10, -10, 10, 10],
	"date": 1700000000000,
	"statistic": "mean"
}`

func TestRunBaselineAnalysis(t *testing.T) {
	setup := newTestAPI(t, false)

	res := setup.do(httptest.NewRequest(
		http.MethodPost, "/analysis/baseline", strings.NewReader(validBaselineBody),
	))
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body)
	}

	params := setup.orchestrator.baselineParams
	if params.Statistic != stats.AggregationMean || params.Extent != (layers.Extent{-10, -10, 10, 10}) {
		t.Errorf("expected parameters to be decoded from body, got %+v", params)
	}

	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["statistic"] != "mean" || body["baselineLayerId"] != "population" {
		t.Errorf("unexpected response body %v", body)
	}
	if rows, ok := body["tableData"].([]any); !ok || len(rows) != 2 {
		t.Errorf("expected 2 table rows in response, got %v", body["tableData"])
	}
}

func TestRunBaselineAnalysisInvalidParams(t *testing.T) {
	setup := newTestAPI(t, false)

	for _, body := range []string{
		`not json`,
		`{"hazardLayerId": "rainfall", "statistic": "mean"}`,
		`{"hazardLayerId": "rainfall", "baselineLayerId": "population", "extent": [-10, -10, 10, 10], "statistic": "mode"}`,
	} {
		res := setup.do(httptest.NewRequest(
			http.MethodPost, "/analysis/baseline", strings.NewReader(body),
		))
		if res.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for body %s, got %d", body, res.Code)
		}
	}

	if setup.orchestrator.state.Get(analysis.KindBaseline).Status != analysis.StatusIdle {
		t.Error("expected no analysis to run for invalid parameters")
	}
}

func TestRunBaselineAnalysisFailure(t *testing.T) {
	setup := newTestAPI(t, false)
	setup.orchestrator.err = errors.New("statistics service unavailable")

	res := setup.do(httptest.NewRequest(
		http.MethodPost, "/analysis/baseline", strings.NewReader(validBaselineBody),
	))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "statistics service unavailable") {
		t.Errorf("expected service error in response, got %q", res.Body)
	}
}

func TestRunBaselineAnalysisAfterClientDisconnect(t *testing.T) {
	setup := newTestAPI(t, false)

	req := httptest.NewRequest(
		http.MethodPost, "/analysis/baseline", strings.NewReader(validBaselineBody),
	)
	ctx, cancel := context.WithCancel(req.Context())
	cancel()

	setup.do(req.WithContext(ctx))

	if setup.orchestrator.ctxErr != nil {
		t.Errorf("expected run to ignore client cancellation, got %v", setup.orchestrator.ctxErr)
	}
	if status := setup.orchestrator.state.Get(analysis.KindBaseline).Status; status != analysis.StatusFulfilled {
		t.Errorf("expected run to be fulfilled, got %s", status)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	setup := newTestAPI(t, false)

	res := setup.do(httptest.NewRequest(http.MethodGet, "/analysis/baseline", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", res.Code)
	}
	if allow := res.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow header '%s', got '%s'", http.MethodPost, allow)
	}
}

func TestGetAnalysisState(t *testing.T) {
	setup := newTestAPI(t, false)
	setup.do(httptest.NewRequest(
		http.MethodPost, "/analysis/baseline", strings.NewReader(validBaselineBody),
	))

	res := setup.do(httptest.NewRequest(http.MethodGet, "/analysis/state", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}

	var flows map[string]struct {
		Status string `json:"status"`
		Token  int    `json:"token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &flows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statuses := make(map[string]string, len(flows))
	for kind, flow := range flows {
		statuses[kind] = flow.Status
	}
	expected := map[string]string{"baseline": "fulfilled", "exposure": "idle", "polygon": "idle"}
	if !reflect.DeepEqual(statuses, expected) {
		t.Errorf("expected statuses %v, got %v", expected, statuses)
	}
}

func TestGetAnalysisResult(t *testing.T) {
	setup := newTestAPI(t, false)

	res := setup.do(httptest.NewRequest(http.MethodGet, "/analysis/result", nil))
	if res.Code != http.StatusNotFound {
		t.Errorf("expected status 404 before any analysis, got %d", res.Code)
	}

	setup.do(httptest.NewRequest(
		http.MethodPost, "/analysis/baseline", strings.NewReader(validBaselineBody),
	))

	for _, test := range []struct {
		query        string
		expectedKeys []string
	}{
		{"", []string{"0", "1"}},
		{"?kind=baseline", []string{"0", "1"}},
		{"?kind=baseline&sortBy=name", []string{"1", "0"}},
		{"?sortBy=baselineValue&order=desc", []string{"1", "0"}},
	} {
		t.Run(test.query, func(t *testing.T) {
			res := setup.do(httptest.NewRequest(http.MethodGet, "/analysis/result"+test.query, nil))
			if res.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body)
			}

			var body struct {
				TableData []struct {
					Key string `json:"key"`
				} `json:"tableData"`
			}
			if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			keys := make([]string, 0, len(body.TableData))
			for _, row := range body.TableData {
				keys = append(keys, row.Key)
			}
			if !reflect.DeepEqual(keys, test.expectedKeys) {
				t.Errorf("expected row order %v, got %v", test.expectedKeys, keys)
			}
		})
	}

	for _, query := range []string{"?kind=flood", "?sortBy=name&order=sideways"} {
		res := setup.do(httptest.NewRequest(http.MethodGet, "/analysis/result"+query, nil))
		if res.Code != http.StatusBadRequest {
			t.Errorf("expected status 400 for query %s, got %d", query, res.Code)
		}
	}

	res = setup.do(httptest.NewRequest(http.MethodGet, "/analysis/result?kind=exposure", nil))
	if res.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for kind without result, got %d", res.Code)
	}
}

func TestClearAnalysisResult(t *testing.T) {
	setup := newTestAPI(t, false)
	setup.do(httptest.NewRequest(
		http.MethodPost, "/analysis/baseline", strings.NewReader(validBaselineBody),
	))

	res := setup.do(httptest.NewRequest(http.MethodDelete, "/analysis/result?kind=baseline", nil))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", res.Code)
	}
	if _, found := setup.orchestrator.state.Result(analysis.KindBaseline); found {
		t.Error("expected baseline result to be cleared")
	}

	res = setup.do(httptest.NewRequest(http.MethodDelete, "/analysis/result", nil))
	if res.Code != http.StatusNoContent {
		t.Errorf("expected status 204 when clearing all results, got %d", res.Code)
	}
}

func newUploadRequest(
	t *testing.T,
	table string,
	adminKeyColumn string,
	valueColumn string,
	csv string,
) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("adminKeyColumn", adminKeyColumn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := writer.WriteField("valueColumn", valueColumn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	file, err := writer.CreateFormFile("csvFile", "baseline.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := file.Write([]byte(csv)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/baseline/upload?table="+table, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadBaselineCSV(t *testing.T) {
	setup := newTestAPI(t, true)
	setup.db.tables["population"] = []db.BaselineRecord{{AdminKey: "99", Value: "1"}}

	res := setup.do(newUploadRequest(
		t, "population", "adm", "pop", "adm;pop;note\n34;7;a\n35;8;b\n",
	))
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body)
	}

	var result BaselineUploadResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StoredCount != 2 {
		t.Errorf("expected 2 stored records, got %d", result.StoredCount)
	}

	expectedRecords := []db.BaselineRecord{
		{AdminKey: "34", Value: "7", RowNumber: 2},
		{AdminKey: "35", Value: "8", RowNumber: 3},
	}
	if !reflect.DeepEqual(setup.db.tables["population"], expectedRecords) {
		t.Errorf(
			"expected previous records to be replaced by %v, got %v",
			expectedRecords, setup.db.tables["population"],
		)
	}

	if !reflect.DeepEqual([]string(*setup.invalidated), []string{"population"}) {
		t.Errorf("expected only population layer to be invalidated, got %v", *setup.invalidated)
	}
}

func TestUploadBaselineCSVInvalid(t *testing.T) {
	setup := newTestAPI(t, true)

	for name, req := range map[string]*http.Request{
		"missing table":  newUploadRequest(t, "", "adm", "pop", "adm,pop\n34,7\n"),
		"missing column": newUploadRequest(t, "population", "adm", "total", "adm,pop\n34,7\n"),
		"same columns":   newUploadRequest(t, "population", "adm", "adm", "adm,pop\n34,7\n"),
	} {
		t.Run(name, func(t *testing.T) {
			res := setup.do(req)
			if res.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", res.Code, res.Body)
			}
		})
	}

	if len(*setup.invalidated) != 0 {
		t.Errorf("expected no layers to be invalidated, got %v", *setup.invalidated)
	}
}

func TestUploadBaselineCSVStoreFailure(t *testing.T) {
	setup := newTestAPI(t, true)
	setup.db.tables["population"] = []db.BaselineRecord{{AdminKey: "99", Value: "1"}}

	res := setup.do(newUploadRequest(
		t, "population", "adm", "pop", "adm;pop\n34;7\n ;8\n36;9\n",
	))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d: %s", res.Code, res.Body)
	}

	if !reflect.DeepEqual([]string(*setup.invalidated), []string{"population"}) {
		t.Errorf(
			"expected population layer to be invalidated after failed store, got %v",
			*setup.invalidated,
		)
	}
}

func TestUploadBaselineCSVWithoutDatabase(t *testing.T) {
	setup := newTestAPI(t, false)

	res := setup.do(newUploadRequest(t, "population", "adm", "pop", "adm,pop\n34,7\n"))
	if res.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without database, got %d", res.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	setup := newTestAPI(t, false)

	res := setup.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.Code)
	}
}
