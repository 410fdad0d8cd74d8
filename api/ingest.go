package api

import (
	"context"
	"errors"
	"net/http"

	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/csv"
	"hermannm.dev/hazardanalysis/db"
	"hermannm.dev/wrap"
)

const maxUploadMemory = 32 << 20

type BaselineUploadResult struct {
	Table       string `json:"table"`
	StoredCount int    `json:"storedCount"`
	// Baseline layers whose cached data was dropped, since they read from the replaced table.
	UpdatedLayers []string `json:"updatedLayers"`
}

// Replaces the records of a baseline table with the rows of an uploaded CSV file.
//
// Expects:
//   - query parameter 'table': name of table to replace
//   - multipart form field 'adminKeyColumn': CSV column with the admin code of each row
//   - multipart form field 'valueColumn': CSV column with the baseline value of each row
//   - multipart form field 'csvFile': CSV file to read records from
//
// Returns:
//   - JSON-encoded BaselineUploadResult
func (api AnalysisAPI) UploadBaselineCSV(res http.ResponseWriter, req *http.Request) {
	if !requireMethod(res, req, http.MethodPost) {
		return
	}

	if api.db == nil {
		sendClientError(res, errors.New("no database configured"), "baseline upload unavailable")
		return
	}

	table := req.URL.Query().Get("table")
	if table == "" {
		sendClientError(res, nil, "missing 'table' query parameter in request")
		return
	}

	if err := req.ParseMultipartForm(maxUploadMemory); err != nil {
		sendClientError(res, err, "failed to parse multipart form")
		return
	}

	csvFile, _, err := req.FormFile("csvFile")
	if err != nil {
		sendClientError(res, err, "failed to get CSV file from request")
		return
	}
	defer csvFile.Close()

	csvReader, err := csv.NewReader(csvFile)
	if err != nil {
		sendClientError(res, err, "failed to read uploaded CSV file")
		return
	}

	header, err := csvReader.ReadHeaderRow()
	if err != nil {
		sendClientError(res, err, "failed to read header row of uploaded CSV")
		return
	}

	schema, err := db.NewRecordSchema(
		header, req.FormValue("adminKeyColumn"), req.FormValue("valueColumn"),
	)
	if err != nil {
		sendClientError(res, err, "invalid baseline columns")
		return
	}

	storedCount, err := api.replaceBaselineTable(req.Context(), table, schema, csvReader)
	// A failed replace may leave the table empty or partially stored, so cached baselines are
	// dropped either way
	updatedLayers := api.invalidateBaselines(table)
	if err != nil {
		sendServerError(res, err, "failed to replace baseline table")
		return
	}

	result := BaselineUploadResult{Table: table, StoredCount: storedCount, UpdatedLayers: updatedLayers}

	log.Infof("Stored %d baseline records in table '%s'", storedCount, table)

	sendJSON(res, result)
}

func (api AnalysisAPI) replaceBaselineTable(
	ctx context.Context,
	table string,
	schema db.RecordSchema,
	data db.DataSource,
) (storedCount int, err error) {
	if _, err := api.db.DropTable(ctx, table); err != nil {
		return 0, wrap.Error(err, "failed to drop previous baseline table")
	}
	if err := api.db.CreateBaselineTable(ctx, table); err != nil {
		return 0, wrap.Error(err, "failed to create baseline table")
	}

	storedCount, err = api.db.StoreBaselineRecords(ctx, table, schema, data)
	if err != nil {
		return storedCount, wrap.Error(err, "failed to store baseline records from uploaded CSV")
	}
	return storedCount, nil
}

// Returns the IDs of the invalidated layers.
func (api AnalysisAPI) invalidateBaselines(table string) []string {
	layerIDs := []string{}
	for _, layer := range api.registry.DataLayersWithTable(table) {
		api.baselines.Invalidate(layer.ID)
		layerIDs = append(layerIDs, layer.ID)
	}
	return layerIDs
}
