package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/google/uuid"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/db"
	"hermannm.dev/wrap"
)

func baselineMappings() *types.TypeMapping {
	mappings := new(types.TypeMapping)
	mappings.Properties = map[string]types.Property{
		"admin_key":  types.NewKeywordProperty(),
		"value":      types.NewKeywordProperty(),
		"row_number": types.NewLongNumberProperty(),
	}
	return mappings
}

func (elastic ElasticsearchDB) CreateBaselineTable(ctx context.Context, index string) error {
	_, err := elastic.client.Indices.Create(index).Mappings(baselineMappings()).Do(ctx)
	if err != nil {
		return wrapElasticErrorf(
			err, "Elasticsearch index creation request failed for index '%s'", index,
		)
	}

	return nil
}

func (elastic ElasticsearchDB) StoreBaselineRecords(
	ctx context.Context,
	index string,
	schema db.RecordSchema,
	data db.DataSource,
) (storedCount int, err error) {
	bulk, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: elastic.untypedClient,
		Index:  index,
	})
	if err != nil {
		return 0, wrap.Error(err, "failed to prepare bulk data insert")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var indexedCount atomic.Int64

	for {
		row, rowNumber, done, err := data.ReadRow()
		if done {
			break
		}
		if err != nil {
			return 0, wrap.Error(err, "failed to read row")
		}

		record, err := schema.ConvertRow(row, rowNumber)
		if err != nil {
			return 0, wrap.Errorf(err, "invalid baseline record in row %d", rowNumber)
		}

		id, err := uuid.NewUUID()
		if err != nil {
			return 0, wrap.Errorf(err, "failed to generate unique ID for row %d", rowNumber)
		}

		recordJSON, err := json.Marshal(record)
		if err != nil {
			return 0, wrap.Errorf(
				err, "failed to encode row %d to JSON for sending to Elasticsearch", rowNumber,
			)
		}

		if err := bulk.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: id.String(),
			Body:       bytes.NewReader(recordJSON),
			OnSuccess: func(
				context.Context,
				esutil.BulkIndexerItem,
				esutil.BulkIndexerResponseItem,
			) {
				indexedCount.Add(1)
			},
			OnFailure: func(
				ctx context.Context,
				item esutil.BulkIndexerItem,
				response esutil.BulkIndexerResponseItem,
				err error,
			) {
				if err == nil {
					err = errors.New(response.Error.Reason)
				}
				cancel(wrap.Errorf(err, "failed to insert row %d", rowNumber))
			},
		}); err != nil {
			return 0, wrap.Errorf(err, "failed to add row %d to bulk insert", rowNumber)
		}
	}

	if err := bulk.Close(ctx); err != nil {
		return 0, wrap.Error(err, "failed to finish bulk insert")
	}

	if err := ctx.Err(); err != nil {
		if cause := context.Cause(ctx); cause != nil {
			return 0, cause
		} else {
			return 0, wrap.Error(err, "bulk insert was canceled with error")
		}
	}

	if _, err := elastic.client.Indices.Refresh().Index(index).Do(ctx); err != nil {
		return 0, wrapElasticErrorf(err, "failed to refresh index '%s' after bulk insert", index)
	}

	storedCount = int(indexedCount.Load())
	log.Debug("stored baseline records", slog.String("index", index), slog.Int("count", storedCount))
	return storedCount, nil
}

const baselinePageSize = 5000

// Reads all records in row order, paging with search_after on the row number.
func (elastic ElasticsearchDB) GetBaselineRecords(
	ctx context.Context,
	index string,
) ([]db.BaselineRecord, error) {
	var records []db.BaselineRecord
	var searchAfter []types.FieldValue

	for {
		size := baselinePageSize
		response, err := elastic.client.Search().
			Index(index).
			Request(&search.Request{
				Query:       &types.Query{MatchAll: &types.MatchAllQuery{}},
				Size:        &size,
				Sort:        []types.SortCombinations{"row_number"},
				SearchAfter: searchAfter,
			}).
			Do(ctx)
		if err != nil {
			return nil, wrapElasticErrorf(
				err, "failed to get baseline records from index '%s'", index,
			)
		}

		hits := response.Hits.Hits
		for _, hit := range hits {
			var record db.BaselineRecord
			if err := json.Unmarshal(hit.Source_, &record); err != nil {
				return nil, wrap.Errorf(
					err, "failed to parse baseline record from index '%s'", index,
				)
			}
			records = append(records, record)
		}

		if len(hits) < baselinePageSize {
			break
		}
		searchAfter = hits[len(hits)-1].Sort
	}

	if records == nil {
		records = []db.BaselineRecord{}
	}
	return records, nil
}
