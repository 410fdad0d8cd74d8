package clickhouse

import (
	"context"
	"log/slog"

	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/db"
	"hermannm.dev/wrap"
)

func (clickhouse ClickHouseDB) CreateBaselineTable(ctx context.Context, table string) error {
	query, err := createBaselineTableQuery(table)
	if err != nil {
		return wrap.Error(err, "invalid table name")
	}

	if err := clickhouse.conn.Exec(ctx, query); err != nil {
		return wrap.Errorf(err, "ClickHouse table creation query failed for table '%s'", table)
	}

	return nil
}

// ClickHouse recommends keeping batch inserts between 10,000 and 100,000 rows:
// https://clickhouse.com/docs/en/cloud/bestpractices/bulk-inserts
const BatchInsertSize = 10000

func (clickhouse ClickHouseDB) StoreBaselineRecords(
	ctx context.Context,
	table string,
	schema db.RecordSchema,
	data db.DataSource,
) (storedCount int, err error) {
	query, err := insertBaselineRecordsQuery(table)
	if err != nil {
		return 0, wrap.Error(err, "invalid table name")
	}

	allRowsSent := false
	for !allRowsSent {
		batch, err := clickhouse.conn.PrepareBatch(ctx, query)
		if err != nil {
			return storedCount, wrap.Error(err, "failed to prepare batch data insert")
		}

		batchCount := 0
		for i := 0; i < BatchInsertSize; i++ {
			row, rowNumber, done, err := data.ReadRow()
			if done {
				allRowsSent = true
				break
			}
			if err != nil {
				return storedCount, wrap.Error(err, "failed to read row")
			}

			record, err := schema.ConvertRow(row, rowNumber)
			if err != nil {
				return storedCount, wrap.Errorf(err, "invalid baseline record in row %d", rowNumber)
			}

			if err := batch.Append(record.RowNumber, record.AdminKey, record.Value); err != nil {
				return storedCount, wrap.Errorf(
					err, "failed to add row %d to batch insert", rowNumber,
				)
			}
			batchCount++
		}

		if batchCount == 0 {
			if err := batch.Abort(); err != nil {
				log.Debugf("failed to abort empty batch insert: %v", err)
			}
			break
		}

		if err := batch.Send(); err != nil {
			return storedCount, wrap.Error(err, "failed to send batch insert")
		}
		storedCount += batchCount
	}

	log.Debug("stored baseline records", slog.String("table", table), slog.Int("count", storedCount))
	return storedCount, nil
}

func (clickhouse ClickHouseDB) GetBaselineRecords(
	ctx context.Context,
	table string,
) ([]db.BaselineRecord, error) {
	query, err := selectBaselineRecordsQuery(table)
	if err != nil {
		return nil, wrap.Error(err, "invalid table name")
	}

	var records []db.BaselineRecord
	if err := clickhouse.conn.Select(ctx, &records, query); err != nil {
		return nil, wrap.Errorf(err, "failed to get baseline records from table '%s'", table)
	}

	return records, nil
}
