package db

import (
	"context"
)

// BaselineDB stores the records of baseline layers (admin-level data), one table per layer.
type BaselineDB interface {
	CreateBaselineTable(ctx context.Context, table string) error

	StoreBaselineRecords(
		ctx context.Context,
		table string,
		schema RecordSchema,
		data DataSource,
	) (storedCount int, err error)

	GetBaselineRecords(ctx context.Context, table string) ([]BaselineRecord, error)

	DropTable(ctx context.Context, table string) (alreadyDropped bool, err error)
}

type BaselineRecord struct {
	AdminKey string `ch:"admin_key"  json:"admin_key"`
	Value    string `ch:"value"      json:"value"`
	// Row of the record in its source file. Records are read back in this order, since the first
	// record matching an admin code wins.
	RowNumber uint64 `ch:"row_number" json:"row_number"`
}

type DataSource interface {
	ReadRow() (row []string, rowNumber int, done bool, err error)
}
