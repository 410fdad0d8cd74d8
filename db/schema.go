package db

import (
	"errors"
	"fmt"
	"strings"
)

// RecordSchema locates the admin key and value fields in the rows of a data source.
type RecordSchema struct {
	AdminKeyColumn string `json:"adminKeyColumn"`
	ValueColumn    string `json:"valueColumn"`

	adminKeyIndex int
	valueIndex    int
	columnCount   int
}

// NewRecordSchema finds the given columns in a header row. Column names are matched
// case-insensitively, ignoring surrounding whitespace.
func NewRecordSchema(header []string, adminKeyColumn string, valueColumn string) (RecordSchema, error) {
	schema := RecordSchema{
		AdminKeyColumn: adminKeyColumn,
		ValueColumn:    valueColumn,
		adminKeyIndex:  -1,
		valueIndex:     -1,
		columnCount:    len(header),
	}

	if err := schema.Validate(); err != nil {
		return RecordSchema{}, err
	}

	for i, column := range header {
		column = strings.TrimSpace(column)
		if strings.EqualFold(column, adminKeyColumn) && schema.adminKeyIndex == -1 {
			schema.adminKeyIndex = i
		}
		if strings.EqualFold(column, valueColumn) && schema.valueIndex == -1 {
			schema.valueIndex = i
		}
	}

	var errs []string
	if schema.adminKeyIndex == -1 {
		errs = append(errs, fmt.Sprintf("admin key column '%s'", adminKeyColumn))
	}
	if schema.valueIndex == -1 {
		errs = append(errs, fmt.Sprintf("value column '%s'", valueColumn))
	}
	if len(errs) != 0 {
		return RecordSchema{}, fmt.Errorf("header row is missing %s", strings.Join(errs, " and "))
	}

	return schema, nil
}

func (schema RecordSchema) Validate() error {
	if schema.AdminKeyColumn == "" {
		return errors.New("missing admin key column name")
	}
	if schema.ValueColumn == "" {
		return errors.New("missing value column name")
	}
	if strings.EqualFold(schema.AdminKeyColumn, schema.ValueColumn) {
		return errors.New("admin key and value columns must be different")
	}
	return nil
}

// ConvertRow extracts the record from the data row with the given number. Rows with a blank admin key are invalid, since
// an empty key would prefix-match every admin area.
func (schema RecordSchema) ConvertRow(row []string, rowNumber int) (BaselineRecord, error) {
	if len(row) != schema.columnCount {
		return BaselineRecord{}, fmt.Errorf(
			"expected %d fields in row, got %d", schema.columnCount, len(row),
		)
	}

	adminKey := strings.TrimSpace(row[schema.adminKeyIndex])
	if adminKey == "" {
		return BaselineRecord{}, fmt.Errorf("blank value in column '%s'", schema.AdminKeyColumn)
	}

	return BaselineRecord{
		AdminKey:  adminKey,
		Value:     strings.TrimSpace(row[schema.valueIndex]),
		RowNumber: uint64(rowNumber),
	}, nil
}
