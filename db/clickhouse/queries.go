package clickhouse

import (
	"errors"
	"fmt"
	"strings"
)

type baselineColumn struct {
	name     string
	dataType string
}

// Columns of a baseline table, in the order that batch inserts append them.
var baselineColumns = []baselineColumn{
	{name: "row_number", dataType: "UInt64"},
	{name: "admin_key", dataType: "String"},
	{name: "value", dataType: "String"},
}

// Baseline records are stored and read back in the order of their source rows.
const baselineOrderColumn = "row_number"

func createBaselineTableQuery(table string) (string, error) {
	query, err := newTableQuery("CREATE TABLE", table)
	if err != nil {
		return "", err
	}

	query.WriteString(" (")
	query.writeColumns(true)
	query.WriteString(") ENGINE = MergeTree() ORDER BY (")
	query.writeIdentifier(baselineOrderColumn)
	query.WriteRune(')')
	return query.String(), nil
}

func insertBaselineRecordsQuery(table string) (string, error) {
	query, err := newTableQuery("INSERT INTO", table)
	if err != nil {
		return "", err
	}

	query.WriteString(" (")
	query.writeColumns(false)
	query.WriteRune(')')
	return query.String(), nil
}

func selectBaselineRecordsQuery(table string) (string, error) {
	if err := validateTableName(table); err != nil {
		return "", err
	}

	var query tableQuery
	query.WriteString("SELECT ")
	query.writeColumns(false)
	query.WriteString(" FROM ")
	query.writeIdentifier(table)
	query.WriteString(" ORDER BY ")
	query.writeIdentifier(baselineOrderColumn)
	return query.String(), nil
}

func dropTableQuery(table string) (string, error) {
	query, err := newTableQuery("DROP TABLE", table)
	if err != nil {
		return "", err
	}
	return query.String(), nil
}

type tableQuery struct {
	strings.Builder
}

// Starts a query with the given statement followed by the quoted table name.
func newTableQuery(statement string, table string) (*tableQuery, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}

	query := &tableQuery{}
	query.WriteString(statement)
	query.WriteRune(' ')
	query.writeIdentifier(table)
	return query, nil
}

// Table names come from upload requests, and must not contain the identifier quote character.
func validateTableName(table string) error {
	if table == "" {
		return errors.New("table name cannot be blank")
	}
	if strings.ContainsRune(table, '`') {
		return fmt.Errorf("table name '%s' contains `, which is incompatible with database", table)
	}
	return nil
}

func (query *tableQuery) writeIdentifier(identifier string) {
	query.WriteRune('`')
	query.WriteString(identifier)
	query.WriteRune('`')
}

func (query *tableQuery) writeColumns(withTypes bool) {
	for i, column := range baselineColumns {
		if i != 0 {
			query.WriteString(", ")
		}

		query.writeIdentifier(column.name)
		if withTypes {
			query.WriteRune(' ')
			query.WriteString(column.dataType)
		}
	}
}
