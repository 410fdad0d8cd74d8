package clickhouse

import "testing"

func TestBaselineQueries(t *testing.T) {
	for _, test := range []struct {
		name     string
		build    func(table string) (string, error)
		expected string
	}{
		{
			name:  "create",
			build: createBaselineTableQuery,
			expected: "CREATE TABLE `population 2020` " +
				"(`row_number` UInt64, `admin_key` String, `value` String) " +
				"ENGINE = MergeTree() ORDER BY (`row_number`)",
		},
		{
			name:     "insert",
			build:    insertBaselineRecordsQuery,
			expected: "INSERT INTO `population 2020` (`row_number`, `admin_key`, `value`)",
		},
		{
			name:  "select",
			build: selectBaselineRecordsQuery,
			expected: "SELECT `row_number`, `admin_key`, `value` FROM `population 2020` " +
				"ORDER BY `row_number`",
		},
		{
			name:     "drop",
			build:    dropTableQuery,
			expected: "DROP TABLE `population 2020`",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			query, err := test.build("population 2020")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if query != test.expected {
				t.Errorf("expected query\n%s\ngot\n%s", test.expected, query)
			}
		})
	}
}

func TestBaselineQueriesInvalidTable(t *testing.T) {
	builders := map[string]func(table string) (string, error){
		"create": createBaselineTableQuery,
		"insert": insertBaselineRecordsQuery,
		"select": selectBaselineRecordsQuery,
		"drop":   dropTableQuery,
	}

	for name, build := range builders {
		for _, table := range []string{"", "drop`table"} {
			if _, err := build(table); err == nil {
				t.Errorf("expected %s query on table '%s' to fail", name, table)
			}
		}
	}
}
