package table

import (
	"encoding/json"
	"fmt"
	"sort"

	"hermannm.dev/enumnames"
)

type SortOrder int8

const (
	SortOrderAscending SortOrder = iota + 1
	SortOrderDescending
)

var sortOrderMap = enumnames.NewMap(map[SortOrder]string{
	SortOrderAscending:  "asc",
	SortOrderDescending: "desc",
})

func (sortOrder SortOrder) IsValid() bool {
	return sortOrderMap.ContainsEnumValue(sortOrder)
}

func (sortOrder SortOrder) String() string {
	return sortOrderMap.GetNameOrFallback(sortOrder, "INVALID_SORT_ORDER")
}

func (sortOrder SortOrder) MarshalJSON() ([]byte, error) {
	return sortOrderMap.MarshalToNameJSON(sortOrder)
}

func (sortOrder *SortOrder) UnmarshalJSON(bytes []byte) error {
	return sortOrderMap.UnmarshalFromNameJSON(bytes, sortOrder)
}

// ParseSortOrder parses a sort order name, as given in a query parameter.
func ParseSortOrder(name string) (SortOrder, error) {
	quoted, err := json.Marshal(name)
	if err != nil {
		return 0, err
	}

	var sortOrder SortOrder
	if err := sortOrder.UnmarshalJSON(quoted); err != nil {
		return 0, fmt.Errorf("invalid sort order '%s'", name)
	}
	return sortOrder, nil
}

// Sort returns a copy of the rows sorted by the given column. The sort is stable. Numbers sort
// before text, and rows without a value in the column (including "No Data" baseline values) sort
// last in both orders.
func Sort(rows []Row, column string, order SortOrder) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		first, second := sortKeyOf(sorted[i].Value(column)), sortKeyOf(sorted[j].Value(column))

		if first.missing || second.missing {
			return !first.missing && second.missing
		}

		if order == SortOrderDescending {
			return second.less(first)
		}
		return first.less(second)
	})

	return sorted
}

type sortKey struct {
	missing  bool
	isNumber bool
	number   float64
	text     string
}

func sortKeyOf(value any) sortKey {
	switch value := value.(type) {
	case nil:
		return sortKey{missing: true}
	case string:
		return sortKey{text: value}
	case float64:
		return sortKey{isNumber: true, number: value}
	case json.Number:
		if number, err := value.Float64(); err == nil {
			return sortKey{isNumber: true, number: number}
		}
		return sortKey{text: value.String()}
	case int:
		return sortKey{isNumber: true, number: float64(value)}
	case int64:
		return sortKey{isNumber: true, number: float64(value)}
	default:
		return sortKey{text: fmt.Sprint(value)}
	}
}

func (key sortKey) less(other sortKey) bool {
	if key.isNumber != other.isNumber {
		return key.isNumber
	}
	if key.isNumber {
		return key.number < other.number
	}
	return key.text < other.text
}
