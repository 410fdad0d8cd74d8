package baseline

import (
	"encoding/json"
	"strconv"
	"strings"

	"hermannm.dev/hazardanalysis/stats"
)

// Record is one value of a baseline layer, for the admin area whose code starts with AdminKey.
type Record struct {
	AdminKey string `json:"adminKey"`
	// Number or string.
	Value any `json:"value"`
}

const noDataText = "No Data"

// Value is a baseline value, or the absence of one. The absence is kept distinct from a known zero.
type Value struct {
	number  float64
	hasData bool
}

var NoData = Value{}

func Number(number float64) Value {
	return Value{number: number, hasData: true}
}

// ValueOf converts a record value to a baseline value. Numeric strings are parsed, and anything
// that is not a number is NoData.
func ValueOf(raw any) Value {
	if raw == nil {
		return NoData
	}
	if number, ok := stats.ToFloat(raw); ok {
		return Number(number)
	}
	return NoData
}

func (value Value) Float() (number float64, hasData bool) {
	return value.number, value.hasData
}

func (value Value) HasData() bool {
	return value.hasData
}

func (value Value) String() string {
	if !value.hasData {
		return noDataText
	}
	return strconv.FormatFloat(value.number, 'f', -1, 64)
}

// MarshalJSON encodes the value as a number, or as the string "No Data".
func (value Value) MarshalJSON() ([]byte, error) {
	if !value.hasData {
		return json.Marshal(noDataText)
	}
	return json.Marshal(value.number)
}

func (value *Value) UnmarshalJSON(bytes []byte) error {
	var raw any
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	*value = ValueOf(raw)
	return nil
}

// Lookup returns the value of the first record whose admin key is a prefix of the given admin code,
// or NoData if there is none.
func Lookup(records []Record, adminCode string) Value {
	if adminCode == "" {
		return NoData
	}

	for _, record := range records {
		if strings.HasPrefix(adminCode, record.AdminKey) {
			return ValueOf(record.Value)
		}
	}
	return NoData
}

// AdminCodeString formats an admin code property value for prefix matching.
func AdminCodeString(raw any) (string, bool) {
	switch raw := raw.(type) {
	case string:
		return raw, raw != ""
	case nil:
		return "", false
	default:
		if number, ok := stats.ToFloat(raw); ok {
			return strconv.FormatFloat(number, 'f', -1, 64), true
		}
		return "", false
	}
}
