package analysis

import (
	"encoding/json"
	"fmt"

	"hermannm.dev/enumnames"
)

// Kind is one of the analysis flows. Each kind has its own result slot and loading status.
type Kind int8

const (
	KindBaseline Kind = iota + 1
	KindExposure
	KindPolygon
)

var kindMap = enumnames.NewMap(map[Kind]string{
	KindBaseline: "baseline",
	KindExposure: "exposure",
	KindPolygon:  "polygon",
})

// Kinds lists all analysis kinds, in display order.
var Kinds = []Kind{KindBaseline, KindExposure, KindPolygon}

func (kind Kind) IsValid() bool {
	return kindMap.ContainsEnumValue(kind)
}

func (kind Kind) String() string {
	return kindMap.GetNameOrFallback(kind, "INVALID_ANALYSIS_KIND")
}

func (kind Kind) MarshalJSON() ([]byte, error) {
	return kindMap.MarshalToNameJSON(kind)
}

func (kind *Kind) UnmarshalJSON(bytes []byte) error {
	return kindMap.UnmarshalFromNameJSON(bytes, kind)
}

// ParseKind parses an analysis kind name, as given in a query parameter.
func ParseKind(name string) (Kind, error) {
	quoted, err := json.Marshal(name)
	if err != nil {
		return 0, err
	}

	var kind Kind
	if err := kind.UnmarshalJSON(quoted); err != nil {
		return 0, fmt.Errorf("invalid analysis kind '%s'", name)
	}
	return kind, nil
}

type Status int8

const (
	StatusIdle Status = iota + 1
	StatusPending
	StatusFulfilled
	StatusRejected
)

var statusMap = enumnames.NewMap(map[Status]string{
	StatusIdle:      "idle",
	StatusPending:   "pending",
	StatusFulfilled: "fulfilled",
	StatusRejected:  "rejected",
})

func (status Status) IsValid() bool {
	return statusMap.ContainsEnumValue(status)
}

func (status Status) String() string {
	return statusMap.GetNameOrFallback(status, "INVALID_ANALYSIS_STATUS")
}

func (status Status) MarshalJSON() ([]byte, error) {
	return statusMap.MarshalToNameJSON(status)
}

func (status *Status) UnmarshalJSON(bytes []byte) error {
	return statusMap.UnmarshalFromNameJSON(bytes, status)
}
