package layers

import "hermannm.dev/enumnames"

type LayerType int8

const (
	LayerTypeBoundary LayerType = iota + 1
	LayerTypeAdminLevelData
	LayerTypeWMS
)

var layerTypeMap = enumnames.NewMap(map[LayerType]string{
	LayerTypeBoundary:       "boundary",
	LayerTypeAdminLevelData: "admin_level_data",
	LayerTypeWMS:            "wms",
})

func (layerType LayerType) IsValid() bool {
	return layerTypeMap.ContainsEnumValue(layerType)
}

func (layerType LayerType) String() string {
	return layerTypeMap.GetNameOrFallback(layerType, "INVALID_LAYER_TYPE")
}

func (layerType LayerType) MarshalJSON() ([]byte, error) {
	return layerTypeMap.MarshalToNameJSON(layerType)
}

func (layerType *LayerType) UnmarshalJSON(bytes []byte) error {
	return layerTypeMap.UnmarshalFromNameJSON(bytes, layerType)
}
