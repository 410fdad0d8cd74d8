package layers

import "github.com/paulmach/orb"

// Layer is one entry of the layer configuration.
type Layer interface {
	LayerID() string
	LayerType() LayerType
}

// BoundaryLayer is a polygon layer of administrative boundaries, served as a GeoJSON file.
type BoundaryLayer struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
	// Property key holding the hierarchical admin code of each feature, where a finer level's code
	// extends its parent's code (e.g. "3414" for district 14 in state 34).
	AdminCode string `json:"admin_code"`
	// Property keys of the admin level names, ordered coarsest to finest.
	AdminLevelNames []string `json:"admin_level_names"`
	// Parallel to AdminLevelNames.
	AdminLevelLocalNames []string `json:"admin_level_local_names"`
	IsPrimary            bool     `json:"is_primary"`
}

func (layer BoundaryLayer) LayerID() string {
	return layer.ID
}

func (BoundaryLayer) LayerType() LayerType {
	return LayerTypeBoundary
}

// AdminLevel is the number of admin levels the layer's features are divided into.
func (layer BoundaryLayer) AdminLevel() int {
	return len(layer.AdminLevelNames)
}

// GroupBy returns the property key that statistics for this boundary are grouped by.
func (layer BoundaryLayer) GroupBy() string {
	if layer.AdminCode != "" {
		return layer.AdminCode
	}
	if len(layer.AdminLevelNames) > 0 {
		return layer.AdminLevelNames[0]
	}
	return ""
}

// AdminLevelDataLayer holds one value per admin area (e.g. population per district), keyed by
// admin code. Records are read from the configured database table, or from a JSON file at Path.
type AdminLevelDataLayer struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	Table      string `json:"table"`
	AdminLevel int    `json:"admin_level"`
	// Record field holding the admin code (prefix) of each record.
	AdminCode string `json:"admin_code"`
	// Record field holding the value of each record.
	DataField string `json:"data_field"`
}

func (layer AdminLevelDataLayer) LayerID() string {
	return layer.ID
}

func (AdminLevelDataLayer) LayerType() LayerType {
	return LayerTypeAdminLevelData
}

// WMSLayer is a raster layer on an OGC server, fetched as a coverage for statistics.
type WMSLayer struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	ServerLayerName string       `json:"server_layer_name"`
	BaseURL         string       `json:"base_url"`
	LegendText      string       `json:"legend_text"`
	WCSConfig       *WCSConfig   `json:"wcs_config,omitempty"`
	Zonal           *ZonalConfig `json:"zonal,omitempty"`
}

func (layer WMSLayer) LayerID() string {
	return layer.ID
}

func (WMSLayer) LayerType() LayerType {
	return LayerTypeWMS
}

// ClassProperties returns the feature properties that classify the layer's geometry.
func (layer WMSLayer) ClassProperties() []string {
	if layer.Zonal == nil || len(layer.Zonal.ClassProperties) == 0 {
		return []string{"label"}
	}
	return layer.Zonal.ClassProperties
}

type WCSConfig struct {
	Scale            *float64 `json:"scale,omitempty"`
	Offset           *float64 `json:"offset,omitempty"`
	PixelResolution  *float64 `json:"pixel_resolution,omitempty"`
	DisableDateParam bool     `json:"disable_date_param"`
}

// ScaleAndOffset returns the configured scale and offset, defaulting to 1 and 0.
func (config *WCSConfig) ScaleAndOffset() (scale float64, offset float64) {
	scale, offset = 1, 0
	if config == nil {
		return scale, offset
	}
	if config.Scale != nil {
		scale = *config.Scale
	}
	if config.Offset != nil {
		offset = *config.Offset
	}
	return scale, offset
}

type ZonalConfig struct {
	ClassProperties []string `json:"class_properties"`
}

// Extent is a bounding box in EPSG:4326: minX, minY, maxX, maxY.
type Extent [4]float64

func (extent Extent) IsValid() bool {
	return extent[0] < extent[2] && extent[1] < extent[3]
}

func (extent Extent) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{extent[0], extent[1]}, Max: orb.Point{extent[2], extent[3]}}
}
