package stats

import (
	"strings"

	"hermannm.dev/hazardanalysis/layers"
)

// Mask expression used when a mask layer is given without one: keeps raster A where mask B is 1.
const DefaultMaskCalcExpr = "A*(B==1)"

// Request is the body of a call to the zonal statistics service.
type Request struct {
	GeotiffURL   string     `json:"geotiff_url"`
	ZonesURL     string     `json:"zones_url"`
	GroupBy      string     `json:"group_by"`
	WFSParams    *WFSParams `json:"wfs_params,omitempty"`
	MaskURL      string     `json:"mask_url,omitempty"`
	MaskCalcExpr string     `json:"mask_calc_expr,omitempty"`
	GeojsonOut   bool       `json:"geojson_out"`

	// Epoch milliseconds, 0 if the request is not for a specific date.
	Date int64 `json:"-"`
}

// WFSParams make the statistics service weight zones by the features of a WFS layer.
type WFSParams struct {
	URL       string `json:"url"`
	LayerName string `json:"layer_name"`
	Time      string `json:"time"`
	Key       string `json:"key"`
}

func NewWFSParams(layer layers.WMSLayer, date int64, key string) *WFSParams {
	return &WFSParams{
		URL:       OWSURL(layer.BaseURL),
		LayerName: layer.ServerLayerName,
		Time:      FormatDate(date),
		Key:       key,
	}
}

// MaskParams make the statistics service combine the raster with a mask raster before computing.
type MaskParams struct {
	URL      string
	CalcExpr string
}

func NewMaskParams(
	layer layers.WMSLayer,
	extent layers.Extent,
	date int64,
	calcExpr string,
) *MaskParams {
	if calcExpr == "" {
		calcExpr = DefaultMaskCalcExpr
	}
	return &MaskParams{URL: CoverageURL(layer, extent, date, -1), CalcExpr: calcExpr}
}

type RequestParams struct {
	Layer    layers.WMSLayer
	Extent   layers.Extent
	Date     int64
	Boundary layers.BoundaryLayer
	// Overrides the boundary's group-by key if set.
	GroupBy    string
	WFS        *WFSParams
	Mask       *MaskParams
	GeojsonOut bool
}

type RequestBuilder struct {
	publicBaseURL        string
	defaultBoundariesURL string
}

// NewRequestBuilder takes the public URL of this deployment, which boundary files are served under,
// and the boundaries URL to fall back to when there is none (i.e. in local development).
func NewRequestBuilder(publicBaseURL string, defaultBoundariesURL string) RequestBuilder {
	return RequestBuilder{publicBaseURL: publicBaseURL, defaultBoundariesURL: defaultBoundariesURL}
}

func (builder RequestBuilder) Build(params RequestParams) Request {
	groupBy := params.GroupBy
	if groupBy == "" {
		groupBy = params.Boundary.GroupBy()
	}

	request := Request{
		GeotiffURL: CoverageURL(params.Layer, params.Extent, params.Date, BBoxDigits),
		ZonesURL:   builder.ZonesURL(params.Boundary.Path),
		GroupBy:    groupBy,
		GeojsonOut: params.GeojsonOut,
		Date:       params.Date,
	}

	if params.WFS != nil {
		wfs := *params.WFS
		request.WFSParams = &wfs
	}
	if params.Mask != nil {
		request.MaskURL = params.Mask.URL
		request.MaskCalcExpr = params.Mask.CalcExpr
		if request.MaskCalcExpr == "" {
			request.MaskCalcExpr = DefaultMaskCalcExpr
		}
	}

	return request
}

// ZonesURL resolves a boundary file path to an absolute URL.
func (builder RequestBuilder) ZonesURL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	if builder.publicBaseURL == "" {
		return builder.defaultBoundariesURL
	}
	return strings.TrimSuffix(builder.publicBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
