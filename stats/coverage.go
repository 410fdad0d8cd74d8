package stats

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hermannm.dev/hazardanalysis/layers"
)

// Number of decimals that extents are formatted with for statistics coverages.
const BBoxDigits = 1

// Longest side in pixels of a coverage whose layer has no configured pixel resolution.
const defaultCoverageSize = 256

// CoverageURL builds a WCS GetCoverage URL for the given raster layer. The bounding box is
// formatted with the given number of decimals, or at full precision if bboxDigits is negative.
// The date (epoch milliseconds) is left out if zero, or if the layer disables date params.
func CoverageURL(layer layers.WMSLayer, extent layers.Extent, date int64, bboxDigits int) string {
	params := url.Values{}
	params.Set("service", "WCS")
	params.Set("version", "1.0.0")
	params.Set("request", "GetCoverage")
	params.Set("coverage", layer.ServerLayerName)
	params.Set("crs", "EPSG:4326")
	params.Set("format", "GeoTIFF")
	params.Set("bbox", formatBBox(extent, bboxDigits))

	if layer.WCSConfig != nil && layer.WCSConfig.PixelResolution != nil {
		resolution := strconv.FormatFloat(*layer.WCSConfig.PixelResolution, 'f', -1, 64)
		params.Set("resx", resolution)
		params.Set("resy", resolution)
	} else {
		width, height := coverageSize(extent)
		params.Set("width", strconv.Itoa(width))
		params.Set("height", strconv.Itoa(height))
	}

	dateDisabled := layer.WCSConfig != nil && layer.WCSConfig.DisableDateParam
	if date != 0 && !dateDisabled {
		params.Set("time", FormatDate(date))
	}

	return OWSURL(layer.BaseURL) + "?" + params.Encode()
}

// FormatDate formats epoch milliseconds as YYYY-MM-DD in UTC.
func FormatDate(date int64) string {
	return time.UnixMilli(date).UTC().Format(time.DateOnly)
}

func formatBBox(extent layers.Extent, digits int) string {
	if digits < 0 {
		digits = -1
	}

	parts := make([]string, len(extent))
	for i, coordinate := range extent {
		parts[i] = strconv.FormatFloat(coordinate, 'f', digits, 64)
	}
	return strings.Join(parts, ",")
}

func coverageSize(extent layers.Extent) (width int, height int) {
	spanX := extent[2] - extent[0]
	spanY := extent[3] - extent[1]
	if spanX <= 0 || spanY <= 0 {
		return defaultCoverageSize, defaultCoverageSize
	}

	if spanX >= spanY {
		height = int(math.Max(1, math.Round(defaultCoverageSize*spanY/spanX)))
		return defaultCoverageSize, height
	} else {
		width = int(math.Max(1, math.Round(defaultCoverageSize*spanX/spanY)))
		return width, defaultCoverageSize
	}
}

// OWSURL returns the OGC service endpoint of a layer server.
func OWSURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/ows") {
		return baseURL
	}
	return baseURL + "/ows"
}
