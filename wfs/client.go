package wfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/layers"
	"hermannm.dev/hazardanalysis/stats"
	"hermannm.dev/wrap"
)

// Fetcher fetches the classified polygons of a hazard layer for a date range.
type Fetcher interface {
	FetchClassifiedGeometry(
		ctx context.Context,
		layer layers.WMSLayer,
		startDate int64,
		endDate int64,
	) (*geojson.FeatureCollection, error)
}

// Client fetches features with WFS GetFeature requests against a layer's OGC server.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// FetchClassifiedGeometry fetches the features of the layer as GeoJSON, filtered to the given date
// range (epoch milliseconds). The range is left out if the layer disables date params.
func (client *Client) FetchClassifiedGeometry(
	ctx context.Context,
	layer layers.WMSLayer,
	startDate int64,
	endDate int64,
) (*geojson.FeatureCollection, error) {
	requestURL := GetFeatureURL(layer, startDate, endDate)

	log.Debug(
		"fetching classified geometry",
		slog.String("layer", layer.ID),
		slog.String("url", requestURL),
	)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to create feature request for layer '%s'", layer.ID)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to fetch features of layer '%s'", layer.ID)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read features of layer '%s'", layer.ID)
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"feature server responded with status %d for layer '%s': %s",
			response.StatusCode,
			layer.ID,
			strings.TrimSpace(string(body)),
		)
	}

	collection, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to parse features of layer '%s'", layer.ID)
	}
	return collection, nil
}

// GetFeatureURL builds a WFS GetFeature URL requesting the layer's features as GeoJSON.
func GetFeatureURL(layer layers.WMSLayer, startDate int64, endDate int64) string {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "1.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeName", layer.ServerLayerName)
	params.Set("outputFormat", "application/json")

	dateDisabled := layer.WCSConfig != nil && layer.WCSConfig.DisableDateParam
	if !dateDisabled && startDate != 0 {
		if endDate == 0 {
			endDate = startDate
		}
		params.Set("time", stats.FormatDate(startDate)+"/"+stats.FormatDate(endDate))
	}

	return stats.OWSURL(layer.BaseURL) + "?" + params.Encode()
}
