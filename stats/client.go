package stats

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"hermannm.dev/devlog/log"
	"hermannm.dev/hazardanalysis/metrics"
	"hermannm.dev/wrap"
)

// Client calls the external zonal statistics service.
type Client struct {
	url        string
	httpClient *http.Client
	cache      ResponseCache
}

// NewClient creates a client for the statistics service at the given URL. The cache may be nil.
func NewClient(url string, timeout time.Duration, cache ResponseCache) *Client {
	return &Client{url: url, httpClient: &http.Client{Timeout: timeout}, cache: cache}
}

// Fetch sends the request and returns the resulting statistics rows.
func (client *Client) Fetch(ctx context.Context, request Request) ([]Row, error) {
	body, err := client.post(ctx, request)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, wrap.Error(err, "failed to parse statistics service response")
	}
	return rows, nil
}

// FetchFeatures sends the request with GeoJSON output enabled, and returns the resulting features.
// The service may respond with either an array of features or a feature collection.
func (client *Client) FetchFeatures(
	ctx context.Context,
	request Request,
) ([]*geojson.Feature, error) {
	request.GeojsonOut = true

	body, err := client.post(ctx, request)
	if err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		collection, err := geojson.UnmarshalFeatureCollection(trimmed)
		if err != nil {
			return nil, wrap.Error(err, "failed to parse feature collection from statistics service")
		}
		return collection.Features, nil
	}

	var features []*geojson.Feature
	if err := json.Unmarshal(body, &features); err != nil {
		return nil, wrap.Error(err, "failed to parse features from statistics service")
	}
	return features, nil
}

func (client *Client) post(ctx context.Context, request Request) ([]byte, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, wrap.Error(err, "failed to encode statistics request")
	}

	cacheKey := cacheKeyFor(client.url, requestBody)
	if client.cache != nil {
		cached, found, err := client.cache.Get(ctx, cacheKey)
		if err != nil {
			log.Warnf("failed to read statistics response cache: %v", err)
		} else if found {
			metrics.StatsCacheHitsTotal.Inc()
			return cached, nil
		} else {
			metrics.StatsCacheMissesTotal.Inc()
		}
	}

	log.Debug(
		"sending statistics request",
		slog.String("geotiffUrl", request.GeotiffURL),
		slog.String("groupBy", request.GroupBy),
	)

	start := time.Now()
	responseBody, err := client.send(ctx, requestBody)
	metrics.StatsRequestDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.StatsRequestsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.StatsRequestsTotal.WithLabelValues("success").Inc()

	if client.cache != nil {
		if err := client.cache.Set(ctx, cacheKey, responseBody); err != nil {
			log.Warnf("failed to write statistics response cache: %v", err)
		}
	}

	return responseBody, nil
}

func (client *Client) send(ctx context.Context, requestBody []byte) ([]byte, error) {
	httpRequest, err := http.NewRequestWithContext(
		ctx, http.MethodPost, client.url, bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, wrap.Error(err, "failed to create statistics request")
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return nil, wrap.Error(err, "statistics service request failed")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, wrap.Error(err, "failed to read statistics service response")
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf(
			"statistics service responded with status %d: %s",
			response.StatusCode,
			serviceErrorMessage(responseBody),
		)
	}

	return responseBody, nil
}

// serviceErrorMessage extracts the error detail from an error response, falling back to the raw
// body.
func serviceErrorMessage(body []byte) string {
	var detail struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != nil {
		if message, ok := detail.Detail.(string); ok {
			return message
		}
		if encoded, err := json.Marshal(detail.Detail); err == nil {
			return string(encoded)
		}
	}
	return strings.TrimSpace(string(body))
}

func cacheKeyFor(url string, requestBody []byte) string {
	hash := sha256.New()
	hash.Write([]byte(url))
	hash.Write(requestBody)
	return hex.EncodeToString(hash.Sum(nil))
}
