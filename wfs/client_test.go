package wfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"hermannm.dev/hazardanalysis/layers"
)

const classifiedFeatures = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]},
		"properties": {"label": "High"}
	}]
}`

// 2023-05-01 and 2023-05-10 UTC
const (
	testStartDate int64 = 1682899200000
	testEndDate   int64 = 1683676800000
)

func TestGetFeatureURL(t *testing.T) {
	layer := layers.WMSLayer{ServerLayerName: "hazard:flood_extent", BaseURL: "https://ogc.example.com"}

	parsed, err := url.Parse(GetFeatureURL(layer, testStartDate, testEndDate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Path != "/ows" {
		t.Errorf("expected path '/ows', got '%s'", parsed.Path)
	}

	query := parsed.Query()
	for key, expected := range map[string]string{
		"request":      "GetFeature",
		"typeName":     "hazard:flood_extent",
		"outputFormat": "application/json",
		"time":         "2023-05-01/2023-05-10",
	} {
		if value := query.Get(key); value != expected {
			t.Errorf("expected %s '%s', got '%s'", key, expected, value)
		}
	}

	layer.WCSConfig = &layers.WCSConfig{DisableDateParam: true}
	parsed, err = url.Parse(GetFeatureURL(layer, testStartDate, testEndDate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Query().Has("time") {
		t.Error("expected time param to be left out when date params are disabled")
	}
}

func TestFetchClassifiedGeometry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/ows" || req.URL.Query().Get("typeName") != "flood_extent" {
			http.Error(res, "unknown layer", http.StatusNotFound)
			return
		}
		res.Header().Set("Content-Type", "application/json")
		res.Write([]byte(classifiedFeatures))
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)

	collection, err := client.FetchClassifiedGeometry(
		context.Background(),
		layers.WMSLayer{ID: "flood", ServerLayerName: "flood_extent", BaseURL: server.URL},
		testStartDate,
		testEndDate,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collection.Features) != 1 || collection.Features[0].Properties["label"] != "High" {
		t.Errorf("unexpected features: %+v", collection.Features)
	}

	_, err = client.FetchClassifiedGeometry(
		context.Background(),
		layers.WMSLayer{ID: "other", ServerLayerName: "other", BaseURL: server.URL},
		testStartDate,
		testEndDate,
	)
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected status error, got %v", err)
	}
}
