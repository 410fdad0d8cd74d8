package layers

import (
	"strings"
	"testing"
)

const testLayerConfig = `{
	"admin_boundaries": {
		"type": "boundary",
		"path": "data/admin_boundaries.json",
		"admin_code": "adm_code",
		"admin_level_names": ["state_name", "district_name"],
		"admin_level_local_names": ["state_local", "district_local"],
		"is_primary": true
	},
	"state_boundaries": {
		"type": "boundary",
		"path": "data/state_boundaries.json",
		"admin_code": "state_code",
		"admin_level_names": ["state_name"],
		"admin_level_local_names": ["state_local"]
	},
	"population": {
		"type": "admin_level_data",
		"table": "population",
		"admin_level": 1,
		"admin_code": "code",
		"data_field": "total"
	},
	"rainfall": {
		"type": "wms",
		"title": "Rainfall",
		"server_layer_name": "rfh_dekad",
		"base_url": "https://ows.example.org",
		"wcs_config": {"scale": 0.1, "offset": 2}
	}
}`

func TestParseRegistry(t *testing.T) {
	registry, err := ParseRegistry([]byte(testLayerConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if primary := registry.PrimaryBoundary(); primary.ID != "admin_boundaries" {
		t.Errorf("expected primary boundary 'admin_boundaries', got '%s'", primary.ID)
	}

	rainfall, err := registry.WMSLayer("rainfall")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scale, offset := rainfall.WCSConfig.ScaleAndOffset()
	if scale != 0.1 || offset != 2 {
		t.Errorf("expected scale 0.1 and offset 2, got %v and %v", scale, offset)
	}
	if classes := rainfall.ClassProperties(); len(classes) != 1 || classes[0] != "label" {
		t.Errorf("expected default class properties [label], got %v", classes)
	}

	if _, err := registry.WMSLayer("population"); err == nil {
		t.Error("expected error when getting data layer as WMS layer")
	}

	layer, ok := registry.Get("population")
	if !ok {
		t.Fatal("expected population layer to be registered")
	}
	if level := AdminLevelOf(layer); level != 1 {
		t.Errorf("expected admin level 1, got %d", level)
	}
}

func TestBoundaryByAdminLevel(t *testing.T) {
	registry, err := ParseRegistry([]byte(testLayerConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, test := range []struct {
		adminLevel int
		expectedID string
	}{
		{1, "state_boundaries"},
		{2, "admin_boundaries"},
		{5, "admin_boundaries"},
	} {
		boundary := registry.BoundaryByAdminLevel(test.adminLevel)
		if boundary.ID != test.expectedID {
			t.Errorf(
				"admin level %d: expected boundary '%s', got '%s'",
				test.adminLevel,
				test.expectedID,
				boundary.ID,
			)
		}
	}
}

func TestBoundaryGroupBy(t *testing.T) {
	withCode := BoundaryLayer{AdminCode: "adm_code", AdminLevelNames: []string{"state", "district"}}
	if groupBy := withCode.GroupBy(); groupBy != "adm_code" {
		t.Errorf("expected 'adm_code', got '%s'", groupBy)
	}

	withoutCode := BoundaryLayer{AdminLevelNames: []string{"state", "district"}}
	if groupBy := withoutCode.GroupBy(); groupBy != "state" {
		t.Errorf("expected coarsest admin level 'state', got '%s'", groupBy)
	}
}

func TestInvalidRegistry(t *testing.T) {
	for _, test := range []struct {
		name          string
		config        string
		expectedError string
	}{
		{
			"mismatched local names",
			`{"b": {"type": "boundary", "path": "b.json",
				"admin_level_names": ["a", "b"], "admin_level_local_names": ["a"]}}`,
			"got 2 admin level names but 1 local names",
		},
		{
			"no boundary",
			`{"w": {"type": "wms", "base_url": "https://x", "server_layer_name": "x"}}`,
			"no boundary layer configured",
		},
		{
			"unknown type",
			`{"x": {"type": "vector"}}`,
			"failed to parse layer 'x'",
		},
		{
			"two boundaries without primary",
			`{
				"a": {"type": "boundary", "path": "a.json",
					"admin_level_names": ["a"], "admin_level_local_names": ["a"]},
				"b": {"type": "boundary", "path": "b.json",
					"admin_level_names": ["b"], "admin_level_local_names": ["b"]}
			}`,
			"none is primary",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(test.config))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), test.expectedError) {
				t.Errorf("expected error containing '%s', got: %v", test.expectedError, err)
			}
		})
	}
}
