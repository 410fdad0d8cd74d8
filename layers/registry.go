package layers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"hermannm.dev/wrap"
)

// Registry holds the configured layers, keyed by ID.
type Registry struct {
	layers     map[string]Layer
	boundaries []BoundaryLayer // sorted by ID
	primary    BoundaryLayer
}

func NewRegistry(configured ...Layer) (*Registry, error) {
	registry := &Registry{layers: make(map[string]Layer, len(configured))}

	var errs []error
	for _, layer := range configured {
		id := layer.LayerID()
		if id == "" {
			errs = append(errs, fmt.Errorf("%s layer is missing ID", layer.LayerType()))
			continue
		}
		if _, exists := registry.layers[id]; exists {
			errs = append(errs, fmt.Errorf("duplicate layer ID '%s'", id))
			continue
		}
		if err := validateLayer(layer); err != nil {
			errs = append(errs, wrap.Errorf(err, "invalid layer '%s'", id))
			continue
		}

		registry.layers[id] = layer
		if boundary, ok := layer.(BoundaryLayer); ok {
			registry.boundaries = append(registry.boundaries, boundary)
		}
	}

	sort.Slice(registry.boundaries, func(i, j int) bool {
		return registry.boundaries[i].ID < registry.boundaries[j].ID
	})

	primaryCount := 0
	for _, boundary := range registry.boundaries {
		if boundary.IsPrimary {
			registry.primary = boundary
			primaryCount++
		}
	}
	switch {
	case len(registry.boundaries) == 0:
		errs = append(errs, errors.New("no boundary layer configured"))
	case primaryCount > 1:
		errs = append(errs, errors.New("more than one boundary layer marked as primary"))
	case primaryCount == 0 && len(registry.boundaries) > 1:
		errs = append(errs, errors.New("multiple boundary layers configured, but none is primary"))
	case primaryCount == 0:
		registry.primary = registry.boundaries[0]
	}

	if len(errs) != 0 {
		return nil, wrap.Errors("invalid layer configuration", errs...)
	}

	return registry, nil
}

func validateLayer(layer Layer) error {
	switch layer := layer.(type) {
	case BoundaryLayer:
		if layer.Path == "" {
			return errors.New("missing path")
		}
		if len(layer.AdminLevelNames) == 0 {
			return errors.New("missing admin level names")
		}
		if len(layer.AdminLevelNames) != len(layer.AdminLevelLocalNames) {
			return fmt.Errorf(
				"got %d admin level names but %d local names",
				len(layer.AdminLevelNames),
				len(layer.AdminLevelLocalNames),
			)
		}
	case AdminLevelDataLayer:
		if layer.Path == "" && layer.Table == "" {
			return errors.New("must have either path or table")
		}
		if layer.AdminLevel <= 0 {
			return fmt.Errorf("invalid admin level %d", layer.AdminLevel)
		}
		if layer.AdminCode == "" || layer.DataField == "" {
			return errors.New("must have both admin_code and data_field")
		}
	case WMSLayer:
		if layer.BaseURL == "" || layer.ServerLayerName == "" {
			return errors.New("must have both base_url and server_layer_name")
		}
	}
	return nil
}

// ParseRegistry parses a JSON object of layer configurations keyed by layer ID, where each layer
// has a "type" field of "boundary", "admin_level_data" or "wms".
func ParseRegistry(data []byte) (*Registry, error) {
	var rawLayers map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawLayers); err != nil {
		return nil, wrap.Error(err, "failed to parse layer configuration")
	}

	configured := make([]Layer, 0, len(rawLayers))
	var errs []error

	for id, rawLayer := range rawLayers {
		layer, err := parseLayer(id, rawLayer)
		if err != nil {
			errs = append(errs, wrap.Errorf(err, "failed to parse layer '%s'", id))
			continue
		}
		configured = append(configured, layer)
	}

	if len(errs) != 0 {
		return nil, wrap.Errors("invalid layer configuration", errs...)
	}

	return NewRegistry(configured...)
}

func parseLayer(id string, rawLayer json.RawMessage) (Layer, error) {
	var header struct {
		Type LayerType `json:"type"`
	}
	if err := json.Unmarshal(rawLayer, &header); err != nil {
		return nil, err
	}

	switch header.Type {
	case LayerTypeBoundary:
		layer := BoundaryLayer{ID: id}
		err := json.Unmarshal(rawLayer, &layer)
		layer.ID = id
		return layer, err
	case LayerTypeAdminLevelData:
		layer := AdminLevelDataLayer{ID: id}
		err := json.Unmarshal(rawLayer, &layer)
		layer.ID = id
		return layer, err
	case LayerTypeWMS:
		layer := WMSLayer{ID: id}
		err := json.Unmarshal(rawLayer, &layer)
		layer.ID = id
		return layer, err
	default:
		return nil, errors.New("missing layer type")
	}
}

func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read layer configuration file '%s'", path)
	}
	return ParseRegistry(data)
}

func (registry *Registry) Get(id string) (Layer, bool) {
	layer, ok := registry.layers[id]
	return layer, ok
}

func (registry *Registry) WMSLayer(id string) (WMSLayer, error) {
	layer, ok := registry.layers[id]
	if !ok {
		return WMSLayer{}, fmt.Errorf("layer '%s' not found", id)
	}
	wms, ok := layer.(WMSLayer)
	if !ok {
		return WMSLayer{}, fmt.Errorf(
			"expected layer '%s' to be of type %s, got %s", id, LayerTypeWMS, layer.LayerType(),
		)
	}
	return wms, nil
}

func (registry *Registry) Boundary(id string) (BoundaryLayer, error) {
	layer, ok := registry.layers[id]
	if !ok {
		return BoundaryLayer{}, fmt.Errorf("layer '%s' not found", id)
	}
	boundary, ok := layer.(BoundaryLayer)
	if !ok {
		return BoundaryLayer{}, fmt.Errorf(
			"expected layer '%s' to be of type %s, got %s",
			id,
			LayerTypeBoundary,
			layer.LayerType(),
		)
	}
	return boundary, nil
}

func (registry *Registry) PrimaryBoundary() BoundaryLayer {
	return registry.primary
}

// BoundaryByAdminLevel returns the boundary layer whose features are divided into exactly the given
// number of admin levels, falling back to the primary boundary layer.
func (registry *Registry) BoundaryByAdminLevel(adminLevel int) BoundaryLayer {
	if registry.primary.AdminLevel() == adminLevel {
		return registry.primary
	}
	for _, boundary := range registry.boundaries {
		if boundary.AdminLevel() == adminLevel {
			return boundary
		}
	}
	return registry.primary
}

// DataLayersWithTable returns the admin level data layers stored in the given database table.
func (registry *Registry) DataLayersWithTable(table string) []AdminLevelDataLayer {
	var matching []AdminLevelDataLayer
	for _, layer := range registry.layers {
		if data, ok := layer.(AdminLevelDataLayer); ok && data.Table == table {
			matching = append(matching, data)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].ID < matching[j].ID
	})
	return matching
}

// AdminLevelOf returns the admin level that the given baseline layer's data is divided into.
func AdminLevelOf(layer Layer) int {
	switch layer := layer.(type) {
	case BoundaryLayer:
		return layer.AdminLevel()
	case AdminLevelDataLayer:
		return layer.AdminLevel
	default:
		return 0
	}
}
