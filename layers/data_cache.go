package layers

import "sync"

// DataCache holds loaded layer data keyed by layer ID. A missing entry means the layer has not been
// loaded yet, not that it is empty.
type DataCache[Data any] struct {
	lock    sync.RWMutex
	entries map[string]Data
}

func NewDataCache[Data any]() *DataCache[Data] {
	return &DataCache[Data]{entries: make(map[string]Data)}
}

func (cache *DataCache[Data]) Get(layerID string) (data Data, loaded bool) {
	cache.lock.RLock()
	defer cache.lock.RUnlock()

	data, loaded = cache.entries[layerID]
	return data, loaded
}

func (cache *DataCache[Data]) Set(layerID string, data Data) {
	cache.lock.Lock()
	defer cache.lock.Unlock()

	cache.entries[layerID] = data
}

func (cache *DataCache[Data]) Delete(layerID string) {
	cache.lock.Lock()
	defer cache.lock.Unlock()

	delete(cache.entries, layerID)
}
