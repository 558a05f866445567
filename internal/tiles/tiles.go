// Package tiles proxies and caches the burden raster tiles.
//
// The published rasters live on an external tile host. Serving them
// through this process gives the map a same-origin URL, an on-disk
// cache that survives restarts, and a place to drop MBTiles files for
// fully offline use. Sources are keyed by tile directory name, the
// same names the catalog binds to each layer and threshold variant.
package tiles

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ErrNotFound means the source has no tile at these coordinates. The
// HTTP handler turns it into a transparent tile, matching how the map
// treats missing coverage.
var ErrNotFound = errors.New("tile not found")

// Source produces raster tiles for one tile directory.
type Source interface {
	Key() string
	ContentType() string
	MinZoom() int
	MaxZoom() int
	Tile(ctx context.Context, z, x, y int) ([]byte, error)
}

// Registry holds the live tile sources. MBTiles files can appear and
// disappear at runtime, so lookups take a read lock.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	logger  *slog.Logger
}

// NewRegistry creates an empty source registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sources: make(map[string]Source),
		logger:  logger,
	}
}

// Add registers a source under its key, replacing any previous one. A
// replaced source is closed if it holds resources.
func (r *Registry) Add(s Source) {
	if s == nil {
		return
	}
	r.mu.Lock()
	old := r.sources[s.Key()]
	r.sources[s.Key()] = s
	r.mu.Unlock()

	closeSource(old)
	r.logger.Info("tile source registered", "key", s.Key(), "zoom", s.MaxZoom())
}

// Get returns the source for a tile directory.
func (r *Registry) Get(key string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[key]
	return s, ok
}

// Remove drops a source and closes it.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	s := r.sources[key]
	delete(r.sources, key)
	r.mu.Unlock()

	closeSource(s)
}

// Keys returns the registered tile directories, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sources))
	for k := range r.sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close closes every source.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.sources {
		closeSource(s)
		delete(r.sources, k)
	}
}

func closeSource(s Source) {
	if s == nil {
		return
	}
	if c, ok := s.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
