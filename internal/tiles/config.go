package tiles

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kushankb/burdens-app/internal/catalog"
)

// SourceDef overrides or extends the catalog-derived tile sources via
// tiles.yml. A def whose dir matches a catalog raster replaces that
// source; any other dir adds a new one.
type SourceDef struct {
	Dir     string        `yaml:"dir"`
	URL     string        `yaml:"url"`
	MinZoom int           `yaml:"minZoom"`
	MaxZoom int           `yaml:"maxZoom"`
	TTL     time.Duration `yaml:"ttl"`
}

// LoadSourceDefs reads a tiles.yml file. A missing file is not an
// error; the catalog defaults cover everything.
func LoadSourceDefs(path string) ([]SourceDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var defs []SourceDef
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, d := range defs {
		if d.Dir == "" || d.URL == "" {
			return nil, fmt.Errorf("%s: source %d needs both dir and url", path, i)
		}
	}
	return defs, nil
}

// AddCatalogSources registers an upstream proxy for every raster tile
// directory the catalog knows, then applies the overrides. Tiles are
// cached under cacheDir.
func (r *Registry) AddCatalogSources(env catalog.Env, cacheDir string, defs []SourceDef) {
	overrides := make(map[string]SourceDef, len(defs))
	for _, d := range defs {
		overrides[d.Dir] = d
	}

	for _, rl := range catalog.RasterLayers() {
		def, ok := overrides[rl.TileDir]
		if !ok {
			def = SourceDef{
				Dir: rl.TileDir,
				URL: catalog.TileURLTemplate(env, rl.TileDir),
			}
		}
		delete(overrides, rl.TileDir)
		r.Add(NewUpstream(def.Dir, def.URL, cacheDir, def.TTL, def.MinZoom, def.MaxZoom, r.logger))
	}

	// Leftover defs are extra sources outside the catalog.
	for _, def := range overrides {
		r.Add(NewUpstream(def.Dir, def.URL, cacheDir, def.TTL, def.MinZoom, def.MaxZoom, r.logger))
	}
}
