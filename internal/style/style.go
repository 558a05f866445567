// Package style assembles the MapLibre style document for the burden
// map. The document is rebuilt from the session's view state on every
// request, so visibility and opacity always reflect the reducer output
// and the client never patches style internals itself.
package style

import (
	"fmt"

	"github.com/kushankb/burdens-app/internal/catalog"
	"github.com/kushankb/burdens-app/internal/view"
)

// Source is a MapLibre style source definition.
type Source struct {
	Type        string   `json:"type"`
	Tiles       []string `json:"tiles,omitempty"`
	TileSize    int      `json:"tileSize,omitempty"`
	MinZoom     int      `json:"minzoom,omitempty"`
	MaxZoom     int      `json:"maxzoom,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
}

// Layer is a MapLibre style layer definition.
type Layer struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source,omitempty"`
	SourceLayer string         `json:"source-layer,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
}

// Document is a complete MapLibre style.
type Document struct {
	Version int               `json:"version"`
	Name    string            `json:"name"`
	Sources map[string]Source `json:"sources"`
	Layers  []Layer           `json:"layers"`
}

// Options configures style synthesis.
type Options struct {
	Env           catalog.Env
	BasketTileURL string // XYZ template for the breadbasket vector tiles
	BasemapToken  string // optional key for the hosted basemap
	MaxZoom       int
}

// Builder synthesizes style documents for one deployment environment.
type Builder struct {
	opts Options
}

// NewBuilder creates a style builder. A missing basket tile URL falls
// back to the server's own endpoint.
func NewBuilder(opts Options) *Builder {
	if opts.BasketTileURL == "" {
		opts.BasketTileURL = "/tiles/baskets/{z}/{x}/{y}.mvt"
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = 10
	}
	return &Builder{opts: opts}
}

// Build derives the full style document for a view state. Layer order
// is fixed: basemap, the raster variants, breadbasket markers on top.
func (b *Builder) Build(s view.State) Document {
	doc := Document{
		Version: 8,
		Name:    "Agrifood burdens",
		Sources: make(map[string]Source),
	}

	doc.Layers = append(doc.Layers, Layer{
		ID:    "background",
		Type:  "background",
		Paint: map[string]any{"background-color": "#DDE8F0"},
	})

	if b.opts.BasemapToken != "" {
		doc.Sources["basemap"] = Source{
			Type: "raster",
			Tiles: []string{fmt.Sprintf(
				"https://api.maptiler.com/maps/dataviz/256/{z}/{x}/{y}.png?key=%s",
				b.opts.BasemapToken)},
			TileSize:    256,
			MaxZoom:     18,
			Attribution: "© MapTiler © OpenStreetMap contributors",
		}
		doc.Layers = append(doc.Layers, Layer{
			ID:     "basemap",
			Type:   "raster",
			Source: "basemap",
			Paint:  map[string]any{"raster-opacity": 1.0},
		})
	}

	states := layerStates(s)

	for _, r := range catalog.RasterLayers() {
		doc.Sources[r.ID] = Source{
			Type:     "raster",
			Tiles:    []string{catalog.TileURLTemplate(b.opts.Env, r.TileDir)},
			TileSize: 256,
			MaxZoom:  b.opts.MaxZoom,
		}
		ls := states[r.ID]
		doc.Layers = append(doc.Layers, Layer{
			ID:     r.ID,
			Type:   "raster",
			Source: r.ID,
			Layout: map[string]any{"visibility": visibility(ls.Visible)},
			Paint: map[string]any{
				"raster-opacity":       ls.Opacity,
				"raster-resampling":    "nearest",
				"raster-fade-duration": 0,
			},
		})
	}

	baskets := catalog.Breadbaskets()
	doc.Sources["breadbaskets"] = Source{
		Type:    "vector",
		Tiles:   []string{b.opts.BasketTileURL},
		MaxZoom: 6,
	}
	ls := states["breadbaskets"]
	doc.Layers = append(doc.Layers, Layer{
		ID:          "breadbaskets",
		Type:        "circle",
		Source:      "breadbaskets",
		SourceLayer: baskets.SourceLayer,
		Layout:      map[string]any{"visibility": visibility(ls.Visible)},
		Paint: map[string]any{
			"circle-color":        foodGroupMatch(),
			"circle-radius":       radiusByProduction(),
			"circle-opacity":      ls.Opacity,
			"circle-stroke-color": "#FFFFFF",
			"circle-stroke-width": 1.5,
		},
	})

	return doc
}

// Sync returns the per-layer visibility and opacity for a state, for
// clients that keep a live map and only patch the changed properties.
func (b *Builder) Sync(s view.State) []view.LayerState {
	return view.Layers(s)
}

func layerStates(s view.State) map[string]view.LayerState {
	out := make(map[string]view.LayerState)
	for _, l := range view.Layers(s) {
		out[l.ID] = l
	}
	return out
}

func visibility(visible bool) string {
	if visible {
		return "visible"
	}
	return "none"
}

// foodGroupMatch builds the data-driven color expression for markers.
// Unknown food_group values get the fallback color instead of breaking
// the layer.
func foodGroupMatch() []any {
	expr := []any{"match", []any{"get", "food_group"}}
	for _, g := range catalog.FoodGroups() {
		expr = append(expr, g.Key, g.Color)
	}
	return append(expr, catalog.FoodGroupFor("").Color)
}

// radiusByProduction scales marker radius with annual production so the
// big baskets read as big at a glance.
func radiusByProduction() []any {
	return []any{
		"interpolate", []any{"linear"}, []any{"get", "production"},
		0, 4.0,
		50, 7.0,
		200, 12.0,
	}
}
