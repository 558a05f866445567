package view

import "github.com/kushankb/burdens-app/internal/catalog"

// LayerKind distinguishes how a style layer is rendered.
type LayerKind string

const (
	KindVector LayerKind = "vector"
	KindRaster LayerKind = "raster"
)

// LayerState is the rendered visibility and opacity of one style layer.
// The map client applies these verbatim; it never re-derives anything.
type LayerState struct {
	ID      string           `json:"id" doc:"Style layer ID"`
	Key     catalog.LayerKey `json:"key" doc:"Owning layer key"`
	Kind    LayerKind        `json:"kind" doc:"vector or raster"`
	Visible bool             `json:"visible"`
	Opacity float64          `json:"opacity"`
}

// Layers derives the full render list from a state. The list always
// covers the same 11 style layers in the same order: the breadbasket
// markers, then every raster variant. A raster is visible iff its key
// is active and its threshold variant matches the selected threshold.
// The derivation is pure, so applying the same state twice yields the
// same list.
func Layers(s State) []LayerState {
	rasters := catalog.RasterLayers()
	out := make([]LayerState, 0, 1+len(rasters))

	out = append(out, LayerState{
		ID:      string(catalog.KeyBreadbaskets),
		Key:     catalog.KeyBreadbaskets,
		Kind:    KindVector,
		Visible: s.IsActive(catalog.KeyBreadbaskets),
		Opacity: s.OpacityFor(catalog.KeyBreadbaskets),
	})

	for _, r := range rasters {
		out = append(out, LayerState{
			ID:      r.ID,
			Key:     r.Key,
			Kind:    KindRaster,
			Visible: s.IsActive(r.Key) && r.Threshold == s.Threshold,
			Opacity: s.OpacityFor(r.Key),
		})
	}
	return out
}

// VisibleIDs returns just the IDs of visible layers, mainly for tests
// and logging.
func VisibleIDs(s State) []string {
	var ids []string
	for _, l := range Layers(s) {
		if l.Visible {
			ids = append(ids, l.ID)
		}
	}
	return ids
}
