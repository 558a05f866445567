// Package view holds the per-session map view state and the single
// reducer that advances it.
//
// The state is deliberately small: which layers are toggled on, their
// opacities, the threshold variant and the view mode. Every change goes
// through Apply, which keeps the mode/active-set invariants enforced in
// one place instead of scattering them across UI callbacks.
package view

import (
	"fmt"
	"math"

	"github.com/kushankb/burdens-app/internal/catalog"
)

// State is the full view state of one session.
type State struct {
	Mode      catalog.ViewMode             `json:"mode" doc:"Active view mode" enum:"cooccurrence,individual"`
	Threshold catalog.Threshold            `json:"threshold" doc:"Active threshold variant" enum:"strict,liberal"`
	Active    []catalog.LayerKey           `json:"active" doc:"Active layer keys in display order"`
	Opacity   map[catalog.LayerKey]float64 `json:"opacity" doc:"Per-layer opacity, 0 to 1"`
}

// DefaultState returns the view every new session starts from: the
// co-occurrence raster over the breadbasket markers, strict threshold.
func DefaultState() State {
	s := State{
		Mode:      catalog.ModeCooccurrence,
		Threshold: catalog.ThresholdStrict,
		Active:    []catalog.LayerKey{catalog.KeyBreadbaskets, catalog.KeyCooccurrence},
		Opacity:   make(map[catalog.LayerKey]float64, 6),
	}
	for _, key := range allKeys() {
		s.Opacity[key] = catalog.DefaultOpacity(key)
	}
	return s
}

// Clone returns a deep copy. Apply never mutates its input, so handlers
// can hold a State value without worrying about aliasing.
func (s State) Clone() State {
	out := s
	out.Active = append([]catalog.LayerKey(nil), s.Active...)
	out.Opacity = make(map[catalog.LayerKey]float64, len(s.Opacity))
	for k, v := range s.Opacity {
		out.Opacity[k] = v
	}
	return out
}

// IsActive reports whether a layer key is in the active set.
func (s State) IsActive(key catalog.LayerKey) bool {
	for _, k := range s.Active {
		if k == key {
			return true
		}
	}
	return false
}

// OpacityFor returns the stored opacity for a key, falling back to the
// catalog default when the key was never adjusted.
func (s State) OpacityFor(key catalog.LayerKey) float64 {
	if v, ok := s.Opacity[key]; ok {
		return v
	}
	return catalog.DefaultOpacity(key)
}

// Valid checks the state invariants: known mode and threshold, no
// co-occurrence/burden mix in the active set, opacities within [0,1].
func (s State) Valid() error {
	if !s.Mode.Valid() {
		return fmt.Errorf("invalid view mode %q", s.Mode)
	}
	if !s.Threshold.Valid() {
		return fmt.Errorf("invalid threshold %q", s.Threshold)
	}
	hasCooc := false
	hasBurden := false
	seen := make(map[catalog.LayerKey]bool, len(s.Active))
	for _, k := range s.Active {
		if !catalog.Known(k) {
			return fmt.Errorf("unknown layer key %q in active set", k)
		}
		if seen[k] {
			return fmt.Errorf("duplicate layer key %q in active set", k)
		}
		seen[k] = true
		if k == catalog.KeyCooccurrence {
			hasCooc = true
		}
		if catalog.IsBurden(k) {
			hasBurden = true
		}
	}
	if hasCooc && hasBurden {
		return fmt.Errorf("co-occurrence and burden layers active together")
	}
	for k, v := range s.Opacity {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("opacity %v out of range for %q", v, k)
		}
	}
	return nil
}

// ActionKind names one of the four view transitions.
type ActionKind string

const (
	ActionToggle       ActionKind = "toggle"
	ActionSetOpacity   ActionKind = "opacity"
	ActionSetThreshold ActionKind = "threshold"
	ActionSetMode      ActionKind = "mode"
)

// Action is a single view transition request.
type Action struct {
	Kind      ActionKind        `json:"kind"`
	Layer     catalog.LayerKey  `json:"layer,omitempty"`
	Opacity   float64           `json:"opacity,omitempty"`
	Threshold catalog.Threshold `json:"threshold,omitempty"`
	Mode      catalog.ViewMode  `json:"mode,omitempty"`
}

// Toggle flips a layer's membership in the active set.
func Toggle(key catalog.LayerKey) Action {
	return Action{Kind: ActionToggle, Layer: key}
}

// SetOpacity stores an opacity for a layer, clamped to [0,1].
func SetOpacity(key catalog.LayerKey, value float64) Action {
	return Action{Kind: ActionSetOpacity, Layer: key, Opacity: value}
}

// SetThreshold switches the global threshold variant.
func SetThreshold(t catalog.Threshold) Action {
	return Action{Kind: ActionSetThreshold, Threshold: t}
}

// SetMode switches between co-occurrence and individual view modes.
func SetMode(m catalog.ViewMode) Action {
	return Action{Kind: ActionSetMode, Mode: m}
}

// Apply advances a state by one action and returns the new state. It is
// pure: the input state is never modified. Invalid or out-of-mode
// actions leave the state unchanged rather than failing, so the reducer
// is total and the caller needs no error path for user input races.
func Apply(s State, a Action) State {
	next := s.Clone()

	switch a.Kind {
	case ActionToggle:
		if !catalog.Known(a.Layer) {
			return next
		}
		// A raster belonging to the other view mode cannot be toggled
		// on; the control panel never offers it, and ignoring it here
		// keeps the mode invariant intact even for stray requests.
		if next.Mode == catalog.ModeCooccurrence && catalog.IsBurden(a.Layer) {
			return next
		}
		if next.Mode == catalog.ModeIndividual && a.Layer == catalog.KeyCooccurrence {
			return next
		}
		if next.IsActive(a.Layer) {
			next.Active = remove(next.Active, a.Layer)
		} else {
			next.Active = insertOrdered(next.Active, a.Layer)
		}

	case ActionSetOpacity:
		if !catalog.Known(a.Layer) || math.IsNaN(a.Opacity) {
			return next
		}
		next.Opacity[a.Layer] = clamp01(a.Opacity)

	case ActionSetThreshold:
		if !a.Threshold.Valid() {
			return next
		}
		next.Threshold = a.Threshold

	case ActionSetMode:
		if !a.Mode.Valid() || a.Mode == next.Mode {
			return next
		}
		next.Mode = a.Mode
		if a.Mode == catalog.ModeCooccurrence {
			// Entering co-occurrence clears every burden key and
			// guarantees the combined raster is shown.
			for _, b := range catalog.BurdenKeys() {
				next.Active = remove(next.Active, b)
			}
			if !next.IsActive(catalog.KeyCooccurrence) {
				next.Active = insertOrdered(next.Active, catalog.KeyCooccurrence)
			}
		} else {
			// Entering individual mode drops only the combined raster;
			// burden selections made earlier stay as they were.
			next.Active = remove(next.Active, catalog.KeyCooccurrence)
		}
	}

	return next
}

// allKeys returns every togglable layer key in canonical display order.
func allKeys() []catalog.LayerKey {
	keys := []catalog.LayerKey{catalog.KeyBreadbaskets, catalog.KeyCooccurrence}
	return append(keys, catalog.BurdenKeys()...)
}

// insertOrdered adds a key while keeping Active in canonical order, so
// state comparisons and rendered layer lists are deterministic no
// matter the toggle sequence.
func insertOrdered(active []catalog.LayerKey, key catalog.LayerKey) []catalog.LayerKey {
	on := make(map[catalog.LayerKey]bool, len(active)+1)
	for _, k := range active {
		on[k] = true
	}
	on[key] = true

	out := make([]catalog.LayerKey, 0, len(active)+1)
	for _, k := range allKeys() {
		if on[k] {
			out = append(out, k)
		}
	}
	return out
}

func remove(active []catalog.LayerKey, key catalog.LayerKey) []catalog.LayerKey {
	out := active[:0]
	for _, k := range active {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
