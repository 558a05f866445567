package view

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/kushankb/burdens-app/internal/catalog"
)

func TestDefaultState(t *testing.T) {
	s := DefaultState()
	if err := s.Valid(); err != nil {
		t.Fatalf("default state invalid: %v", err)
	}
	if s.Mode != catalog.ModeCooccurrence || s.Threshold != catalog.ThresholdStrict {
		t.Errorf("default mode/threshold = %s/%s", s.Mode, s.Threshold)
	}

	got := VisibleIDs(s)
	want := []string{"breadbaskets", "cooccurrence_strict"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("default visible layers = %v, want %v", got, want)
	}

	// The other 9 rasters stay registered but hidden.
	hidden := 0
	for _, l := range Layers(s) {
		if !l.Visible {
			hidden++
		}
	}
	if hidden != 9 {
		t.Errorf("%d layers hidden, want 9", hidden)
	}
}

// Visibility must be a pure function of (active set, threshold): a
// raster is visible iff its key is active and its variant matches the
// selected threshold, regardless of how the state was reached.
func TestVisibilityRule(t *testing.T) {
	burdens := catalog.BurdenKeys()
	for mask := 0; mask < 1<<len(burdens); mask++ {
		for _, th := range catalog.Thresholds() {
			s := State{
				Mode:      catalog.ModeIndividual,
				Threshold: th,
				Active:    []catalog.LayerKey{catalog.KeyBreadbaskets},
				Opacity:   map[catalog.LayerKey]float64{},
			}
			for i, b := range burdens {
				if mask&(1<<i) != 0 {
					s.Active = append(s.Active, b)
				}
			}
			if err := s.Valid(); err != nil {
				t.Fatalf("mask %d: %v", mask, err)
			}

			for _, l := range Layers(s) {
				want := s.IsActive(l.Key)
				if l.Kind == KindRaster {
					r := rasterFor(t, l.ID)
					want = s.IsActive(r.Key) && r.Threshold == th
				}
				if l.Visible != want {
					t.Errorf("mask %d threshold %s: layer %s visible=%v, want %v",
						mask, th, l.ID, l.Visible, want)
				}
			}
		}
	}
}

func rasterFor(t *testing.T, id string) catalog.RasterLayer {
	t.Helper()
	for _, r := range catalog.RasterLayers() {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("no raster with ID %q", id)
	return catalog.RasterLayer{}
}

func TestSetModeCooccurrence(t *testing.T) {
	s := State{
		Mode:      catalog.ModeIndividual,
		Threshold: catalog.ThresholdStrict,
		Active: []catalog.LayerKey{
			catalog.KeyBreadbaskets, catalog.KeyEnvFootprint, catalog.KeyMalnutrition,
		},
		Opacity: map[catalog.LayerKey]float64{},
	}

	next := Apply(s, SetMode(catalog.ModeCooccurrence))
	if err := next.Valid(); err != nil {
		t.Fatalf("state invalid after mode switch: %v", err)
	}
	for _, k := range next.Active {
		if catalog.IsBurden(k) {
			t.Errorf("burden key %q still active in co-occurrence mode", k)
		}
	}
	if !next.IsActive(catalog.KeyCooccurrence) {
		t.Error("co-occurrence layer not activated by mode switch")
	}
	if !next.IsActive(catalog.KeyBreadbaskets) {
		t.Error("breadbaskets dropped by mode switch")
	}
}

func TestSetModeIndividual(t *testing.T) {
	next := Apply(DefaultState(), SetMode(catalog.ModeIndividual))
	if next.IsActive(catalog.KeyCooccurrence) {
		t.Error("co-occurrence still active in individual mode")
	}
	// Only the co-occurrence key is removed; everything else stays.
	if !next.IsActive(catalog.KeyBreadbaskets) {
		t.Error("breadbaskets dropped by mode switch")
	}
	if len(next.Active) != 1 {
		t.Errorf("active set = %v, want just breadbaskets", next.Active)
	}
}

func TestToggle(t *testing.T) {
	s := Apply(DefaultState(), SetMode(catalog.ModeIndividual))

	s = Apply(s, Toggle(catalog.KeyEnvFootprint))
	if !s.IsActive(catalog.KeyEnvFootprint) {
		t.Fatal("toggle on failed")
	}
	s = Apply(s, Toggle(catalog.KeyEnvFootprint))
	if s.IsActive(catalog.KeyEnvFootprint) {
		t.Fatal("toggle off failed")
	}

	// Unknown keys are ignored.
	before := s.Clone()
	s = Apply(s, Toggle(catalog.LayerKey("volcanoes")))
	if !reflect.DeepEqual(before, s) {
		t.Error("unknown key toggle changed state")
	}
}

func TestToggleRespectsMode(t *testing.T) {
	s := DefaultState() // co-occurrence mode
	next := Apply(s, Toggle(catalog.KeyEnvFootprint))
	if next.IsActive(catalog.KeyEnvFootprint) {
		t.Error("burden toggled on while in co-occurrence mode")
	}

	s = Apply(s, SetMode(catalog.ModeIndividual))
	next = Apply(s, Toggle(catalog.KeyCooccurrence))
	if next.IsActive(catalog.KeyCooccurrence) {
		t.Error("co-occurrence toggled on while in individual mode")
	}

	// Breadbaskets toggles freely in either mode.
	next = Apply(DefaultState(), Toggle(catalog.KeyBreadbaskets))
	if next.IsActive(catalog.KeyBreadbaskets) {
		t.Error("breadbaskets toggle ignored")
	}
}

// Opacity stored for an inactive key must not change any visible
// layer until the key becomes active.
func TestOpacityInactiveKey(t *testing.T) {
	s := DefaultState()
	before := visibleOpacities(s)

	s = Apply(s, SetOpacity(catalog.KeyEnvFootprint, 0.25))
	if !reflect.DeepEqual(visibleOpacities(s), before) {
		t.Fatal("opacity change for hidden layer affected visible layers")
	}

	s = Apply(s, SetMode(catalog.ModeIndividual))
	s = Apply(s, Toggle(catalog.KeyEnvFootprint))
	for _, l := range Layers(s) {
		if l.ID == "env_footprint_strict" {
			if !l.Visible {
				t.Fatal("env_footprint_strict should be visible")
			}
			if l.Opacity != 0.25 {
				t.Errorf("opacity = %v, want stored 0.25", l.Opacity)
			}
		}
	}
}

func visibleOpacities(s State) map[string]float64 {
	out := make(map[string]float64)
	for _, l := range Layers(s) {
		if l.Visible {
			out[l.ID] = l.Opacity
		}
	}
	return out
}

func TestOpacityClamping(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{-0.2, 0},
		{1.7, 1},
		{0, 0},
		{1, 1},
	}
	for _, c := range cases {
		s := Apply(DefaultState(), SetOpacity(catalog.KeyCooccurrence, c.in))
		if got := s.Opacity[catalog.KeyCooccurrence]; got != c.want {
			t.Errorf("SetOpacity(%v) stored %v, want %v", c.in, got, c.want)
		}
	}

	// NaN is dropped, not stored.
	s := Apply(DefaultState(), SetOpacity(catalog.KeyCooccurrence, math.NaN()))
	if got := s.Opacity[catalog.KeyCooccurrence]; got != catalog.DefaultOpacity(catalog.KeyCooccurrence) {
		t.Errorf("NaN opacity stored as %v", got)
	}
}

func TestThresholdSwap(t *testing.T) {
	s := DefaultState()
	next := Apply(s, SetThreshold(catalog.ThresholdLiberal))

	if !reflect.DeepEqual(next.Active, s.Active) {
		t.Errorf("threshold change altered active set: %v -> %v", s.Active, next.Active)
	}
	got := VisibleIDs(next)
	want := []string{"breadbaskets", "cooccurrence_liberal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("visible after threshold swap = %v, want %v", got, want)
	}
}

func TestIndividualScenario(t *testing.T) {
	s := Apply(DefaultState(), SetMode(catalog.ModeIndividual))
	s = Apply(s, Toggle(catalog.KeyEnvFootprint))
	s = Apply(s, Toggle(catalog.KeyIncomePoverty))

	visible := 0
	for _, l := range Layers(s) {
		if l.Kind != KindRaster {
			continue
		}
		switch l.ID {
		case "env_footprint_strict", "income_poverty_strict":
			if !l.Visible {
				t.Errorf("raster %s should be visible", l.ID)
			}
		default:
			if l.Visible {
				t.Errorf("raster %s should be hidden", l.ID)
			}
		}
		if l.Visible {
			visible++
		}
	}
	if visible != 2 {
		t.Errorf("%d rasters visible, want 2", visible)
	}
}

func TestDerivationIdempotent(t *testing.T) {
	s := Apply(DefaultState(), SetThreshold(catalog.ThresholdLiberal))
	s = Apply(s, SetOpacity(catalog.KeyCooccurrence, 0.42))

	first := Layers(s)
	second := Layers(s.Clone())
	if !reflect.DeepEqual(first, second) {
		t.Error("deriving the same state twice gave different layer lists")
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := DefaultState()
	snapshot := s.Clone()

	Apply(s, Toggle(catalog.KeyBreadbaskets))
	Apply(s, SetOpacity(catalog.KeyCooccurrence, 0.1))
	Apply(s, SetMode(catalog.ModeIndividual))

	if !reflect.DeepEqual(s, snapshot) {
		t.Error("Apply mutated its input state")
	}
}

// A long random action walk must never break the state invariants.
func TestInvariantsUnderRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	keys := append([]catalog.LayerKey{catalog.KeyBreadbaskets, catalog.KeyCooccurrence}, catalog.BurdenKeys()...)

	s := DefaultState()
	for i := 0; i < 2000; i++ {
		var a Action
		switch rng.Intn(4) {
		case 0:
			a = Toggle(keys[rng.Intn(len(keys))])
		case 1:
			a = SetOpacity(keys[rng.Intn(len(keys))], rng.Float64()*2-0.5)
		case 2:
			a = SetThreshold(catalog.Thresholds()[rng.Intn(2)])
		case 3:
			modes := []catalog.ViewMode{catalog.ModeCooccurrence, catalog.ModeIndividual}
			a = SetMode(modes[rng.Intn(2)])
		}
		s = Apply(s, a)
		if err := s.Valid(); err != nil {
			t.Fatalf("step %d action %+v: %v", i, a, err)
		}
	}
}
