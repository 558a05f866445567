package templates

import (
	"strings"
	"testing"

	"github.com/kushankb/burdens-app/internal/catalog"
)

type controlRow struct {
	Key     string
	Label   string
	Color   string
	Active  bool
	Opacity float64
}

type controlsData struct {
	Mode      string
	Threshold string
	Rows      []controlRow
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestRenderLayerButtons(t *testing.T) {
	r := newTestRenderer(t)

	html, err := r.Render("layer-buttons", controlsData{
		Mode:      "individual",
		Threshold: "liberal",
		Rows: []controlRow{
			{Key: "env_footprint", Label: "Environment", Color: "#1B5E20", Active: true, Opacity: 0.8},
			{Key: "breadbaskets", Label: "Breadbaskets", Color: "#5D4037", Active: false, Opacity: 1},
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		`id="layer-buttons"`,
		"Less strict",
		"$layer='env_footprint'",
		"80%",
		"@post('/api/v1/panel/toggle')",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("layer-buttons missing %q in:\n%s", want, html)
		}
	}
	if !strings.Contains(html, "disabled") {
		t.Error("inactive row should render a disabled opacity slider")
	}
}

func TestRenderLegend(t *testing.T) {
	r := newTestRenderer(t)

	leg := catalog.LegendFor(catalog.ModeCooccurrence, catalog.ThresholdStrict, []catalog.LayerKey{catalog.KeyCooccurrence})
	html, err := r.Render("legend", leg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, `id="legend"`) {
		t.Errorf("legend missing wrapper id in:\n%s", html)
	}
	if !strings.Contains(html, "Strict thresholds") {
		t.Errorf("legend missing threshold line in:\n%s", html)
	}
	if !strings.Contains(html, leg.Entries[0].Label) {
		t.Errorf("legend missing first scale entry %q", leg.Entries[0].Label)
	}
}

func TestRenderLegendEmpty(t *testing.T) {
	r := newTestRenderer(t)

	leg := catalog.LegendFor(catalog.ModeIndividual, catalog.ThresholdStrict, nil)
	html, err := r.Render("legend", leg)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(html, "Nothing selected") {
		t.Errorf("empty legend should render the empty state, got:\n%s", html)
	}
}

func TestRenderPopup(t *testing.T) {
	r := newTestRenderer(t)

	html, err := r.Render("popup", map[string]string{
		"Name":       "Pampas",
		"GroupLabel": "Grains",
		"GroupColor": "#F9A825",
		"ValueText":  "128.9 Mt/yr",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"Pampas", "Grains", "128.9 Mt/yr"} {
		if !strings.Contains(html, want) {
			t.Errorf("popup missing %q in:\n%s", want, html)
		}
	}
}

func TestRenderInfo(t *testing.T) {
	r := newTestRenderer(t)

	html, err := r.Render("info", map[string]any{
		"Burdens":      catalog.Burdens(),
		"Cooccurrence": catalog.Cooccurrence(),
		"Baskets":      catalog.Breadbaskets(),
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, b := range catalog.Burdens() {
		if !strings.Contains(html, b.Label) {
			t.Errorf("info missing burden %q", b.Label)
		}
	}
	if !strings.Contains(html, catalog.Cooccurrence().Label) {
		t.Error("info missing co-occurrence section")
	}
}

func TestReloadFromDir(t *testing.T) {
	r := newTestRenderer(t)

	if err := r.Reload("fragments"); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, err := r.Render("popup", map[string]string{"Name": "x"}); err != nil {
		t.Fatalf("Render after Reload: %v", err)
	}
}
