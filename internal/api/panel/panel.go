// Package panel contains the Datastar SSE handlers behind the map UI:
// the layer control panel, the legend, the breadbasket popup and the
// per-session event stream.
package panel

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/basket"
	"github.com/kushankb/burdens-app/internal/catalog"
	"github.com/kushankb/burdens-app/internal/humastar"
	"github.com/kushankb/burdens-app/internal/session"
	"github.com/kushankb/burdens-app/internal/style"
	"github.com/kushankb/burdens-app/internal/view"
)

// basketAccent is the toggle button accent for the breadbasket overlay.
// The markers themselves are colored per food group.
const basketAccent = "#5D4037"

// Panel bundles everything the SSE handlers patch from: session state,
// fragment templates, the style builder for layer sync signals, and the
// event bus for cross-tab coherence.
type Panel struct {
	humastar.Handler
	sessions *session.Manager
	baskets  *basket.Service
	styles   *style.Builder
	bus      *session.Bus
	logger   *slog.Logger
}

func New(sessions *session.Manager, baskets *basket.Service, styles *style.Builder, bus *session.Bus, renderer *humastar.Renderer, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{
		Handler:  humastar.Handler{Renderer: renderer},
		sessions: sessions,
		baskets:  baskets,
		styles:   styles,
		bus:      bus,
		logger:   logger,
	}
}

func (p *Panel) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/panel/init", p.Init, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/toggle", p.Toggle, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/opacity", p.Opacity, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/threshold", p.Threshold, huma.OperationTags("panel"))
	huma.Post(api, "/api/v1/panel/mode", p.Mode, huma.OperationTags("panel"))
	huma.Get(api, "/api/v1/panel/events", p.Events, huma.OperationTags("panel"))
	huma.Get(api, "/api/v1/panel/popup", p.Popup, huma.OperationTags("panel"))
}

// SessionQueryInput identifies the session on GET endpoints, where
// Datastar cannot post signals.
type SessionQueryInput struct {
	Session string `query:"session" required:"true" doc:"Session ID"`
}

// ControlRow is one layer entry in the control panel fragment.
type ControlRow struct {
	Key     string
	Label   string
	Color   string
	Active  bool
	Opacity float64
}

// ControlsData feeds the layer-buttons fragment.
type ControlsData struct {
	Mode      string
	Threshold string
	Rows      []ControlRow
}

func (p *Panel) controlsData(s view.State) ControlsData {
	data := ControlsData{
		Mode:      string(s.Mode),
		Threshold: string(s.Threshold),
	}

	if s.Mode == catalog.ModeCooccurrence {
		co := catalog.Cooccurrence()
		data.Rows = append(data.Rows, ControlRow{
			Key:     string(co.Key),
			Label:   co.Label,
			Color:   co.Scale[len(co.Scale)-1].Color,
			Active:  s.IsActive(co.Key),
			Opacity: s.OpacityFor(co.Key),
		})
	} else {
		for _, b := range catalog.Burdens() {
			data.Rows = append(data.Rows, ControlRow{
				Key:     string(b.Key),
				Label:   b.ShortLabel,
				Color:   b.ColorDark,
				Active:  s.IsActive(b.Key),
				Opacity: s.OpacityFor(b.Key),
			})
		}
	}

	points := catalog.Breadbaskets()
	data.Rows = append(data.Rows, ControlRow{
		Key:     string(points.Key),
		Label:   points.Label,
		Color:   basketAccent,
		Active:  s.IsActive(points.Key),
		Opacity: s.OpacityFor(points.Key),
	})

	return data
}

func (p *Panel) renderControls(s view.State) string {
	return p.Renderer.MustRender("layer-buttons", p.controlsData(s))
}

func (p *Panel) renderLegend(s view.State) string {
	return p.Renderer.MustRender("legend", catalog.LegendFor(s.Mode, s.Threshold, s.Active))
}

// syncSignals is the signal payload the viewer's map effect applies:
// per-raster visibility and opacity plus the current mode and threshold.
func (p *Panel) syncSignals(s view.State) map[string]any {
	return map[string]any{
		"layers":    p.styles.Sync(s),
		"mode":      string(s.Mode),
		"threshold": string(s.Threshold),
	}
}

// patchView pushes the full re-render for a state: both fragments plus
// the layer sync signals.
func (p *Panel) patchView(sse humastar.SSE, s view.State) {
	sse.Replace(p.renderControls(s), "#layer-buttons")
	sse.Replace(p.renderLegend(s), "#legend")
	sse.Signals(p.syncSignals(s))
}
