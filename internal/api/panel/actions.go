package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/catalog"
	"github.com/kushankb/burdens-app/internal/humastar"
	"github.com/kushankb/burdens-app/internal/view"
)

// Init renders the initial panel and legend and seeds the layer sync
// signals. The page calls it once on load.
func (p *Panel) Init(ctx context.Context, input *SessionQueryInput) (*huma.StreamResponse, error) {
	s := p.sessions.GetOrCreate(input.Session)
	return p.Stream(func(sse humastar.SSE) {
		p.patchView(sse, s)
	}), nil
}

// Toggle flips a layer on or off. Signals: session, layer.
func (p *Panel) Toggle(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	id := signals.String("session")
	if id == "" {
		return nil, huma.Error400BadRequest("session signal is required")
	}
	key := catalog.LayerKey(signals.String("layer"))
	if !catalog.Known(key) {
		return nil, huma.Error400BadRequest("unknown layer key: " + signals.String("layer"))
	}

	return p.Stream(func(sse humastar.SSE) {
		s := p.sessions.Apply(id, view.Toggle(key))
		p.patchView(sse, s)
	}), nil
}

// Opacity sets a layer's opacity. Signals: session, layer, value.
// Out-of-range values clamp rather than fail.
func (p *Panel) Opacity(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	id := signals.String("session")
	if id == "" {
		return nil, huma.Error400BadRequest("session signal is required")
	}
	key := catalog.LayerKey(signals.String("layer"))
	if !catalog.Known(key) {
		return nil, huma.Error400BadRequest("unknown layer key: " + signals.String("layer"))
	}
	value := signals.Float("value")

	return p.Stream(func(sse humastar.SSE) {
		s := p.sessions.Apply(id, view.SetOpacity(key, value))
		p.patchView(sse, s)
	}), nil
}

// Threshold switches between the strict and liberal raster variants.
// Signals: session, value.
func (p *Panel) Threshold(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	id := signals.String("session")
	if id == "" {
		return nil, huma.Error400BadRequest("session signal is required")
	}
	threshold, err := catalog.ParseThreshold(signals.String("value"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return p.Stream(func(sse humastar.SSE) {
		s := p.sessions.Apply(id, view.SetThreshold(threshold))
		p.patchView(sse, s)
	}), nil
}

// Mode switches between the co-occurrence and individual views.
// Signals: session, value.
func (p *Panel) Mode(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	id := signals.String("session")
	if id == "" {
		return nil, huma.Error400BadRequest("session signal is required")
	}
	mode, err := catalog.ParseViewMode(signals.String("value"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return p.Stream(func(sse humastar.SSE) {
		s := p.sessions.Apply(id, view.SetMode(mode))
		p.patchView(sse, s)
	}), nil
}
