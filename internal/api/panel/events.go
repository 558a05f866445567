package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/humastar"
)

// Events streams state changes for one session so every open tab stays
// coherent: each change re-renders the panel, legend and sync signals.
func (p *Panel) Events(ctx context.Context, input *SessionQueryInput) (*huma.StreamResponse, error) {
	id := input.Session
	return p.Stream(func(sse humastar.SSE) {
		p.streamEvents(ctx, sse, id)
	}), nil
}

func (p *Panel) streamEvents(ctx context.Context, sse humastar.SSE, id string) {
	ch := p.bus.Subscribe()
	defer p.bus.Unsubscribe(ch)

	p.logger.Debug("panel event stream opened", "session", id)
	defer p.logger.Debug("panel event stream closed", "session", id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			if ev.Session != id {
				continue
			}
			p.patchView(sse, ev.State)
		}
	}
}
