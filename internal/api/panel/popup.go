package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/humastar"
)

type PopupInput struct {
	Feature string `query:"feature" required:"true" doc:"Breadbasket feature ID" example:"pampas"`
}

// Popup fills the hover card for a breadbasket feature: name, food
// group chip and formatted production. Malformed attributes degrade to
// fallbacks inside the basket service; an unknown ID just empties the
// card. Content is patched inner so the card element itself, which the
// viewer positions at the pointer, stays untouched.
func (p *Panel) Popup(ctx context.Context, input *PopupInput) (*huma.StreamResponse, error) {
	data, ok := p.baskets.Popup(input.Feature)
	return p.Stream(func(sse humastar.SSE) {
		if !ok {
			sse.Patch("", "#basket-popup")
			return
		}
		sse.Patch(p.Renderer.MustRender("popup", data), "#basket-popup")
	}), nil
}
