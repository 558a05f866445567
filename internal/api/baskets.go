package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/basket"
)

// BasketHandler serves the breadbasket point data and its production
// aggregates.
type BasketHandler struct {
	svc *basket.Service
}

func NewBasketHandler(svc *basket.Service) *BasketHandler {
	return &BasketHandler{svc: svc}
}

func (h *BasketHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/breadbaskets", h.GetBreadbaskets, huma.OperationTags("baskets"))
	huma.Get(api, "/api/v1/breadbaskets/stats", h.GetStats, huma.OperationTags("baskets"))
	huma.Get(api, "/api/v1/breadbaskets/{id}", h.GetBreadbasket, huma.OperationTags("baskets"))
}

// GeoJSONOutput carries a raw GeoJSON document.
type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (h *BasketHandler) GetBreadbaskets(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	return &GeoJSONOutput{
		ContentType: "application/geo+json",
		Body:        h.svc.GeoJSON(),
	}, nil
}

type StatsBody struct {
	Groups []basket.GroupTotal `json:"groups" doc:"Production totals per food group, largest first"`
	Count  int                 `json:"count" doc:"Number of breadbasket regions"`
}

func (h *BasketHandler) GetStats(ctx context.Context, input *struct{}) (*struct{ Body StatsBody }, error) {
	totals, err := h.svc.GroupTotals(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to aggregate production", err)
	}
	return &struct{ Body StatsBody }{Body: StatsBody{
		Groups: totals,
		Count:  h.svc.Count(),
	}}, nil
}

type BasketIDInput struct {
	ID string `path:"id" doc:"Breadbasket feature ID" example:"pampas"`
}

func (h *BasketHandler) GetBreadbasket(ctx context.Context, input *BasketIDInput) (*struct{ Body basket.PopupData }, error) {
	data, ok := h.svc.Popup(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("breadbasket not found")
	}
	return &struct{ Body basket.PopupData }{Body: data}, nil
}
