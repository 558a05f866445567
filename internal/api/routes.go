// Package api defines the Huma REST routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Version is reported by the health and info endpoints.
const Version = "0.1.0"

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// APIHandler holds the top-level REST handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct{}

func NewAPIHandler() *APIHandler {
	return &APIHandler{}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}
