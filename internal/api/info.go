package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/catalog"
)

type InfoHandler struct {
	dataDir string
	env     catalog.Env
	dbOK    bool
}

func NewInfoHandler(dataDir string, env catalog.Env, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, env: env, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Env      string   `json:"env" doc:"Deployment environment"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether the analytics database is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"cooccurrence", "thresholds", "breadbaskets", "raster-cache", "mbtiles"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "burdens-app",
		Version:  Version,
		Env:      string(h.env),
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: features,
	}}, nil
}
