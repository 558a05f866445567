package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/catalog"
)

// CatalogHandler serves the static layer catalog: burden and co-occurrence
// descriptors, raster variants with tile URL templates, food groups and
// derived legends.
type CatalogHandler struct {
	env catalog.Env
}

func NewCatalogHandler(env catalog.Env) *CatalogHandler {
	return &CatalogHandler{env: env}
}

func (h *CatalogHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/catalog/layers", h.GetLayers, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/catalog/legend", h.GetLegend, huma.OperationTags("catalog"))
	huma.Get(api, "/api/v1/catalog/foodgroups", h.GetFoodGroups, huma.OperationTags("catalog"))
}

// RasterDescriptor is one concrete raster variant with its resolved tile URL.
type RasterDescriptor struct {
	Key       catalog.LayerKey  `json:"key" doc:"Layer key"`
	Threshold catalog.Threshold `json:"threshold" doc:"Threshold variant"`
	ID        string            `json:"id" doc:"Style layer ID" example:"env_footprint_strict"`
	TileDir   string            `json:"tileDir" doc:"Tile directory on the tile host"`
	TileURL   string            `json:"tileUrl" doc:"XYZ tile URL template" example:"https://tiles.agrifoodburdens.org/env_footprint_strict/{z}/{x}/{y}.png"`
}

type CatalogBody struct {
	Env          string                    `json:"env" doc:"Deployment environment the tile URLs point at"`
	Burdens      []catalog.BurdenLayer     `json:"burdens" doc:"Individual burden layers"`
	Cooccurrence catalog.CooccurrenceLayer `json:"cooccurrence" doc:"Combined burden-count layer"`
	Breadbaskets catalog.PointLayer        `json:"breadbaskets" doc:"Breadbasket point overlay"`
	Rasters      []RasterDescriptor        `json:"rasters" doc:"All raster variants with tile URLs"`
}

func (h *CatalogHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body CatalogBody }, error) {
	rasters := catalog.RasterLayers()
	descs := make([]RasterDescriptor, 0, len(rasters))
	for _, r := range rasters {
		descs = append(descs, RasterDescriptor{
			Key:       r.Key,
			Threshold: r.Threshold,
			ID:        r.ID,
			TileDir:   r.TileDir,
			TileURL:   catalog.TileURLTemplate(h.env, r.TileDir),
		})
	}

	return &struct{ Body CatalogBody }{Body: CatalogBody{
		Env:          string(h.env),
		Burdens:      catalog.Burdens(),
		Cooccurrence: catalog.Cooccurrence(),
		Breadbaskets: catalog.Breadbaskets(),
		Rasters:      descs,
	}}, nil
}

type LegendInput struct {
	Mode      string   `query:"mode" enum:"cooccurrence,individual" default:"cooccurrence" doc:"View mode"`
	Threshold string   `query:"threshold" enum:"strict,liberal" default:"strict" doc:"Threshold variant"`
	Active    []string `query:"active" doc:"Active layer keys, comma separated" example:"cooccurrence,breadbaskets"`
}

func (h *CatalogHandler) GetLegend(ctx context.Context, input *LegendInput) (*struct{ Body catalog.Legend }, error) {
	mode, err := catalog.ParseViewMode(input.Mode)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	threshold, err := catalog.ParseThreshold(input.Threshold)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	active := make([]catalog.LayerKey, 0, len(input.Active))
	for _, k := range input.Active {
		active = append(active, catalog.LayerKey(k))
	}

	return &struct{ Body catalog.Legend }{Body: catalog.LegendFor(mode, threshold, active)}, nil
}

func (h *CatalogHandler) GetFoodGroups(ctx context.Context, input *struct{}) (*struct{ Body []catalog.FoodGroup }, error) {
	return &struct{ Body []catalog.FoodGroup }{Body: catalog.FoodGroups()}, nil
}
