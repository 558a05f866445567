package basket

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/kushankb/burdens-app/internal/catalog"
)

// Tile encodes the breadbasket points intersecting tile z/x/y as a
// gzipped Mapbox vector tile. An empty tile returns (nil, nil) so the
// handler can answer 204.
func (s *Service) Tile(z, x, y uint32) ([]byte, error) {
	tile := maptile.New(x, y, maptile.Zoom(z))
	bound := tile.Bound()

	s.mu.RLock()
	features := s.fc.Features
	s.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok || !bound.Contains(pt) {
			continue
		}
		// ProjectToTile mutates geometry in place, so each tile gets
		// its own copy of the point.
		clone := geojson.NewFeature(orb.Point{pt[0], pt[1]})
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		fc.Append(clone)
	}

	if len(fc.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(catalog.Breadbaskets().SourceLayer, fc)
	layer.ProjectToTile(tile)

	return mvt.MarshalGzipped(mvt.Layers{layer})
}
