package catalog

import "fmt"

// Env selects which published tile set the map points at. The two
// origins carry the same directory layout; staging receives candidate
// rasters before they are promoted.
type Env string

const (
	EnvProduction  Env = "production"
	EnvDevelopment Env = "development"
)

const (
	productionTileBase  = "https://tiles.agrifoodburdens.org"
	developmentTileBase = "https://tiles-staging.agrifoodburdens.org"
)

// Valid reports whether e is a known environment.
func (e Env) Valid() bool {
	return e == EnvProduction || e == EnvDevelopment
}

// ParseEnv validates a raw environment name.
func ParseEnv(s string) (Env, error) {
	e := Env(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown environment %q", s)
	}
	return e, nil
}

// TileBase returns the tile host origin for the environment.
func (e Env) TileBase() string {
	if e == EnvDevelopment {
		return developmentTileBase
	}
	return productionTileBase
}

// TileURLTemplate returns the XYZ URL template for a tile directory,
// with {z}/{x}/{y} placeholders left for the map client.
func TileURLTemplate(env Env, dir string) string {
	return fmt.Sprintf("%s/%s/{z}/{x}/{y}.png", env.TileBase(), dir)
}

// TileURL resolves a concrete tile address.
func TileURL(env Env, dir string, z, x, y int) string {
	return fmt.Sprintf("%s/%s/%d/%d/%d.png", env.TileBase(), dir, z, x, y)
}
