package tiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	_ "modernc.org/sqlite"
)

// WarmStats summarizes one warming run.
type WarmStats struct {
	Fetched int
	Missing int
	Failed  int
}

// Warm fetches every tile of a source inside bound for the zoom range,
// populating the disk cache as a side effect. When out is non-empty
// the tiles are additionally written to an MBTiles file there, for
// shipping rasters to offline deployments.
func Warm(ctx context.Context, src Source, bound orb.Bound, minZoom, maxZoom int, out string) (WarmStats, error) {
	var stats WarmStats

	var db *sql.DB
	if out != "" {
		var err error
		db, err = createMBTiles(out)
		if err != nil {
			return stats, err
		}
		defer db.Close()
	}

	for z := minZoom; z <= maxZoom; z++ {
		for _, t := range tilesInBound(bound, maptile.Zoom(z)) {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			data, err := src.Tile(ctx, z, int(t.X), int(t.Y))
			switch {
			case errors.Is(err, ErrNotFound) || (err == nil && len(data) == 0):
				stats.Missing++
				continue
			case err != nil:
				stats.Failed++
				continue
			}
			stats.Fetched++

			if db != nil {
				if err := putTile(db, z, int(t.X), int(t.Y), data); err != nil {
					return stats, fmt.Errorf("writing tile %d/%d/%d: %w", z, t.X, t.Y, err)
				}
			}
		}
	}

	if db != nil {
		meta := map[string]string{
			"name":    src.Key(),
			"format":  "png",
			"version": "1.1",
			"scheme":  "tms",
			"minzoom": fmt.Sprintf("%d", minZoom),
			"maxzoom": fmt.Sprintf("%d", maxZoom),
		}
		if err := putMeta(db, meta); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// tilesInBound lists the tiles at one zoom level covering a bound.
func tilesInBound(bound orb.Bound, zoom maptile.Zoom) []maptile.Tile {
	minTile := maptile.At(bound.Min, zoom)
	maxTile := maptile.At(bound.Max, zoom)

	minX, maxX := minTile.X, maxTile.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := minTile.Y, maxTile.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	var tiles []maptile.Tile
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, zoom))
		}
	}
	return tiles
}

func createMBTiles(path string) (*sql.DB, error) {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tiles (
		zoom_level INTEGER NOT NULL,
		tile_column INTEGER NOT NULL,
		tile_row INTEGER NOT NULL,
		tile_data BLOB NOT NULL,
		UNIQUE (zoom_level, tile_column, tile_row))`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS metadata (name TEXT, value TEXT)"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func putTile(db *sql.DB, z, x, y int, data []byte) error {
	// MBTiles rows are TMS, so flip Y on the way in.
	row := 1<<z - y - 1
	_, err := db.Exec(
		"INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?,?,?,?)",
		z, x, row, data)
	return err
}

func putMeta(db *sql.DB, meta map[string]string) error {
	for k, v := range meta {
		if _, err := db.Exec("INSERT INTO metadata (name, value) VALUES (?,?)", k, v); err != nil {
			return err
		}
	}
	return nil
}
