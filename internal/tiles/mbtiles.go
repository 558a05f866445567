package tiles

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

var _ Source = &MBTiles{}

// MBTiles serves raster tiles from a local MBTiles file. Dropping a
// file named after a tile directory (for example
// cooccurrence_strict.mbtiles) into the tiles directory overrides the
// upstream host for that layer, which is how air-gapped deployments
// carry the rasters.
type MBTiles struct {
	key         string
	db          *sql.DB
	minZoom     int
	maxZoom     int
	tms         bool
	contentType string
	meta        map[string]string
}

// OpenMBTiles opens an MBTiles file and reads its metadata table.
func OpenMBTiles(key, path string) (*MBTiles, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	m := &MBTiles{
		key:         key,
		db:          db,
		tms:         true,
		contentType: "image/png",
	}

	if err := m.readMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading metadata of %s: %w", path, err)
	}
	if err := m.readZoomRange(); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading zoom range of %s: %w", path, err)
	}

	if v, ok := m.meta["minzoom"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			m.minZoom = n
		}
	}
	if v, ok := m.meta["maxzoom"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			m.maxZoom = n
		}
	}
	// MBTiles rows are TMS by convention unless the metadata opts out.
	if v, ok := m.meta["scheme"]; ok && v != "tms" {
		m.tms = false
	}
	if v, ok := m.meta["format"]; ok {
		switch v {
		case "png", "":
			m.contentType = "image/png"
		case "jpg", "jpeg":
			m.contentType = "image/jpeg"
		case "webp":
			m.contentType = "image/webp"
		default:
			db.Close()
			return nil, fmt.Errorf("unsupported tile format %q in %s", v, path)
		}
	}

	return m, nil
}

func (m *MBTiles) Key() string         { return m.key }
func (m *MBTiles) ContentType() string { return m.contentType }
func (m *MBTiles) MinZoom() int        { return m.minZoom }
func (m *MBTiles) MaxZoom() int        { return m.maxZoom }

// Name returns the dataset name from the metadata table, falling back
// to the key.
func (m *MBTiles) Name() string {
	if v, ok := m.meta["name"]; ok && v != "" {
		return v
	}
	return m.key
}

// Tile reads one tile, flipping Y for TMS files.
func (m *MBTiles) Tile(ctx context.Context, z, x, y int) ([]byte, error) {
	if z < m.minZoom || z > m.maxZoom {
		return nil, ErrNotFound
	}
	if m.tms {
		y = 1<<z - y - 1
	}

	row := m.db.QueryRowContext(ctx,
		"SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?",
		z, x, y)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Close releases the underlying database.
func (m *MBTiles) Close() error {
	return m.db.Close()
}

func (m *MBTiles) readMetadata() error {
	rows, err := m.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return err
	}
	defer rows.Close()

	m.meta = make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		m.meta[name] = value
	}
	return rows.Err()
}

func (m *MBTiles) readZoomRange() error {
	row := m.db.QueryRow("SELECT min(zoom_level), max(zoom_level) FROM tiles")

	var zmin, zmax sql.NullInt64
	if err := row.Scan(&zmin, &zmax); err != nil {
		return err
	}
	if zmin.Valid {
		m.minZoom = int(zmin.Int64)
	}
	if zmax.Valid {
		m.maxZoom = int(zmax.Int64)
	}
	return nil
}
