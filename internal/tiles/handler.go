package tiles

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

var (
	transparentOnce sync.Once
	transparentPNG  []byte
)

// TransparentTile returns a fully transparent 256x256 PNG, served
// wherever a source has no coverage so the map shows the layers
// underneath instead of a broken image.
func TransparentTile() []byte {
	transparentOnce.Do(func() {
		var buf bytes.Buffer
		img := image.NewRGBA(image.Rect(0, 0, 256, 256))
		if err := png.Encode(&buf, img); err == nil {
			transparentPNG = buf.Bytes()
		}
	})
	return transparentPNG
}

// Handler serves raster tiles at {dir}/{z}/{x}/{y}.png relative to its
// mount point. Tiles are CORS-open like the upstream host, so the map
// client treats both origins the same.
func Handler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		dir, z, x, y, ok := parseTilePath(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		src, found := reg.Get(dir)
		if !found {
			http.NotFound(w, r)
			return
		}

		data, err := src.Tile(r.Context(), z, x, y)
		if err != nil || len(data) == 0 {
			if err != nil && !errors.Is(err, ErrNotFound) {
				reg.logger.Debug("tile fetch failed", "dir", dir, "z", z, "x", x, "y", y, "error", err)
			}
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Cache-Control", "public, max-age=300")
			w.WriteHeader(http.StatusOK)
			w.Write(TransparentTile())
			return
		}

		w.Header().Set("Content-Type", src.ContentType())
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write(data)
	})
}

// parseTilePath splits "dir/z/x/y.png" into its parts.
func parseTilePath(path string) (dir string, z, x, y int, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return "", 0, 0, 0, false
	}

	yPart, found := strings.CutSuffix(parts[3], ".png")
	if !found {
		return "", 0, 0, 0, false
	}

	z, errZ := strconv.Atoi(parts[1])
	x, errX := strconv.Atoi(parts[2])
	y, errY := strconv.Atoi(yPart)
	if errZ != nil || errX != nil || errY != nil || z < 0 || x < 0 || y < 0 {
		return "", 0, 0, 0, false
	}
	return parts[0], z, x, y, true
}
