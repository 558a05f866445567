package tiles

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var _ Source = &Upstream{}

// Upstream proxies an XYZ tile endpoint with a write-through disk
// cache. Cached tiles live under <cacheDir>/<key>/<z>/<x>/<y>.png,
// mirroring the upstream layout so a warmed cache can be copied
// straight onto a tile host.
type Upstream struct {
	key      string
	url      string
	cacheDir string
	minZoom  int
	maxZoom  int
	ttl      time.Duration
	cl       *http.Client
	logger   *slog.Logger
}

// NewUpstream creates a proxy source for one tile directory. url is an
// XYZ template with {z}/{x}/{y} placeholders. A zero ttl means cached
// tiles never expire; the published rasters only change on dataset
// releases.
func NewUpstream(key, url, cacheDir string, ttl time.Duration, minZoom, maxZoom int, logger *slog.Logger) *Upstream {
	if logger == nil {
		logger = slog.Default()
	}
	if maxZoom <= 0 {
		maxZoom = 10
	}
	return &Upstream{
		key:      key,
		url:      url,
		cacheDir: filepath.Join(cacheDir, key),
		minZoom:  minZoom,
		maxZoom:  maxZoom,
		ttl:      ttl,
		logger:   logger.With("source", key),
		cl: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				ResponseHeaderTimeout: 10 * time.Second,
			},
		},
	}
}

func (u *Upstream) Key() string         { return u.key }
func (u *Upstream) ContentType() string { return "image/png" }
func (u *Upstream) MinZoom() int        { return u.minZoom }
func (u *Upstream) MaxZoom() int        { return u.maxZoom }

// Tile returns the tile from cache or upstream. A 404 from upstream is
// ErrNotFound; a stale cache entry is refreshed but still served when
// the refresh fails, so an upstream outage degrades to old tiles
// instead of blank ones.
func (u *Upstream) Tile(ctx context.Context, z, x, y int) ([]byte, error) {
	if z < u.minZoom || z > u.maxZoom {
		return nil, ErrNotFound
	}

	fname := u.cachePath(z, x, y)
	st, err := os.Stat(fname)
	if err == nil {
		if u.ttl == 0 || time.Since(st.ModTime()) < u.ttl {
			u.logger.Debug("cache hit", "z", z, "x", x, "y", y)
			return os.ReadFile(fname)
		}
		data, err := u.download(ctx, z, x, y)
		if err != nil {
			u.logger.Debug("refresh failed, serving stale tile", "z", z, "x", x, "y", y, "error", err)
			return os.ReadFile(fname)
		}
		return data, nil
	}

	u.logger.Debug("cache miss", "z", z, "x", x, "y", y)
	return u.download(ctx, z, x, y)
}

func (u *Upstream) cachePath(z, x, y int) string {
	return filepath.Join(u.cacheDir, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+".png")
}

func (u *Upstream) tileURL(z, x, y int) string {
	url := strings.ReplaceAll(u.url, "{z}", strconv.Itoa(z))
	url = strings.ReplaceAll(url, "{x}", strconv.Itoa(x))
	return strings.ReplaceAll(url, "{y}", strconv.Itoa(y))
}

func (u *Upstream) download(ctx context.Context, z, x, y int) ([]byte, error) {
	url := u.tileURL(z, x, y)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "burdens-app tile proxy")

	resp, err := u.cl.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := u.store(z, x, y, data); err != nil {
		// A broken cache only costs a re-download next time.
		u.logger.Warn("cache write failed", "z", z, "x", x, "y", y, "error", err)
	}
	return data, nil
}

// store writes a tile via rename so a concurrent reader never sees a
// half-written file.
func (u *Upstream) store(z, x, y int, data []byte) error {
	fname := u.cachePath(z, x, y)
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fname), "tile*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fname)
}
