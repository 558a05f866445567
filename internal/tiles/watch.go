package tiles

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/kushankb/burdens-app/internal/catalog"
)

// WatchMBTiles scans dir for MBTiles files and keeps watching it until
// ctx is canceled, registering a source per file. The file stem is the
// tile directory it serves, so cooccurrence_strict.mbtiles shadows the
// upstream proxy for that layer and removing the file restores it.
func (r *Registry) WatchMBTiles(ctx context.Context, dir string, env catalog.Env, cacheDir string, defs []SourceDef) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	r.scanMBTiles(dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isMBTiles(event.Name) {
					continue
				}
				key := sourceKey(event.Name)
				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					r.logger.Info("mbtiles removed, restoring upstream", "key", key)
					r.restoreUpstream(key, env, cacheDir, defs)
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
					r.addMBTiles(event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Error("tile watcher error", "error", err)
			}
		}
	}()

	return nil
}

// scanMBTiles registers every MBTiles file already in dir.
func (r *Registry) scanMBTiles(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Error("cannot scan tiles directory", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isMBTiles(e.Name()) {
			continue
		}
		r.addMBTiles(filepath.Join(dir, e.Name()))
	}
}

func (r *Registry) addMBTiles(path string) {
	key := sourceKey(path)
	src, err := OpenMBTiles(key, path)
	if err != nil {
		r.logger.Error("cannot open mbtiles", "path", path, "error", err)
		return
	}
	r.Add(src)
	r.logger.Info("serving layer from mbtiles", "key", key, "name", src.Name(),
		"zoom_min", src.MinZoom(), "zoom_max", src.MaxZoom())
}

// restoreUpstream swaps a removed MBTiles source back to the proxy for
// catalog directories, or drops the key entirely for extras.
func (r *Registry) restoreUpstream(key string, env catalog.Env, cacheDir string, defs []SourceDef) {
	for _, d := range defs {
		if d.Dir == key {
			r.Add(NewUpstream(d.Dir, d.URL, cacheDir, d.TTL, d.MinZoom, d.MaxZoom, r.logger))
			return
		}
	}
	for _, rl := range catalog.RasterLayers() {
		if rl.TileDir == key {
			r.Add(NewUpstream(key, catalog.TileURLTemplate(env, key), cacheDir, 0, 0, 0, r.logger))
			return
		}
	}
	r.Remove(key)
}

func isMBTiles(name string) bool {
	return strings.HasSuffix(name, ".mbtiles") || strings.HasSuffix(name, ".sqlite")
}

func sourceKey(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".mbtiles")
	return strings.TrimSuffix(name, ".sqlite")
}
