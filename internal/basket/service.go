// Package basket serves the breadbasket point features: the GeoJSON
// collection, vector tiles for the map, popup content and per-group
// production statistics.
//
// A snapshot of the dataset ships embedded in the binary so the server
// works with no data directory at all; dropping a breadbaskets.geojson
// into the data directory overrides it.
package basket

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kushankb/burdens-app/internal/catalog"
)

//go:embed breadbaskets.geojson
var embeddedData []byte

// PopupData is the hover popup content for one breadbasket marker.
type PopupData struct {
	ID         string `json:"id" doc:"Feature identifier"`
	Name       string `json:"name" doc:"Region name"`
	GroupKey   string `json:"groupKey" doc:"Food group key"`
	GroupLabel string `json:"groupLabel" doc:"Food group display name"`
	GroupColor string `json:"groupColor" doc:"Food group color (CSS)"`
	ValueText  string `json:"valueText" doc:"Formatted production value" example:"128.9 Mt/yr"`
}

// GroupTotal aggregates production over one food group.
type GroupTotal struct {
	Key        string  `json:"key" doc:"Food group key"`
	Label      string  `json:"label" doc:"Food group display name"`
	Color      string  `json:"color" doc:"Food group color (CSS)"`
	Baskets    int     `json:"baskets" doc:"Number of breadbaskets in the group"`
	Production float64 `json:"production" doc:"Summed production in Mt/yr"`
}

// Service owns the breadbasket feature collection.
type Service struct {
	mu     sync.RWMutex
	fc     *geojson.FeatureCollection
	byID   map[string]*geojson.Feature
	raw    []byte
	db     *sql.DB
	logger *slog.Logger
}

// NewService loads the feature collection, preferring
// <dataDir>/breadbaskets.geojson over the embedded snapshot. db is
// optional; without it the stats queries aggregate in memory.
func NewService(dataDir string, db *sql.DB, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{db: db, logger: logger}

	data := embeddedData
	source := "embedded"
	if dataDir != "" {
		path := filepath.Join(dataDir, "breadbaskets.geojson")
		if override, err := os.ReadFile(path); err == nil {
			data = override
			source = path
		}
	}

	if err := s.load(data); err != nil {
		return nil, fmt.Errorf("loading breadbaskets from %s: %w", source, err)
	}
	logger.Info("breadbaskets loaded", "source", source, "features", s.Count())
	return s, nil
}

// load parses and indexes a GeoJSON document.
func (s *Service) load(data []byte) error {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return err
	}

	byID := make(map[string]*geojson.Feature, len(fc.Features))
	for _, f := range fc.Features {
		if _, ok := f.Geometry.(orb.Point); !ok {
			return fmt.Errorf("feature %v is not a point", f.Properties["id"])
		}
		if id := stringProp(f, "id"); id != "" {
			byID[id] = f
		}
	}

	s.mu.Lock()
	s.fc = fc
	s.byID = byID
	s.raw = data
	s.mu.Unlock()
	return nil
}

// Count returns the number of features.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fc.Features)
}

// GeoJSON returns the raw feature collection document.
func (s *Service) GeoJSON() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Popup builds the hover popup for a feature ID. Missing attributes
// degrade to the fallback group and a dash value rather than failing.
func (s *Service) Popup(id string) (PopupData, bool) {
	s.mu.RLock()
	f, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return PopupData{}, false
	}

	name := stringProp(f, "name")
	if name == "" {
		name = "Unnamed region"
	}
	group := catalog.FoodGroupFor(stringProp(f, "food_group"))

	return PopupData{
		ID:         id,
		Name:       name,
		GroupKey:   group.Key,
		GroupLabel: group.Label,
		GroupColor: group.Color,
		ValueText:  formatProduction(f.Properties["production"]),
	}, true
}

// formatProduction renders the numeric production attribute for
// display. Anything missing or malformed becomes a dash.
func formatProduction(v any) string {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || f < 0 {
		return "–"
	}
	return fmt.Sprintf("%.1f Mt/yr", f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringProp(f *geojson.Feature, key string) string {
	if v, ok := f.Properties[key].(string); ok {
		return v
	}
	return ""
}
