package basket

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService("", nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestEmbeddedDataset(t *testing.T) {
	s := newTestService(t)
	if s.Count() == 0 {
		t.Fatal("embedded dataset is empty")
	}
	if len(s.GeoJSON()) == 0 {
		t.Fatal("raw document is empty")
	}
}

func TestPopup(t *testing.T) {
	s := newTestService(t)

	p, ok := s.Popup("pampas")
	if !ok {
		t.Fatal("pampas not found")
	}
	if p.Name != "Argentine Pampas" {
		t.Errorf("name = %q", p.Name)
	}
	if p.GroupLabel != "Grains" {
		t.Errorf("group = %q", p.GroupLabel)
	}
	if p.ValueText != "128.9 Mt/yr" {
		t.Errorf("value = %q", p.ValueText)
	}

	if _, ok := s.Popup("atlantis"); ok {
		t.Error("unknown feature resolved")
	}
}

// A feature with junk attributes must still produce a popup, using the
// fallback group and a dash value.
func TestPopupDegradesGracefully(t *testing.T) {
	s := &Service{logger: slog.Default()}
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature",
		 "properties":{"id":"x1","food_group":"spices","production":"lots"},
		 "geometry":{"type":"Point","coordinates":[0,0]}}]}`
	if err := s.load([]byte(doc)); err != nil {
		t.Fatalf("load: %v", err)
	}

	p, ok := s.Popup("x1")
	if !ok {
		t.Fatal("feature not found")
	}
	if p.Name != "Unnamed region" {
		t.Errorf("name fallback = %q", p.Name)
	}
	if p.GroupLabel != "Other" {
		t.Errorf("group fallback = %q", p.GroupLabel)
	}
	if p.ValueText != "–" {
		t.Errorf("value fallback = %q", p.ValueText)
	}
}

func TestLoadRejectsNonPoints(t *testing.T) {
	s := &Service{logger: slog.Default()}
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"id":"poly"},
		 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`
	if err := s.load([]byte(doc)); err == nil {
		t.Fatal("polygon feature accepted")
	}
}

func TestDataDirOverride(t *testing.T) {
	dir := t.TempDir()
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature",
		 "properties":{"id":"only","name":"Only Basket","food_group":"grains","production":1.5},
		 "geometry":{"type":"Point","coordinates":[10,10]}}]}`
	if err := os.WriteFile(filepath.Join(dir, "breadbaskets.geojson"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewService(dir, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if s.Count() != 1 {
		t.Errorf("override ignored, count = %d", s.Count())
	}
}

func TestFormatProduction(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{128.9, "128.9 Mt/yr"},
		{0.0, "0.0 Mt/yr"},
		{7, "7.0 Mt/yr"},
		{nil, "–"},
		{"lots", "–"},
		{-3.0, "–"},
	}
	for _, c := range cases {
		if got := formatProduction(c.in); got != c.want {
			t.Errorf("formatProduction(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTile(t *testing.T) {
	s := newTestService(t)

	// Zoom 0 covers the world, so every feature lands in one tile.
	data, err := s.Tile(0, 0, 0)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("world tile is empty")
	}
	if !bytes.HasPrefix(data, []byte{0x1f, 0x8b}) {
		t.Error("tile is not gzipped")
	}

	// An Arctic ocean tile holds no baskets.
	data, err = s.Tile(4, 0, 0)
	if err != nil {
		t.Fatalf("Tile: %v", err)
	}
	if data != nil {
		t.Error("empty region returned tile data")
	}
}

func TestGroupTotalsMemory(t *testing.T) {
	s := newTestService(t)

	totals, err := s.GroupTotals(context.Background())
	if err != nil {
		t.Fatalf("GroupTotals: %v", err)
	}
	if len(totals) != 6 {
		t.Fatalf("%d groups, want 6", len(totals))
	}
	if totals[0].Key != "grains" {
		t.Errorf("largest group = %q, want grains", totals[0].Key)
	}
	if totals[0].Baskets != 13 {
		t.Errorf("grains baskets = %d, want 13", totals[0].Baskets)
	}
	for i := 1; i < len(totals); i++ {
		if totals[i].Production > totals[i-1].Production {
			t.Errorf("totals not sorted: %v before %v", totals[i-1], totals[i])
		}
	}
}
