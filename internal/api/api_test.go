package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/kushankb/burdens-app/internal/basket"
	"github.com/kushankb/burdens-app/internal/catalog"
	"github.com/kushankb/burdens-app/internal/session"
	"github.com/kushankb/burdens-app/internal/style"
	"github.com/kushankb/burdens-app/internal/view"
)

func newTestAPI(t *testing.T) humatest.TestAPI {
	t.Helper()

	_, api := humatest.New(t)

	baskets, err := basket.NewService("", nil, slog.Default())
	if err != nil {
		t.Fatalf("basket.NewService: %v", err)
	}
	sessions := session.NewManager(session.NewBus(), time.Hour, slog.Default())
	styles := style.NewBuilder(style.Options{Env: catalog.EnvDevelopment})

	NewAPIHandler().RegisterHealth(api)
	NewCatalogHandler(catalog.EnvDevelopment).RegisterRoutes(api)
	NewStateHandler(sessions, styles).RegisterRoutes(api)
	NewBasketHandler(baskets).RegisterRoutes(api)
	NewInfoHandler(t.TempDir(), catalog.EnvDevelopment, false).RegisterRoutes(api)
	NewDBHandler(nil).RegisterRoutes(api)

	return api
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", resp.Code)
	}

	var body HealthBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Status != "ok" || body.Version != Version {
		t.Errorf("health = %+v", body)
	}
}

func TestCatalogLayers(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/catalog/layers")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET layers = %d, want 200", resp.Code)
	}

	var body CatalogBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Burdens) != 4 {
		t.Errorf("got %d burdens, want 4", len(body.Burdens))
	}
	if len(body.Rasters) != 10 {
		t.Errorf("got %d rasters, want 10", len(body.Rasters))
	}
	for _, r := range body.Rasters {
		if !strings.Contains(r.TileURL, "tiles-staging.agrifoodburdens.org") {
			t.Errorf("raster %s tile URL %q not on the development host", r.ID, r.TileURL)
		}
		if !strings.HasSuffix(r.TileURL, "/{z}/{x}/{y}.png") {
			t.Errorf("raster %s tile URL %q missing XYZ suffix", r.ID, r.TileURL)
		}
	}
}

func TestCatalogLegend(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/catalog/legend?mode=cooccurrence&threshold=strict&active=cooccurrence,breadbaskets")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET legend = %d, want 200", resp.Code)
	}

	var leg catalog.Legend
	if err := json.Unmarshal(resp.Body.Bytes(), &leg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(leg.Entries) != 5 {
		t.Errorf("co-occurrence scale has %d entries, want 5", len(leg.Entries))
	}
	if len(leg.FoodGroups) == 0 {
		t.Error("active breadbaskets should include the food-group key")
	}
	if leg.Empty {
		t.Error("legend should not be empty")
	}
}

func TestCatalogLegendDefaults(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/catalog/legend")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET legend = %d, want 200", resp.Code)
	}

	var leg catalog.Legend
	if err := json.Unmarshal(resp.Body.Bytes(), &leg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !leg.Empty {
		t.Error("legend with no active layers should be empty")
	}
	if leg.ThresholdLabel != "Strict" {
		t.Errorf("default threshold label = %q, want Strict", leg.ThresholdLabel)
	}
}

func TestFoodGroups(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/catalog/foodgroups")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET foodgroups = %d, want 200", resp.Code)
	}

	var groups []catalog.FoodGroup
	if err := json.Unmarshal(resp.Body.Bytes(), &groups); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(groups) != 6 {
		t.Errorf("got %d food groups, want 6", len(groups))
	}
}

func createSession(t *testing.T, api humatest.TestAPI) SessionBody {
	t.Helper()

	resp := api.Post("/api/v1/sessions")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST /sessions = %d, want 200", resp.Code)
	}
	var body SessionBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.ID == "" {
		t.Fatal("session ID empty")
	}
	return body
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t)

	sess := createSession(t, api)
	if sess.State.Mode != catalog.ModeCooccurrence {
		t.Errorf("default mode = %s, want cooccurrence", sess.State.Mode)
	}
	if len(sess.Layers) != 11 {
		t.Errorf("got %d layer states, want 11", len(sess.Layers))
	}

	// Toggle breadbaskets off and verify its layer state follows.
	resp := api.Post("/api/v1/sessions/"+sess.ID+"/toggle", map[string]any{"key": "breadbaskets"})
	if resp.Code != http.StatusOK {
		t.Fatalf("POST toggle = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var body SessionBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.State.IsActive(catalog.KeyBreadbaskets) {
		t.Error("breadbaskets still active after toggle")
	}
	for _, l := range body.Layers {
		if l.Key == catalog.KeyBreadbaskets && l.Visible {
			t.Error("breadbaskets layer state still visible")
		}
	}

	// Opacity values outside [0,1] clamp.
	resp = api.Post("/api/v1/sessions/"+sess.ID+"/opacity", map[string]any{"key": "cooccurrence", "value": 1.5})
	if resp.Code != http.StatusOK {
		t.Fatalf("POST opacity = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := body.State.OpacityFor(catalog.KeyCooccurrence); got != 1 {
		t.Errorf("opacity = %v, want clamped 1", got)
	}

	// Threshold swap flips which raster variants are visible.
	resp = api.Post("/api/v1/sessions/"+sess.ID+"/threshold", map[string]any{"threshold": "liberal"})
	if resp.Code != http.StatusOK {
		t.Fatalf("POST threshold = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, l := range body.Layers {
		if l.Visible && l.Key == catalog.KeyCooccurrence && !strings.HasSuffix(l.ID, "_liberal") {
			t.Errorf("visible co-occurrence variant %s after switching to liberal", l.ID)
		}
	}

	// Mode switch to individual drops the co-occurrence selection.
	resp = api.Post("/api/v1/sessions/"+sess.ID+"/mode", map[string]any{"mode": "individual"})
	if resp.Code != http.StatusOK {
		t.Fatalf("POST mode = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.State.IsActive(catalog.KeyCooccurrence) {
		t.Error("cooccurrence still active in individual mode")
	}

	// Reset restores defaults.
	resp = api.Post("/api/v1/sessions/" + sess.ID + "/reset")
	if resp.Code != http.StatusOK {
		t.Fatalf("POST reset = %d, want 200", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.State.Mode != catalog.ModeCooccurrence || !body.State.IsActive(catalog.KeyBreadbaskets) {
		t.Errorf("reset state = %+v", body.State)
	}
}

func TestSessionActionLinks(t *testing.T) {
	api := newTestAPI(t)

	_ = createSession(t, api)

	// The Actor interface on SessionBody advertises the action endpoints.
	sess := SessionBody{ID: "abc", State: view.DefaultState()}
	actions := sess.Actions()
	rels := map[string]bool{}
	for _, a := range actions {
		rels[a.Rel] = true
		if !strings.Contains(a.Href, "abc") {
			t.Errorf("action %s href %q missing session ID", a.Rel, a.Href)
		}
	}
	for _, want := range []string{"toggle", "opacity", "threshold", "mode", "style"} {
		if !rels[want] {
			t.Errorf("missing action rel %q", want)
		}
	}
}

func TestToggleUnknownKey(t *testing.T) {
	api := newTestAPI(t)

	sess := createSession(t, api)
	resp := api.Post("/api/v1/sessions/"+sess.ID+"/toggle", map[string]any{"key": "volcanoes"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("toggle unknown key = %d, want 400", resp.Code)
	}
}

func TestToggleIgnoredAcrossModes(t *testing.T) {
	api := newTestAPI(t)

	// Burden toggles are no-ops while the co-occurrence view is active.
	sess := createSession(t, api)
	resp := api.Post("/api/v1/sessions/"+sess.ID+"/toggle", map[string]any{"key": "env_footprint"})
	if resp.Code != http.StatusOK {
		t.Fatalf("POST toggle = %d, want 200", resp.Code)
	}
	var body SessionBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.State.IsActive(catalog.KeyEnvFootprint) {
		t.Error("burden toggle should be ignored in co-occurrence mode")
	}
}

func TestGetStateNotFound(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/sessions/nope/state")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("GET unknown state = %d, want 404", resp.Code)
	}
}

func TestStyleDocument(t *testing.T) {
	api := newTestAPI(t)

	sess := createSession(t, api)
	resp := api.Get("/api/v1/sessions/" + sess.ID + "/style")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET style = %d, want 200", resp.Code)
	}

	var doc style.Document
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Version != 8 {
		t.Errorf("style version = %d, want 8", doc.Version)
	}
	if len(doc.Sources) != 11 {
		t.Errorf("got %d sources, want 11", len(doc.Sources))
	}

	// Style works even for session IDs the manager has never seen.
	resp = api.Get("/api/v1/sessions/evicted/style")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET style for fresh ID = %d, want 200", resp.Code)
	}
}

func TestSync(t *testing.T) {
	api := newTestAPI(t)

	sess := createSession(t, api)
	resp := api.Get("/api/v1/sessions/" + sess.ID + "/sync")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET sync = %d, want 200", resp.Code)
	}

	var layers []view.LayerState
	if err := json.Unmarshal(resp.Body.Bytes(), &layers); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(layers) != 11 {
		t.Errorf("got %d layer states, want 11", len(layers))
	}
}

func TestBreadbaskets(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/breadbaskets")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET breadbaskets = %d, want 200", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("Content-Type = %q, want application/geo+json", ct)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []any  `json:"features"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &fc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q", fc.Type)
	}
	if len(fc.Features) == 0 {
		t.Error("no features")
	}
}

func TestBreadbasketStats(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/breadbaskets/stats")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET stats = %d, want 200", resp.Code)
	}

	var body StatsBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Groups) != 6 {
		t.Errorf("got %d groups, want 6", len(body.Groups))
	}
	if body.Count == 0 {
		t.Error("count = 0")
	}
	for i := 1; i < len(body.Groups); i++ {
		if body.Groups[i].Production > body.Groups[i-1].Production {
			t.Errorf("groups not sorted by production: %v > %v", body.Groups[i].Production, body.Groups[i-1].Production)
		}
	}
}

func TestBreadbasketByID(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/breadbaskets/pampas")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET breadbasket = %d, want 200", resp.Code)
	}
	var data basket.PopupData
	if err := json.Unmarshal(resp.Body.Bytes(), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if data.Name == "" || data.ValueText == "" {
		t.Errorf("popup data = %+v", data)
	}

	resp = api.Get("/api/v1/breadbaskets/atlantis")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("GET unknown basket = %d, want 404", resp.Code)
	}
}

func TestInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Get("/api/v1/info")
	if resp.Code != http.StatusOK {
		t.Fatalf("GET info = %d, want 200", resp.Code)
	}

	var body InfoBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Name != "burdens-app" || body.DB {
		t.Errorf("info = %+v", body)
	}
	for _, f := range body.Features {
		if f == "duckdb" {
			t.Error("duckdb feature listed without a database")
		}
	}
}

func TestQueryWithoutDB(t *testing.T) {
	api := newTestAPI(t)

	resp := api.Post("/api/v1/query", map[string]any{"query": "SELECT 1"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("POST query without db = %d, want 503", resp.Code)
	}
}

func TestIsReadOnly(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM breadbaskets", true},
		{"  with t as (select 1) select * from t", true},
		{"SHOW TABLES", true},
		{"EXPLAIN SELECT 1", true},
		{"DROP TABLE breadbaskets", false},
		{"INSERT INTO breadbaskets VALUES (1)", false},
		{"update breadbaskets set production = 0", false},
	}
	for _, tc := range cases {
		if got := isReadOnly(tc.query); got != tc.want {
			t.Errorf("isReadOnly(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}
