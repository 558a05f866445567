// Package server assembles the HTTP surface of the burdens map: the
// Huma REST API, the Datastar panel endpoints, tile serving, and the
// embedded viewer page.
package server

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/kushankb/burdens-app/internal/api"
	"github.com/kushankb/burdens-app/internal/api/panel"
	"github.com/kushankb/burdens-app/internal/basket"
	"github.com/kushankb/burdens-app/internal/catalog"
	"github.com/kushankb/burdens-app/internal/db"
	"github.com/kushankb/burdens-app/internal/humastar"
	"github.com/kushankb/burdens-app/internal/session"
	"github.com/kushankb/burdens-app/internal/style"
	"github.com/kushankb/burdens-app/internal/templates"
	"github.com/kushankb/burdens-app/internal/tiles"
)

//go:embed web/viewer.html
var viewerHTML string

//go:embed web/static
var staticFS embed.FS

// sessionCookie keeps a browser on the same view state across reloads.
const sessionCookie = "burdens_session"

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	WebDir     string // overrides the embedded viewer.html, static/ and fragments/ when set
	Env        string // tile environment: production or development
	MapToken   string // optional key for the hosted basemap
	TileConfig string // optional tiles.yml with upstream overrides
	Logger     *slog.Logger
}

// Server is the burdens HTTP server.
type Server struct {
	config   Config
	logger   *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	env      catalog.Env
	db       *sql.DB
	bus      *session.Bus
	sessions *session.Manager
	baskets  *basket.Service
	styles   *style.Builder
	registry *tiles.Registry
	tileDefs []tiles.SourceDef
	renderer *templates.Renderer
	page     *template.Template
}

// New creates a burdens server. The DuckDB connection and the upstream
// tile config are optional; everything else has to come up.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	env := catalog.EnvDevelopment
	if cfg.Env != "" {
		parsed, err := catalog.ParseEnv(cfg.Env)
		if err != nil {
			return nil, err
		}
		env = parsed
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("Agrifood Burdens API", api.Version)
	humaConfig.Info.Description = "Serves the agrifood burden map: the raster catalog, per-session view state, breadbasket features and synthesized map styles."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer())

	s := &Server{
		config:  cfg,
		logger:  logger,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		env:     env,
		bus:     session.NewBus(),
	}
	s.sessions = session.NewManager(s.bus, 0, logger.With("component", "session"))

	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "burdens"})
	if err != nil {
		logger.Warn("duckdb unavailable, query endpoints disabled", "error", err)
	} else {
		s.db = conn
	}

	baskets, err := basket.NewService(cfg.DataDir, s.db, logger.With("component", "basket"))
	if err != nil {
		return nil, fmt.Errorf("load breadbaskets: %w", err)
	}
	s.baskets = baskets

	if cfg.MapToken == "" {
		logger.Warn("no basemap token, styles fall back to a plain background")
	}
	s.styles = style.NewBuilder(style.Options{
		Env:          env,
		BasemapToken: cfg.MapToken,
	})

	defs, err := tiles.LoadSourceDefs(cfg.TileConfig)
	if err != nil {
		logger.Warn("tile config ignored", "path", cfg.TileConfig, "error", err)
	}
	s.tileDefs = defs
	s.registry = tiles.NewRegistry(logger.With("component", "tiles"))
	s.registry.AddCatalogSources(env, s.cacheDir(), defs)

	renderer, err := s.newRenderer()
	if err != nil {
		return nil, fmt.Errorf("load fragments: %w", err)
	}
	s.renderer = renderer

	page, err := s.newPage()
	if err != nil {
		return nil, fmt.Errorf("parse viewer page: %w", err)
	}
	s.page = page

	s.routes()
	return s, nil
}

// newRenderer loads the SSE fragment templates. A fragments/ directory
// under WebDir takes precedence so they can be edited without a rebuild.
func (s *Server) newRenderer() (*templates.Renderer, error) {
	if s.config.WebDir != "" {
		dir := filepath.Join(s.config.WebDir, "fragments")
		if _, err := os.Stat(dir); err == nil {
			return templates.NewFromDir(dir)
		}
	}
	return templates.New()
}

// newPage parses the viewer page, preferring a WebDir override over the
// embedded copy.
func (s *Server) newPage() (*template.Template, error) {
	src := viewerHTML
	if s.config.WebDir != "" {
		path := filepath.Join(s.config.WebDir, "viewer.html")
		if data, err := os.ReadFile(path); err == nil {
			src = string(data)
		}
	}
	return template.New("viewer").Parse(src)
}

func (s *Server) routes() {
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler())
	api.NewCatalogHandler(s.env).RegisterRoutes(s.humaAPI)
	api.NewStateHandler(s.sessions, s.styles).RegisterRoutes(s.humaAPI)
	api.NewBasketHandler(s.baskets).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)
	api.NewInfoHandler(s.config.DataDir, s.env, s.db != nil).RegisterRoutes(s.humaAPI)

	p := panel.New(s.sessions, s.baskets, s.styles, s.bus, s.renderer, s.logger.With("component", "panel"))
	p.RegisterRoutes(s.humaAPI)

	// Link relations are derived from the registered operations, so this
	// runs after every handler is mounted.
	humastar.AutoLinks(s.humaAPI)

	s.mux.Handle("/tiles/raster/", http.StripPrefix("/tiles/raster/", tiles.Handler(s.registry)))
	s.mux.HandleFunc("/tiles/baskets/", s.handleBasketTiles)
	s.mux.Handle("/static/", s.staticHandler())
	s.mux.HandleFunc("/", s.handleViewer)
}

// Start launches the background loops: session eviction, MBTiles
// hot-loading and the basket analytics warmup. It returns immediately;
// the loops stop when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go s.sessions.Run(ctx)

	go func() {
		dir := filepath.Join(s.config.DataDir, "mbtiles")
		if err := s.registry.WatchMBTiles(ctx, dir, s.env, s.cacheDir(), s.tileDefs); err != nil {
			s.logger.Warn("mbtiles watcher stopped", "dir", dir, "error", err)
		}
	}()

	if s.db != nil {
		go func() {
			if err := s.baskets.LoadAnalytics(ctx); err != nil {
				s.logger.Warn("basket analytics unavailable", "error", err)
			}
		}()
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Addr returns the listen address from the config.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, s.config.Port)
}

// OpenAPI exposes the generated spec for the CLI export command.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close releases server resources.
func (s *Server) Close() error {
	s.registry.Close()
	return db.Close()
}

func (s *Server) cacheDir() string {
	return filepath.Join(s.config.DataDir, "tilecache")
}

func (s *Server) staticHandler() http.Handler {
	if s.config.WebDir != "" {
		dir := filepath.Join(s.config.WebDir, "static")
		if _, err := os.Stat(dir); err == nil {
			return http.StripPrefix("/static/", http.FileServer(http.Dir(dir)))
		}
	}
	sub, _ := fs.Sub(staticFS, "web/static")
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// viewerData feeds the embedded page template.
type viewerData struct {
	SessionID string
	Mode      string
	Threshold string
	StyleURL  string
	InitURL   string
	EventsURL string
	Info      template.HTML
}

// handleViewer serves the map page. Each browser gets a session cookie
// so a reload keeps the layer selection.
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	id := s.sessionID(w, r)
	state := s.sessions.GetOrCreate(id)

	info := s.renderer.MustRender("info", map[string]any{
		"Burdens":      catalog.Burdens(),
		"Cooccurrence": catalog.Cooccurrence(),
		"Baskets":      catalog.Breadbaskets(),
	})

	for _, link := range humastar.RootLinks() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := viewerData{
		SessionID: id,
		Mode:      string(state.Mode),
		Threshold: string(state.Threshold),
		StyleURL:  "/api/v1/sessions/" + id + "/style",
		InitURL:   "/api/v1/panel/init?session=" + id,
		EventsURL: "/api/v1/panel/events?session=" + id,
		Info:      template.HTML(info),
	}
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("viewer render failed", "error", err)
	}
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id, _ := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// handleBasketTiles serves the breadbasket vector tiles the style's
// self-hosted source points at: /tiles/baskets/{z}/{x}/{y}.mvt.
func (s *Server) handleBasketTiles(w http.ResponseWriter, r *http.Request) {
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

	z, x, y, ok := parseMVTPath(strings.TrimPrefix(r.URL.Path, "/tiles/baskets/"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := s.baskets.Tile(z, x, y)
	if err != nil {
		s.logger.Error("basket tile encode failed", "z", z, "x", x, "y", y, "error", err)
		http.Error(w, "tile encoding failed", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// parseMVTPath splits "z/x/y.mvt" into tile coordinates.
func parseMVTPath(path string) (z, x, y uint32, ok bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	yPart, found := strings.CutSuffix(parts[2], ".mvt")
	if !found {
		return 0, 0, 0, false
	}

	zv, errZ := strconv.ParseUint(parts[0], 10, 32)
	xv, errX := strconv.ParseUint(parts[1], 10, 32)
	yv, errY := strconv.ParseUint(yPart, 10, 32)
	if errZ != nil || errX != nil || errY != nil {
		return 0, 0, 0, false
	}
	return uint32(zv), uint32(xv), uint32(yv), true
}
