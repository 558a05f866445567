package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kushankb/burdens-app/internal/api"
	"github.com/kushankb/burdens-app/internal/catalog"
	"github.com/kushankb/burdens-app/internal/server"
	"github.com/kushankb/burdens-app/internal/tiles"
)

// Options defines all CLI flags and env vars for the burdens server.
// Flags: --host, --port, --data-dir, --web-dir, --env, --map-token,
// --tile-config, --debug
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, and so on.
type Options struct {
	Host       string `doc:"Host to bind to" default:"0.0.0.0"`
	Port       int    `doc:"Port to listen on" short:"p" default:"8090"`
	DataDir    string `doc:"Directory for data files and tile caches" default:".data"`
	WebDir     string `doc:"Overrides the embedded web assets"`
	Env        string `doc:"Tile environment: production or development" default:"development"`
	MapToken   string `doc:"API key for the hosted basemap"`
	TileConfig string `doc:"Path to a tiles.yml with upstream overrides"`
	Debug      bool   `doc:"Enable debug logging"`
}

func newLogger(debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		WebDir:     opts.WebDir,
		Env:        opts.Env,
		MapToken:   opts.MapToken,
		TileConfig: opts.TileConfig,
		Logger:     newLogger(opts.Debug),
	})
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv, err := newServer(opts)
		if err != nil {
			log.Fatalf("Server setup failed: %v", err)
		}

		hooks.OnStart(func() {
			srv.Start(ctx)

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("burdens-app server starting...\n")
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Tiles:   %s\n", opts.Env)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(srv.Addr(), srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			cancel()
			srv.Close()
		})
	})

	cli.Root().Use = "burdens"
	cli.Root().Short = "Interactive map of global agrifood burdens"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			printMarshalled(cmd, srv.OpenAPI())
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// catalog subcommand: export the raster and layer catalog
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Export the layer catalog with resolved tile URLs",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			env, err := catalog.ParseEnv(opts.Env)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			out, err := api.NewCatalogHandler(env).GetLayers(context.Background(), &struct{}{})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			printMarshalled(cmd, out.Body)
		}),
	}
	catalogCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(catalogCmd)

	// warm subcommand: prefetch raster tiles
	warmCmd := &cobra.Command{
		Use:   "warm",
		Short: "Prefetch raster tiles into the disk cache or an MBTiles file",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			env, err := catalog.ParseEnv(opts.Env)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			dir, _ := cmd.Flags().GetString("dir")
			if err := checkTileDir(dir); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			bboxStr, _ := cmd.Flags().GetString("bbox")
			bound, err := parseBBox(bboxStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			minZoom, _ := cmd.Flags().GetInt("min-zoom")
			maxZoom, _ := cmd.Flags().GetInt("max-zoom")
			out, _ := cmd.Flags().GetString("mbtiles")

			cacheDir := filepath.Join(opts.DataDir, "tilecache")
			src := tiles.NewUpstream(dir, catalog.TileURLTemplate(env, dir), cacheDir, 0, 0, maxZoom, newLogger(opts.Debug))

			stats, err := tiles.Warm(context.Background(), src, bound, minZoom, maxZoom, out)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error warming tiles: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Warmed %s: %d fetched, %d missing, %d failed\n", dir, stats.Fetched, stats.Missing, stats.Failed)
			if out != "" {
				fmt.Printf("MBTiles written to %s\n", out)
			}
		}),
	}
	warmCmd.Flags().String("dir", "cooccurrence_strict", "Tile directory to warm")
	warmCmd.Flags().String("bbox", "-180,-85,180,85", "Bounding box as west,south,east,north")
	warmCmd.Flags().Int("min-zoom", 0, "Lowest zoom level")
	warmCmd.Flags().Int("max-zoom", 5, "Highest zoom level")
	warmCmd.Flags().String("mbtiles", "", "Also write the fetched tiles to an MBTiles file")
	cli.Root().AddCommand(warmCmd)

	cli.Run()
}

func printMarshalled(cmd *cobra.Command, v any) {
	useYAML, _ := cmd.Flags().GetBool("yaml")

	var output []byte
	var err error
	if useYAML {
		output, err = yaml.Marshal(v)
	} else {
		output, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}

func checkTileDir(dir string) error {
	for _, r := range catalog.RasterLayers() {
		if r.TileDir == dir {
			return nil
		}
	}
	return fmt.Errorf("unknown tile directory %q", dir)
}

func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must be west,south,east,north")
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	return orb.Bound{Min: orb.Point{vals[0], vals[1]}, Max: orb.Point{vals[2], vals[3]}}, nil
}
