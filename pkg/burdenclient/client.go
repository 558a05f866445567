// Package burdenclient is a typed HTTP client for the burdens API. It
// mirrors the server's request and response bodies so callers work
// with plain structs instead of raw JSON.
package burdenclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIError is a non-2xx response decoded from the server's error model.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// HealthBody reports service liveness.
type HealthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// InfoBody describes the running service.
type InfoBody struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Env      string   `json:"env"`
	DataDir  string   `json:"data_dir"`
	DB       bool     `json:"db"`
	Features []string `json:"features"`
}

// LegendEntry is one swatch in a legend or color scale.
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// BurdenLayer describes one individual burden layer.
type BurdenLayer struct {
	Key         string            `json:"key"`
	Label       string            `json:"label"`
	ShortLabel  string            `json:"shortLabel"`
	Description string            `json:"description"`
	Source      string            `json:"source"`
	Icon        string            `json:"icon"`
	ColorDark   string            `json:"colorDark"`
	ColorLight  string            `json:"colorLight"`
	TileDirs    map[string]string `json:"tileDirs"`
	Legend      []LegendEntry     `json:"legend"`
}

// CooccurrenceLayer describes the combined burden-count layer.
type CooccurrenceLayer struct {
	Key         string            `json:"key"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	TileDirs    map[string]string `json:"tileDirs"`
	Scale       []LegendEntry     `json:"scale"`
}

// PointLayer describes the breadbasket overlay.
type PointLayer struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Dataset     string `json:"dataset"`
	SourceLayer string `json:"sourceLayer"`
}

// FoodGroup is one breadbasket food group.
type FoodGroup struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// RasterDescriptor is one raster variant with its resolved tile URL.
type RasterDescriptor struct {
	Key       string `json:"key"`
	Threshold string `json:"threshold"`
	ID        string `json:"id"`
	TileDir   string `json:"tileDir"`
	TileURL   string `json:"tileUrl"`
}

// CatalogBody is the full layer catalog.
type CatalogBody struct {
	Env          string             `json:"env"`
	Burdens      []BurdenLayer      `json:"burdens"`
	Cooccurrence CooccurrenceLayer  `json:"cooccurrence"`
	Breadbaskets PointLayer         `json:"breadbaskets"`
	Rasters      []RasterDescriptor `json:"rasters"`
}

// Legend is the legend for one mode, threshold and active set.
type Legend struct {
	Mode           string        `json:"mode"`
	Threshold      string        `json:"threshold"`
	ThresholdLabel string        `json:"thresholdLabel"`
	Title          string        `json:"title,omitempty"`
	Entries        []LegendEntry `json:"entries,omitempty"`
	FoodGroups     []FoodGroup   `json:"foodGroups,omitempty"`
	Empty          bool          `json:"empty"`
}

// ViewState is a session's stored view.
type ViewState struct {
	Mode      string             `json:"mode"`
	Threshold string             `json:"threshold"`
	Active    []string           `json:"active"`
	Opacity   map[string]float64 `json:"opacity"`
}

// LayerState is the render state of one style layer.
type LayerState struct {
	ID      string  `json:"id"`
	Key     string  `json:"key"`
	Kind    string  `json:"kind"`
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity"`
}

// SessionBody is the session envelope returned by every state endpoint.
type SessionBody struct {
	ID     string       `json:"id"`
	State  ViewState    `json:"state"`
	Layers []LayerState `json:"layers"`
}

// PopupData is the hover content for one breadbasket.
type PopupData struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GroupKey   string `json:"groupKey"`
	GroupLabel string `json:"groupLabel"`
	GroupColor string `json:"groupColor"`
	ValueText  string `json:"valueText"`
}

// GroupTotal aggregates production over one food group.
type GroupTotal struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Color      string  `json:"color"`
	Baskets    int     `json:"baskets"`
	Production float64 `json:"production"`
}

// StatsBody is the breadbasket production summary.
type StatsBody struct {
	Groups []GroupTotal `json:"groups"`
	Count  int          `json:"count"`
}

// QueryBody is the result of an analytics query.
type QueryBody struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// TablesBody lists the analytics tables.
type TablesBody struct {
	Tables []string `json:"tables"`
}

// Client calls the burdens API.
type Client struct {
	base string
	hc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// New creates a client for a base URL like "http://localhost:8090".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(base, "/"),
		hc:   http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Title: resp.Status}
		// The error body is best-effort; the status alone is enough to fail.
		_ = json.Unmarshal(data, apiErr)
		return resp, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}

// Health reports service liveness.
func (c *Client) Health(ctx context.Context) (*http.Response, *HealthBody, error) {
	var body HealthBody
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, &body)
	return resp, &body, err
}

// GetInfo returns service metadata.
func (c *Client) GetInfo(ctx context.Context) (*http.Response, *InfoBody, error) {
	var body InfoBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/info", nil, &body)
	return resp, &body, err
}

// GetCatalog returns the layer catalog with resolved tile URLs.
func (c *Client) GetCatalog(ctx context.Context) (*http.Response, *CatalogBody, error) {
	var body CatalogBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/catalog/layers", nil, &body)
	return resp, &body, err
}

// GetLegend returns the legend for a mode, threshold and active set.
func (c *Client) GetLegend(ctx context.Context, mode, threshold string, active []string) (*http.Response, *Legend, error) {
	q := url.Values{}
	if mode != "" {
		q.Set("mode", mode)
	}
	if threshold != "" {
		q.Set("threshold", threshold)
	}
	if len(active) > 0 {
		q.Set("active", strings.Join(active, ","))
	}
	path := "/api/v1/catalog/legend"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var body Legend
	resp, err := c.do(ctx, http.MethodGet, path, nil, &body)
	return resp, &body, err
}

// GetFoodGroups returns the breadbasket food groups.
func (c *Client) GetFoodGroups(ctx context.Context) (*http.Response, []FoodGroup, error) {
	var body []FoodGroup
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/catalog/foodgroups", nil, &body)
	return resp, body, err
}

// CreateSession starts a session with the default view.
func (c *Client) CreateSession(ctx context.Context) (*http.Response, *SessionBody, error) {
	var body SessionBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &body)
	return resp, &body, err
}

// GetState reads a session's current view.
func (c *Client) GetState(ctx context.Context, id string) (*http.Response, *SessionBody, error) {
	var body SessionBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id)+"/state", nil, &body)
	return resp, &body, err
}

// Toggle flips a layer on or off.
func (c *Client) Toggle(ctx context.Context, id, key string) (*http.Response, *SessionBody, error) {
	in := map[string]string{"key": key}
	var body SessionBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/toggle", in, &body)
	return resp, &body, err
}

// SetOpacity sets a layer's opacity. Out-of-range values are clamped
// server-side.
func (c *Client) SetOpacity(ctx context.Context, id, key string, value float64) (*http.Response, *SessionBody, error) {
	in := map[string]any{"key": key, "value": value}
	var body SessionBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/opacity", in, &body)
	return resp, &body, err
}

// SetThreshold switches between the strict and liberal raster variants.
func (c *Client) SetThreshold(ctx context.Context, id, threshold string) (*http.Response, *SessionBody, error) {
	in := map[string]string{"threshold": threshold}
	var body SessionBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/threshold", in, &body)
	return resp, &body, err
}

// SetMode switches between the co-occurrence and individual views.
func (c *Client) SetMode(ctx context.Context, id, mode string) (*http.Response, *SessionBody, error) {
	in := map[string]string{"mode": mode}
	var body SessionBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/mode", in, &body)
	return resp, &body, err
}

// Reset returns a session to the default view.
func (c *Client) Reset(ctx context.Context, id string) (*http.Response, *SessionBody, error) {
	var body SessionBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+url.PathEscape(id)+"/reset", nil, &body)
	return resp, &body, err
}

// GetStyle returns the session's MapLibre style document as raw JSON.
func (c *Client) GetStyle(ctx context.Context, id string) (*http.Response, json.RawMessage, error) {
	var body json.RawMessage
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id)+"/style", nil, &body)
	return resp, body, err
}

// GetSync returns the per-layer render state for the session.
func (c *Client) GetSync(ctx context.Context, id string) (*http.Response, []LayerState, error) {
	var body []LayerState
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id)+"/sync", nil, &body)
	return resp, body, err
}

// GetBreadbaskets returns the full GeoJSON feature collection.
func (c *Client) GetBreadbaskets(ctx context.Context) (*http.Response, json.RawMessage, error) {
	var body json.RawMessage
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/breadbaskets", nil, &body)
	return resp, body, err
}

// GetBreadbasketStats returns production totals per food group.
func (c *Client) GetBreadbasketStats(ctx context.Context) (*http.Response, *StatsBody, error) {
	var body StatsBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/breadbaskets/stats", nil, &body)
	return resp, &body, err
}

// GetBreadbasket returns popup data for one breadbasket.
func (c *Client) GetBreadbasket(ctx context.Context, id string) (*http.Response, *PopupData, error) {
	var body PopupData
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/breadbaskets/"+url.PathEscape(id), nil, &body)
	return resp, &body, err
}

// Query runs a read-only SQL query against the analytics database.
func (c *Client) Query(ctx context.Context, query string) (*http.Response, *QueryBody, error) {
	in := map[string]string{"query": query}
	var body QueryBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/query", in, &body)
	return resp, &body, err
}

// ListTables lists the analytics tables.
func (c *Client) ListTables(ctx context.Context) (*http.Response, *TablesBody, error) {
	var body TablesBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/tables", nil, &body)
	return resp, &body, err
}
