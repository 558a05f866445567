package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kushankb/burdens-app/internal/catalog"
	"github.com/kushankb/burdens-app/internal/humastar"
	"github.com/kushankb/burdens-app/internal/session"
	"github.com/kushankb/burdens-app/internal/style"
	"github.com/kushankb/burdens-app/internal/view"
)

// StateHandler owns the session state endpoints: create/read plus the four
// view actions, and the derived style/sync documents the map renders from.
type StateHandler struct {
	sessions *session.Manager
	styles   *style.Builder
}

func NewStateHandler(sessions *session.Manager, styles *style.Builder) *StateHandler {
	return &StateHandler{sessions: sessions, styles: styles}
}

func (h *StateHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/sessions", h.CreateSession, huma.OperationTags("state"))
	huma.Get(api, "/api/v1/sessions/{id}/state", h.GetState, huma.OperationTags("state"))
	huma.Post(api, "/api/v1/sessions/{id}/toggle", h.Toggle, huma.OperationTags("state"))
	huma.Post(api, "/api/v1/sessions/{id}/opacity", h.SetOpacity, huma.OperationTags("state"))
	huma.Post(api, "/api/v1/sessions/{id}/threshold", h.SetThreshold, huma.OperationTags("state"))
	huma.Post(api, "/api/v1/sessions/{id}/mode", h.SetMode, huma.OperationTags("state"))
	huma.Post(api, "/api/v1/sessions/{id}/reset", h.ResetSession, huma.OperationTags("state"))
	huma.Get(api, "/api/v1/sessions/{id}/style", h.GetStyle, huma.OperationTags("style"))
	huma.Get(api, "/api/v1/sessions/{id}/sync", h.GetSync, huma.OperationTags("style"))
}

// SessionBody is the session envelope every state endpoint returns: the
// stored view state plus the per-raster render state derived from it.
type SessionBody struct {
	ID     string            `json:"id" doc:"Session ID"`
	State  view.State        `json:"state" doc:"Current view state"`
	Layers []view.LayerState `json:"layers" doc:"Per-layer render state derived from the view"`
}

var sessionActionDefs = []humastar.ActionDef{
	{Rel: "toggle", Pattern: "/api/v1/sessions/%s/toggle", Method: "POST", Title: "Toggle a layer"},
	{Rel: "opacity", Pattern: "/api/v1/sessions/%s/opacity", Method: "POST", Title: "Set layer opacity"},
	{Rel: "threshold", Pattern: "/api/v1/sessions/%s/threshold", Method: "POST", Title: "Switch threshold variant"},
	{Rel: "mode", Pattern: "/api/v1/sessions/%s/mode", Method: "POST", Title: "Switch view mode"},
	{Rel: "reset", Pattern: "/api/v1/sessions/%s/reset", Method: "POST", Title: "Reset to defaults"},
	{Rel: "style", Pattern: "/api/v1/sessions/%s/style", Method: "GET", Title: "MapLibre style document"},
}

// Actions advertises the session's state-changing endpoints as Link headers.
func (b SessionBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, sessionActionDefs)
}

type SessionOutput struct {
	Body SessionBody
}

func sessionBody(id string, s view.State) SessionBody {
	return SessionBody{ID: id, State: s, Layers: view.Layers(s)}
}

type SessionIDInput struct {
	ID string `path:"id" doc:"Session ID"`
}

func (h *StateHandler) CreateSession(ctx context.Context, input *struct{}) (*SessionOutput, error) {
	id, s := h.sessions.Create()
	return &SessionOutput{Body: sessionBody(id, s)}, nil
}

func (h *StateHandler) GetState(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	s, ok := h.sessions.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("session not found")
	}
	return &SessionOutput{Body: sessionBody(input.ID, s)}, nil
}

type ToggleInput struct {
	SessionIDInput
	Body struct {
		Key string `json:"key" required:"true" doc:"Layer key to toggle" example:"env_footprint"`
	}
}

func (h *StateHandler) Toggle(ctx context.Context, input *ToggleInput) (*SessionOutput, error) {
	key := catalog.LayerKey(input.Body.Key)
	if !catalog.Known(key) {
		return nil, huma.Error400BadRequest("unknown layer key: " + input.Body.Key)
	}
	s := h.sessions.Apply(input.ID, view.Toggle(key))
	return &SessionOutput{Body: sessionBody(input.ID, s)}, nil
}

type OpacityInput struct {
	SessionIDInput
	Body struct {
		Key   string  `json:"key" required:"true" doc:"Layer key" example:"cooccurrence"`
		Value float64 `json:"value" required:"true" doc:"Opacity in [0,1]; out-of-range values are clamped" example:"0.8"`
	}
}

func (h *StateHandler) SetOpacity(ctx context.Context, input *OpacityInput) (*SessionOutput, error) {
	key := catalog.LayerKey(input.Body.Key)
	if !catalog.Known(key) {
		return nil, huma.Error400BadRequest("unknown layer key: " + input.Body.Key)
	}
	s := h.sessions.Apply(input.ID, view.SetOpacity(key, input.Body.Value))
	return &SessionOutput{Body: sessionBody(input.ID, s)}, nil
}

type ThresholdInput struct {
	SessionIDInput
	Body struct {
		Threshold string `json:"threshold" required:"true" enum:"strict,liberal" doc:"Threshold variant"`
	}
}

func (h *StateHandler) SetThreshold(ctx context.Context, input *ThresholdInput) (*SessionOutput, error) {
	threshold, err := catalog.ParseThreshold(input.Body.Threshold)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	s := h.sessions.Apply(input.ID, view.SetThreshold(threshold))
	return &SessionOutput{Body: sessionBody(input.ID, s)}, nil
}

type ModeInput struct {
	SessionIDInput
	Body struct {
		Mode string `json:"mode" required:"true" enum:"cooccurrence,individual" doc:"View mode"`
	}
}

func (h *StateHandler) SetMode(ctx context.Context, input *ModeInput) (*SessionOutput, error) {
	mode, err := catalog.ParseViewMode(input.Body.Mode)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	s := h.sessions.Apply(input.ID, view.SetMode(mode))
	return &SessionOutput{Body: sessionBody(input.ID, s)}, nil
}

func (h *StateHandler) ResetSession(ctx context.Context, input *SessionIDInput) (*SessionOutput, error) {
	s := h.sessions.Reset(input.ID)
	return &SessionOutput{Body: sessionBody(input.ID, s)}, nil
}

// GetStyle returns the full MapLibre style document for the session's
// current view. Evicted sessions are recreated with defaults so an open
// page can always mount its map.
func (h *StateHandler) GetStyle(ctx context.Context, input *SessionIDInput) (*struct{ Body style.Document }, error) {
	s := h.sessions.GetOrCreate(input.ID)
	return &struct{ Body style.Document }{Body: h.styles.Build(s)}, nil
}

func (h *StateHandler) GetSync(ctx context.Context, input *SessionIDInput) (*struct{ Body []view.LayerState }, error) {
	s := h.sessions.GetOrCreate(input.ID)
	return &struct{ Body []view.LayerState }{Body: h.styles.Sync(s)}, nil
}
