package humastar

import "fmt"

// Action is a state-dependent hypermedia link. Session bodies implement
// the Actor interface to advertise their transition endpoints (toggle,
// threshold, mode and so on) as RFC 8288 Link headers, so a client can
// drive a session without hardcoding URL patterns.
//
// Example Link header output:
//
//	</api/v1/sessions/abc/toggle>; rel="toggle"; method="POST"; title="Toggle a layer"
type Action struct {
	Rel    string // IANA rel or custom (e.g. "toggle", "reset")
	Href   string // target URL
	Method string // HTTP method: GET, POST, ...
	Title  string // optional human-readable label
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value with
// method and title extension parameters.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}

// ActionDef is a reusable action template for one resource family.
// Pattern carries a single %s verb that receives the resource ID.
type ActionDef struct {
	Rel     string // rel emitted on the link (e.g. "opacity")
	Pattern string // URL pattern (e.g. "/api/v1/sessions/%s/opacity")
	Method  string // HTTP method
	Title   string // human-readable label
}

// ActionsFor expands a set of ActionDefs into concrete Actions for one
// resource ID.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = Action{
			Rel:    d.Rel,
			Href:   fmt.Sprintf(d.Pattern, id),
			Method: d.Method,
			Title:  d.Title,
		}
	}
	return actions
}
