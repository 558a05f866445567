package humastar

import (
	"fmt"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// linkMap stores the generated RFC 8288 link headers keyed by operation path.
var linkMap map[string][]string

// AutoLinks walks the OpenAPI spec and derives the hypermedia link graph:
// items link up to their collection, collections link to their items and
// siblings, and /health acts as the entry point that lists everything.
// Call after all routes are registered. Panel (Datastar SSE) endpoints
// are internal to the page and stay out of the graph.
func AutoLinks(api huma.API) {
	oapi := api.OpenAPI()
	linkMap = map[string][]string{}

	type pathInfo struct {
		path string
		tags []string
	}
	var collections, items []pathInfo

	for p, pi := range oapi.Paths {
		tags := primaryTags(pi)
		if hasTag(tags, "panel") {
			continue
		}
		info := pathInfo{path: p, tags: tags}
		if strings.Contains(p, "{") {
			items = append(items, info)
		} else {
			collections = append(collections, info)
		}
	}

	// Item → collection. Session resources live two levels below their
	// collection (/sessions/{id}/style), so walk ancestors until a
	// registered path turns up.
	for _, item := range items {
		parent := nearestAncestor(oapi, item.path)
		if parent == "" {
			continue
		}
		addLink(item.path, parent, "collection")
		addLink(item.path, parent, "up")
	}

	// Collection → item templates.
	for _, coll := range collections {
		for _, item := range items {
			if nearestAncestor(oapi, item.path) == coll.path {
				addLink(coll.path, item.path, "item")
			}
		}
	}

	// Collection → entry point.
	for _, coll := range collections {
		if coll.path == "/health" {
			continue
		}
		addLink(coll.path, "/health", "up")
	}

	// The SQL endpoint is the one free-form lookup, so it carries the
	// IANA "search" rel everywhere.
	if _, ok := oapi.Paths["/api/v1/query"]; ok {
		for _, coll := range collections {
			if coll.path == "/api/v1/query" {
				continue
			}
			addLink(coll.path, "/api/v1/query", "search")
		}
	}

	// POST-able collections advertise a create-form. The query endpoint
	// is excluded: its POST searches, it does not create.
	for _, coll := range collections {
		if coll.path == "/api/v1/query" {
			continue
		}
		if pi := oapi.Paths[coll.path]; pi.Post != nil {
			addLink(coll.path, coll.path, "create-form")
		}
	}

	// Cross-link collections sharing a tag, e.g. the breadbasket
	// collection and its stats, or the three catalog endpoints.
	for i, a := range collections {
		for j, b := range collections {
			if i == j {
				continue
			}
			if sharedTag(a.tags, b.tags) != "" {
				addLink(a.path, b.path, lastSegment(b.path))
			}
		}
	}

	// Entry point: /health links to every collection plus the IANA
	// discovery rels.
	for _, coll := range collections {
		if coll.path == "/health" {
			continue
		}
		addLink("/health", coll.path, lastSegment(coll.path))
	}
	addLink("/health", "/openapi.json", "describedby")
	addLink("/health", "/openapi.json", "service-desc")
	addLink("/health", "/docs", "service-doc")
	if _, ok := oapi.Paths["/api/v1/query"]; ok {
		addLink("/health", "/api/v1/query", "search")
	}

	// describedby per resource: point at the JSON Schema fragment of the
	// GET response inside the OpenAPI document.
	for _, all := range [][]pathInfo{collections, items} {
		for _, pi := range all {
			schemaRef := getResponseSchemaRef(oapi.Paths[pi.path])
			if schemaRef != "" {
				addLink(pi.path, "/openapi.json#/components/schemas/"+schemaRef, "describedby")
			}
		}
	}

	// Mirror the headers into OpenAPI Response.Links so the spec itself
	// documents the relationships.
	for p, pi := range oapi.Paths {
		headers, ok := linkMap[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op == nil {
				continue
			}
			injectResponseLinks(op, headers)
		}
	}
}

// LinkTransformer returns a Huma Transformer that injects the generated
// RFC 8288 Link headers at runtime, plus a resolved self link on item
// endpoints and the state-dependent action links of Actor bodies.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		if linkMap != nil {
			for _, link := range linkMap[op.Path] {
				ctx.AppendHeader("Link", link)
			}
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// RootLinks returns the generated Link headers for the entry point, for
// use by non-Huma handlers. The viewer page at / serves the same role
// as /health in the link graph.
func RootLinks() []string {
	if linkMap == nil {
		return nil
	}
	return linkMap["/health"]
}

// --- helpers ---

// nearestAncestor walks up the path until it finds a registered route.
func nearestAncestor(oapi *huma.OpenAPI, p string) string {
	for {
		parent := path.Dir(p)
		if parent == "/" || parent == "." || parent == p {
			return ""
		}
		if _, ok := oapi.Paths[parent]; ok {
			return parent
		}
		p = parent
	}
}

func addLink(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	for _, existing := range linkMap[from] {
		if existing == val {
			return
		}
	}
	linkMap[from] = append(linkMap[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sharedTag(a, b []string) string {
	for _, at := range a {
		for _, bt := range b {
			if at == bt {
				return at
			}
		}
	}
	return ""
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func getResponseSchemaRef(pi *huma.PathItem) string {
	if pi.Get == nil || pi.Get.Responses == nil {
		return ""
	}
	for code, resp := range pi.Get.Responses {
		if !strings.HasPrefix(code, "2") || resp.Content == nil {
			continue
		}
		for _, mt := range resp.Content {
			if mt.Schema != nil && mt.Schema.Ref != "" {
				parts := strings.Split(mt.Schema.Ref, "/")
				return parts[len(parts)-1]
			}
		}
	}
	return ""
}

func parseLinkHeader(h string) (rel, href string) {
	// Parse `<url>; rel="name"` format.
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
