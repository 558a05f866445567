// Package templates renders the HTML fragments patched into the page
// over Datastar SSE: the layer control panel, the legend, the
// breadbasket popup and the info panel.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"path/filepath"
	"sync"
)

//go:embed fragments/*.html
var fragmentsFS embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// pct formats a [0,1] opacity as a whole percentage for slider labels.
	"pct": func(f float64) string {
		return fmt.Sprintf("%d%%", int(math.Round(f*100)))
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer backed by the embedded fragment templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fragmentsFS, "fragments/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// NewFromDir creates a renderer that reads fragments from disk instead
// of the embedded copies. Used in development together with Reload.
func NewFromDir(fragmentsDir string) (*Renderer, error) {
	pattern := filepath.Join(fragmentsDir, "*.html")
	tmpl, err := template.New("").Funcs(funcMap).ParseGlob(pattern)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MustRender renders a template and panics on error.
// Use only when you're certain the template exists.
func (r *Renderer) MustRender(name string, data any) string {
	s, err := r.Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// Reload reloads templates from disk (useful for dev hot-reload).
func (r *Renderer) Reload(fragmentsDir string) error {
	pattern := filepath.Join(fragmentsDir, "*.html")
	tmpl, err := template.New("").Funcs(funcMap).ParseGlob(pattern)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
