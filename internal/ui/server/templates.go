package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// pageFiles lists, per logical page, the files parsed on top of base.tmpl.
var pageFiles = map[string][]string{
	"home":        {"home.tmpl", "news_card.tmpl"},
	"news":        {"news.tmpl", "news_card.tmpl"},
	"news_detail": {"news_detail.tmpl"},
	"drops":       {"drops.tmpl"},
	"legal":       {"legal.tmpl"},
	"not_found":   {"not_found.tmpl"},
}

// loadTemplates loads and wires all HTML templates used by the site server. An empty
// dir uses the templates compiled into the binary.
// It returns a map keyed by logical template name (e.g. "home", "news").
func loadTemplates(dir string) (map[string]*template.Template, error) {
	var fsys fs.FS
	if strings.TrimSpace(dir) == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, fmt.Errorf("open embedded templates: %w", err)
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	funcs := template.FuncMap{
		"lower": strings.ToLower,
	}

	templates := make(map[string]*template.Template, len(pageFiles)+1)
	for name, files := range pageFiles {
		patterns := append([]string{"base.tmpl"}, files...)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(fsys, patterns...)
		if err != nil {
			return nil, fmt.Errorf("parse %s templates: %w", name, err)
		}
		templates[name] = tmpl
	}

	maintenance, err := template.New("maintenance").Funcs(funcs).ParseFS(fsys, "maintenance.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse maintenance template: %w", err)
	}
	templates["maintenance"] = maintenance

	return templates, nil
}
