package server

import (
	"encoding/xml"
	"fmt"
	"net/http"
)

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

var staticSitemapPages = []struct {
	path       string
	changeFreq string
	priority   string
}{
	{"/", "daily", "1.0"},
	{"/news", "daily", "0.9"},
	{"/twitch-drops", "weekly", "0.8"},
	{"/privacy-policy", "monthly", "0.5"},
	{"/legal-notice", "monthly", "0.5"},
}

func (s *server) handleRobots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /dashboard")
	fmt.Fprintln(w, "Disallow: /api/")
	fmt.Fprintf(w, "Sitemap: %s\n", s.absoluteURL(r, "/sitemap.xml"))
}

func (s *server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	today := s.now().UTC().Format("2006-01-02")
	entries := make([]urlEntry, 0, len(staticSitemapPages))
	for _, page := range staticSitemapPages {
		entries = append(entries, urlEntry{
			Loc:        s.absoluteURL(r, page.path),
			LastMod:    today,
			ChangeFreq: page.changeFreq,
			Priority:   page.priority,
		})
	}

	news, err := s.backend.News(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("render sitemap: load news")
	}
	for _, n := range news {
		modified := n.UpdatedAt
		if modified.IsZero() {
			modified = n.CreatedAt
		}
		entry := urlEntry{
			Loc:        s.absoluteURL(r, "/news/"+n.Slug()),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		}
		if !modified.IsZero() {
			entry.LastMod = modified.UTC().Format("2006-01-02")
		}
		entries = append(entries, entry)
	}

	smap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  entries,
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(smap); err != nil {
		s.logger.WithError(err).Error("encode sitemap")
	}
}
