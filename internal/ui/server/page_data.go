package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Its-donkey/quinfall-site/internal/ui/model"
)

type newsletterView struct {
	Success string
	Error   string
}

type basePageData struct {
	PageTitle       string
	StylesheetPath  string
	CurrentYear     int
	SiteName        string
	MetaDescription string
	CanonicalURL    string
	OGType          string
	Robots          string
	ActivePath      string
	Newsletter      newsletterView
}

type newsCard struct {
	ID       string
	Title    string
	Href     string
	Excerpt  string
	Category string
	ImageURL string
	Date     string
	DateISO  string
}

type homePageData struct {
	basePageData
	Latest         []newsCard
	NewsError      string
	PlayerCount    int
	HasPlayerCount bool
	StructuredData template.JS
}

type newsListPageData struct {
	basePageData
	Cards      []newsCard
	Categories []string
	Category   string
	Query      string
	Page       int
	TotalPages int
	PrevHref   string
	NextHref   string
	Error      string
}

type newsDetailPageData struct {
	basePageData
	Post       newsCard
	Paragraphs []string
}

type dropsPageData struct {
	basePageData
	APIBase  string
	WASMPath string
	Panel    template.HTML
}

type legalSection struct {
	Title string
	Body  []string
}

type legalPageData struct {
	basePageData
	Heading  string
	Intro    string
	Sections []legalSection
	Closing  string
}

type maintenancePageData struct {
	SiteName       string
	StylesheetPath string
	Message        string
}

// canonicalHostFromURL extracts the host component from a URL string.
// It returns an empty string if parsing fails.
func canonicalHostFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Host)
}

// absoluteURL builds an absolute URL for the given path using the request
// and server configuration as hints.
func (s *server) absoluteURL(r *http.Request, path string) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		clean = "/"
	}
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}

	scheme := "https"
	if r != nil {
		if proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto != "" {
			scheme = proto
		} else if r.TLS == nil {
			scheme = "http"
		}
		if host := strings.TrimSpace(r.Host); host != "" {
			return fmt.Sprintf("%s://%s%s", scheme, host, clean)
		}
	}

	host := strings.TrimSpace(s.primaryHost)
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, clean)
}

// truncateWithEllipsis trims a string to a maximum number of runes,
// attempting to cut on a word boundary, and appends an ellipsis if trimmed.
func truncateWithEllipsis(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 {
		return value
	}

	runes := []rune(value)
	if len(runes) <= max {
		return value
	}

	cut := max
	for i := max - 1; i >= 0 && i >= max-20; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}

	trimmed := strings.TrimSpace(string(runes[:cut]))
	if trimmed == "" {
		trimmed = strings.TrimSpace(string(runes[:max]))
	}

	return trimmed + "…"
}

// normalizeDescription falls back to the site description and truncates to a
// search-friendly length.
func (s *server) normalizeDescription(desc string) string {
	trimmed := strings.TrimSpace(desc)
	if trimmed == "" {
		trimmed = s.siteDescription
	}
	return truncateWithEllipsis(trimmed, 155)
}

// buildBasePageData constructs the basePageData used by most templates.
func (s *server) buildBasePageData(r *http.Request, title, description, canonicalPath string) basePageData {
	if strings.TrimSpace(title) == "" {
		title = s.siteName
	}
	return basePageData{
		PageTitle:       title,
		StylesheetPath:  s.stylesPath,
		CurrentYear:     s.now().Year(),
		SiteName:        s.siteName,
		MetaDescription: s.normalizeDescription(description),
		CanonicalURL:    s.absoluteURL(r, canonicalPath),
		OGType:          "website",
		ActivePath:      canonicalPath,
		Newsletter:      newsletterFromQuery(r),
	}
}

func (s *server) pageTitle(prefix string) string {
	if strings.TrimSpace(prefix) == "" {
		return s.siteName
	}
	return strings.TrimSpace(prefix) + " - " + s.siteName
}

func toNewsCard(n model.News) newsCard {
	created := n.CreatedAt
	card := newsCard{
		ID:       n.ID,
		Title:    n.Title,
		Href:     "/news/" + n.Slug(),
		Excerpt:  truncateWithEllipsis(model.PlainText(n.Content), 160),
		Category: n.Category,
		ImageURL: n.ImageURL,
	}
	if !created.IsZero() {
		card.Date = created.Format("January 2, 2006")
		card.DateISO = created.Format(time.RFC3339)
	}
	return card
}
