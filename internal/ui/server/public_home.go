package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/Its-donkey/quinfall-site/internal/ui/model"
)

const homeNewsLimit = 3

func (s *server) homeStructuredData(homeURL string) template.JS {
	if strings.TrimSpace(homeURL) == "" {
		return ""
	}
	game := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "VideoGame",
		"name":        s.siteName,
		"url":         homeURL,
		"description": s.siteDescription,
		"genre":       "MMORPG",
	}
	payload, err := json.Marshal(game)
	if err != nil {
		return ""
	}
	return template.JS(payload)
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.notFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD")
		return
	}

	base := s.buildBasePageData(r, s.pageTitle(""), s.siteDescription, "/")
	data := homePageData{
		basePageData:   base,
		StructuredData: s.homeStructuredData(base.CanonicalURL),
	}

	news, err := s.backend.News(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("home: load news")
		data.NewsError = "News is unavailable right now."
	} else {
		sortNewestFirst(news)
		if len(news) > homeNewsLimit {
			news = news[:homeNewsLimit]
		}
		for _, n := range news {
			data.Latest = append(data.Latest, toNewsCard(n))
		}
	}

	if count, ok := s.cache.PlayerCount(r.Context()); ok {
		data.PlayerCount = count
		data.HasPlayerCount = true
	}

	s.renderPage(w, "home", http.StatusOK, data)
}

func sortNewestFirst(news []model.News) {
	sort.SliceStable(news, func(i, j int) bool {
		return news[i].CreatedAt.After(news[j].CreatedAt)
	})
}
