package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Its-donkey/quinfall-site/internal/backend"
	"github.com/Its-donkey/quinfall-site/internal/ui/model"
)

const (
	newsPerPage     = 9
	categoryAll     = "all"
	newsUnavailable = "News is unavailable right now. Please try again later."
)

var newsCategories = []string{categoryAll, model.NewsUpdate, model.NewsCommunity, model.NewsEvent, model.NewsOther}

type newsQuery struct {
	Query    string
	Category string
	Page     int
}

func parseNewsQuery(values url.Values) newsQuery {
	q := newsQuery{
		Query:    strings.TrimSpace(values.Get("q")),
		Category: categoryAll,
		Page:     1,
	}
	if cat := strings.TrimSpace(values.Get("category")); cat != "" {
		for _, known := range newsCategories {
			if strings.EqualFold(cat, known) {
				q.Category = known
				break
			}
		}
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	return q
}

func (q newsQuery) href(page int) string {
	values := url.Values{}
	if q.Query != "" {
		values.Set("q", q.Query)
	}
	if q.Category != categoryAll {
		values.Set("category", q.Category)
	}
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	if len(values) == 0 {
		return "/news"
	}
	return "/news?" + values.Encode()
}

// filterNews keeps posts whose title contains the query and whose category matches.
func filterNews(news []model.News, q newsQuery) []model.News {
	needle := strings.ToLower(q.Query)
	out := make([]model.News, 0, len(news))
	for _, n := range news {
		if q.Category != categoryAll && !strings.EqualFold(n.Category, q.Category) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(n.Title), needle) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (s *server) handleNewsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD")
		return
	}

	q := parseNewsQuery(r.URL.Query())
	data := newsListPageData{
		basePageData: s.buildBasePageData(r, s.pageTitle("News"), "The latest updates, events and community news from "+s.siteName+".", "/news"),
		Categories:   newsCategories,
		Category:     q.Category,
		Query:        q.Query,
		Page:         1,
		TotalPages:   1,
	}

	news, err := s.backend.News(r.Context())
	if err != nil {
		s.logger.WithError(err).Warn("news: load list")
		data.Error = newsUnavailable
		s.renderPage(w, "news", http.StatusOK, data)
		return
	}

	filtered := filterNews(news, q)
	sortNewestFirst(filtered)

	totalPages := (len(filtered) + newsPerPage - 1) / newsPerPage
	if totalPages < 1 {
		totalPages = 1
	}
	page := min(q.Page, totalPages)
	start := (page - 1) * newsPerPage
	end := min(start+newsPerPage, len(filtered))
	for _, n := range filtered[start:end] {
		data.Cards = append(data.Cards, toNewsCard(n))
	}

	data.Page = page
	data.TotalPages = totalPages
	if page > 1 {
		data.PrevHref = q.href(page - 1)
	}
	if page < totalPages {
		data.NextHref = q.href(page + 1)
	}
	s.renderPage(w, "news", http.StatusOK, data)
}

func (s *server) handleNewsDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, HEAD")
		return
	}

	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/news/"), "/")
	if slug == "" {
		http.Redirect(w, r, "/news", http.StatusMovedPermanently)
		return
	}
	id := model.NewsIDFromSlug(slug)
	if id == "" {
		s.notFound(w, r)
		return
	}

	post, err := s.backend.NewsByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			s.notFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("news_id", id).Warn("news: load post")
		http.Error(w, newsUnavailable, http.StatusBadGateway)
		return
	}

	canonical := "/news/" + post.Slug()
	if post.ID == "" {
		post.ID = id
		canonical = "/news/" + post.Slug()
	}
	if slug != post.Slug() {
		http.Redirect(w, r, canonical, http.StatusMovedPermanently)
		return
	}

	base := s.buildBasePageData(r, s.pageTitle(post.Title), model.PlainText(post.Content), canonical)
	base.OGType = "article"
	s.renderPage(w, "news_detail", http.StatusOK, newsDetailPageData{
		basePageData: base,
		Post:         toNewsCard(post),
		Paragraphs:   model.Paragraphs(post.Content),
	})
}
