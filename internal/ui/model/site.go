// Package model holds the wire and view types shared by the site server and the WASM client.
package model

import (
	"regexp"
	"strings"
	"time"
)

// News categories used by the studio backend.
const (
	NewsUpdate    = "Update"
	NewsCommunity = "Community"
	NewsEvent     = "Event"
	NewsOther     = "Other"
)

// News is a published news post.
type News struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Slug returns the public path segment for the post: the slugified title followed by the id.
func (n News) Slug() string {
	base := Slugify(n.Title)
	if base == "" {
		return n.ID
	}
	return base + "-" + n.ID
}

// Maintenance mirrors GET /maintenance.
type Maintenance struct {
	IsActive    bool       `json:"isActive"`
	Message     string     `json:"message"`
	ActivatedAt *time.Time `json:"activatedAt"`
	ActivatedBy *string    `json:"activatedBy"`
}

// DefaultMaintenanceMessage is shown when the backend does not provide one.
const DefaultMaintenanceMessage = "We are currently performing scheduled maintenance. Please check back soon."

// Subscription is a newsletter subscription record.
type Subscription struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubscriptionRequest is the body of POST /subscription.
type SubscriptionRequest struct {
	Email string `json:"email"`
}

// PlayerCountResponse mirrors GET /steam/player-count.
type PlayerCountResponse struct {
	PlayerCount *float64 `json:"playerCount"`
}

// ErrorResponse is the error envelope returned by the backend.
type ErrorResponse struct {
	Message string `json:"message"`
}

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9ğüşöçı\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// Slugify lowercases text and reduces it to a dash-separated path segment.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NewsIDFromSlug extracts the post id, which is always the last dash-separated segment.
func NewsIDFromSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if i := strings.LastIndex(slug, "-"); i >= 0 {
		return slug[i+1:]
	}
	return slug
}
