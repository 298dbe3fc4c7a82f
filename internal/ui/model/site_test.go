package model

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Patch 1.2 is LIVE!":       "patch-12-is-live",
		"  Spaces   everywhere  ":  "spaces-everywhere",
		"Dash -- collapse":         "dash-collapse",
		"Çığır açan güncelleme":    "çığır-açan-güncelleme",
		"---":                      "",
		"Community Event: Siege!!": "community-event-siege",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewsSlugRoundTrip(t *testing.T) {
	n := News{ID: "65f0c1", Title: "Season Two Begins"}
	slug := n.Slug()
	if slug != "season-two-begins-65f0c1" {
		t.Fatalf("unexpected slug %q", slug)
	}
	if id := NewsIDFromSlug(slug); id != n.ID {
		t.Fatalf("expected id %q, got %q", n.ID, id)
	}
}

func TestNewsSlugWithoutTitleFallsBackToID(t *testing.T) {
	if got := (News{ID: "abc"}).Slug(); got != "abc" {
		t.Fatalf("expected bare id, got %q", got)
	}
	if got := NewsIDFromSlug("/abc/"); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		"Plain   words\nhere":                             "Plain words here",
		"<p>Patch <strong>1.2</strong></p><p>is live</p>": "Patch 1.2is live",
		"Fish &amp; chips":                                "Fish & chips",
		"":                                                "",
	}
	for in, want := range cases {
		if got := PlainText(in); got != want {
			t.Fatalf("PlainText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("First line\nstill first\r\n\r\n\n\nSecond\n\n  ")
	if len(got) != 2 || got[0] != "First line\nstill first" || got[1] != "Second" {
		t.Fatalf("unexpected paragraphs: %q", got)
	}
}
