package images

import (
	"net/url"
	"testing"

	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestAttachedDropsOrphans(t *testing.T) {
	c := NewCollector(nil, nil)
	got := c.Attached([]models.Attachment{
		{ID: "20", ParentID: "10", URL: "https://site/cover.jpg", Alt: "Cover"},
		{ID: "21", ParentID: "", URL: "https://site/orphan.jpg"},
		{ID: "22", ParentID: "11", URL: ""},
	})

	if len(got) != 1 {
		t.Fatalf("Attached() len = %d, want 1", len(got))
	}
	img := got[0]
	if img.ID != "20" || img.PostID != "10" || img.Source != models.SourceAttached || img.Alt != "Cover" {
		t.Errorf("Attached()[0] = %+v", img)
	}
}

func TestScrapedResolvesRelativeSources(t *testing.T) {
	posts := []*models.Post{
		{ID: "10", Content: `<p><img src="/wp-content/uploads/a.jpg" alt="A"></p><img src="https://cdn.example/b.png"><img src="/wp-content/uploads/a.jpg">`},
		{ID: "11", Content: `<img src="data:image/png;base64,AAAA"><img alt="no src">`},
		{ID: "12", Content: ""},
	}

	tests := []struct {
		name    string
		base    *url.URL
		wantURL string
	}{
		{name: "with base", base: mustURL(t, "https://gesundes-leben.example"), wantURL: "https://gesundes-leben.example/wp-content/uploads/a.jpg"},
		{name: "without base", base: nil, wantURL: "/wp-content/uploads/a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCollector(tt.base, nil).Scraped(posts)
			if len(got) != 3 {
				t.Fatalf("Scraped() len = %d, want 3 (duplicates kept)", len(got))
			}
			first := got[0]
			if first.PostID != "10" || first.Source != models.SourceScraped {
				t.Errorf("first = %+v", first)
			}
			if first.Src != "/wp-content/uploads/a.jpg" {
				t.Errorf("Src = %q, want original reference", first.Src)
			}
			if first.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", first.URL, tt.wantURL)
			}
			if first.Alt != "A" {
				t.Errorf("Alt = %q, want A", first.Alt)
			}
			if got[1].URL != "https://cdn.example/b.png" {
				t.Errorf("absolute URL changed: %q", got[1].URL)
			}
		})
	}
}

func TestResolveBase(t *testing.T) {
	fallback := mustURL(t, "https://export.example")

	if got := ResolveBase("https://images.example/", fallback); got.Host != "images.example" {
		t.Errorf("ResolveBase(override) host = %s, want images.example", got.Host)
	}
	if got := ResolveBase("", fallback); got != fallback {
		t.Errorf("ResolveBase(\"\") = %v, want fallback", got)
	}
	if got := ResolveBase("not a url", fallback); got != fallback {
		t.Errorf("ResolveBase(invalid) = %v, want fallback", got)
	}
}
