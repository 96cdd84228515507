// Package models holds the records that flow through the conversion stages.
package models

import (
	"time"

	"github.com/aequinox/gesundes-leben/wp2md/internal/document"
)

// Taxonomy domains carried by WXR category elements.
const (
	DomainCategory = "category"
	DomainTag      = "post_tag"
)

// Term is one category or tag assignment of a post.
type Term struct {
	Domain   string
	Nicename string
	Name     string
}

// Post is one WordPress entry selected for conversion. The raw fields are set
// by the parser; the derived fields are filled in by later stages.
type Post struct {
	ID           string
	Type         string
	Title        string
	Link         string
	Name         string
	Content      string
	Excerpt      string
	PubDate      string
	ModDate      string
	Status       string
	Creator      string
	IsSticky     bool
	Terms        []Term
	Meta         map[string]string
	CoverImageID string

	// Derived.
	Slug        string
	Published   time.Time
	Frontmatter *document.Document
	Markdown    string
	Images      []*Image
	Cover       *Image
	PriorID     string
	Path        string
}

// TermNames returns the display names of the terms in domain, in order.
func (p *Post) TermNames(domain string) []string {
	names := make([]string, 0, len(p.Terms))
	for _, term := range p.Terms {
		if term.Domain == domain {
			names = append(names, term.Name)
		}
	}
	return names
}

// MetaValue returns the post meta value stored under key.
func (p *Post) MetaValue(key string) (string, bool) {
	if p.Meta == nil {
		return "", false
	}
	v, ok := p.Meta[key]
	return v, ok
}

// ImageSource tells where an image descriptor was discovered.
type ImageSource string

const (
	SourceAttached ImageSource = "attached"
	SourceScraped  ImageSource = "scraped"
)

// Image is one image asset owned by exactly one post.
type Image struct {
	ID       string
	PostID   string
	Source   ImageSource
	Src      string
	URL      string
	Alt      string
	FileName string

	LocalPath  string
	Downloaded bool
	Failed     bool
	Skipped    bool
}

// RelativePath is the reference written into Markdown and frontmatter.
func (img *Image) RelativePath() string {
	if img.FileName == "" {
		return img.URL
	}
	return "./images/" + img.FileName
}

// Attachment is a catalog entry for a WordPress attachment item.
type Attachment struct {
	ID       string
	ParentID string
	URL      string
	Title    string
	Alt      string
}
