// Package frontmatter derives the frontmatter document of a post from its raw
// export fields. Each field is produced by a small named extractor; the
// Populator composes the configured extractors in order.
package frontmatter

import (
	"fmt"
	"sort"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// Env is what extractors may read besides the post.
type Env struct {
	Config *config.Config

	// ToMarkdown converts an HTML body when the post has no Markdown yet.
	ToMarkdown func(html string) (string, error)

	// OnDroppedCategory is told about every category outside the vocabulary.
	OnDroppedCategory func(post *models.Post, name string)
}

// Extractor computes one field. A nil value with a nil error omits the field.
type Extractor func(post *models.Post, env *Env) (any, error)

// FieldError reports a field that could not be derived.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Registry maps field names to extractors.
type Registry map[string]Extractor

// DefaultRegistry returns every built-in field.
func DefaultRegistry() Registry {
	return Registry{
		"id":          extractID,
		"title":       extractTitle,
		"slug":        extractSlug,
		"author":      extractAuthor,
		"date":        extractDate,
		"modDatetime": extractModDatetime,
		"draft":       extractDraft,
		"tags":        extractTags,
		"categories":  extractCategories,
		"excerpt":     extractExcerpt,
		"description": extractDescription,
		"heroImage":   extractHeroImage,
		"keywords":    extractKeywords,
		"group":       extractGroup,
		"featured":    extractFeatured,
		"type":        extractType,
	}
}

// Names returns the registered field names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
