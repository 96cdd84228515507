package frontmatter

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
	"github.com/aequinox/gesundes-leben/wp2md/internal/document"
	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

type field struct {
	spec    config.FieldSpec
	extract Extractor
}

// Populator fills in the frontmatter of posts from the configured field list.
type Populator struct {
	cfg     *config.Config
	env     *Env
	fields  []field
	logger  logging.Logger
	dropped atomic.Int64
}

// NewPopulator resolves the configured field list against registry. An
// unknown field name is a configuration error. env may be nil.
func NewPopulator(cfg *config.Config, registry Registry, env *Env, logger logging.Logger) (*Populator, error) {
	if logger == nil {
		logger = logging.NoOp()
	}
	if registry == nil {
		registry = DefaultRegistry()
	}

	p := &Populator{cfg: cfg, logger: logger}

	var own Env
	if env != nil {
		own = *env
	}
	own.Config = cfg
	userHook := own.OnDroppedCategory
	own.OnDroppedCategory = func(post *models.Post, name string) {
		p.dropped.Add(1)
		logging.WithPost(p.logger, post.ID, post.Title).Warn("category not in vocabulary, dropped", "category", name)
		if userHook != nil {
			userHook(post, name)
		}
	}
	p.env = &own

	var unknown []string
	for _, spec := range cfg.Fields() {
		extract, ok := registry[spec.Name]
		if !ok {
			unknown = append(unknown, spec.Name)
			continue
		}
		p.fields = append(p.fields, field{spec: spec, extract: extract})
	}
	if len(unknown) > 0 {
		return nil, errs.Config(fmt.Errorf("unknown frontmatter fields: %s (known: %s)",
			strings.Join(unknown, ", "), strings.Join(registry.Names(), ", ")))
	}

	return p, nil
}

// Populate derives the slug, the publication time and the frontmatter of
// post. Every failing field is reported; the post keeps no frontmatter then.
func (p *Populator) Populate(post *models.Post) error {
	post.Slug = PostSlug(post.Title, post.Name, post.ID, p.cfg.SlugSeparator)
	if t, err := ParseDate(post.PubDate); err == nil {
		post.Published = t
	}

	doc := document.New()
	var failures []error
	for _, f := range p.fields {
		value, err := f.extract(post, p.env)
		if err != nil {
			failures = append(failures, &FieldError{Field: f.spec.Name, Err: err})
			continue
		}
		if value != nil {
			doc.Set(f.spec.As, value)
		}
	}

	for _, pair := range metaFields(p.cfg) {
		if value, ok := post.MetaValue(pair[1]); ok {
			doc.Set(pair[0], value)
		}
	}

	if len(failures) > 0 {
		post.Frontmatter = nil
		joined := errors.Join(failures...)
		messages := make([]string, len(failures))
		for i, failure := range failures {
			messages[i] = failure.Error()
		}
		return errs.Field(joined, fmt.Sprintf("post %s: %s", post.ID, strings.Join(messages, "; ")))
	}

	post.Frontmatter = doc
	return nil
}

// Key returns the frontmatter key field is written under.
func (p *Populator) Key(name string) (string, bool) {
	for _, f := range p.fields {
		if f.spec.Name == name {
			return f.spec.As, true
		}
	}
	return "", false
}

// PreserveID makes post keep id, recalled from an earlier run.
func (p *Populator) PreserveID(post *models.Post, id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	post.PriorID = id
	if post.Frontmatter == nil {
		return
	}
	for _, f := range p.fields {
		if f.spec.Name == "id" {
			post.Frontmatter.Set(f.spec.As, id)
		}
	}
}

// Refresh recomputes one field of an already populated post. A field that
// now yields no value is removed.
func (p *Populator) Refresh(post *models.Post, name string) error {
	if post.Frontmatter == nil {
		return nil
	}
	for _, f := range p.fields {
		if f.spec.Name != name {
			continue
		}
		value, err := f.extract(post, p.env)
		if err != nil {
			return errs.Field(&FieldError{Field: name, Err: err}, fmt.Sprintf("post %s: %s: %v", post.ID, name, err))
		}
		if value == nil {
			post.Frontmatter.Delete(f.spec.As)
		} else {
			post.Frontmatter.Set(f.spec.As, value)
		}
	}
	return nil
}

// DroppedCategories returns how many category assignments were dropped.
func (p *Populator) DroppedCategories() int {
	return int(p.dropped.Load())
}
