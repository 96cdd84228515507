package frontmatter

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aequinox/gesundes-leben/wp2md/internal/config"
	"github.com/aequinox/gesundes-leben/wp2md/internal/document"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

func extractID(post *models.Post, _ *Env) (any, error) {
	if post.PriorID != "" {
		return post.PriorID, nil
	}
	return uuid.NewString(), nil
}

func extractTitle(post *models.Post, _ *Env) (any, error) {
	return strings.TrimSpace(post.Title), nil
}

func extractSlug(post *models.Post, env *Env) (any, error) {
	if post.Slug != "" {
		return post.Slug, nil
	}
	return PostSlug(post.Title, post.Name, post.ID, env.Config.SlugSeparator), nil
}

func extractAuthor(post *models.Post, env *Env) (any, error) {
	creator := strings.TrimSpace(post.Creator)
	if creator == "" {
		return nil, errors.New("creator data is missing")
	}
	if slug, ok := env.Config.Author(creator); ok {
		return slug, nil
	}
	for login, slug := range env.Config.AuthorMapping {
		if strings.EqualFold(login, creator) {
			return slug, nil
		}
	}
	return nil, fmt.Errorf("unknown creator %q", creator)
}

func dateFormat(cfg *config.Config) DateFormat {
	return DateFormat{
		Custom:      cfg.CustomDateFormatting,
		IncludeTime: cfg.IncludeTimeWithDate,
		Location:    cfg.Location(),
	}
}

func publication(post *models.Post) (time.Time, error) {
	if !post.Published.IsZero() {
		return post.Published, nil
	}
	return ParseDate(post.PubDate)
}

func extractDate(post *models.Post, env *Env) (any, error) {
	t, err := publication(post)
	if err != nil {
		return nil, err
	}
	return dateFormat(env.Config).Format(t), nil
}

func extractModDatetime(post *models.Post, env *Env) (any, error) {
	if env.Config.UseModifiedDate && strings.TrimSpace(post.ModDate) != "" && !isNullDate(post.ModDate) {
		t, err := ParseDate(post.ModDate)
		if err != nil {
			return nil, err
		}
		return dateFormat(env.Config).Format(t), nil
	}
	return extractDate(post, env)
}

func isNullDate(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, "0000-00-00") || strings.HasPrefix(raw, "-0001")
}

func extractDraft(post *models.Post, _ *Env) (any, error) {
	status := strings.TrimSpace(post.Status)
	if status == "" {
		return nil, errors.New("status data is missing")
	}
	return status != "publish", nil
}

func postTags(post *models.Post) []string {
	tags := []string{}
	seen := map[string]bool{}
	for _, name := range post.TermNames(models.DomainTag) {
		name = decodeTerm(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
	}
	return tags
}

func extractTags(post *models.Post, _ *Env) (any, error) {
	return postTags(post), nil
}

func extractCategories(post *models.Post, env *Env) (any, error) {
	kept, dropped := ResolveCategories(env.Config, post.TermNames(models.DomainCategory))
	if env.OnDroppedCategory != nil {
		for _, name := range dropped {
			env.OnDroppedCategory(post, name)
		}
	}
	return kept, nil
}

func postExcerpt(post *models.Post) string {
	excerpt := collapseLines(post.Excerpt)
	if strings.ContainsAny(excerpt, "<&") {
		excerpt = HTMLText(excerpt)
	}
	return excerpt
}

func extractExcerpt(post *models.Post, _ *Env) (any, error) {
	excerpt := postExcerpt(post)
	if excerpt == "" {
		return nil, errors.New("excerpt data is missing")
	}
	return excerpt, nil
}

// bodyText returns the prose of the post body, converting it when no
// Markdown has been produced yet.
func bodyText(post *models.Post, env *Env) string {
	if post.Markdown != "" {
		return PlainText(post.Markdown)
	}
	if env.ToMarkdown != nil {
		if md, err := env.ToMarkdown(post.Content); err == nil {
			return PlainText(md)
		}
	}
	return HTMLText(post.Content)
}

func extractDescription(post *models.Post, env *Env) (any, error) {
	if excerpt := postExcerpt(post); excerpt != "" {
		return excerpt, nil
	}
	return Truncate(bodyText(post, env), descriptionLength), nil
}

func extractHeroImage(post *models.Post, _ *Env) (any, error) {
	cover := post.Cover
	if cover == nil || cover.Failed {
		return nil, nil
	}
	alt := strings.TrimSpace(cover.Alt)
	if alt == "" {
		alt = strings.TrimSpace(post.Title)
	}
	hero := document.New()
	hero.Set("src", cover.RelativePath())
	hero.Set("alt", alt)
	return hero, nil
}

func extractKeywords(post *models.Post, env *Env) (any, error) {
	if tags := postTags(post); len(tags) > 0 {
		if len(tags) > maxKeywords {
			tags = tags[:maxKeywords]
		}
		return tags, nil
	}
	return ExtractKeywords(post.Title+" "+bodyText(post, env), maxKeywords), nil
}

func extractGroup(post *models.Post, env *Env) (any, error) {
	if group, ok := post.MetaValue("group"); ok {
		switch g := strings.ToLower(strings.TrimSpace(group)); g {
		case GroupPro, GroupKontra, GroupFragezeiten:
			return g, nil
		}
	}
	return DetermineGroup(post.Title, bodyText(post, env), postTags(post)), nil
}

func extractFeatured(post *models.Post, _ *Env) (any, error) {
	return post.IsSticky, nil
}

func extractType(post *models.Post, _ *Env) (any, error) {
	if post.Type == "" {
		return "post", nil
	}
	return post.Type, nil
}

// metaFields returns the configured meta fields as (output name, meta key)
// pairs sorted by output name.
func metaFields(cfg *config.Config) [][2]string {
	pairs := make([][2]string, 0, len(cfg.MetaFields))
	for name, key := range cfg.MetaFields {
		pairs = append(pairs, [2]string{name, key})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	return pairs
}
