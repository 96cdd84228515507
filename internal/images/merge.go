package images

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// Catalog looks up attachments by id.
type Catalog interface {
	Attachment(id string) (models.Attachment, bool)
}

// SavePolicy tells which descriptors get a local file.
type SavePolicy struct {
	Attached bool
	Scraped  bool
}

func (p SavePolicy) saves(img *models.Image) bool {
	switch img.Source {
	case models.SourceAttached:
		return p.Attached
	case models.SourceScraped:
		return p.Scraped
	}
	return false
}

// MergeStats reports what the merge did.
type MergeStats struct {
	Attached  int
	Discarded int
	Covers    int
}

// Merger joins image descriptors into their posts.
type Merger struct {
	catalog Catalog
	policy  SavePolicy
	logger  logging.Logger
}

// NewMerger creates a merger. catalog may be nil when no featured images are
// to be resolved.
func NewMerger(catalog Catalog, policy SavePolicy, logger logging.Logger) *Merger {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Merger{catalog: catalog, policy: policy, logger: logger}
}

// Merge attaches every image to the post whose id it carries, selects each
// post's cover and plans local file names. Images without a matching post
// are discarded.
func (m *Merger) Merge(posts []*models.Post, images []*models.Image) MergeStats {
	var stats MergeStats

	byID := make(map[string]*models.Post, len(posts))
	for _, post := range posts {
		post.Images = nil
		post.Cover = nil
		byID[post.ID] = post
	}

	for _, img := range images {
		post, ok := byID[img.PostID]
		if !ok || img.PostID == "" {
			stats.Discarded++
			continue
		}
		post.Images = append(post.Images, img)
		stats.Attached++
	}
	if stats.Discarded > 0 {
		m.logger.Debug("images without selected post discarded", "count", stats.Discarded)
	}

	for _, post := range posts {
		if cover := m.selectCover(post); cover != nil {
			post.Cover = cover
			stats.Covers++
		}
		m.planFileNames(post)
	}

	return stats
}

func (m *Merger) selectCover(post *models.Post) *models.Image {
	id := post.CoverImageID
	if id == "" {
		return nil
	}
	for _, img := range post.Images {
		if img.Source == models.SourceAttached && img.ID == id {
			return img
		}
	}
	if m.catalog == nil {
		return nil
	}
	att, ok := m.catalog.Attachment(id)
	if !ok || att.URL == "" {
		m.logger.Debug("featured image not in export", "post_id", post.ID, "attachment_id", id)
		return nil
	}
	// The featured image belongs to another post; this post gets its own copy.
	cover := FromAttachment(att, post.ID)
	post.Images = append(post.Images, cover)
	return cover
}

// planFileNames assigns images/<name> to every image the policy saves. The
// same URL maps to the same file; distinct URLs sharing a base name get a
// numeric suffix.
func (m *Merger) planFileNames(post *models.Post) {
	byURL := map[string]string{}
	taken := map[string]bool{}

	for _, img := range post.Images {
		if !m.policy.saves(img) {
			img.FileName = ""
			continue
		}
		if name, ok := byURL[img.URL]; ok {
			img.FileName = name
			continue
		}
		name := uniqueName(FileName(img.URL), taken)
		taken[name] = true
		byURL[img.URL] = name
		img.FileName = name
	}
}

func uniqueName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}

// FileName derives a safe local file name from an image URL.
func FileName(raw string) string {
	name := raw
	if u, err := url.Parse(raw); err == nil {
		name = u.Path
	}
	name = path.Base(name)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	clean := strings.Trim(b.String(), "-.")
	if clean == "" || clean == "/" {
		return "image"
	}
	return clean
}
