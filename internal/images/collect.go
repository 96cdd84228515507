// Package images finds, reconciles and downloads the images of posts.
package images

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// Collector produces image descriptors from an export.
type Collector struct {
	base   *url.URL
	logger logging.Logger
}

// NewCollector creates a collector resolving relative references against
// base. A nil base leaves relative URLs untouched.
func NewCollector(base *url.URL, logger logging.Logger) *Collector {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Collector{base: base, logger: logger}
}

// ResolveBase picks the site URL relative image references resolve against:
// the configured override when set, else the export's own base URL.
func ResolveBase(override string, fallback *url.URL) *url.URL {
	if override = strings.TrimSpace(override); override != "" {
		if u, err := url.Parse(override); err == nil && u.Host != "" {
			return u
		}
	}
	return fallback
}

// Attached returns one descriptor per attachment that names a parent post.
// Attachments without a parent are skipped with a warning.
func (c *Collector) Attached(attachments []models.Attachment) []*models.Image {
	var out []*models.Image
	for _, att := range attachments {
		if att.ParentID == "" {
			c.logger.Warn("attachment has no parent post", "attachment_id", att.ID, "url", att.URL)
			continue
		}
		if att.URL == "" {
			c.logger.Warn("attachment has no url", "attachment_id", att.ID)
			continue
		}
		out = append(out, FromAttachment(att, att.ParentID))
	}
	return out
}

// FromAttachment builds the descriptor of att owned by postID.
func FromAttachment(att models.Attachment, postID string) *models.Image {
	return &models.Image{
		ID:     att.ID,
		PostID: postID,
		Source: models.SourceAttached,
		Src:    att.URL,
		URL:    att.URL,
		Alt:    att.Alt,
	}
}

// Scraped returns a descriptor for every img[src] in the bodies of posts.
// Duplicate tags yield duplicate descriptors.
func (c *Collector) Scraped(posts []*models.Post) []*models.Image {
	var out []*models.Image
	for _, post := range posts {
		if strings.TrimSpace(post.Content) == "" {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(post.Content))
		if err != nil {
			c.logger.Warn("cannot scan post body for images", "post_id", post.ID, "error", err)
			continue
		}
		doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
			src := strings.TrimSpace(s.AttrOr("src", ""))
			if src == "" || strings.HasPrefix(src, "data:") {
				return
			}
			resolved, ok := c.resolve(src)
			if !ok {
				c.logger.Warn("unresolvable image reference", "post_id", post.ID, "src", src)
				return
			}
			out = append(out, &models.Image{
				PostID: post.ID,
				Source: models.SourceScraped,
				Src:    src,
				URL:    resolved,
				Alt:    strings.TrimSpace(s.AttrOr("alt", "")),
			})
		})
	}
	return out
}

func (c *Collector) resolve(src string) (string, bool) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}
	if c.base == nil {
		return src, true
	}
	return c.base.ResolveReference(ref).String(), true
}
