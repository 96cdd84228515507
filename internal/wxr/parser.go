package wxr

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
	"github.com/aequinox/gesundes-leben/wp2md/internal/logging"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// Post types that never become posts, whatever the selection.
var internalTypes = map[string]bool{
	"attachment":          true,
	"revision":            true,
	"nav_menu_item":       true,
	"custom_css":          true,
	"customize_changeset": true,
	"oembed_cache":        true,
	"user_request":        true,
	"wp_block":            true,
	"wp_template":         true,
	"wp_template_part":    true,
	"wp_global_styles":    true,
	"wp_navigation":       true,
}

const (
	thumbnailMetaKey = "_thumbnail_id"
	altMetaKey       = "_wp_attachment_image_alt"
)

// Selection decides which items become posts.
type Selection struct {
	IncludeOtherTypes bool
	IncludeDrafts     bool
}

// Author is one wp:author entry of the channel.
type Author struct {
	Login       string
	DisplayName string
	Email       string
}

// Summary describes the channel of an export.
type Summary struct {
	Title        string
	Link         string
	Language     string
	WXRVersion   string
	BaseURL      string
	Authors      []Author
	Categories   []string
	Tags         []string
	TypeCounts   map[string]int
	StatusCounts map[string]int
	Items        int
}

// Export is a decoded WXR file.
type Export struct {
	Summary     Summary
	items       []item
	attachments []models.Attachment
	byID        map[string]models.Attachment
}

// Parser reads exports from disk.
type Parser struct {
	logger logging.Logger
}

// NewParser creates a parser. A nil logger discards output.
func NewParser(logger logging.Logger) *Parser {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Parser{logger: logger}
}

// Parse reads and decodes the export at path. Unreadable files and malformed
// XML are fatal parse errors.
func (p *Parser) Parse(ctx context.Context, path string) (*Export, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Parse(fmt.Errorf("opening %s: %w", path, err), fmt.Sprintf("cannot read export %s: %v", path, err))
	}
	defer f.Close()

	export, err := p.ParseReader(f)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("export parsed",
		"path", path,
		"items", export.Summary.Items,
		"attachments", len(export.attachments),
	)
	return export, nil
}

// ParseReader decodes an export from r.
func (p *Parser) ParseReader(r io.Reader) (*Export, error) {
	var doc rss
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return nil, errs.Parse(fmt.Errorf("decoding WXR: %w", err), fmt.Sprintf("malformed export: %v", err))
	}
	if doc.Channel.Title == "" && len(doc.Channel.Items) == 0 && doc.Channel.Link == "" {
		err := fmt.Errorf("no channel element found")
		return nil, errs.Parse(err, "malformed export: no channel element found")
	}

	export := &Export{
		items: doc.Channel.Items,
		byID:  map[string]models.Attachment{},
	}
	export.Summary = summarize(&doc.Channel)

	for i := range doc.Channel.Items {
		it := &doc.Channel.Items[i]
		if it.postType() != "attachment" {
			continue
		}
		att := models.Attachment{
			ID:       strings.TrimSpace(it.PostID),
			ParentID: normalizeParent(it.PostParent),
			URL:      strings.TrimSpace(it.AttachmentURL),
			Title:    strings.TrimSpace(it.Title),
			Alt:      strings.TrimSpace(it.metaValue(altMetaKey)),
		}
		if att.URL == "" {
			att.URL = strings.TrimSpace(it.GUID)
		}
		export.attachments = append(export.attachments, att)
		if att.ID != "" {
			export.byID[att.ID] = att
		}
	}

	return export, nil
}

func summarize(ch *channel) Summary {
	s := Summary{
		Title:        strings.TrimSpace(ch.Title),
		Link:         strings.TrimSpace(ch.Link),
		Language:     strings.TrimSpace(ch.Language),
		WXRVersion:   strings.TrimSpace(ch.WXRVersion),
		BaseURL:      strings.TrimSpace(ch.BaseBlogURL),
		TypeCounts:   map[string]int{},
		StatusCounts: map[string]int{},
		Items:        len(ch.Items),
	}
	if s.BaseURL == "" {
		s.BaseURL = strings.TrimSpace(ch.BaseSiteURL)
	}
	if s.BaseURL == "" {
		s.BaseURL = s.Link
	}
	for _, a := range ch.Authors {
		s.Authors = append(s.Authors, Author{
			Login:       strings.TrimSpace(a.Login),
			DisplayName: strings.TrimSpace(a.DisplayName),
			Email:       strings.TrimSpace(a.Email),
		})
	}
	for _, c := range ch.Categories {
		s.Categories = append(s.Categories, strings.TrimSpace(c.Name))
	}
	for _, t := range ch.Tags {
		s.Tags = append(s.Tags, strings.TrimSpace(t.Name))
	}
	for i := range ch.Items {
		s.TypeCounts[ch.Items[i].postType()]++
		s.StatusCounts[strings.TrimSpace(ch.Items[i].Status)]++
	}
	return s
}

func normalizeParent(parent string) string {
	parent = strings.TrimSpace(parent)
	if parent == "0" {
		return ""
	}
	return parent
}

// Selected reports whether an item of postType and status becomes a post.
func (s Selection) Selected(postType, status string) bool {
	if internalTypes[postType] {
		return false
	}
	if status == "trash" || status == "auto-draft" {
		return false
	}
	if status == "draft" && !s.IncludeDrafts {
		return false
	}
	if postType != "post" && !s.IncludeOtherTypes {
		return false
	}
	return true
}

// Posts returns the selected items as post records, in document order.
func (e *Export) Posts(sel Selection) []*models.Post {
	var posts []*models.Post
	for i := range e.items {
		it := &e.items[i]
		postType := it.postType()
		status := strings.TrimSpace(it.Status)
		if !sel.Selected(postType, status) {
			continue
		}
		posts = append(posts, toPost(it, postType, status))
	}
	return posts
}

func toPost(it *item, postType, status string) *models.Post {
	post := &models.Post{
		ID:           strings.TrimSpace(it.PostID),
		Type:         postType,
		Title:        it.Title,
		Link:         strings.TrimSpace(it.Link),
		Name:         strings.TrimSpace(it.PostName),
		Content:      it.content(),
		Excerpt:      it.excerpt(),
		PubDate:      it.publicationDate(),
		ModDate:      strings.TrimSpace(it.PostModifiedGMT),
		Status:       status,
		Creator:      strings.TrimSpace(it.Creator),
		IsSticky:     strings.TrimSpace(it.IsSticky) == "1",
		Meta:         map[string]string{},
		CoverImageID: strings.TrimSpace(it.metaValue(thumbnailMetaKey)),
	}
	if isNullDate(post.ModDate) {
		post.ModDate = ""
	}
	for _, t := range it.Terms {
		post.Terms = append(post.Terms, models.Term{
			Domain:   strings.TrimSpace(t.Domain),
			Nicename: strings.TrimSpace(t.Nicename),
			Name:     strings.TrimSpace(t.Name),
		})
	}
	for _, m := range it.Meta {
		post.Meta[m.Key] = m.Value
	}
	return post
}

// Attachments returns every attachment item in document order, including
// those without a parent.
func (e *Export) Attachments() []models.Attachment {
	return append([]models.Attachment(nil), e.attachments...)
}

// Attachment looks up an attachment by its post id.
func (e *Export) Attachment(id string) (models.Attachment, bool) {
	att, ok := e.byID[id]
	return att, ok
}

// BaseURL returns the site URL relative image references resolve against.
func (e *Export) BaseURL() *url.URL {
	u, err := url.Parse(e.Summary.BaseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

// CategoryUsage counts category terms over the selected posts. Names are
// URL-decoded and returned sorted by descending count.
func (e *Export) CategoryUsage(sel Selection) []Usage {
	counts := map[string]int{}
	for _, post := range e.Posts(sel) {
		for _, name := range post.TermNames(models.DomainCategory) {
			if decoded, err := url.PathUnescape(name); err == nil {
				name = decoded
			}
			counts[name]++
		}
	}
	usage := make([]Usage, 0, len(counts))
	for name, n := range counts {
		usage = append(usage, Usage{Name: name, Count: n})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].Name < usage[j].Name
	})
	return usage
}

// Usage is a name with its number of occurrences.
type Usage struct {
	Name  string
	Count int
}
