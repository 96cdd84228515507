package wxr

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/aequinox/gesundes-leben/wp2md/internal/errs"
	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

func parseFixture(t *testing.T) *Export {
	t.Helper()
	export, err := NewParser(nil).Parse(context.Background(), filepath.Join("testdata", "export.xml"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return export
}

func TestParseSelectsPostsInDocumentOrder(t *testing.T) {
	export := parseFixture(t)

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{name: "posts with drafts", sel: Selection{IncludeDrafts: true}, want: []string{"10", "11"}},
		{name: "published only", sel: Selection{}, want: []string{"10"}},
		{name: "other types", sel: Selection{IncludeDrafts: true, IncludeOtherTypes: true}, want: []string{"10", "11", "12"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts := export.Posts(tt.sel)
			var ids []string
			for _, p := range posts {
				ids = append(ids, p.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Posts() ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestParseExtractsRawFields(t *testing.T) {
	export := parseFixture(t)
	post := export.Posts(Selection{})[0]

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"Title", post.Title, "Hallo Welt"},
		{"Creator", post.Creator, "SPfeiffer"},
		{"Status", post.Status, "publish"},
		{"PubDate", post.PubDate, "Fri, 28 Mar 2025 13:00:16 +0000"},
		{"ModDate", post.ModDate, "2025-04-02 09:30:00"},
		{"Excerpt", post.Excerpt, "Kurzer Auszug"},
		{"Name", post.Name, "hallo-welt"},
		{"CoverImageID", post.CoverImageID, "20"},
		{"Type", post.Type, "post"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
	if !strings.Contains(post.Content, `<img src="/wp-content/uploads/2025/03/sonne.jpg"`) {
		t.Errorf("Content missing image markup: %q", post.Content)
	}
	if !post.IsSticky {
		t.Error("IsSticky = false, want true")
	}
	if got := post.TermNames(models.DomainCategory); len(got) != 1 || got[0] != "Ernährung" {
		t.Errorf("categories = %v, want [Ernährung]", got)
	}
	if got := post.TermNames(models.DomainTag); len(got) != 1 || got[0] != "Vitamin%20D" {
		t.Errorf("tags = %v, want [Vitamin%%20D]", got)
	}
}

func TestPublicationDateSkipsNullDates(t *testing.T) {
	export := parseFixture(t)
	draft := export.Posts(Selection{IncludeDrafts: true})[1]

	if draft.PubDate != "2025-04-01 08:00:00" {
		t.Errorf("PubDate = %q, want post_date fallback", draft.PubDate)
	}
}

func TestAttachmentsCatalog(t *testing.T) {
	export := parseFixture(t)

	atts := export.Attachments()
	if len(atts) != 2 {
		t.Fatalf("Attachments() len = %d, want 2", len(atts))
	}
	cover, ok := export.Attachment("20")
	if !ok {
		t.Fatal("attachment 20 not found")
	}
	if cover.ParentID != "10" || cover.Alt != "Titelbild" {
		t.Errorf("cover = %+v", cover)
	}
	orphan, _ := export.Attachment("21")
	if orphan.ParentID != "" {
		t.Errorf("orphan parent = %q, want empty", orphan.ParentID)
	}
	if orphan.URL != "https://gesundes-leben.example/wp-content/uploads/2025/03/orphan.png" {
		t.Errorf("orphan URL = %q, want guid fallback", orphan.URL)
	}
}

func TestSummary(t *testing.T) {
	export := parseFixture(t)
	s := export.Summary

	if s.Title != "Gesundes Leben" || s.WXRVersion != "1.2" || s.Language != "de-DE" {
		t.Errorf("summary = %+v", s)
	}
	if s.TypeCounts["attachment"] != 2 || s.TypeCounts["post"] != 3 {
		t.Errorf("TypeCounts = %v", s.TypeCounts)
	}
	if len(s.Authors) != 1 || s.Authors[0].Login != "SPfeiffer" {
		t.Errorf("Authors = %+v", s.Authors)
	}
	if export.BaseURL() == nil || export.BaseURL().Host != "gesundes-leben.example" {
		t.Errorf("BaseURL() = %v", export.BaseURL())
	}
}

func TestExcerptNamespaceVersions(t *testing.T) {
	for _, version := range []string{"1.0", "1.1", "1.2"} {
		t.Run(version, func(t *testing.T) {
			xml := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:excerpt="http://wordpress.org/export/` + version + `/excerpt/" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:wp="http://wordpress.org/export/` + version + `/">
<channel><title>t</title>
<item><title>a</title><content:encoded><![CDATA[body]]></content:encoded><excerpt:encoded><![CDATA[short]]></excerpt:encoded><wp:post_id>1</wp:post_id><wp:status>publish</wp:status><wp:post_type>post</wp:post_type></item>
</channel></rss>`
			export, err := NewParser(nil).ParseReader(strings.NewReader(xml))
			if err != nil {
				t.Fatalf("ParseReader() error = %v", err)
			}
			post := export.Posts(Selection{})[0]
			if post.Content != "body" || post.Excerpt != "short" {
				t.Errorf("content = %q, excerpt = %q", post.Content, post.Excerpt)
			}
		})
	}
}

func TestParseErrorsAreFatal(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "missing file",
			run: func() error {
				_, err := NewParser(nil).Parse(context.Background(), filepath.Join(t.TempDir(), "missing.xml"))
				return err
			},
		},
		{
			name: "malformed xml",
			run: func() error {
				_, err := NewParser(nil).ParseReader(strings.NewReader("<rss><channel><item><title>x</item>"))
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil {
				t.Fatal("expected error")
			}
			if !goerrors.IsCategory(err, errs.CategoryParse) {
				t.Errorf("error %v is not a parse error", err)
			}
			if !errs.IsFatal(err) {
				t.Errorf("IsFatal(%v) = false", err)
			}
		})
	}
}

func TestCategoryUsage(t *testing.T) {
	export := parseFixture(t)
	usage := export.CategoryUsage(Selection{IncludeDrafts: true})
	if len(usage) != 1 || usage[0].Name != "Ernährung" || usage[0].Count != 1 {
		t.Errorf("CategoryUsage() = %+v", usage)
	}
}

func TestCategoryUsageKeepsPlusSigns(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="UTF-8" ?>
<rss version="2.0" xmlns:wp="http://wordpress.org/export/1.2/">
<channel>
	<item>
		<title>Fette</title>
		<wp:post_id>1</wp:post_id>
		<wp:status>publish</wp:status>
		<wp:post_type>post</wp:post_type>
		<category domain="category" nicename="omega-3"><![CDATA[Omega-3+]]></category>
		<category domain="category" nicename="herz"><![CDATA[Herz%20%26%20Kreislauf]]></category>
	</item>
</channel>
</rss>`
	export, err := NewParser(nil).ParseReader(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	usage := export.CategoryUsage(Selection{})
	names := map[string]bool{}
	for _, u := range usage {
		names[u.Name] = true
	}
	if len(usage) != 2 || !names["Omega-3+"] || !names["Herz & Kreislauf"] {
		t.Errorf("CategoryUsage() = %+v", usage)
	}
}
