// Package wxr reads WordPress eXtended RSS exports.
//
// Element names are matched by local name only so that WXR 1.0, 1.1 and 1.2
// exports (which differ only in their namespace URIs) decode the same way.
package wxr

import (
	"encoding/xml"
	"strings"
)

const (
	contentNamespace = "http://purl.org/rss/1.0/modules/content/"
	excerptMarker    = "/excerpt/"
)

type rss struct {
	Channel channel `xml:"channel"`
}

type channel struct {
	Title       string            `xml:"title"`
	Link        string            `xml:"link"`
	Description string            `xml:"description"`
	Language    string            `xml:"language"`
	WXRVersion  string            `xml:"wxr_version"`
	BaseSiteURL string            `xml:"base_site_url"`
	BaseBlogURL string            `xml:"base_blog_url"`
	Authors     []author          `xml:"author"`
	Categories  []channelCategory `xml:"category"`
	Tags        []channelTag      `xml:"tag"`
	Items       []item            `xml:"item"`
}

type author struct {
	Login       string `xml:"author_login"`
	Email       string `xml:"author_email"`
	DisplayName string `xml:"author_display_name"`
}

type channelCategory struct {
	Nicename string `xml:"category_nicename"`
	Parent   string `xml:"category_parent"`
	Name     string `xml:"cat_name"`
}

type channelTag struct {
	Slug string `xml:"tag_slug"`
	Name string `xml:"tag_name"`
}

type item struct {
	Title           string    `xml:"title"`
	Link            string    `xml:"link"`
	PubDate         string    `xml:"pubDate"`
	Creator         string    `xml:"creator"`
	GUID            string    `xml:"guid"`
	Encoded         []encoded `xml:"encoded"`
	PostID          string    `xml:"post_id"`
	PostDate        string    `xml:"post_date"`
	PostDateGMT     string    `xml:"post_date_gmt"`
	PostModifiedGMT string    `xml:"post_modified_gmt"`
	PostName        string    `xml:"post_name"`
	Status          string    `xml:"status"`
	PostParent      string    `xml:"post_parent"`
	PostType        string    `xml:"post_type"`
	IsSticky        string    `xml:"is_sticky"`
	AttachmentURL   string    `xml:"attachment_url"`
	Terms           []term    `xml:"category"`
	Meta            []meta    `xml:"postmeta"`
}

// encoded captures content:encoded and excerpt:encoded, told apart by
// namespace.
type encoded struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type term struct {
	Domain   string `xml:"domain,attr"`
	Nicename string `xml:"nicename,attr"`
	Name     string `xml:",chardata"`
}

type meta struct {
	Key   string `xml:"meta_key"`
	Value string `xml:"meta_value"`
}

func (it *item) content() string {
	for _, e := range it.Encoded {
		if e.XMLName.Space == contentNamespace {
			return e.Value
		}
	}
	return ""
}

func (it *item) excerpt() string {
	for _, e := range it.Encoded {
		if strings.Contains(e.XMLName.Space, excerptMarker) {
			return e.Value
		}
	}
	return ""
}

func (it *item) metaValue(key string) string {
	for _, m := range it.Meta {
		if m.Key == key {
			return m.Value
		}
	}
	return ""
}

// publicationDate returns the first usable date of pubDate, post_date_gmt
// and post_date. WordPress writes placeholder dates for unpublished items.
func (it *item) publicationDate() string {
	for _, candidate := range []string{it.PubDate, it.PostDateGMT, it.PostDate} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || isNullDate(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

func isNullDate(s string) bool {
	return strings.Contains(s, "-0001") || strings.HasPrefix(s, "0000-00-00")
}

func (it *item) postType() string {
	if t := strings.TrimSpace(it.PostType); t != "" {
		return t
	}
	return "post"
}
