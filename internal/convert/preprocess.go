package convert

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

const (
	moreTag      = "wetm-more"
	scriptTag    = "wetm-script"
	rawAttr      = "data-wetm-html"
	snugAttr     = "data-wetm-snug"
	languageAttr = "data-wetm-language"
)

var (
	moreComment   = regexp.MustCompile(`<!--more(\s[^>]*?)?-->`)
	codeComment   = regexp.MustCompile(`<!--\s*wp:code\s*(\{[^>]*?\})?\s*-->\s*<pre([^>]*)>`)
	languageValue = regexp.MustCompile(`"language"\s*:\s*"([^"]*)"`)
	preBlock      = regexp.MustCompile(`(?is)<pre[\s>].*?</pre>`)
	blankLine     = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)
)

// prepareSource rewrites markers that do not survive HTML parsing.
func prepareSource(content string) string {
	content = markSeparators(content)

	if loc := moreComment.FindStringIndex(content); loc != nil {
		marker := `<` + moreTag + ` ` + rawAttr + `="` + html.EscapeString(content[loc[0]:loc[1]]) + `"></` + moreTag + `>`
		content = content[:loc[0]] + marker + content[loc[1]:]
	}

	return codeComment.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeComment.FindStringSubmatch(match)
		attrs := parts[2]
		if strings.Contains(attrs, languageAttr) {
			return "<pre" + attrs + ">"
		}
		lang := ""
		if m := languageValue.FindStringSubmatch(parts[1]); m != nil {
			lang = m[1]
		}
		return `<pre ` + languageAttr + `="` + html.EscapeString(lang) + `"` + attrs + ">"
	})
}

// markSeparators puts an empty div between blocks separated by a blank line,
// leaving preformatted blocks untouched.
func markSeparators(content string) string {
	var b strings.Builder
	last := 0
	for _, loc := range preBlock.FindAllStringIndex(content, -1) {
		b.WriteString(blankLine.ReplaceAllString(content[last:loc[0]], "\n<div></div>\n"))
		b.WriteString(content[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(blankLine.ReplaceAllString(content[last:], "\n<div></div>\n"))
	return b.String()
}

// prepareDocument applies structural fixes on the parsed body.
func prepareDocument(body *goquery.Selection) {
	body.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		inner := pre.ChildrenFiltered("pre")
		if pre.Children().Length() != 1 || inner.Length() != 1 {
			return
		}
		if strings.TrimSpace(pre.Text()) != strings.TrimSpace(inner.Text()) {
			return
		}
		if _, ok := inner.Attr(languageAttr); !ok {
			if lang, ok := pre.Attr(languageAttr); ok {
				inner.SetAttr(languageAttr, lang)
			}
		}
		pre.ReplaceWithSelection(inner)
	})

	body.Find("script").Each(func(_ int, script *goquery.Selection) {
		raw, err := goquery.OuterHtml(script)
		if err != nil {
			return
		}
		snug := "false"
		if prev := script.Nodes[0].PrevSibling; prev != nil && prev.Type == xhtml.ElementNode {
			snug = "true"
		}
		script.ReplaceWithHtml(`<` + scriptTag + ` ` + rawAttr + `="` + html.EscapeString(raw) + `" ` + snugAttr + `="` + snug + `"></` + scriptTag + `>`)
	})
}
