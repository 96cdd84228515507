package images

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/aequinox/gesundes-leben/wp2md/internal/models"
)

// ComponentName is the name the Image component is imported under.
const ComponentName = "Image"

var (
	markdownImage  = regexp.MustCompile(`!\[((?:\\.|[^\]\\])*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)(\{position=(left|right|center)\})?`)
	positionSuffix = regexp.MustCompile(`\{position=(?:left|right|center)\}`)
	markdownEscape = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!|<>~])`)
)

// JavaScript reserved words cannot name an import.
var reserved = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "let": true, "new": true, "null": true, "return": true,
	"static": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true,
}

// VariableName turns an image file name into a camelCase identifier:
// "vitamin-d_sonne.jpg" becomes "vitaminDSonne".
func VariableName(fileName string) string {
	stem := fileName
	if i := strings.LastIndex(stem, "."); i > 0 {
		stem = stem[:i]
	}
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r >= unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	if len(words) == 0 {
		return "image"
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(strings.ToUpper(w[:1]) + strings.ToLower(w[1:]))
	}
	name := b.String()
	if unicode.IsDigit(rune(name[0])) || reserved[name] {
		name = "img" + strings.ToUpper(name[:1]) + name[1:]
	}
	return name
}

// ImageComponents replaces Markdown images that point at a stored copy with
// <Image/> elements and puts the imports they need in front of the body.
// Images without a local copy stay Markdown images. It returns the number of
// components written.
func ImageComponents(post *models.Post, importPath string) int {
	locals := map[string]*models.Image{}
	for _, img := range post.Images {
		if img.FileName == "" || !(img.Downloaded || img.Skipped) {
			continue
		}
		locals[img.RelativePath()] = img
	}

	vars := map[string]string{}
	taken := map[string]bool{}
	var imports []string
	written := 0

	post.Markdown = markdownImage.ReplaceAllStringFunc(post.Markdown, func(match string) string {
		m := markdownImage.FindStringSubmatch(match)
		alt, src, position := m[1], m[2], m[4]
		if _, ok := locals[src]; !ok {
			return positionSuffix.ReplaceAllString(match, "")
		}
		name, ok := vars[src]
		if !ok {
			name = uniqueVariable(VariableName(locals[src].FileName), taken)
			taken[name] = true
			vars[src] = name
			imports = append(imports, fmt.Sprintf("import %s from %s;", name, strconv.Quote(src)))
		}
		if position == "" {
			position = "center"
		}
		written++
		return fmt.Sprintf(`<%s src={%s} alt=%s position="%s" />`, ComponentName, name, jsxString(alt), position)
	})

	if written == 0 {
		return 0
	}
	header := fmt.Sprintf("import %s from %s;\n", ComponentName, strconv.Quote(importPath)) + strings.Join(imports, "\n")
	post.Markdown = header + "\n\n" + post.Markdown
	return written
}

func uniqueVariable(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}

// jsxString renders alt text from Markdown as a quoted JSX attribute value.
func jsxString(alt string) string {
	alt = markdownEscape.ReplaceAllString(alt, "$1")
	alt = strings.NewReplacer("&", "&amp;", `"`, "&quot;").Replace(alt)
	return `"` + alt + `"`
}
