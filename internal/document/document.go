// Package document implements the key-ordered frontmatter map and the
// Markdown file codec built on it.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Document is an ordered set of frontmatter fields. Setting an existing key
// keeps its position.
type Document struct {
	keys   []string
	values map[string]any
}

// New returns an empty document.
func New() *Document {
	return &Document{values: map[string]any{}}
}

// Set stores value under key.
func (d *Document) Set(key string, value any) {
	if d.values == nil {
		d.values = map[string]any{}
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (any, bool) {
	if d == nil || d.values == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (d *Document) String(key string) string {
	v, _ := d.Get(key)
	s, _ := v.(string)
	return s
}

// Delete removes key.
func (d *Document) Delete(key string) {
	if d == nil {
		return
	}
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// Len returns the number of fields.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Map returns an unordered copy of the fields. Nested documents are
// converted as well.
func (d *Document) Map() map[string]any {
	out := make(map[string]any, d.Len())
	for _, k := range d.Keys() {
		v := d.values[k]
		if nested, ok := v.(*Document); ok {
			v = nested.Map()
		}
		out[k] = v
	}
	return out
}

// MarshalYAML encodes the document as a mapping that keeps key order.
func (d *Document) MarshalYAML() (any, error) {
	return d.node()
}

func (d *Document) node() (*yaml.Node, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range d.Keys() {
		value, err := valueNode(d.values[key])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			value,
		)
	}
	return mapping, nil
}

func valueNode(value any) (*yaml.Node, error) {
	switch v := value.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return stringNode(v), nil
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(v) == 0 {
			seq.Style = yaml.FlowStyle
		}
		for _, item := range v {
			seq.Content = append(seq.Content, stringNode(item))
		}
		return seq, nil
	case *Document:
		return v.node()
	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.DoubleQuotedStyle}
}

// UnmarshalYAML decodes a mapping while keeping its key order. Sequences of
// strings decode to []string and nested mappings to *Document.
func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.DocumentNode && len(value.Content) == 1 {
		value = value.Content[0]
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("frontmatter must be a mapping, got kind %d", value.Kind)
	}
	if d.values == nil {
		d.values = map[string]any{}
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		decoded, err := decodeNode(value.Content[i+1])
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		d.Set(key, decoded)
	}
	return nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		nested := New()
		if err := nested.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		allStrings := true
		for _, child := range n.Content {
			v, err := decodeNode(child)
			if err != nil {
				return nil, err
			}
			if _, ok := v.(string); !ok {
				allStrings = false
			}
			items = append(items, v)
		}
		if !allStrings {
			return items, nil
		}
		strs := make([]string, len(items))
		for i, v := range items {
			strs[i] = v.(string)
		}
		return strs, nil
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Encode serialises a frontmatter block followed by body.
func Encode(doc *Document, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")

	if doc.Len() > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encoding frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding frontmatter: %w", err)
		}
	}

	buf.WriteString("---\n\n")
	buf.WriteString(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Parse splits r into its frontmatter document and Markdown body. Content
// without a frontmatter block yields an empty document.
func Parse(r io.Reader) (*Document, string, error) {
	doc := New()
	body, err := frontmatter.Parse(r, doc, yamlFormat)
	if err != nil {
		return nil, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	return doc, strings.Trim(string(body), "\n"), nil
}

// Read loads the Markdown file at path.
func Read(path string) (*Document, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return Parse(f)
}
