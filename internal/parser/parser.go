// Package parser splits Markdown documents into YAML frontmatter and body and
// writes them back.
//
// Serialization is not byte-for-byte faithful: keys are emitted in sorted
// order, indentation is normalised to two spaces and comments inside the
// block are dropped. Field values survive a round trip; formatting does not.
package parser

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/models"
)

const delim = "---"

// Parse extracts the frontmatter mapping and body from raw Markdown bytes.
//
// Text that does not start with the delimiter, or has no closing delimiter,
// yields an empty mapping and the whole text as body. A block that is present
// but is not valid YAML is an error.
func Parse(data []byte) (models.Metadata, string, error) {
	block, body, ok := splitFrontmatter(string(data))
	if !ok {
		return models.Metadata{}, string(data), nil
	}
	md, err := decodeBlock([]byte(block))
	if err != nil {
		return nil, "", err
	}
	return md, body, nil
}

// Serialize renders md and body as a Markdown document: delimiter, YAML
// mapping, delimiter, blank line, body.
func Serialize(md models.Metadata, body string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range md.Keys() {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			nodeFromValue(md[k]),
		)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	buf.WriteString(delim + "\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// splitFrontmatter separates the YAML block between a leading delimiter line
// and the next delimiter line from the body. One blank line after the closing
// delimiter belongs to the separator, not to the body.
func splitFrontmatter(text string) (block, body string, ok bool) {
	if !strings.HasPrefix(text, delim) {
		return "", text, false
	}
	rest, found := cutLine(text[len(delim):])
	if !found {
		return "", text, false
	}

	for pos := 0; ; {
		line := rest[pos:]
		if strings.HasPrefix(line, delim) {
			if after, isDelim := delimLineEnd(line[len(delim):]); isDelim {
				body = after
				body = strings.TrimPrefix(body, "\r")
				body = strings.TrimPrefix(body, "\n")
				return rest[:pos], body, true
			}
		}
		nl := strings.IndexByte(line, '\n')
		if nl < 0 {
			return "", text, false
		}
		pos += nl + 1
	}
}

// cutLine requires that s holds nothing but trailing whitespace before its
// first newline, and returns what follows that newline.
func cutLine(s string) (string, bool) {
	nl := strings.IndexByte(s, '\n')
	if nl < 0 || strings.TrimSpace(s[:nl]) != "" {
		return "", false
	}
	return s[nl+1:], true
}

// delimLineEnd reports whether s completes a delimiter line (end of text or
// only whitespace up to the newline) and returns the text after that line.
func delimLineEnd(s string) (string, bool) {
	if strings.TrimSpace(s) == "" && !strings.Contains(s, "\n") {
		return "", true
	}
	return cutLine(s)
}

func decodeBlock(block []byte) (models.Metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("parser: decode frontmatter: %w", err)
	}

	md := models.Metadata{}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case 0, yaml.DocumentNode:
		// empty block
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			md[root.Content[i].Value] = valueFromNode(root.Content[i+1])
		}
	default:
		return nil, fmt.Errorf("parser: decode frontmatter: expected a mapping, got %s", root.ShortTag())
	}

	applyDefaults(md)
	return md, nil
}

// applyDefaults fills the well-known keys that every post carries.
func applyDefaults(md models.Metadata) {
	for _, key := range []string{models.KeyTitle, models.KeyContentType} {
		switch v := md[key].(type) {
		case models.String:
		case nil:
			md[key] = models.String("")
		case models.Raw:
			if isNull(v.Node) {
				md[key] = models.String("")
			} else {
				md[key] = models.String(models.Format(v))
			}
		default:
			md[key] = models.String(models.Format(v))
		}
	}

	if v, ok := md[models.KeyDraft]; !ok {
		md[models.KeyDraft] = models.Bool(false)
	} else if r, ok := v.(models.Raw); ok && isNull(r.Node) {
		md[models.KeyDraft] = models.Bool(false)
	}

	if r, ok := md[models.KeyDate].(models.Raw); ok && isNull(r.Node) {
		delete(md, models.KeyDate)
	}
}

func valueFromNode(n *yaml.Node) models.Value {
	n = deref(n)
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err == nil {
				return models.Bool(b)
			}
		case "!!int":
			// Integers a float64 cannot hold exactly stay as written.
			var i int64
			if err := n.Decode(&i); err == nil && i >= -maxExactInt && i <= maxExactInt {
				return models.Number(float64(i))
			}
			return models.Raw{Node: n}
		case "!!float":
			var f float64
			if err := n.Decode(&f); err == nil {
				return models.Number(f)
			}
			return models.Raw{Node: n}
		case "!!null":
			return models.Raw{Node: n}
		}
		return models.String(n.Value)

	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			c = deref(c)
			if c.Kind != yaml.ScalarNode || c.ShortTag() != "!!str" {
				return models.Raw{Node: n}
			}
			items = append(items, c.Value)
		}
		return models.List(items)
	}
	return models.Raw{Node: n}
}

func nodeFromValue(v models.Value) *yaml.Node {
	switch v := v.(type) {
	case models.String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(v)}
	case models.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(v))}
	case models.Number:
		return numberNode(float64(v))
	case models.List:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, s := range v {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s})
		}
		return seq
	case models.Raw:
		if v.Node != nil {
			return v.Node
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// maxExactInt is the largest magnitude below which every integer is a float64.
const maxExactInt = 1 << 53

func numberNode(f float64) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float"}
	switch {
	case math.IsNaN(f):
		n.Value = ".nan"
	case math.IsInf(f, 1):
		n.Value = ".inf"
	case math.IsInf(f, -1):
		n.Value = "-.inf"
	case f == math.Trunc(f) && math.Abs(f) <= maxExactInt:
		n.Tag = "!!int"
		n.Value = strconv.FormatFloat(f, 'f', -1, 64)
	case f == math.Trunc(f):
		// Exponent form keeps a float tag on re-read.
		n.Value = strconv.FormatFloat(f, 'g', -1, 64)
	default:
		n.Value = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}
