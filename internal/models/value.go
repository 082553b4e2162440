package models

import (
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Value is a single typed frontmatter value. The concrete cases are String,
// Bool, Number, List and Raw; consumers switch over them exhaustively.
type Value interface {
	isValue()
}

// String is a plain text scalar.
type String string

// Bool is a boolean scalar.
type Bool bool

// Number is an integer or floating point scalar.
type Number float64

// List is an ordered sequence of text scalars.
type List []string

// Raw carries any YAML value that is not one of the other cases (nested
// mappings, mixed sequences, nulls). It is written back exactly as decoded.
type Raw struct {
	Node *yaml.Node
}

func (String) isValue() {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (List) isValue()   {}
func (Raw) isValue()    {}

// Format renders v as a single display line. Lists render as a bracketed,
// comma-joined sequence.
func Format(v Value) string {
	switch v := v.(type) {
	case String:
		return string(v)
	case Bool:
		return strconv.FormatBool(bool(v))
	case Number:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case List:
		return "[" + strings.Join(v, ", ") + "]"
	case Raw:
		return formatRaw(v.Node)
	}
	return ""
}

func formatRaw(n *yaml.Node) string {
	if n == nil {
		return "—"
	}
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return "—"
	}
	flow := *n
	flow.Style |= yaml.FlowStyle
	out, err := yaml.Marshal(&flow)
	if err != nil {
		return "…"
	}
	return strings.TrimSpace(string(out))
}

// Metadata maps frontmatter keys to their typed values. It is the single
// source of truth for persistence.
type Metadata map[string]Value

// Keys returns the keys in ascending byte order, the order used for both
// display and serialization.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text returns the value under key when it is a String.
func (m Metadata) Text(key string) (string, bool) {
	s, ok := m[key].(String)
	return string(s), ok
}

// Flag returns the value under key when it is a Bool.
func (m Metadata) Flag(key string) (bool, bool) {
	b, ok := m[key].(Bool)
	return bool(b), ok
}

// Strings returns the value under key as a string sequence. A lone String is
// treated as a one-element sequence.
func (m Metadata) Strings(key string) ([]string, bool) {
	switch v := m[key].(type) {
	case List:
		return append([]string(nil), v...), true
	case String:
		if v == "" {
			return nil, false
		}
		return []string{string(v)}, true
	}
	return nil, false
}
