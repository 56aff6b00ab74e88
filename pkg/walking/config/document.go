package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/biped.go/pkg/geom"
)

// Field errors.
var (
	ErrMissing     = errors.New("missing")
	ErrType        = errors.New("wrong type")
	ErrNotPositive = errors.New("must be positive")
	ErrNegative    = errors.New("must not be negative")
	ErrInvalid     = errors.New("invalid value")
)

// FieldError reports a problem with a single field.
type FieldError struct {
	Document string
	Section  string
	Field    string
	Line     int
	Err      error
}

// Error implements error.
func (e *FieldError) Error() string {
	name := e.Section
	if e.Field != "" {
		name += "." + e.Field
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %v", e.Document, e.Line, name, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Document, name, e.Err)
}

// Unwrap returns the cause.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// document decodes a mapping of sections and collects every field error.
type document struct {
	name string
	root *yaml.Node
	err  error
}

func readDocument(filename string) (*document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return parseDocument(filepath.Base(filename), data)
}

func parseDocument(name string, data []byte) (*document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	doc := &document{name: name}
	if len(root.Content) > 0 {
		doc.root = root.Content[0]
	}
	if doc.root == nil || doc.root.Kind != yaml.MappingNode {
		return nil, &FieldError{Document: name, Line: root.Line, Err: ErrType}
	}
	return doc, nil
}

func (d *document) fail(section, field string, line int, err error) {
	d.err = multierr.Append(d.err, &FieldError{
		Document: d.name,
		Section:  section,
		Field:    field,
		Line:     line,
		Err:      err,
	})
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for n := 0; n+1 < len(m.Content); n += 2 {
		if m.Content[n].Value == key {
			return m.Content[n+1]
		}
	}
	return nil
}

// section is one top-level mapping of the document.
type section struct {
	doc  *document
	name string
	node *yaml.Node
}

// section returns nil and records an error if the section is absent.
func (d *document) section(name string) *section {
	node := lookup(d.root, name)
	switch {
	case node == nil:
		d.fail(name, "", d.root.Line, ErrMissing)
		return nil
	case node.Kind != yaml.MappingNode:
		d.fail(name, "", node.Line, ErrType)
		return nil
	}
	return &section{doc: d, name: name, node: node}
}

type check func(float64) error

func positive(v float64) error {
	if v > 0 {
		return nil
	}
	return ErrNotPositive
}

func nonNegative(v float64) error {
	if v >= 0 {
		return nil
	}
	return ErrNegative
}

func scalarFloat(node *yaml.Node) (float64, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, ErrType
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
	default:
		return 0, ErrType
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return 0, ErrType
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalid
	}
	return v, nil
}

// float decodes a required number.
func (s *section) float(field string, dst *float64, checks ...check) {
	if s == nil {
		return
	}
	node := lookup(s.node, field)
	if node == nil {
		s.doc.fail(s.name, field, s.node.Line, ErrMissing)
		return
	}
	s.decodeFloat(field, node, dst, checks)
}

// optionalFloat keeps dst when the field is absent.
func (s *section) optionalFloat(field string, dst *float64, checks ...check) {
	if s == nil {
		return
	}
	if node := lookup(s.node, field); node != nil {
		s.decodeFloat(field, node, dst, checks)
	}
}

func (s *section) decodeFloat(field string, node *yaml.Node, dst *float64, checks []check) bool {
	v, err := scalarFloat(node)
	if err == nil {
		for _, c := range checks {
			if err = c(v); err != nil {
				break
			}
		}
	}
	if err != nil {
		s.doc.fail(s.name, field, node.Line, err)
		return false
	}
	*dst = v
	return true
}

// integer decodes a required whole number, integral floats are accepted.
func (s *section) integer(field string, dst *int, checks ...check) {
	if s == nil {
		return
	}
	node := lookup(s.node, field)
	if node == nil {
		s.doc.fail(s.name, field, s.node.Line, ErrMissing)
		return
	}
	var v float64
	if !s.decodeFloat(field, node, &v, checks) {
		return
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		s.doc.fail(s.name, field, node.Line, ErrType)
		return
	}
	*dst = int(v)
}

// point decodes an optional {x, y, z} mapping, absent components keep
// their value.
func (s *section) point(field string, dst *geom.Point3) {
	if s == nil {
		return
	}
	node := lookup(s.node, field)
	if node == nil {
		return
	}
	if node.Kind != yaml.MappingNode {
		s.doc.fail(s.name, field, node.Line, ErrType)
		return
	}
	sub := &section{doc: s.doc, name: s.name + "." + field, node: node}
	p := *dst
	sub.optionalFloat("x", &p.X)
	sub.optionalFloat("y", &p.Y)
	sub.optionalFloat("z", &p.Z)
	*dst = p
}

// oneOf decodes an optional string restricted to values.
func (s *section) oneOf(field string, dst *string, values ...string) {
	if s == nil {
		return
	}
	node := lookup(s.node, field)
	if node == nil {
		return
	}
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!str" {
		s.doc.fail(s.name, field, node.Line, ErrType)
		return
	}
	for _, v := range values {
		if node.Value == v {
			*dst = v
			return
		}
	}
	s.doc.fail(s.name, field, node.Line, fmt.Errorf("%w %q, expect one of %v", ErrInvalid, node.Value, values))
}
