package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dcmindex/internal/dict"
)

// ObjectSpec is one object to insert, as read from a YAML document:
//
//	file: /data/ct/1.dcm
//	reference: copied
//	attributes:
//	  PatientID: P1
//	  ImageType: [ORIGINAL, PRIMARY, AXIAL]
//	  (0008,0020): "20030715"
type ObjectSpec struct {
	File       string                    `yaml:"file"`
	Reference  string                    `yaml:"reference"`
	Attributes map[string]AttributeValue `yaml:"attributes"`
}

// AttributeValue is an attribute value in DICOM string encoding. Scalars
// keep their source text; sequences are joined with a backslash.
type AttributeValue string

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *AttributeValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*v = ""
			return nil
		}
		*v = AttributeValue(node.Value)
		return nil
	case yaml.SequenceNode:
		parts := make([]string, len(node.Content))
		for i, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: nested values are not supported", item.Line)
			}
			parts[i] = item.Value
		}
		*v = AttributeValue(strings.Join(parts, dict.ValueSeparator))
		return nil
	default:
		return fmt.Errorf("line %d: attribute value must be a scalar or a list", node.Line)
	}
}

// ReadObjects decodes every YAML document of r.
func ReadObjects(r io.Reader) ([]ObjectSpec, error) {
	dec := yaml.NewDecoder(r)
	objects := []ObjectSpec{}
	for {
		var obj ObjectSpec
		err := dec.Decode(&obj)
		if errors.Is(err, io.EOF) {
			return objects, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", len(objects)+1, err)
		}
		objects = append(objects, obj)
	}
}

// ReadObjectsFile decodes the object documents in path.
func ReadObjectsFile(path string) ([]ObjectSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadObjects(f)
}

// Resolve maps keywords and tags to dictionary tags.
func (o ObjectSpec) Resolve(d *dict.Dictionary) (dict.AttributeSet, error) {
	raw := make(map[string]string, len(o.Attributes))
	for name, v := range o.Attributes {
		raw[name] = string(v)
	}
	return resolveAttributes(d, raw)
}

// ParseAssignments parses Keyword=value or (gggg,eeee)=value pairs. An
// empty value requests the attribute without constraining it.
func ParseAssignments(d *dict.Dictionary, assignments []string) (dict.AttributeSet, error) {
	raw := make(map[string]string, len(assignments))
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q: want name=value", a)
		}
		raw[strings.TrimSpace(name)] = value
	}
	return resolveAttributes(d, raw)
}

func resolveAttributes(d *dict.Dictionary, raw map[string]string) (dict.AttributeSet, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make(dict.AttributeSet, len(raw))
	var unknown []string
	for _, name := range names {
		a, ok := d.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		attrs[a.Tag] = raw[name]
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown attributes: %s", strings.Join(unknown, ", "))
	}
	return attrs, nil
}

// keywordMap renders attrs keyed by keyword, tag string for unknown tags.
func keywordMap(d *dict.Dictionary, attrs dict.AttributeSet) map[string]string {
	out := make(map[string]string, len(attrs))
	for t, v := range attrs {
		out[attributeName(d, t)] = v
	}
	return out
}

func attributeName(d *dict.Dictionary, t dict.Tag) string {
	if a, ok := d.ByTag(t); ok {
		return a.Keyword
	}
	return t.String()
}

// formatAttributes renders attrs as Keyword=value pairs in tag order.
func formatAttributes(d *dict.Dictionary, attrs dict.AttributeSet) string {
	parts := make([]string, 0, len(attrs))
	for _, t := range attrs.Tags() {
		parts = append(parts, attributeName(d, t)+"="+attrs.Value(t))
	}
	return strings.Join(parts, " ")
}
