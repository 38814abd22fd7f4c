package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Document is the destination of compiled resources. The compiler only
// inserts, replaces or deletes entries by logical name.
type Document interface {
	// Get returns the resource declared under logicalName.
	Get(logicalName string) (Resource, bool)
	// Merge adds every resource of rs, replacing entries with the same logical name.
	Merge(rs *Resources)
	// Delete removes logicalName. Deleting an absent name is a no-op.
	Delete(logicalName string)
	// Names lists logical names in declaration order.
	Names() []string
}

// Resources is an insertion-ordered set of resource declarations keyed by
// logical name. The zero value is ready to use.
type Resources struct {
	names []string
	items map[string]Resource
}

// NewResources returns an empty resource set.
func NewResources() *Resources {
	return &Resources{}
}

// Set declares r under logicalName. An existing entry keeps its position.
func (rs *Resources) Set(logicalName string, r Resource) {
	if rs.items == nil {
		rs.items = make(map[string]Resource)
	}

	if _, ok := rs.items[logicalName]; !ok {
		rs.names = append(rs.names, logicalName)
	}
	rs.items[logicalName] = r
}

// Get returns the resource declared under logicalName.
func (rs *Resources) Get(logicalName string) (Resource, bool) {
	r, ok := rs.items[logicalName]
	return r, ok
}

// Merge copies every entry of other into rs.
func (rs *Resources) Merge(other *Resources) {
	if other == nil {
		return
	}

	for _, name := range other.names {
		rs.Set(name, other.items[name])
	}
}

// Delete removes logicalName from the set.
func (rs *Resources) Delete(logicalName string) {
	if _, ok := rs.items[logicalName]; !ok {
		return
	}

	delete(rs.items, logicalName)
	rs.names = slices.DeleteFunc(rs.names, func(n string) bool { return n == logicalName })
}

// Names returns a copy of the logical names in declaration order.
func (rs *Resources) Names() []string {
	return slices.Clone(rs.names)
}

// Len returns the number of declared resources.
func (rs *Resources) Len() int {
	return len(rs.names)
}

// CountByType returns how many resources of each type are declared.
func (rs *Resources) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, name := range rs.names {
		counts[rs.items[name].Type]++
	}
	return counts
}

// MarshalJSON encodes the set as a JSON object, preserving declaration order.
func (rs *Resources) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, name := range rs.names {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(rs.items[name])
		if err != nil {
			return nil, fmt.Errorf("cannot encode resource %q: %w", name, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of resources, preserving key order.
func (rs *Resources) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("resources must be a JSON object, got %v", tok)
	}

	*rs = Resources{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected resource key %v", tok)
		}

		var r Resource
		if err := dec.Decode(&r); err != nil {
			return fmt.Errorf("cannot decode resource %q: %w", name, err)
		}
		rs.Set(name, r)
	}

	_, err = dec.Token()
	return err
}

// Template is a CloudFormation template body. Sections the compiler never
// touches are carried through as raw JSON.
type Template struct {
	AWSTemplateFormatVersion string                     `json:"AWSTemplateFormatVersion,omitempty"`
	Description              string                     `json:"Description,omitempty"`
	Transform                json.RawMessage            `json:"Transform,omitempty"`
	Metadata                 map[string]json.RawMessage `json:"Metadata,omitempty"`
	Parameters               json.RawMessage            `json:"Parameters,omitempty"`
	Mappings                 json.RawMessage            `json:"Mappings,omitempty"`
	Conditions               json.RawMessage            `json:"Conditions,omitempty"`
	Resources                *Resources                 `json:"Resources"`
	Outputs                  json.RawMessage            `json:"Outputs,omitempty"`
}

// New returns an empty template with the standard format version.
func New(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              description,
		Resources:                NewResources(),
	}
}
