package mcp

import "strings"

// Schema is the subset of JSON Schema used to describe tool inputs.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

func Object(props map[string]*Schema, required ...string) *Schema {
	if props == nil {
		props = map[string]*Schema{}
	}
	return &Schema{Type: "object", Properties: props, Required: required}
}

func String(desc string) *Schema {
	return &Schema{Type: "string", Description: desc}
}

func Integer(desc string, min, max float64) *Schema {
	return &Schema{Type: "integer", Description: desc, Minimum: &min, Maximum: &max}
}

func Array(items *Schema, desc string) *Schema {
	return &Schema{Type: "array", Description: desc, Items: items}
}

// requires reports whether the property at path, e.g. "items[0].quantity",
// is listed as required by its enclosing object.
func (s *Schema) requires(path string) bool {
	cur := s
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		if cur == nil {
			return false
		}
		key, _, _ := strings.Cut(seg, "[")
		if i == len(segs)-1 && key == seg {
			for _, r := range cur.Required {
				if r == key {
					return true
				}
			}
			return false
		}
		cur = cur.Properties[key]
		for n := strings.Count(seg, "["); n > 0 && cur != nil; n-- {
			cur = cur.Items
		}
	}
	return false
}
