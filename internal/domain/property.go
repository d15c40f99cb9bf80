package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AttributeMap is a serialized attribute map: a JSON object carried as an opaque
// string. It is only decoded when two reports have to be merged.
type AttributeMap string

// Decode parses the map. An empty value decodes to an empty map.
func (m AttributeMap) Decode() (map[string]any, error) {
	out := map[string]any{}
	if m.IsEmpty() {
		return out, nil
	}
	if err := json.Unmarshal([]byte(m), &out); err != nil {
		return nil, fmt.Errorf("decode attribute map: %w", err)
	}
	return out, nil
}

// IsEmpty reports whether the map carries no attributes at all.
func (m AttributeMap) IsEmpty() bool {
	s := strings.TrimSpace(string(m))
	return s == "" || s == "null" || s == "{}"
}

// MergeAttributeMaps returns the union of existing and incoming; keys of incoming win.
// When existing is empty incoming is returned verbatim. Values are copied as raw
// JSON and keys keep their order: existing keys first, then keys only incoming has.
func MergeAttributeMaps(existing, incoming AttributeMap) (AttributeMap, error) {
	if existing.IsEmpty() {
		return incoming, nil
	}
	merged, err := existing.members()
	if err != nil {
		return "", err
	}
	update, err := incoming.members()
	if err != nil {
		return "", err
	}

	index := make(map[string]int, len(merged))
	for i, m := range merged {
		index[m.key] = i
	}
	for _, m := range update {
		if i, ok := index[m.key]; ok {
			merged[i].value = m.value
			continue
		}
		index[m.key] = len(merged)
		merged = append(merged, m)
	}

	var b bytes.Buffer
	b.WriteByte('{')
	for i, m := range merged {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return "", fmt.Errorf("encode attribute map: %w", err)
		}
		b.Write(key)
		b.WriteByte(':')
		if err := json.Compact(&b, m.value); err != nil {
			return "", fmt.Errorf("encode attribute map: %w", err)
		}
	}
	b.WriteByte('}')
	return AttributeMap(b.String()), nil
}

type member struct {
	key   string
	value json.RawMessage
}

// members lists the top-level entries of the object in document order. A repeated
// key keeps its first position and its last value.
func (m AttributeMap) members() ([]member, error) {
	if m.IsEmpty() {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(m)))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode attribute map: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode attribute map: not a JSON object")
	}

	var out []member
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode attribute map: %w", err)
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode attribute map: %w", err)
		}
		if i, ok := index[key]; ok {
			out[i].value = value
			continue
		}
		index[key] = len(out)
		out = append(out, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode attribute map: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode attribute map: trailing data")
	}
	return out, nil
}

// PropertyFields holds the property members computed by workers. Each one is
// optional so a partial report only touches what it carries.
type PropertyFields struct {
	Data         *AttributeMap `json:"data,omitempty"`
	Input        *string       `json:"input,omitempty"`
	Geometry     *string       `json:"geometry,omitempty"`
	LargeObjects *string       `json:"large_objects,omitempty"`
}

// Document projects the fields that are set onto a store update.
func (f PropertyFields) Document() Document {
	doc := Document{}
	if f.Data != nil {
		doc["data"] = string(*f.Data)
	}
	if f.Input != nil {
		doc["input"] = *f.Input
	}
	if f.Geometry != nil {
		doc["geometry"] = *f.Geometry
	}
	if f.LargeObjects != nil {
		doc["large_objects"] = *f.LargeObjects
	}
	return doc
}

// IsEmpty reports whether no field is set.
func (f PropertyFields) IsEmpty() bool {
	return f.Data == nil && f.Input == nil && f.Geometry == nil && f.LargeObjects == nil
}

// Property is a molecular record identified by ID inside a named collection.
// Smile is the canonical SMILES descriptor and never changes after creation.
type Property struct {
	ID             int64  `json:"_id"`
	CollectionName string `json:"collection_name"`
	Smile          string `json:"smile"`
	PropertyFields
}

// PropertyUpdate addresses a property and carries the fields to change.
type PropertyUpdate struct {
	ID             int64
	CollectionName string
	PropertyFields
}
