package docstore

import (
	"encoding/json"
	"fmt"
)

// idField is injected on decode and stripped on write; the id lives outside Data.
const idField = "id"

// Fields converts any JSON-encodable value into a document field map.
func Fields(data any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	delete(m, idField)
	return m, nil
}

// Normalize converts a filter value to the representation stored in Data,
// so that civil.Date, Timestamps and ints compare like their stored form.
func Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode filter value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode filter value: %w", err)
	}
	return out, nil
}

// Merge deep-merges src into dst: nested objects merge, everything else replaces.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		sv, sok := v.(map[string]any)
		dv, dok := dst[k].(map[string]any)
		if sok && dok {
			dst[k] = Merge(dv, sv)
			continue
		}
		dst[k] = v
	}
	return dst
}

// Clone deep-copies a field map through JSON.
func Clone(m map[string]any) map[string]any {
	b, err := json.Marshal(m)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// Decode unmarshals a document into v, setting its "id" field from doc.ID.
func Decode(doc *Document, v any) error {
	m := make(map[string]any, len(doc.Data)+1)
	for k, val := range doc.Data {
		m[k] = val
	}
	m[idField] = doc.ID
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

// DecodeAll decodes every document into a slice of T.
func DecodeAll[T any](docs []*Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := Decode(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
