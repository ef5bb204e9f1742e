// Package flatten provides dot-path access to the nested fields of an
// observation payload, e.g. "taxon.name" or "observed_on_details.year".
// Downstream tabular consumers address columns this way; the collector
// itself never looks inside a record.
package flatten

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flatten decodes a JSON object and returns a map keyed by dot paths.
// Nested objects are descended into; arrays and scalars become leaf values.
//
//	{"id": 1, "taxon": {"name": "Danaus plexippus"}}
//
// flattens to
//
//	{"id": 1, "taxon.name": "Danaus plexippus"}
func Flatten(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}

	out := make(map[string]any, len(doc))
	flattenInto("", doc, out)
	return out, nil
}

func flattenInto(prefix string, doc map[string]any, out map[string]any) {
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			flattenInto(path, nested, out)
			continue
		}

		out[path] = value
	}
}

// Field extracts a single dot-path value from a JSON object without
// flattening the whole document. The boolean reports whether every path
// segment resolved.
func Field(data []byte, path string) (any, bool) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current any = doc

	for _, seg := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
