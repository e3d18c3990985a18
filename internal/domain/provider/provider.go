// Package provider filters service provider catalog records.
package provider

import (
	"encoding/json"
	"fmt"
)

// CategoryField is the catalog attribute providers are grouped by.
const CategoryField = "serviceCategory"

// Record is one catalog entry, kept as raw JSON so unknown attributes pass through.
type Record = json.RawMessage

// Category extracts serviceCategory from a record. ok is false when the
// field is absent or holds anything but a string. Non-object records are errors.
func Category(r Record) (category string, ok bool, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r, &fields); err != nil {
		return "", false, fmt.Errorf("provider record is not an object: %w", err)
	}
	if fields == nil {
		return "", false, fmt.Errorf("provider record is not an object: null")
	}
	raw, found := fields[CategoryField]
	if !found {
		return "", false, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false, fmt.Errorf("%s: %w", CategoryField, err)
	}
	// null, numbers, objects and the like never equal a query string
	category, ok = v.(string)
	return category, ok, nil
}

// FilterByCategory returns the records whose serviceCategory equals category
// exactly, preserving catalog order. The result is never nil.
func FilterByCategory(records []Record, category string) ([]Record, error) {
	matched := make([]Record, 0)
	for i, r := range records {
		c, ok, err := Category(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if ok && c == category {
			matched = append(matched, r)
		}
	}
	return matched, nil
}
