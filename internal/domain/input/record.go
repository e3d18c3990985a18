// Package input models recorded user inputs.
package input

import (
	"bytes"
	"encoding/json"
	"errors"
	"unicode/utf8"
)

// Sentinel kinds for input errors.
var (
	ErrEmpty   = errors.New("no input received")
	ErrInvalid = errors.New("invalid json input")
)

// InvalidError reports why a body is not a single JSON value.
type InvalidError struct {
	Err error
}

func (e *InvalidError) Error() string { return ErrInvalid.Error() + ": " + e.Err.Error() }

func (e *InvalidError) Unwrap() error { return e.Err }

// Is reports ErrInvalid so callers can use errors.Is.
func (e *InvalidError) Is(target error) bool { return target == ErrInvalid }

// Record is one stored input: an arbitrary JSON value kept byte-for-byte.
type Record = json.RawMessage

// Parse validates body as a single JSON value and returns it compacted.
// Empty bodies and "empty" values (null, {}, [], "", false, 0) yield ErrEmpty.
func Parse(body []byte) (Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}

	// Decode would silently replace bad bytes while Compact keeps them.
	if !utf8.Valid(trimmed) {
		return nil, &InvalidError{Err: errors.New("body is not valid UTF-8")}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &InvalidError{Err: err}
	}
	if dec.More() {
		return nil, &InvalidError{Err: errors.New("trailing data after json value")}
	}
	if IsEmpty(v) {
		return nil, ErrEmpty
	}

	var out bytes.Buffer
	if err := json.Compact(&out, trimmed); err != nil {
		return nil, &InvalidError{Err: err}
	}
	return Record(out.Bytes()), nil
}

// IsEmpty reports whether a decoded JSON value counts as no input.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	}
	return false
}
