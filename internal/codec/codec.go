// Package codec converts record collections to and from their on-disk JSON
// form: one pretty-printed JSON array per file.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedData matches every decode failure. The file content is not a
// JSON array of records of the expected shape; it is never repaired.
var ErrMalformedData = errors.New("codec: malformed data")

// MalformedError describes why a document could not be decoded.
type MalformedError struct {
	// Index is the offending array element, or -1 when the document itself
	// is broken.
	Index int
	Err   error
}

func (e *MalformedError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("codec: malformed record at index %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("codec: malformed document: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedData) true for every MalformedError.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformedData }

const indent = "  "

// Encode renders c as an indented JSON array followed by a newline. Field
// order follows struct declaration order, so the output is deterministic.
// A nil collection encodes as an empty array.
func Encode[T any](c []T) ([]byte, error) {
	if c == nil {
		c = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a document produced by Encode. Empty or whitespace-only input
// yields an empty collection. Anything that is not an array of objects, a
// record with unknown fields or mistyped values, a record that fails its own
// Validate, or trailing data after the array fails with a *MalformedError.
func Decode[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	if trimmed[0] != '[' {
		return nil, &MalformedError{Index: -1, Err: errors.New("top-level value is not an array")}
	}

	var raw []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&raw); err != nil {
		return nil, &MalformedError{Index: -1, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &MalformedError{Index: -1, Err: errors.New("trailing data after array")}
	}

	out := make([]T, 0, len(raw))
	for i, elem := range raw {
		rec, err := decodeRecord[T](elem)
		if err != nil {
			return nil, &MalformedError{Index: i, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}

// Validator is implemented by record types that check their own fields after
// decoding. Decode rejects a record whose Validate returns an error.
type Validator interface {
	Validate() error
}

func decodeRecord[T any](elem json.RawMessage) (T, error) {
	var rec T
	b := bytes.TrimSpace(elem)
	if len(b) == 0 || b[0] != '{' {
		return rec, errors.New("element is not an object")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return rec, err
	}
	if v, ok := any(rec).(Validator); ok {
		if err := v.Validate(); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
