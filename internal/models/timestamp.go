package models

import (
	"bytes"
	"fmt"
	"time"
)

// TimestampLayout is the wire form of every persisted time: UTC, second
// precision, literal Z.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Timestamp is a point in time stored at second precision in UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to the second and converts it to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Second)}
}

// Now returns the current time as a Timestamp.
func Now() Timestamp { return NewTimestamp(time.Now()) }

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// MarshalJSON encodes the zero value as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	b := make([]byte, 0, len(TimestampLayout)+2)
	b = append(b, '"')
	b = t.UTC().AppendFormat(b, TimestampLayout)
	return append(b, '"'), nil
}

// UnmarshalJSON accepts null or a string in TimestampLayout, nothing else.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp: expected string, got %s", data)
	}
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	// time.Parse accepts fractional seconds the layout does not name.
	if parsed.Format(TimestampLayout) != s {
		return fmt.Errorf("timestamp: %q is not second precision %s", s, TimestampLayout)
	}
	*t = Timestamp{parsed}
	return nil
}
