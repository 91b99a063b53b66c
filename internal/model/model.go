// Package model defines the marketplace entities exchanged with the remote API.
//
// Every response type has a Validate method; the transport calls it after decoding
// so that callers never see a structurally broken value.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Time is a timestamp that accepts both RFC 3339 and naive ISO-8601 (treated as UTC).
type Time struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// NewTime wraps t.
func NewTime(t time.Time) Time { return Time{Time: t.UTC()} }

// ParseTime parses s using the accepted layouts.
func ParseTime(s string) (Time, error) {
	for _, l := range timeLayouts {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return Time{Time: t.UTC()}, nil
		}
	}
	return Time{}, fmt.Errorf("bad time %q", s)
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Time{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("bad time %s: %w", b, err)
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
