package records

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the output calendar date format.
const DateLayout = "2006-01-02"

// Unit is the epoch resolution of a timestamp field.
type Unit string

const (
	Seconds      Unit = "s"
	Milliseconds Unit = "ms"
)

// ParseUnit accepts "s", "seconds", "ms" and "milliseconds".
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "sec", "second", "seconds":
		return Seconds, nil
	case "ms", "millisecond", "milliseconds":
		return Milliseconds, nil
	}
	return "", fmt.Errorf("unknown timestamp unit %q", s)
}

// Collection names qualify per-field unit overrides.
const (
	CollectionComment = "comment"
	CollectionVideo   = "video"
	CollectionCreator = "creator"
)

// Clock converts epoch fields to calendar dates. The unit is always
// explicit and never guessed from magnitude.
type Clock struct {
	// Unit applies to fields without an override.
	Unit Unit
	// Fields overrides Unit per field. A key is a bare field name
	// ("last_modify_ts") or one qualified by collection
	// ("creator.last_modify_ts"); the qualified key wins.
	Fields   map[string]Unit
	Location *time.Location
}

// For returns a clock fixed to the unit of one field of a collection.
func (c Clock) For(collection, field string) Clock {
	unit := c.Unit
	if u, ok := c.Fields[field]; ok {
		unit = u
	}
	if u, ok := c.Fields[collection+"."+field]; ok {
		unit = u
	}
	return Clock{Unit: unit, Location: c.Location}
}

// ParseUnits parses a field → unit table.
func ParseUnits(fields map[string]string) (map[string]Unit, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]Unit, len(fields))
	for field, s := range fields {
		if strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("timestamp unit for empty field name")
		}
		u, err := ParseUnit(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		out[field] = u
	}
	return out, nil
}

// Time converts an epoch field.
func (c Clock) Time(n Number) (time.Time, error) {
	v, err := n.Int64()
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp: %w", err)
	}
	if v < 0 {
		return time.Time{}, fmt.Errorf("timestamp %d: negative", v)
	}

	var t time.Time
	switch c.Unit {
	case Seconds:
		t = time.Unix(v, 0)
	case Milliseconds:
		t = time.UnixMilli(v)
	default:
		return time.Time{}, fmt.Errorf("timestamp: unit %q not configured", c.Unit)
	}
	return t.In(c.location()), nil
}

// Date returns the YYYY-MM-DD date of an epoch field. A field that already
// holds a calendar date string (from an earlier cleaning pass) is returned
// as is.
func (c Clock) Date(n Number) (string, error) {
	if s, ok := quotedDate(n); ok {
		return s, nil
	}
	t, err := c.Time(n)
	if err != nil {
		return "", err
	}
	return t.Format(DateLayout), nil
}

func (c Clock) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

func quotedDate(n Number) (string, bool) {
	raw := strings.TrimSpace(n.Raw())
	if len(raw) < 2 || raw[0] != '"' {
		return "", false
	}
	s := strings.TrimSpace(raw[1 : len(raw)-1])
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", false
	}
	return s, true
}
