package db

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice scans a JSON array column, typically the result of json_agg,
// into []string. NULL scans as an empty slice. It is read-only: relations
// are written through their link tables.
type StringSlice []string

// Scan implements sql.Scanner
func (s *StringSlice) Scan(src interface{}) error {
	if s == nil {
		return fmt.Errorf("db: Scan on nil *StringSlice")
	}
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("db: cannot scan type %T into StringSlice", src)
	}
	out := StringSlice{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("db: scan StringSlice: %w", err)
	}
	*s = out
	return nil
}

// JSON holds an opaque jsonb value verbatim. An empty JSON is SQL NULL and
// marshals as JSON null.
type JSON []byte

// IsZero reports whether no value is held. A JSON null counts as no value.
func (j JSON) IsZero() bool {
	t := bytes.TrimSpace(j)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// Scan implements sql.Scanner
func (j *JSON) Scan(src interface{}) error {
	if j == nil {
		return fmt.Errorf("db: Scan on nil *JSON")
	}
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSON(nil), v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("db: cannot scan type %T into JSON", src)
	}
	return nil
}

// Value implements driver.Valuer
func (j JSON) Value() (driver.Value, error) {
	if j.IsZero() {
		return nil, nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("db: invalid json value")
	}
	return string(j), nil
}

// MarshalJSON implements json.Marshaler
func (j JSON) MarshalJSON() ([]byte, error) {
	if j.IsZero() {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return fmt.Errorf("db: UnmarshalJSON on nil *JSON")
	}
	*j = append((*j)[0:0], data...)
	return nil
}
