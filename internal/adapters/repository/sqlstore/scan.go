package sqlstore

import (
	"fmt"
	"time"
)

// timeLayout is fixed width so text-encoded timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime encodes t for engines without a native timestamp type.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timestamp scans a column that the driver may return either as a
// time.Time or as text.
type timestamp struct {
	t     *time.Time
	valid bool
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.valid = false
		return nil
	case time.Time:
		*ts.t = v.UTC()
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
	ts.valid = true
	return nil
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	*ts.t = t.UTC()
	ts.valid = true
	return nil
}

func scanTime(dst *time.Time) *timestamp {
	return &timestamp{t: dst}
}

// nullableTime scans into a *time.Time that stays nil for NULL columns.
type nullableTime struct {
	dst **time.Time
}

func (n nullableTime) Scan(src any) error {
	var t time.Time
	ts := timestamp{t: &t}
	if err := ts.Scan(src); err != nil {
		return err
	}
	if ts.valid {
		*n.dst = &t
	} else {
		*n.dst = nil
	}
	return nil
}

func (t *tx) nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return t.dialect.Time(*v)
}
