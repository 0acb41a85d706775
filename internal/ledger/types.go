// Package ledger records which account received which trial key.
package ledger

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is the assignment made to one account. The account id is the key of
// the Users map and is not repeated inside the record.
type Record struct {
	// Username is the display name snapshot taken at claim time.
	Username string `json:"username"`

	// Key is the trial key that was delivered.
	Key string `json:"key"`

	// AssignedAt is when the key was delivered, in UTC.
	AssignedAt Timestamp `json:"assigned_at"`
}

// Document is the on-disk ledger.
type Document struct {
	Users map[string]Record `json:"users"`
}

// Entry pairs an account id with its record, for listings.
type Entry struct {
	AccountID string
	Record
}

func newDocument() *Document {
	return &Document{Users: map[string]Record{}}
}

// naiveISO is the layout of timestamps written without a zone designator;
// such values are read as UTC.
const naiveISO = "2006-01-02T15:04:05.999999999"

// Timestamp is a UTC instant serialized as ISO-8601. A value read from disk
// is written back exactly as it was found, including values that could not
// be parsed as a time.
type Timestamp struct {
	time.Time

	raw json.RawMessage
}

// Stamp returns a Timestamp for t in UTC.
func Stamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// Valid reports whether the timestamp holds a parsed instant.
func (t Timestamp) Valid() bool {
	return !t.IsZero()
}

// Raw returns the value as it appeared on disk, or "" for a new timestamp.
func (t Timestamp) Raw() string {
	var s string
	if err := json.Unmarshal(t.raw, &s); err == nil {
		return s
	}
	return string(t.raw)
}

// MarshalJSON writes back the value read from disk, or the instant in
// RFC 3339 form in UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO-8601 timestamps. Any other
// value is kept verbatim with a zero time; it never fails the document.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.raw = append(json.RawMessage(nil), data...)
	t.Time = parseTimestamp(data)
	return nil
}

func parseTimestamp(data []byte) time.Time {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed.UTC()
	}
	if parsed, err := time.ParseInLocation(naiveISO, s, time.UTC); err == nil {
		return parsed
	}
	return time.Time{}
}
