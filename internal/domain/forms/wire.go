package forms

import (
	"strings"
	"time"
)

// DateLayout is the wire format of document dates.
const DateLayout = "2006-01-02"

// FormatDate renders a document date; the zero time renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate accepts a plain date or an RFC 3339 timestamp and returns the
// calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Optional maps a blank reference to nil so it is sent as JSON null.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the value of s or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
