package forms

import (
	"fmt"
	"strings"

	"formdesk/internal/core/apperror"
)

// DefaultSummaryLimit is the number of messages listed by Summary before the
// "+K more" suffix.
const DefaultSummaryLimit = 5

// FieldError is one validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is an ordered, field-keyed validation result. The first message
// recorded for a field wins.
type Errors []FieldError

// Add records message for field unless the field already has an error.
func (e *Errors) Add(field, message string) {
	for _, fe := range *e {
		if fe.Field == field {
			return
		}
	}
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Addf is Add with formatting.
func (e *Errors) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// Empty reports whether there are no errors.
func (e Errors) Empty() bool { return len(e) == 0 }

// Has reports whether field has an error.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Map returns the errors keyed by field.
func (e Errors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Field] = fe.Message
	}
	return out
}

// Summary joins the first n messages and appends "+K more" when there are
// more than n.
func (e Errors) Summary(n int) string {
	if n <= 0 {
		n = DefaultSummaryLimit
	}
	if len(e) == 0 {
		return ""
	}
	shown := e
	if len(shown) > n {
		shown = shown[:n]
	}
	msgs := make([]string, 0, len(shown))
	for _, fe := range shown {
		msgs = append(msgs, fe.Message)
	}
	s := strings.Join(msgs, "; ")
	if extra := len(e) - len(shown); extra > 0 {
		s += fmt.Sprintf(" (+%d more)", extra)
	}
	return s
}

// AppError converts a non-empty result into a 422 document error.
func (e Errors) AppError(limit int) *apperror.AppError {
	if e.Empty() {
		return nil
	}
	return apperror.NewInvalidDocument(e.Map(), e.Summary(limit))
}

// ItemField returns the key for a row field, e.g. "items[2].quantity".
func ItemField(index int, field string) string {
	return fmt.Sprintf("items[%d].%s", index, field)
}
