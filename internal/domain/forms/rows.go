// Package forms holds the building blocks shared by every document form:
// the keyed item list, per-row enrichment tracking, the field-keyed
// validation result and the submission state machine.
package forms

import (
	"formdesk/internal/core/apperror"
	"formdesk/internal/core/id"
)

// Keyed is implemented by row types. The key is assigned once on creation.
type Keyed interface {
	RowKey() id.ID
}

// RowUI is per-row interface state (product picker visibility and query).
type RowUI struct {
	PickerOpen bool   `json:"pickerOpen"`
	Query      string `json:"query,omitempty"`
}

// Rows is an ordered list of line items addressed by their temp key.
// Auxiliary state is keyed by temp key as well, so removing or reordering
// rows never shifts it onto a different row.
type Rows[T Keyed] struct {
	order []id.ID
	items map[id.ID]T
	ui    map[id.ID]RowUI
}

// NewRows creates an empty list.
func NewRows[T Keyed]() *Rows[T] {
	return &Rows[T]{
		items: make(map[id.ID]T),
		ui:    make(map[id.ID]RowUI),
	}
}

// Add appends row. Adding a key twice is a conflict.
func (r *Rows[T]) Add(row T) error {
	key := row.RowKey()
	if key == id.Nil {
		return apperror.NewValidation("row key is required")
	}
	if _, ok := r.items[key]; ok {
		return apperror.NewConflict("row already exists").WithDetail("tempKey", key.String())
	}
	r.order = append(r.order, key)
	r.items[key] = row
	return nil
}

// Get returns the row with key.
func (r *Rows[T]) Get(key id.ID) (T, bool) {
	row, ok := r.items[key]
	return row, ok
}

// MustGet returns the row with key or a not-found error.
func (r *Rows[T]) MustGet(key id.ID) (T, error) {
	row, ok := r.items[key]
	if !ok {
		return row, apperror.NewNotFound("item", key.String())
	}
	return row, nil
}

// Update replaces the row with key by fn's result.
func (r *Rows[T]) Update(key id.ID, fn func(T) (T, error)) (T, error) {
	row, err := r.MustGet(key)
	if err != nil {
		return row, err
	}
	updated, err := fn(row)
	if err != nil {
		return row, err
	}
	r.items[key] = updated
	return updated, nil
}

// Set stores row under its own key, which must already exist.
func (r *Rows[T]) Set(row T) error {
	if _, ok := r.items[row.RowKey()]; !ok {
		return apperror.NewNotFound("item", row.RowKey().String())
	}
	r.items[row.RowKey()] = row
	return nil
}

// Remove deletes the row and its auxiliary state.
func (r *Rows[T]) Remove(key id.ID) error {
	if _, ok := r.items[key]; !ok {
		return apperror.NewNotFound("item", key.String())
	}
	delete(r.items, key)
	delete(r.ui, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Has reports whether key exists.
func (r *Rows[T]) Has(key id.ID) bool {
	_, ok := r.items[key]
	return ok
}

// Index returns the current position of key, or -1.
func (r *Rows[T]) Index(key id.ID) int {
	for i, k := range r.order {
		if k == key {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (r *Rows[T]) Len() int { return len(r.order) }

// Keys returns the row keys in display order.
func (r *Rows[T]) Keys() []id.ID {
	out := make([]id.ID, len(r.order))
	copy(out, r.order)
	return out
}

// Items returns the rows in display order.
func (r *Rows[T]) Items() []T {
	out := make([]T, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.items[k])
	}
	return out
}

// UI returns the auxiliary state of key.
func (r *Rows[T]) UI(key id.ID) RowUI {
	return r.ui[key]
}

// SetUI stores auxiliary state for an existing row.
func (r *Rows[T]) SetUI(key id.ID, state RowUI) error {
	if _, ok := r.items[key]; !ok {
		return apperror.NewNotFound("item", key.String())
	}
	if state == (RowUI{}) {
		delete(r.ui, key)
		return nil
	}
	r.ui[key] = state
	return nil
}
