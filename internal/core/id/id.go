// Package id issues the keys of drafts and their rows. Keys are UUIDv7, so
// rows created in sequence also sort in that order.
package id

import (
	"errors"

	"github.com/google/uuid"
)

// ID identifies a draft or a row within one.
type ID = uuid.UUID

// Nil is the zero key; no draft or row carries it.
var Nil ID

// ErrNilKey is returned by Parse for the all-zero key.
var ErrNilKey = errors.New("id: nil key")

// New issues a key for a new draft or row.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse reads a key sent back by a client. The nil key is rejected since
// it can never address an existing draft or row.
func Parse(s string) (ID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return Nil, err
	}
	if v == Nil {
		return Nil, ErrNilKey
	}
	return v, nil
}
