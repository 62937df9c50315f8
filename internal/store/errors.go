package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/saxenasajal03/ConnectX/internal/db"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrForbidden   = errors.New("acting user is not the recipient")
	ErrUnavailable = errors.New("store unavailable")
	ErrInvalidPair = errors.New("sender and recipient must be distinct valid user ids")
	ErrInvalidUser = errors.New("invalid user id")
)

// wrapErr maps driver failures onto the store's error kinds.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case db.IsTransient(err):
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
