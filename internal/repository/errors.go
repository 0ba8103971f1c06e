// Package repository holds the MySQL stores and the sentinel errors they
// share.  Higher layers compare against these values with errors.Is; no
// driver error type leaks past this package.
package repository

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a unique key, such
// as a second certificate for the same user and platform or a replayed
// order id.
var ErrConflict = errors.New("conflict")

// ErrExpired is returned by code redemption when the code is past its
// expiry or already swept.
var ErrExpired = errors.New("expired")

// ErrActiveEnrollment is returned by code redemption when the user already
// holds another active enrollment.
var ErrActiveEnrollment = errors.New("active enrollment exists")

// ErrExhausted is returned by code redemption when max_redemptions is used up.
var ErrExhausted = errors.New("exhausted")

// isDuplicate detects MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
