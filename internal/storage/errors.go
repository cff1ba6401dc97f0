package storage

import (
	"errors"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Sentinel errors surfaced by repositories. The engine maps these to its
// typed outcomes; nothing above the storage layer inspects driver errors.
var (
	// ErrDuplicateOwner is a commit-time violation of the one-reservation-
	// per-owner-per-day index. Safe to re-encounter: the owner's row exists.
	ErrDuplicateOwner = errors.New("storage: owner already holds this kind and date")

	// ErrRaceLost is any other unique-index rejection at commit: a concurrent
	// insert claimed the seat or slot first. This is the sole race signal;
	// the application layer never takes locks.
	ErrRaceLost = errors.New("storage: concurrent reservation committed first")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
)

// classifyInsertError translates a driver error from a reservation insert
// into a sentinel. SQLite reports unique violations as the violated column
// list ("UNIQUE constraint failed: reservations.resource_kind, ...,
// reservations.owner_id"), never the index name, so the column list is the
// only way to tell an idempotent duplicate from a lost race. Only the
// owner-per-day index includes owner_id; the seat index and the slot triple
// do not.
func classifyInsertError(err error) error {
	if err == nil {
		return nil
	}

	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	if se.ExtendedCode != sqlite3.ErrConstraintUnique && se.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return err
	}

	if strings.Contains(se.Error(), "reservations.owner_id") {
		return ErrDuplicateOwner
	}
	return ErrRaceLost
}
