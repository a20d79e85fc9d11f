// Package repository defines sentinel errors shared across repositories.
// Handlers translate these into HTTP status codes: ErrConflict and
// ErrInvalidTransition into 409, and ErrStatusConflict into 409 with a
// retry hint.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot proceed because of
// dependent state, such as deleting an office that still has assigned users.
var ErrConflict = errors.New("conflict")

// ErrStatusConflict is returned by conditional equipment toggles when the
// stored status no longer matches the expected previous value, i.e. another
// scan won the race.  No reading is logged for the losing scan.
var ErrStatusConflict = errors.New("status changed concurrently")

// ErrInvalidTransition is returned when a permit or office-change decision
// is applied to a request that is not pending.
var ErrInvalidTransition = errors.New("invalid status transition")
