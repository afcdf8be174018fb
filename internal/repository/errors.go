package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// e.g. a second nomination for the same (cycle, nominee, submitter).
var ErrDuplicate = errors.New("duplicate record")

// ErrStaleState is returned when a guarded state transition matched no row,
// meaning another caller transitioned the record first.
var ErrStaleState = errors.New("record no longer in expected state")
