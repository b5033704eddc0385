package storage

import "errors"

// Common client storage errors
var (
	// ErrAccountNotFound indicates that no account state has been stored
	ErrAccountNotFound = errors.New("account state not found")

	// ErrSnapshotNotFound indicates that no snapshot exists for the subject
	ErrSnapshotNotFound = errors.New("schedule snapshot not found")
)
