// Package state loads the snapshot at run start and persists it at run end,
// keeping an optional remote mirror in step with the local store.
package state

import "errors"

var (
	// ErrLoadFailed reports that neither the local store nor the mirror
	// produced a snapshot. The run continues from an empty snapshot.
	ErrLoadFailed = errors.New("failed to load snapshot")

	// ErrSaveFailed reports that the local store rejected the snapshot.
	// The run is considered failed.
	ErrSaveFailed = errors.New("failed to save snapshot")
)
