// Package fetch runs the alert pipeline: it fetches every configured blog
// listing, validates and diffs the posts against the previous snapshot,
// notifies recipients about changes and persists the new snapshot.
package fetch

import (
	"errors"

	"post-alert/internal/domain/entity"
)

// Sentinel errors for fetch use case operations.
var (
	// ErrFeedFetchFailed indicates that fetching a source's listing page failed.
	// This can occur due to network issues, invalid URLs, server errors or a
	// listing that never rendered. The source is degraded for the run.
	ErrFeedFetchFailed = errors.New("failed to fetch listing from source")

	// ErrListingNotLoaded indicates that the listing markup did not appear
	// within the bounded wait.
	ErrListingNotLoaded = entity.ErrListingNotLoaded

	// ErrNoSources indicates that the source list is empty.
	ErrNoSources = errors.New("no sources configured")
)
