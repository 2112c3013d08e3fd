package scraper

import (
	"errors"

	"post-alert/internal/usecase/fetch"
)

// ErrListingNotLoaded indicates that the post listing never appeared within the
// bounded wait. It is a fetch failure, never "zero posts".
var ErrListingNotLoaded = fetch.ErrListingNotLoaded

// ErrUnknownStrategy indicates a strategy kind with no implementation.
var ErrUnknownStrategy = errors.New("unknown extraction strategy")
