package trust

import "errors"

// Error taxonomy surfaced to the API layer. Storage failures are not
// wrapped into these; they propagate verbatim so the caller decides on
// retry policy.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrMissingUsername  = errors.New("username required")
)
