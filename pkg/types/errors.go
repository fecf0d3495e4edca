package types

import "errors"

// Domain errors for type validation
var (
	// Search result errors
	ErrMissingSourceKey  = errors.New("source key is required")
	ErrInvalidLineNumber = errors.New("line number must be >= 0")
	ErrInvalidDistance   = errors.New("cosine distance must be >= 0")
)
