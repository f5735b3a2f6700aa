package domain

import "errors"

// ErrNotFound is the shared not-found condition for content lookups by id.
var ErrNotFound = errors.New("content not found")
