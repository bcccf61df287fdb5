package storage

import "errors"

// ErrNotFound is returned when a targeted row or record does not exist.
var ErrNotFound = errors.New("not found")
