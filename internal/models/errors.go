package models

import "errors"

// ErrNotFound is returned by the store when no row matches.
var ErrNotFound = errors.New("not found")
