package models

import "errors"

var (
	// ErrNotFound is returned by repositories when a key or document is absent.
	ErrNotFound = errors.New("not found")
)
