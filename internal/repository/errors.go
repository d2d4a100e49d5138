// Package repository holds the sentinel errors shared by every storage
// backend, so the engine can map them without knowing which backend is
// wired in.
package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
