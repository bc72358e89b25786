package vfs

import "errors"

var (
	// ErrNotFound indicates no file with the given ID exists in the store.
	ErrNotFound = errors.New("vfs: file not found")

	// ErrInvalidName indicates a file name failed validation.
	ErrInvalidName = errors.New("vfs: invalid file name")

	// ErrLastFile indicates an attempt to delete the store's only file.
	ErrLastFile = errors.New("vfs: cannot delete the last file")

	// ErrRootFile indicates an attempt to delete the root markup file.
	ErrRootFile = errors.New("vfs: cannot delete the root markup file")

	// ErrDuplicateRoot indicates an attempt to create a second root markup
	// file.
	ErrDuplicateRoot = errors.New("vfs: root markup file already exists")

	// ErrNoRoot indicates a store was constructed without a root markup
	// file.
	ErrNoRoot = errors.New("vfs: store requires a root markup file")

	// ErrEmpty indicates a store was constructed with no files.
	ErrEmpty = errors.New("vfs: store requires at least one file")
)
