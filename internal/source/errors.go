package source

import "errors"

var (
	// ErrRootNotFound indicates the content directory does not exist.
	ErrRootNotFound = errors.New("content directory not found")

	// ErrWalkFailed indicates filesystem traversal of the content directory failed.
	ErrWalkFailed = errors.New("content directory walk failed")

	// ErrUnreadable is wrapped by File.Err when a source file could not be read.
	ErrUnreadable = errors.New("source file unreadable")
)
