package userstore

import (
	"errors"
	"os"
)

// Common storage errors. Where possible, these alias os package errors
// for compatibility with os.IsNotExist, os.IsExist, etc.
var (
	ErrNotFound           = os.ErrNotExist
	ErrExist              = os.ErrExist
	ErrInvalidPath        = errors.New("userstore: path outside user storage")
	ErrNotDir             = errors.New("userstore: not a directory")
	ErrCatalogUnavailable = errors.New("userstore: catalog unavailable")
	ErrNoReplica          = errors.New("userstore: data product has no gateway data store replica")
)
