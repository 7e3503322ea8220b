package storage

import "errors"

var (
	// ErrNotFound means the barcode has no item row.
	ErrNotFound = errors.New("item not found")
	// ErrStatusNotFound means the status name is not in the catalog.
	ErrStatusNotFound = errors.New("status not found")
	// ErrAlreadyExists means an item row with that barcode already exists.
	ErrAlreadyExists = errors.New("item already exists")
	// ErrAlreadyHasValue guards the one-time write of hathifiles_timestamp.
	ErrAlreadyHasValue = errors.New("hathifiles_timestamp already set")
)
