package dataset

import "errors"

// Sentinel errors for the dataset service layer.
var (
	ErrNotFound = errors.New("dataset not found")
)
