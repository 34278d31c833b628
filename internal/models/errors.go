package models

import "errors"

// ErrNotFound is returned by stores when a person, account or transaction
// does not exist.
var ErrNotFound = errors.New("not found")
