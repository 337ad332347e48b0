package production

import "errors"

var (
	ErrNotFound   = errors.New("production record not found")
	ErrConflict   = errors.New("production record already exists for date")
	ErrValidation = errors.New("invalid input")
)
