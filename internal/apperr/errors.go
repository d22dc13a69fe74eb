package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidTitle = errors.New("invalid title")
	ErrInvalidPath  = errors.New("invalid path")
)
