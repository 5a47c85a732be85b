package attachment

import "errors"

var (
	ErrNotFound        = errors.New("attachment not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyBound    = errors.New("attachment already bound")
	ErrForbidden       = errors.New("forbidden")
	ErrStorageFailure  = errors.New("storage failure")
)
