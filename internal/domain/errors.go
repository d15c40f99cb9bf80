package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidPolicy  = errors.New("invalid duplication policy")
	ErrNotImplemented = errors.New("not implemented")
	ErrConflict       = errors.New("concurrent update")
	ErrDuplicate      = errors.New("duplicate document")
)
