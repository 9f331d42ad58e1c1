package admin

import "errors"

var (
	ErrNotFound     = errors.New("admin: not found")
	ErrUnauthorized = errors.New("admin: unauthorized")
	ErrInvalidInput = errors.New("admin: invalid input")
)
