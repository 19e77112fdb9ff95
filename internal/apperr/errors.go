package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrParse         = errors.New("parse error")
	ErrCache         = errors.New("cache error")
	ErrConfiguration = errors.New("configuration error")
)
