package http

import "errors"

// ErrInvalidBody is returned when a request body cannot be decoded.
var ErrInvalidBody = errors.New("invalid request body")
