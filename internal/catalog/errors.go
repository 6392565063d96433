package catalog

import "errors"

// Sentinel errors for upstream catalog failures.
var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrRateLimited = errors.New("catalog: rate limited")
	ErrBadRequest  = errors.New("catalog: bad request")
	ErrServer      = errors.New("catalog: server error")
	ErrDisabled    = errors.New("catalog: no upstream configured")
)
