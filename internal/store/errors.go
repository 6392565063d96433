package store

import "errors"

// Sentinel errors returned by Store implementations. Services translate
// these into coded domain errors at their boundary.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrRestrictionNotFound = errors.New("restriction not found")
	ErrHiddenNotFound      = errors.New("hidden entity not found")
	ErrEntityNotFound      = errors.New("entity not found")
)
