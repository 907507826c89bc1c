// Package apperr holds the sentinel errors shared by services and handlers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
	ErrReserved      = errors.New("reserved category")
	ErrBusy          = errors.New("request already in flight")
	ErrEmptyInput    = errors.New("empty input")
	ErrNoPending     = errors.New("no pending batch")
	ErrUpstream      = errors.New("ai provider failed")
)
