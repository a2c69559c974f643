package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegistered     = errors.New("chat is not registered")
	ErrAlreadyRegistered = errors.New("chat is already registered")
	ErrContactNotFound   = errors.New("contact not found")
	ErrDuplicateContact  = errors.New("contact already exists")
	ErrJobNotFound       = errors.New("no reminder job for user")
	ErrQueueFull         = errors.New("reminder queue is full")

	ErrInvalidTime      = errors.New("invalid reminder time")
	ErrInvalidFrequency = errors.New("invalid contacts per year")
	ErrInvalidDate      = errors.New("invalid date")
)

// ValidationError reports malformed user input.
type ValidationError struct {
	Input string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Input)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StoreError reports that persistence is unavailable. Callers surface it as a
// generic apology and do not retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err carries a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
