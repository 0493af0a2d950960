// Package errors provides structured error types for the RFP lifecycle service.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the lifecycle core's failure taxonomy.
var (
	// ErrInvalidInput covers rejected uploads, empty names and empty messages.
	// Surfaced to the caller as a transient notification; no state is mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound covers operations on a missing project or topic.
	// A normal outcome for callers, not a crash.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyScheduled means a processing task already exists for the
	// project id. Not reachable through the public contract; indicates a
	// caller bug.
	ErrAlreadyScheduled = errors.New("task already scheduled")
)

// Invalidf returns an ErrInvalidInput wrapped with a formatted detail message.
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// NotFoundf returns an ErrNotFound wrapped with a formatted detail message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// IsInvalidInput reports whether err is an invalid-input error.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyScheduled reports whether err is a duplicate-schedule error.
func IsAlreadyScheduled(err error) bool { return errors.Is(err, ErrAlreadyScheduled) }
