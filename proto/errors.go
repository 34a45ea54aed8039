package proto

import (
	"errors"
	"fmt"
)

// Error types for beanstalk protocol operations.
// They tell the connection layer whether the stream can still be trusted.

// ConnectionError wraps underlying I/O errors from connection operations,
// including a response line or data block cut short by end of stream.
//
// This is the "stream failure" class: the connection is broken, the caller
// closes it and may retry the whole exchange on a fresh connection.
type ConnectionError struct {
	Op  string // Operation that failed (dial, write, read, read body)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ParseError represents a response the client could not make sense of:
// an empty status line, an over-long line, or a malformed size argument.
//
// Connection handling: the stream position is unknown, CLOSE the connection.
// Unlike ConnectionError, retrying is not safe: the command may have run.
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// InvalidTubeNameError is returned when a tube name fails validation.
// The request was rejected client-side; the connection is untouched.
type InvalidTubeNameError struct {
	Name    string
	Message string
}

func (e *InvalidTubeNameError) Error() string {
	return fmt.Sprintf("invalid tube name %q: %s", e.Name, e.Message)
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection is a helper function to determine if an error
// requires closing the connection.
//
// Returns true for ConnectionError and ParseError, false for nil and
// InvalidTubeNameError. Unknown error types are treated conservatively.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var invalid *InvalidTubeNameError
	if errors.As(err, &invalid) {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}

// IsStreamFailure reports whether err is a transport failure after which the
// exchange can be replayed on a new connection.
func IsStreamFailure(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}
