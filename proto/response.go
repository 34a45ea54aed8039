package proto

import (
	"slices"
	"strconv"
)

// Response represents a parsed response line, plus its data block when one was read.
type Response struct {
	// Status is the first token of the line: INSERTED, RESERVED, NOT_FOUND, ...
	Status StatusType

	// Args are the remaining whitespace-separated tokens, in wire order.
	Args []string

	// Body is the data block, set by the caller after ReadBody.
	Body []byte
}

// Is reports whether the status is one of statuses.
func (r *Response) Is(statuses ...StatusType) bool {
	return slices.Contains(statuses, r.Status)
}

// Arg returns the i-th argument.
func (r *Response) Arg(i int) (string, bool) {
	if i < 0 || i >= len(r.Args) {
		return "", false
	}
	return r.Args[i], true
}

// SizeArg parses the i-th argument as a data block size.
func (r *Response) SizeArg(i int) (int, error) {
	s, ok := r.Arg(i)
	if !ok {
		return 0, &ParseError{Message: string(r.Status) + " response missing size"}
	}

	size, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{Message: "invalid size in " + string(r.Status) + " response", Err: err}
	}
	if size < 0 {
		return 0, &ParseError{Message: "negative size in " + string(r.Status) + " response"}
	}

	return size, nil
}

// Uint64Arg parses the i-th argument as an unsigned integer (job ids, counts).
func (r *Response) Uint64Arg(i int) (uint64, error) {
	s, ok := r.Arg(i)
	if !ok {
		return 0, &ParseError{Message: string(r.Status) + " response missing argument"}
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Message: "invalid integer in " + string(r.Status) + " response", Err: err}
	}

	return v, nil
}
