package proto

import (
	"strconv"
	"time"
)

// Request represents a beanstalk protocol request.
// This is a low-level container for request data without serialization logic.
type Request struct {
	// Command is the command name: put, reserve, delete, ...
	Command CmdType

	// Args is the serialized argument list.
	//
	// It contains the exact bytes that appear after the command name on the wire,
	// including the leading spaces (e.g. " 1024 0 120").
	// For commands with a body, the body length is not part of Args: WriteRequest
	// derives it from len(Body).
	Args Args

	// Body is the job payload (put only).
	Body []byte
}

// NewRequest creates a request. Body is ignored for commands without a data block.
func NewRequest(cmd CmdType, args Args, body []byte) *Request {
	return &Request{
		Command: cmd,
		Args:    args,
		Body:    body,
	}
}

// Args is a serialized representation of command arguments.
//
// The zero value is ready to use.
type Args []byte

func (a Args) IsEmpty() bool {
	return len(a) == 0
}

func (a *Args) Reset() {
	*a = (*a)[:0]
}

func (a *Args) AddString(s string) {
	*a = append(*a, ' ')
	*a = append(*a, s...)
}

func (a *Args) AddInt(value int) {
	*a = append(*a, ' ')
	*a = strconv.AppendInt(*a, int64(value), 10)
}

func (a *Args) AddUint32(value uint32) {
	*a = append(*a, ' ')
	*a = strconv.AppendUint(*a, uint64(value), 10)
}

func (a *Args) AddUint64(value uint64) {
	*a = append(*a, ' ')
	*a = strconv.AppendUint(*a, value, 10)
}

// AddDurationSeconds appends d truncated to whole seconds. Negative durations become 0.
func (a *Args) AddDurationSeconds(d time.Duration) {
	if d < 0 {
		d = 0
	}
	a.AddUint64(uint64(d / time.Second))
}
