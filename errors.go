package beanstalk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pior/beanstalk/proto"
)

var (
	// ErrNotFound matches a CommandError with status NOT_FOUND: the job does not
	// exist, is not reserved by this client, or the tube is unknown.
	ErrNotFound = errors.New("beanstalk: not found")

	// ErrJobTooBig matches a CommandError with status JOB_TOO_BIG.
	ErrJobTooBig = errors.New("beanstalk: job too big")

	// ErrTimedOut matches a CommandError with status TIMED_OUT.
	ErrTimedOut = errors.New("beanstalk: timed out")

	// ErrNotIgnored matches a CommandError with status NOT_IGNORED.
	ErrNotIgnored = errors.New("beanstalk: not ignored")

	// ErrDeadlineSoon is returned by Reserve when a job reserved by this
	// connection is about to reach its time-to-run. It is not a CommandError.
	ErrDeadlineSoon = errors.New("beanstalk: deadline soon")

	// ErrInvalidConfig is returned before any I/O when a Config is invalid.
	ErrInvalidConfig = errors.New("beanstalk: invalid config")

	// ErrRetriesExhausted is returned when a command hit a stream failure on
	// each of Config.MaxAttempts attempts.
	ErrRetriesExhausted = errors.New("beanstalk: retries exhausted")
)

// CommandError is a failure status the server is documented to return for the
// command. The connection is still usable.
type CommandError struct {
	Command proto.CmdType
	Status  proto.StatusType
	Args    []string
}

func (e *CommandError) Error() string {
	return formatResponseError("beanstalk: "+string(e.Command)+" failed", e.Status, e.Args)
}

// Is maps the status onto the package's sentinel errors.
func (e *CommandError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == proto.StatusNotFound
	case ErrJobTooBig:
		return e.Status == proto.StatusJobTooBig
	case ErrTimedOut:
		return e.Status == proto.StatusTimedOut
	case ErrNotIgnored:
		return e.Status == proto.StatusNotIgnored
	default:
		return false
	}
}

// UnexpectedResponseError is a status the command is not expected to return,
// including the generic server errors (BAD_FORMAT, UNKNOWN_COMMAND, ...).
//
// Client and server disagree on the protocol or the stream is corrupted. The
// connection is left open; callers should treat it as unreliable and Close it.
type UnexpectedResponseError struct {
	Command proto.CmdType
	Status  proto.StatusType
	Args    []string
}

func (e *UnexpectedResponseError) Error() string {
	return formatResponseError("beanstalk: unexpected response to "+string(e.Command), e.Status, e.Args)
}

func formatResponseError(prefix string, status proto.StatusType, args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("%s: %s", prefix, status)
	}
	return fmt.Sprintf("%s: %s %s", prefix, status, strings.Join(args, " "))
}
