package proto

// CmdType represents a beanstalk protocol command name.
type CmdType string

// StatusType represents the first token of a response line.
type StatusType string

// Protocol delimiters
const (
	// CRLF terminates command lines, response lines and data blocks.
	CRLF = "\r\n"

	// Space separates command tokens
	Space = " "
)

// Limits enforced client-side before anything is written.
const (
	// MaxTubeNameLength is the longest tube name the server accepts.
	MaxTubeNameLength = 200

	// MaxLineLength bounds a status line. Longer lines are a protocol violation.
	MaxLineLength = 4096
)

// Command names
//
// Commands carrying a job body (only put) get the body length appended as their
// last argument by WriteRequest.
const (
	// CmdPut inserts a job into the used tube.
	//
	// Wire format: put <pri> <delay> <ttr> <bytes>\r\n<data>\r\n
	//
	// Response statuses:
	//   - INSERTED <id>
	//   - BURIED <id>: server ran out of memory growing the priority queue
	//   - JOB_TOO_BIG
	CmdPut CmdType = "put"

	// CmdReserve waits for a job from one of the watched tubes.
	//
	// Wire format: reserve\r\n
	//
	// Response statuses:
	//   - RESERVED <id> <bytes>\r\n<data>\r\n
	//   - DEADLINE_SOON: a job reserved by this client is about to expire
	CmdReserve CmdType = "reserve"

	// CmdReserveWithTimeout is CmdReserve bounded by a server-side timeout in seconds.
	//
	// Wire format: reserve-with-timeout <seconds>\r\n
	//
	// Additional status: TIMED_OUT
	CmdReserveWithTimeout CmdType = "reserve-with-timeout"

	CmdDelete  CmdType = "delete"  // delete <id>
	CmdRelease CmdType = "release" // release <id> <pri> <delay>
	CmdBury    CmdType = "bury"    // bury <id> <pri>
	CmdTouch   CmdType = "touch"   // touch <id>
	CmdKick    CmdType = "kick"    // kick <bound>

	// Peek commands return FOUND <id> <bytes>\r\n<data>\r\n or NOT_FOUND.
	CmdPeek        CmdType = "peek" // peek <id>
	CmdPeekReady   CmdType = "peek-ready"
	CmdPeekDelayed CmdType = "peek-delayed"
	CmdPeekBuried  CmdType = "peek-buried"

	CmdUse    CmdType = "use"    // use <tube>
	CmdWatch  CmdType = "watch"  // watch <tube>
	CmdIgnore CmdType = "ignore" // ignore <tube>

	// Listing and stats commands return OK <bytes>\r\n<yaml>\r\n.
	CmdListTubes        CmdType = "list-tubes"
	CmdListTubesWatched CmdType = "list-tubes-watched"
	CmdStats            CmdType = "stats"
	CmdStatsTube        CmdType = "stats-tube" // stats-tube <tube>
	CmdStatsJob         CmdType = "stats-job"  // stats-job <id>

	CmdPauseTube CmdType = "pause-tube" // pause-tube <tube> <delay>

	// CmdQuit asks the server to close the connection. It has no response.
	CmdQuit CmdType = "quit"
)

// HasBody reports whether the command is followed by a data block.
func (c CmdType) HasBody() bool {
	return c == CmdPut
}

// Response statuses
const (
	StatusInserted     StatusType = "INSERTED"
	StatusBuried       StatusType = "BURIED"
	StatusJobTooBig    StatusType = "JOB_TOO_BIG"
	StatusReserved     StatusType = "RESERVED"
	StatusDeadlineSoon StatusType = "DEADLINE_SOON"
	StatusTimedOut     StatusType = "TIMED_OUT"
	StatusDeleted      StatusType = "DELETED"
	StatusReleased     StatusType = "RELEASED"
	StatusTouched      StatusType = "TOUCHED"
	StatusKicked       StatusType = "KICKED"
	StatusFound        StatusType = "FOUND"
	StatusNotFound     StatusType = "NOT_FOUND"
	StatusUsing        StatusType = "USING"
	StatusWatching     StatusType = "WATCHING"
	StatusNotIgnored   StatusType = "NOT_IGNORED"
	StatusOK           StatusType = "OK"
	StatusPaused       StatusType = "PAUSED"

	// Generic server errors, valid in response to any command.
	StatusOutOfMemory    StatusType = "OUT_OF_MEMORY"
	StatusInternalError  StatusType = "INTERNAL_ERROR"
	StatusBadFormat      StatusType = "BAD_FORMAT"
	StatusUnknownCommand StatusType = "UNKNOWN_COMMAND"
	StatusExpectedCRLF   StatusType = "EXPECTED_CRLF"
	StatusDraining       StatusType = "DRAINING"
)
