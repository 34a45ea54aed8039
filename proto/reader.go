package proto

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// ReadResponse reads and parses a single response line from r.
// Response format: <status>[ <args>*]\r\n
//
// Data blocks are not read here: the caller knows which argument carries the
// size and whether the status announces a body, and calls ReadBody.
//
// Errors:
//   - ConnectionError: I/O failure or end of stream before CRLF (stream failure)
//   - ParseError: empty or over-long line
func ReadResponse(r *bufio.Reader) (*Response, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return nil, &ParseError{Message: "empty response line"}
	}

	resp := &Response{
		Status: StatusType(fields[0]),
	}
	if len(fields) > 1 {
		resp.Args = fields[1:]
	}

	return resp, nil
}

// ReadBody reads a data block of exactly size bytes followed by its terminator.
// The two terminator bytes are consumed and discarded.
//
// A short read, including end of stream, is a ConnectionError.
func ReadBody(r *bufio.Reader, size int) ([]byte, error) {
	if size < 0 {
		return nil, &ParseError{Message: "negative data block size"}
	}

	// Grow as data arrives rather than trusting the announced size up front.
	var buf bytes.Buffer
	buf.Grow(min(size, maxPooledBuffer))

	if _, err := io.CopyN(&buf, r, int64(size)); err != nil {
		return nil, &ConnectionError{Op: "read body", Err: unexpectedEOF(err)}
	}

	if _, err := r.Discard(len(CRLF)); err != nil {
		return nil, &ConnectionError{Op: "read body", Err: unexpectedEOF(err)}
	}

	return buf.Bytes(), nil
}

// readLine returns one line including its '\n'.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err == nil {
		return line, nil
	}
	if err != bufio.ErrBufferFull {
		if len(line) > 0 {
			err = unexpectedEOF(err)
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	// Line exceeds the reader buffer; ReadSlice's result is only valid until the next read.
	buf := append([]byte(nil), line...)
	for {
		if len(buf) > MaxLineLength {
			return nil, &ParseError{Message: "response line too long"}
		}

		line, err = r.ReadSlice('\n')
		buf = append(buf, line...)
		if err == nil {
			return buf, nil
		}
		if err != bufio.ErrBufferFull {
			return nil, &ConnectionError{Op: "read", Err: unexpectedEOF(err)}
		}
	}
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
