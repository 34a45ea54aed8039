package proto

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"sync"
)

// Buffer pool for building requests
var bufferPool = sync.Pool{
	New: func() any {
		// Most commands are well under 64 bytes; put carries its body.
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

// maxPooledBuffer keeps large put bodies from pinning memory in the pool.
const maxPooledBuffer = 64 << 10

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// WriteRequest serializes a Request to wire format and writes it to w.
// Format: <command>[ <args>*]\r\n[<data>\r\n]
//
// For put: put <pri> <delay> <ttr> <bytes>\r\n<data>\r\n
// The <bytes> argument is always computed from len(req.Body).
//
// When w is a *bufio.Writer, the request is written through it and flushed once.
// Other writers receive the request in a single Write call.
func WriteRequest(w io.Writer, req *Request) error {
	if bw, ok := w.(*bufio.Writer); ok {
		return writeRequestBuffered(bw, req)
	}

	return writeRequestUnbuffered(w, req)
}

func writeRequestBuffered(bw *bufio.Writer, req *Request) error {
	bw.WriteString(string(req.Command))
	bw.Write(req.Args)

	if req.Command.HasBody() {
		bw.WriteString(Space)
		bw.WriteString(strconv.Itoa(len(req.Body)))
		bw.WriteString(CRLF)
		bw.Write(req.Body)
	}

	bw.WriteString(CRLF)

	return bw.Flush()
}

func writeRequestUnbuffered(w io.Writer, req *Request) error {
	buf := getBuffer()
	defer putBuffer(buf)

	buf.WriteString(string(req.Command))
	buf.Write(req.Args)

	if req.Command.HasBody() {
		buf.WriteString(Space)
		buf.WriteString(strconv.Itoa(len(req.Body)))
		buf.WriteString(CRLF)
		buf.Write(req.Body)
	}

	buf.WriteString(CRLF)

	_, err := w.Write(buf.Bytes())
	return err
}
