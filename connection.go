package beanstalk

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/pior/beanstalk/proto"
)

// quitTimeout bounds the best-effort quit sent when a socket is discarded.
const quitTimeout = time.Second

// wireConn is one open socket with its buffered reader and writer.
// It is owned by the socket slot of a Conn and used under the Conn lock.
type wireConn struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	closeOnce sync.Once
}

func newWireConn(conn net.Conn) *wireConn {
	return &wireConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
}

// exchange sends req and reads the status line. When the status is in
// exp.ok and exp announces a size argument, the data block is read into Body.
//
// The ctx deadline bounds the whole exchange; cancelling ctx interrupts it.
// Either way the exchange fails as a stream failure.
func (w *wireConn) exchange(ctx context.Context, req *proto.Request, exp expectation) (*proto.Response, error) {
	// Set deadline based on context
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetDeadline(deadline)
	} else {
		_ = w.conn.SetDeadline(time.Time{})
	}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.SetDeadline(time.Now())
		close(interrupted)
	})
	defer func() {
		if !stop() {
			<-interrupted
		}
	}()

	if err := proto.WriteRequest(w.writer, req); err != nil {
		return nil, &proto.ConnectionError{Op: "write", Err: err}
	}

	resp, err := proto.ReadResponse(w.reader)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Is(exp.ok...):
		if exp.sizeArg < 0 {
			return resp, nil
		}

		size, err := resp.SizeArg(exp.sizeArg)
		if err != nil {
			return nil, err
		}

		resp.Body, err = proto.ReadBody(w.reader, size)
		if err != nil {
			return nil, err
		}
		return resp, nil

	case resp.Is(exp.failed...):
		return nil, &CommandError{Command: req.Command, Status: resp.Status, Args: resp.Args}

	default:
		return nil, &UnexpectedResponseError{Command: req.Command, Status: resp.Status, Args: resp.Args}
	}
}

// close sends quit and closes the socket, ignoring errors. Only the first call
// has an effect.
func (w *wireConn) close() {
	w.closeOnce.Do(func() {
		_ = w.conn.SetWriteDeadline(time.Now().Add(quitTimeout))
		_ = proto.WriteRequest(w.writer, proto.NewRequest(proto.CmdQuit, nil, nil))
		_ = w.conn.Close()
	})
}
