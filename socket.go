package beanstalk

import (
	"context"

	"github.com/jackc/puddle/v2"
)

// socketSlot holds at most one open socket.
//
// It is a puddle pool of size one whose single resource stays acquired while
// the connection is open. Destroying the resource runs the destructor (quit,
// close) before the pool admits a new one, so a replacement socket is never
// dialed while the old one is still open.
type socketSlot struct {
	pool *puddle.Pool[*wireConn]
	res  *puddle.Resource[*wireConn]
}

func newSocketSlot(dial func(ctx context.Context) (*wireConn, error)) (*socketSlot, error) {
	pool, err := puddle.NewPool(&puddle.Config[*wireConn]{
		Constructor: dial,
		Destructor: func(w *wireConn) {
			w.close()
		},
		MaxSize: 1,
	})
	if err != nil {
		return nil, err
	}

	return &socketSlot{pool: pool}, nil
}

// current returns the open socket, nil when closed.
func (s *socketSlot) current() *wireConn {
	if s.res == nil {
		return nil
	}
	return s.res.Value()
}

// open dials a new socket. Must only be called when current() is nil.
func (s *socketSlot) open(ctx context.Context) (*wireConn, error) {
	res, err := s.pool.Acquire(ctx)
	if err != nil {
		s.destroyIdle()
		return nil, err
	}

	s.res = res
	return res.Value(), nil
}

// discard sends quit and closes the open socket, if any, before returning.
func (s *socketSlot) discard() {
	if s.res == nil {
		s.destroyIdle()
		return
	}

	res := s.res
	s.res = nil

	// the pool runs destructors on a goroutine, quit is sent here
	res.Value().close()
	res.Destroy()

	s.destroyIdle()
}

// destroyIdle closes sockets the pool parked after Acquire gave up on their
// constructor.
func (s *socketSlot) destroyIdle() {
	for _, res := range s.pool.AcquireAllIdle() {
		res.Value().close()
		res.Destroy()
	}
}
