// Package beanstalk is a client for the beanstalkd work queue.
//
// A Conn owns a single socket and serializes commands on it. Stream failures
// reconnect according to the configured ReconnectStrategy and the command is
// sent again; server answers such as NOT_FOUND are returned as errors and the
// socket is kept.
//
//	conn, err := beanstalk.Dial(ctx, "localhost:11300", beanstalk.Config{
//	    ReconnectStrategy: beanstalk.ReconnectExpBackoff,
//	})
//	...
//	id, err := conn.Put(ctx, []byte("hello"), beanstalk.DefaultPutParams())
//
//	job, err := conn.ReserveWithTimeout(ctx, 5*time.Second)
//	if err == nil && job != nil {
//	    err = job.Delete(ctx)
//	}
//
// The tube selected with Use is restored after a reconnect. The watch list is
// not: a new socket watches only the default tube.
package beanstalk
