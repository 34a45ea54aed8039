// Package proto provides a low-level wire protocol implementation for the
// beanstalkd work-queue protocol.
//
// It serializes requests, parses response lines and data blocks, and decodes
// the YAML-shaped bodies returned by stats and listing commands. It makes no
// decision about connections, retries or locking; see the beanstalk package.
//
// # Serialization and Parsing
//
// WriteRequest serializes requests to wire format. The body length of put is
// always derived from the body itself:
//
//	var args proto.Args
//	args.AddUint32(1024) // priority
//	args.AddInt(0)       // delay
//	args.AddInt(120)     // ttr
//	err := proto.WriteRequest(conn, proto.NewRequest(proto.CmdPut, args, []byte("hello")))
//	// put 1024 0 120 5\r\nhello\r\n
//
// ReadResponse parses one status line; ReadBody reads the data block that
// follows when the status announces one:
//
//	r := bufio.NewReader(conn)
//	resp, err := proto.ReadResponse(r)
//	if err != nil {
//	    if proto.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//	if resp.Status == proto.StatusReserved {
//	    size, err := resp.SizeArg(1)
//	    ...
//	    resp.Body, err = proto.ReadBody(r, size)
//	}
//
// # Error Handling
//
// ConnectionError is a stream failure: I/O error or end of stream in the middle
// of a line or data block. The exchange can be replayed on a new connection.
//
// ParseError means the stream can no longer be trusted; close the connection.
//
// InvalidTubeNameError is raised before anything is written.
//
// # Stats bodies
//
// ParseDict and ParseList decode the bodies of stats, stats-tube, stats-job,
// list-tubes and list-tubes-watched. They never fail; lines that do not fit
// the expected shape are skipped.
package proto
