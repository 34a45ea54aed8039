package testutils

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Hangup, returned by a handler, closes the connection without answering.
const Hangup = "\x00hangup"

// Command is one request received by a Server.
type Command struct {
	Name string
	Args []string
	Body []byte // put only
}

// Line returns the command line without its terminator.
func (c Command) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Session is the per-connection state of a Server.
type Session struct {
	ID      int
	Tube    string
	Watched []string
}

// HandlerFunc answers a command with raw response bytes, CRLF included.
type HandlerFunc func(s *Session, cmd Command) string

// Responses returns a handler answering each command with the next response.
// Commands beyond the script are answered with Hangup.
func Responses(responses ...string) HandlerFunc {
	var (
		mu   sync.Mutex
		next int
	)

	return func(_ *Session, _ Command) string {
		mu.Lock()
		defer mu.Unlock()

		if next >= len(responses) {
			return Hangup
		}
		resp := responses[next]
		next++
		return resp
	}
}

// Stalled returns a handler that never answers: it blocks until release is
// closed, then hangs up.
func Stalled(release <-chan struct{}) HandlerFunc {
	return func(_ *Session, _ Command) string {
		<-release
		return Hangup
	}
}

// Server is a beanstalk server on a loopback port, answering with a handler.
// quit is handled by the server and never reaches the handler.
type Server struct {
	listener net.Listener
	handler  HandlerFunc

	mu          sync.Mutex
	commands    []Command
	conns       map[net.Conn]struct{}
	connections int
	closed      bool

	wg sync.WaitGroup
}

// NewServer starts a server. It is closed when the test ends.
func NewServer(t testing.TB, handler HandlerFunc) *Server {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "listen should not error")

	s := &Server{
		listener: l,
		handler:  handler,
		conns:    make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Commands returns the commands received so far, quit excluded.
func (s *Server) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Command(nil), s.commands...)
}

// CommandLines returns the received command lines.
func (s *Server) CommandLines() []string {
	cmds := s.Commands()
	lines := make([]string, len(cmds))
	for i, cmd := range cmds {
		lines[i] = cmd.Line()
	}
	return lines
}

// Connections returns the number of accepted connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connections
}

// DropConnections closes every open connection.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		_ = conn.Close()
	}
}

// Close stops the server and closes its connections.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.listener.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.connections++
		session := &Session{ID: s.connections, Tube: "default", Watched: []string{"default"}}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn, session)
	}
}

func (s *Server) serveConn(conn net.Conn, session *Session) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	r := bufio.NewReader(conn)
	for {
		cmd, err := readCommand(r)
		if err != nil {
			return
		}

		if cmd.Name == "quit" {
			return
		}

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		resp := s.handler(session, cmd)
		if resp == Hangup {
			return
		}

		if _, err := io.WriteString(conn, resp); err != nil {
			return
		}
	}
}

var errBadFormat = errors.New("bad format")

func readCommand(r *bufio.Reader) (Command, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return Command{}, err
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errBadFormat
	}

	cmd := Command{Name: fields[0], Args: fields[1:]}
	if cmd.Name != "put" {
		return cmd, nil
	}

	if len(cmd.Args) != 4 {
		return Command{}, errBadFormat
	}

	size, err := strconv.Atoi(cmd.Args[3])
	if err != nil || size < 0 {
		return Command{}, errBadFormat
	}

	body := make([]byte, size+2)
	if _, err := io.ReadFull(r, body); err != nil {
		return Command{}, err
	}
	if string(body[size:]) != "\r\n" {
		return Command{}, errBadFormat
	}

	cmd.Body = body[:size]
	return cmd, nil
}
