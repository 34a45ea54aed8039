package proto

import (
	"bufio"
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func argsOf(build func(a *Args)) Args {
	var a Args
	build(&a)
	return a
}

func TestWriteRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *Request
		expected string
	}{
		{
			name:     "reserve",
			req:      NewRequest(CmdReserve, nil, nil),
			expected: "reserve\r\n",
		},
		{
			name: "reserve with timeout",
			req: NewRequest(CmdReserveWithTimeout, argsOf(func(a *Args) {
				a.AddDurationSeconds(5 * time.Second)
			}), nil),
			expected: "reserve-with-timeout 5\r\n",
		},
		{
			name: "delete",
			req: NewRequest(CmdDelete, argsOf(func(a *Args) {
				a.AddUint64(42)
			}), nil),
			expected: "delete 42\r\n",
		},
		{
			name: "release",
			req: NewRequest(CmdRelease, argsOf(func(a *Args) {
				a.AddUint64(7)
				a.AddUint32(1 << 31)
				a.AddDurationSeconds(1500 * time.Millisecond)
			}), nil),
			expected: "release 7 2147483648 1\r\n",
		},
		{
			name: "use",
			req: NewRequest(CmdUse, argsOf(func(a *Args) {
				a.AddString("emails")
			}), nil),
			expected: "use emails\r\n",
		},
		{
			name: "pause tube",
			req: NewRequest(CmdPauseTube, argsOf(func(a *Args) {
				a.AddString("emails")
				a.AddInt(30)
			}), nil),
			expected: "pause-tube emails 30\r\n",
		},
		{
			name:     "body ignored without data block",
			req:      NewRequest(CmdStats, nil, []byte("ignored")),
			expected: "stats\r\n",
		},
		{
			name: "put",
			req: NewRequest(CmdPut, argsOf(func(a *Args) {
				a.AddUint32(1024)
				a.AddInt(0)
				a.AddInt(120)
			}), []byte("hello")),
			expected: "put 1024 0 120 5\r\nhello\r\n",
		},
		{
			name: "put with empty body",
			req: NewRequest(CmdPut, argsOf(func(a *Args) {
				a.AddUint32(1)
				a.AddInt(0)
				a.AddInt(1)
			}), nil),
			expected: "put 1 0 1 0\r\n\r\n",
		},
		{
			name: "put with embedded CRLF",
			req: NewRequest(CmdPut, argsOf(func(a *Args) {
				a.AddUint32(1)
				a.AddInt(0)
				a.AddInt(1)
			}), []byte("a\r\nb")),
			expected: "put 1 0 1 4\r\na\r\nb\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteRequest(&buf, tt.req))
			require.Equal(t, tt.expected, buf.String())
		})

		t.Run(tt.name+"/buffered", func(t *testing.T) {
			var buf bytes.Buffer
			bw := bufio.NewWriter(&buf)
			require.NoError(t, WriteRequest(bw, tt.req))
			require.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestArgsNegativeDuration(t *testing.T) {
	var a Args
	a.AddDurationSeconds(-time.Second)
	require.Equal(t, " 0", string(a))

	a.Reset()
	require.True(t, a.IsEmpty())
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestWriteRequestError(t *testing.T) {
	boom := errors.New("boom")

	err := WriteRequest(failingWriter{err: boom}, NewRequest(CmdStats, nil, nil))
	require.ErrorIs(t, err, boom)

	err = WriteRequest(bufio.NewWriter(failingWriter{err: boom}), NewRequest(CmdStats, nil, nil))
	require.ErrorIs(t, err, boom)
}
