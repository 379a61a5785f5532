package transport

import (
	"bufio"
	"net"
	"time"
)

var noDeadline = time.Time{}

// socketConn wraps a net.Conn with a bufio.Reader so Recv can satisfy small
// reads out of an already-buffered chunk instead of issuing a syscall per
// call, and with read/write deadline bookkeeping so Options.ReadTimeout and
// Options.WriteTimeout have somewhere to attach.
type socketConn struct {
	net.Conn
	reader *bufio.Reader

	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newSocketConn(conn net.Conn, readTimeout, writeTimeout time.Duration) *socketConn {
	return &socketConn{
		Conn:         conn,
		reader:       bufio.NewReader(conn),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (sc *socketConn) Read(b []byte) (int, error) {
	if sc.readTimeout > 0 {
		_ = sc.Conn.SetReadDeadline(time.Now().Add(sc.readTimeout))
	} else {
		_ = sc.Conn.SetReadDeadline(noDeadline)
	}
	return sc.reader.Read(b)
}

func (sc *socketConn) Write(b []byte) (int, error) {
	if sc.writeTimeout > 0 {
		_ = sc.Conn.SetWriteDeadline(time.Now().Add(sc.writeTimeout))
	} else {
		_ = sc.Conn.SetWriteDeadline(noDeadline)
	}
	return sc.Conn.Write(b)
}
