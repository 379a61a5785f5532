// Package transport implements the byte-oriented stream backends the core
// protocol codec and receiver run on top of: UNIX-domain sockets and TCP,
// with an optional TLS upgrade. Nothing here understands the wire protocol
// itself.
package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Transport is the byte-oriented abstraction the protocol layer sends and
// receives frames over.
type Transport interface {
	Send(b []byte) error
	Recv(maxLen int) ([]byte, error)
	Flush() error
	Close() error
}

// defaultUnixDir is where libpq-compatible servers place their UNIX socket
// by default.
const defaultUnixDir = "/var/run/postgresql"

// Dial opens a Transport to host:port. An empty host, or one beginning with
// "/", selects a UNIX-domain socket at <host-or-default-dir>/.s.PGSQL.<port>;
// anything else is resolved as a TCP host. readTimeout and writeTimeout, if
// positive, are applied as a rolling per-call deadline on every Recv/Flush
// (Send only buffers and never touches the socket).
func Dial(host string, port uint16, dialTimeout, readTimeout, writeTimeout time.Duration) (Transport, error) {
	if host == "" || strings.HasPrefix(host, "/") {
		dir := host
		if dir == "" {
			dir = defaultUnixDir
		}
		dir = strings.TrimRight(dir, "/")
		addr := filepath.Join(dir, fmt.Sprintf(".s.PGSQL.%d", port))
		conn, err := net.DialTimeout("unix", addr, dialTimeout)
		if err != nil {
			return nil, err
		}
		return newConnTransport(conn, readTimeout, writeTimeout), nil
	}

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	return newConnTransport(conn, readTimeout, writeTimeout), nil
}

// connTransport adapts a net.Conn to Transport, buffering outbound bytes
// until Flush so a caller can accumulate several protocol messages into one
// write, and reading through a socketConn for buffered reads and deadlines.
type connTransport struct {
	conn *socketConn
	out  []byte
}

func newConnTransport(conn net.Conn, readTimeout, writeTimeout time.Duration) *connTransport {
	return &connTransport{conn: newSocketConn(conn, readTimeout, writeTimeout)}
}

func (t *connTransport) Send(b []byte) error {
	t.out = append(t.out, b...)
	return nil
}

func (t *connTransport) Flush() error {
	if len(t.out) == 0 {
		return nil
	}
	n, err := t.conn.Write(t.out)
	sent := n == len(t.out)
	t.out = t.out[:0]
	if err != nil {
		return err
	}
	if !sent {
		return fmt.Errorf("transport: short write")
	}
	return nil
}

func (t *connTransport) Recv(maxLen int) ([]byte, error) {
	b := make([]byte, maxLen)
	n, err := t.conn.Read(b)
	if n > 0 {
		return b[:n], err
	}
	return nil, err
}

func (t *connTransport) Close() error {
	return t.conn.Close()
}

// UpgradeTLS sends an SSLRequest, reads the server's single-byte 'S'/'N'
// reply, and on 'S' wraps the connection in a TLS client handshake. It is
// the pass-through hook spec'd for TLS: the codec and receiver never see
// the difference between a plain and an upgraded transport.
func UpgradeTLS(t Transport, sslRequest []byte, cfg *tls.Config) (Transport, error) {
	ct, ok := t.(*connTransport)
	if !ok {
		return nil, fmt.Errorf("transport: TLS upgrade requires a connection-backed transport")
	}

	if _, err := ct.conn.Conn.Write(sslRequest); err != nil {
		return nil, err
	}

	reply := make([]byte, 1)
	if _, err := readFull(ct.conn.Conn, reply); err != nil {
		return nil, err
	}
	if reply[0] != 'S' {
		return nil, fmt.Errorf("transport: server does not support SSL")
	}

	tlsConn := tls.Client(ct.conn.Conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return newConnTransport(tlsConn, ct.conn.readTimeout, ct.conn.writeTimeout), nil
}

func readFull(conn net.Conn, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := conn.Read(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
