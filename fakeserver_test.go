package pgwire_test

import (
	"encoding/binary"
	"io"
	"net"
)

// frame builds a raw server-message frame: a one-byte tag followed by the
// 4-byte big-endian length (including itself) and the payload.
func frame(tag byte, payload []byte) []byte {
	b := make([]byte, 0, 5+len(payload))
	b = append(b, tag)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(4+len(payload)))
	b = append(b, lenBuf[:]...)
	return append(b, payload...)
}

func cstr(s string) []byte {
	return append([]byte(s), 0)
}

func int32be(n int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	return b[:]
}

func int16be(n int16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(n))
	return b[:]
}

// readFrame reads one tagged frame off conn: a tag byte, a 4-byte big-endian
// length (including itself), and the remaining payload.
func readFrame(conn net.Conn) (tag byte, payload []byte, err error) {
	hdr := make([]byte, 5)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		return 0, nil, err
	}
	tag = hdr[0]
	n := int(binary.BigEndian.Uint32(hdr[1:5])) - 4
	payload = make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return 0, nil, err
		}
	}
	return tag, payload, nil
}

// readUntaggedFrame reads a length-prefixed, tag-less frame (StartupMessage
// or SSLRequest probe): a 4-byte big-endian length (including itself)
// followed by the payload.
func readUntaggedFrame(conn net.Conn) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint32(lenBuf)) - 4
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// startFakeServer listens on loopback TCP and runs handle for the one
// connection it accepts, returning the address to dial. handle runs in its
// own goroutine and should close conn when done.
func startFakeServer(handle func(conn net.Conn)) (addr string, stop func(), err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		handle(conn)
	}()
	return ln.Addr().String(), func() { _ = ln.Close() }, nil
}
