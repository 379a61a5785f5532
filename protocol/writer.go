package protocol

import (
	"encoding/binary"

	"github.com/vmihailenco/bufpool"
)

var writerPool bufpool.Pool

// nullParamLen is the wire encoding of a NULL bind parameter: a length of
// -1 and zero payload bytes.
const nullParamLen = int32(-1)

// Writer accumulates one or more framed client messages into a single
// contiguous byte slice. StartMessage/FinishMessage (and the Param variants,
// used for Bind's parameter values) back-patch the 4-byte big-endian length
// prefix once the payload is known.
type Writer struct {
	buf   *bufpool.Buffer
	start []int
}

// NewWriter returns a Writer backed by a pooled buffer. Callers must call
// Release when done to return the buffer to the pool.
func NewWriter() *Writer {
	return &Writer{buf: writerPool.Get()}
}

// Release returns the underlying buffer to the pool. The Writer must not be
// used afterwards.
func (w *Writer) Release() {
	writerPool.Put(w.buf)
	w.buf = nil
}

// Bytes returns the accumulated message bytes. All StartMessage calls must
// have a matching FinishMessage before Bytes is called.
func (w *Writer) Bytes() []byte {
	if len(w.start) != 0 {
		panic("protocol: message was not finished")
	}
	return w.buf.Bytes()
}

// Reset discards accumulated bytes so the Writer can be reused.
func (w *Writer) Reset() {
	w.start = w.start[:0]
	w.buf.Reset()
}

// StartMessage opens a framed message. Pass 0 for StartupMessage, which has
// no leading tag byte.
func (w *Writer) StartMessage(tag msgType) {
	b := w.buf.Bytes()
	if tag == 0 {
		w.start = append(w.start, len(b))
		w.buf.Write([]byte{0, 0, 0, 0})
	} else {
		w.start = append(w.start, len(b)+1)
		w.buf.Write([]byte{byte(tag), 0, 0, 0, 0})
	}
}

func (w *Writer) popStart() int {
	n := len(w.start) - 1
	start := w.start[n]
	w.start = w.start[:n]
	return start
}

// FinishMessage patches the length prefix of the most recently started
// message, including the length field itself.
func (w *Writer) FinishMessage() {
	start := w.popStart()
	b := w.buf.Bytes()
	binary.BigEndian.PutUint32(b[start:], uint32(len(b)-start))
}

// StartParam opens a Bind parameter value, whose length prefix (4 bytes)
// does not itself count toward the length.
func (w *Writer) StartParam() {
	w.StartMessage(0)
}

// FinishParam patches a parameter's length prefix, excluding the prefix
// itself.
func (w *Writer) FinishParam() {
	start := w.popStart()
	b := w.buf.Bytes()
	binary.BigEndian.PutUint32(b[start:], uint32(len(b)-start-4))
}

// FinishNullParam marks the just-started parameter as SQL NULL: length -1,
// zero payload bytes. Callers must not have written any payload bytes since
// the matching StartParam.
func (w *Writer) FinishNullParam() {
	start := w.popStart()
	b := w.buf.Bytes()
	n := nullParamLen
	binary.BigEndian.PutUint32(b[start:], uint32(n))
}

func (w *Writer) WriteByte(c byte) {
	w.buf.Write([]byte{c})
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) WriteInt16(n int16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(n))
	w.buf.Write(b[:])
}

func (w *Writer) WriteInt32(n int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	w.buf.Write(b[:])
}

// WriteString writes a NUL-terminated string.
func (w *Writer) WriteString(s string) {
	w.buf.Write([]byte(s))
	w.buf.Write([]byte{0})
}
