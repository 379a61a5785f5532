package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(tag byte, payload []byte) []byte {
	b := make([]byte, 0, 5+len(payload))
	b = append(b, tag)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(4+len(payload)))
	b = append(b, lenBuf[:]...)
	b = append(b, payload...)
	return b
}

func cstr(s string) []byte {
	return append([]byte(s), 0)
}

func TestDecoderFeedsInArbitraryChunks(t *testing.T) {
	payload := append([]byte{}, cstr("INSERT 0 1")...)
	raw := frame('C', payload)

	dec := NewDecoder()

	// Feed one byte at a time; Next must report "need more" until the last
	// byte lands, then decode exactly once.
	var got ServerMessage
	for i := 0; i < len(raw); i++ {
		dec.Feed(raw[i : i+1])
		msg, ok, err := dec.Next()
		require.NoError(t, err)
		if i < len(raw)-1 {
			assert.False(t, ok)
			continue
		}
		assert.True(t, ok)
		got = msg
	}

	cc, ok := got.(CommandComplete)
	require.True(t, ok)
	assert.Equal(t, "INSERT 0 1", cc.Tag)
}

func TestDecoderHandlesTwoMessagesInOneChunk(t *testing.T) {
	dec := NewDecoder()
	// ParseComplete followed by ReadyForQuery, in a single chunk.
	dec.Feed(append(frame('1', nil), frame('Z', []byte{'I'})...))

	msg1, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, isParseComplete := msg1.(ParseComplete)
	assert.True(t, isParseComplete)

	msg2, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	rfq, ok := msg2.(ReadyForQuery)
	require.True(t, ok)
	assert.Equal(t, TransactionIdle, rfq.Status)

	_, ok, err = dec.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecoderDataRowWithNull(t *testing.T) {
	payload := make([]byte, 0)
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], 2)
	payload = append(payload, n[:]...)

	var l1 [4]byte
	binary.BigEndian.PutUint32(l1[:], 3)
	payload = append(payload, l1[:]...)
	payload = append(payload, "abc"...)

	var l2 [4]byte
	neg1 := int32(-1)
	binary.BigEndian.PutUint32(l2[:], uint32(neg1))
	payload = append(payload, l2[:]...)

	dec := NewDecoder()
	dec.Feed(frame('D', payload))

	msg, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	row := msg.(DataRow)
	require.Len(t, row.Columns, 2)
	assert.Equal(t, []byte("abc"), row.Columns[0])
	assert.Nil(t, row.Columns[1])
}

func dataRowPayload(cols ...string) []byte {
	payload := make([]byte, 0)
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(cols)))
	payload = append(payload, n[:]...)
	for _, c := range cols {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(c)))
		payload = append(payload, l[:]...)
		payload = append(payload, c...)
	}
	return payload
}

// TestDecoderTwoDataRowsInOneChunk guards against a decoder that hands the
// caller column slices aliasing its internal buffer: once more than one
// frame is buffered, decoding the first message must not let the internal
// slide-down compaction that runs before Next returns corrupt bytes the
// caller already received.
func TestDecoderTwoDataRowsInOneChunk(t *testing.T) {
	dec := NewDecoder()
	chunk := frame('D', dataRowPayload("1"))
	chunk = append(chunk, frame('D', dataRowPayload("2"))...)
	chunk = append(chunk, frame('C', cstr("SELECT 2"))...)
	dec.Feed(chunk)

	msg1, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	row1 := msg1.(DataRow)
	require.Len(t, row1.Columns, 1)
	assert.Equal(t, []byte("1"), row1.Columns[0])

	msg2, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	row2 := msg2.(DataRow)
	require.Len(t, row2.Columns, 1)
	assert.Equal(t, []byte("2"), row2.Columns[0])

	// row1's column bytes must still be intact after decoding row2 and the
	// trailing CommandComplete.
	assert.Equal(t, []byte("1"), row1.Columns[0])

	msg3, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	cc := msg3.(CommandComplete)
	assert.Equal(t, "SELECT 2", cc.Tag)
}

func TestDecoderErrorResponse(t *testing.T) {
	payload := []byte{'S'}
	payload = append(payload, cstr("ERROR")...)
	payload = append(payload, 'C')
	payload = append(payload, cstr("42601")...)
	payload = append(payload, 'M')
	payload = append(payload, cstr("syntax error")...)
	payload = append(payload, 0)

	dec := NewDecoder()
	dec.Feed(frame('E', payload))

	msg, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	er := msg.(ErrorResponse)
	assert.Equal(t, "42601", er.Desc.Code)
	assert.Equal(t, "syntax error", er.Desc.Message)
}

func TestDecoderUnknownAuthSubCode(t *testing.T) {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, 99)

	dec := NewDecoder()
	dec.Feed(frame('R', payload))

	_, _, err := dec.Next()
	assert.Error(t, err)
}

func TestDecoderRowDescription(t *testing.T) {
	payload := make([]byte, 0)
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], 1)
	payload = append(payload, n[:]...)
	payload = append(payload, cstr("id")...)

	field := make([]byte, 18)
	binary.BigEndian.PutUint32(field[0:4], 16384)
	binary.BigEndian.PutUint16(field[4:6], 1)
	binary.BigEndian.PutUint32(field[6:10], 23)
	binary.BigEndian.PutUint16(field[10:12], 4)
	binary.BigEndian.PutUint32(field[12:16], 0xffffffff)
	binary.BigEndian.PutUint16(field[16:18], uint16(FormatText))
	payload = append(payload, field...)

	dec := NewDecoder()
	dec.Feed(frame('T', payload))

	msg, ok, err := dec.Next()
	require.NoError(t, err)
	require.True(t, ok)
	rd := msg.(RowDescription)
	require.Len(t, rd.Fields, 1)
	assert.Equal(t, "id", rd.Fields[0].Name)
	assert.Equal(t, uint32(23), rd.Fields[0].TypeOid)
	assert.Equal(t, int32(-1), rd.Fields[0].TypeModifier)
}
