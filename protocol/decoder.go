package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/VyacheslavHashov/postgres-wire/protocol/pgerror"
)

// frameHeaderLen is the tag byte plus the 4-byte big-endian length prefix.
const frameHeaderLen = 1 + 4

// Decoder is a streaming parser for the server reply stream. It tolerates
// arbitrary chunk boundaries: Feed appends whatever the transport handed
// back, and Next is called repeatedly until it reports that more bytes are
// needed. Decoder never blocks and never reads past a message's declared
// length.
type Decoder struct {
	buf []byte // unconsumed bytes, oldest first
}

// NewDecoder returns an empty streaming decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends newly-received bytes to the decoder's buffer.
func (d *Decoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Next attempts to parse one ServerMessage from the buffered bytes. It
// returns (nil, false, nil) if the buffer does not yet hold a complete
// frame — the caller should Feed more bytes and retry. A non-nil error is
// fatal to the decoder's stream.
func (d *Decoder) Next() (msg ServerMessage, ok bool, err error) {
	if len(d.buf) < frameHeaderLen {
		return nil, false, nil
	}

	tag := msgType(d.buf[0])
	payloadLen := int(binary.BigEndian.Uint32(d.buf[1:5])) - 4
	if payloadLen < 0 {
		return nil, false, fmt.Errorf("protocol: negative message length for tag %q", byte(tag))
	}

	total := frameHeaderLen + payloadLen
	if len(d.buf) < total {
		return nil, false, nil
	}

	payload := d.buf[frameHeaderLen:total]
	msg, err = decodeMessage(tag, payload)
	if err != nil {
		return nil, false, err
	}

	// Slide the consumed frame out of the buffer.
	remaining := len(d.buf) - total
	copy(d.buf, d.buf[total:])
	d.buf = d.buf[:remaining]

	return msg, true, nil
}

func decodeMessage(tag msgType, payload []byte) (ServerMessage, error) {
	switch tag {
	case msgBackendKeyData:
		if len(payload) != 8 {
			return nil, fmt.Errorf("protocol: malformed BackendKeyData (len=%d)", len(payload))
		}
		return BackendKeyData{
			ProcessID: int32(binary.BigEndian.Uint32(payload[0:4])),
			SecretKey: int32(binary.BigEndian.Uint32(payload[4:8])),
		}, nil
	case msgBindComplete:
		return BindComplete{}, nil
	case msgCloseComplete:
		return CloseComplete{}, nil
	case msgParseComplete:
		return ParseComplete{}, nil
	case msgCommandComplete:
		tagStr, err := readCString(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: malformed CommandComplete: %w", err)
		}
		return CommandComplete{Tag: tagStr}, nil
	case msgDataRow:
		return decodeDataRow(payload)
	case msgEmptyQueryResponse:
		return EmptyQueryResponse{}, nil
	case msgErrorResponse:
		desc, err := pgerror.ParsePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: malformed ErrorResponse: %w", err)
		}
		return ErrorResponse{Desc: desc}, nil
	case msgNoData:
		return NoData{}, nil
	case msgNoticeResponse:
		desc, err := pgerror.ParsePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: malformed NoticeResponse: %w", err)
		}
		return NoticeResponse{Desc: desc}, nil
	case msgNotificationResponse:
		return decodeNotificationResponse(payload)
	case msgParameterDescription:
		return decodeParameterDescription(payload)
	case msgParameterStatus:
		return decodeParameterStatus(payload)
	case msgPortalSuspended:
		return PortalSuspended{}, nil
	case msgReadyForQuery:
		if len(payload) != 1 {
			return nil, fmt.Errorf("protocol: malformed ReadyForQuery (len=%d)", len(payload))
		}
		status := TransactionStatus(payload[0])
		switch status {
		case TransactionIdle, TransactionInBlock, TransactionFailed:
		default:
			return nil, fmt.Errorf("protocol: unknown transaction status %q", payload[0])
		}
		return ReadyForQuery{Status: status}, nil
	case msgRowDescription:
		return decodeRowDescription(payload)
	case msgAuthentication:
		return decodeAuthentication(payload)
	default:
		return nil, fmt.Errorf("protocol: unknown server message tag %q", byte(tag))
	}
}

func readCString(b []byte) (string, error) {
	i := indexNUL(b)
	if i < 0 {
		return "", fmt.Errorf("missing NUL terminator")
	}
	return string(b[:i]), nil
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

func decodeDataRow(payload []byte) (ServerMessage, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("malformed DataRow header")
	}
	n := int(binary.BigEndian.Uint16(payload[0:2]))
	payload = payload[2:]
	cols := make([][]byte, n)
	for i := 0; i < n; i++ {
		if len(payload) < 4 {
			return nil, fmt.Errorf("malformed DataRow column %d length", i)
		}
		l := int32(binary.BigEndian.Uint32(payload[0:4]))
		payload = payload[4:]
		if l == -1 {
			cols[i] = nil
			continue
		}
		if l < 0 || int(l) > len(payload) {
			return nil, fmt.Errorf("malformed DataRow column %d: length %d exceeds payload", i, l)
		}
		cols[i] = append([]byte(nil), payload[:l]...)
		payload = payload[l:]
	}
	return DataRow{Columns: cols}, nil
}

func decodeNotificationResponse(payload []byte) (ServerMessage, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("malformed NotificationResponse header")
	}
	pid := int32(binary.BigEndian.Uint32(payload[0:4]))
	rest := payload[4:]
	i := indexNUL(rest)
	if i < 0 {
		return nil, fmt.Errorf("malformed NotificationResponse channel")
	}
	channel := string(rest[:i])
	rest = rest[i+1:]
	j := indexNUL(rest)
	if j < 0 {
		return nil, fmt.Errorf("malformed NotificationResponse payload")
	}
	return NotificationResponse{PID: pid, Channel: channel, Payload: string(rest[:j])}, nil
}

func decodeParameterDescription(payload []byte) (ServerMessage, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("malformed ParameterDescription header")
	}
	n := int(binary.BigEndian.Uint16(payload[0:2]))
	payload = payload[2:]
	if len(payload) != n*4 {
		return nil, fmt.Errorf("malformed ParameterDescription: expected %d oids", n)
	}
	oids := make([]uint32, n)
	for i := 0; i < n; i++ {
		oids[i] = binary.BigEndian.Uint32(payload[i*4 : i*4+4])
	}
	return ParameterDescription{Oids: oids}, nil
}

func decodeParameterStatus(payload []byte) (ServerMessage, error) {
	i := indexNUL(payload)
	if i < 0 {
		return nil, fmt.Errorf("malformed ParameterStatus name")
	}
	name := string(payload[:i])
	rest := payload[i+1:]
	j := indexNUL(rest)
	if j < 0 {
		return nil, fmt.Errorf("malformed ParameterStatus value")
	}
	return ParameterStatus{Name: name, Value: string(rest[:j])}, nil
}

func decodeRowDescription(payload []byte) (ServerMessage, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("malformed RowDescription header")
	}
	n := int(binary.BigEndian.Uint16(payload[0:2]))
	payload = payload[2:]
	fields := make([]FieldDescription, n)
	for i := 0; i < n; i++ {
		k := indexNUL(payload)
		if k < 0 {
			return nil, fmt.Errorf("malformed RowDescription field %d name", i)
		}
		name := string(payload[:k])
		payload = payload[k+1:]
		if len(payload) < 18 {
			return nil, fmt.Errorf("malformed RowDescription field %d", i)
		}
		fields[i] = FieldDescription{
			Name:         name,
			TableOid:     binary.BigEndian.Uint32(payload[0:4]),
			ColumnAttr:   int16(binary.BigEndian.Uint16(payload[4:6])),
			TypeOid:      binary.BigEndian.Uint32(payload[6:10]),
			TypeSize:     int16(binary.BigEndian.Uint16(payload[10:12])),
			TypeModifier: int32(binary.BigEndian.Uint32(payload[12:16])),
			Format:       Format(int16(binary.BigEndian.Uint16(payload[16:18]))),
		}
		payload = payload[18:]
	}
	return RowDescription{Fields: fields}, nil
}

func decodeAuthentication(payload []byte) (ServerMessage, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("malformed Authentication message header")
	}
	code := int32(binary.BigEndian.Uint32(payload[0:4]))
	rest := payload[4:]
	switch code {
	case authOk:
		return AuthenticationOk{}, nil
	case authCleartextPassword:
		return AuthenticationCleartextPassword{}, nil
	case authMD5Password:
		if len(rest) != 4 {
			return nil, fmt.Errorf("malformed AuthenticationMD5Password salt")
		}
		var salt [4]byte
		copy(salt[:], rest)
		return AuthenticationMD5Password{Salt: salt}, nil
	case authGSS:
		return AuthenticationGSS{}, nil
	case authSSPI:
		return AuthenticationSSPI{}, nil
	case authGSSContinue:
		data := make([]byte, len(rest))
		copy(data, rest)
		return AuthenticationGSSContinue{Data: data}, nil
	case authSASL:
		mechanisms, err := decodeSASLMechanisms(rest)
		if err != nil {
			return nil, err
		}
		return AuthenticationSASL{Mechanisms: mechanisms}, nil
	case authSASLContinue:
		data := make([]byte, len(rest))
		copy(data, rest)
		return AuthenticationSASLContinue{Data: data}, nil
	case authSASLFinal:
		data := make([]byte, len(rest))
		copy(data, rest)
		return AuthenticationSASLFinal{Data: data}, nil
	default:
		return nil, fmt.Errorf("protocol: unknown authentication sub-code %d", code)
	}
}

func decodeSASLMechanisms(b []byte) ([]string, error) {
	var mechanisms []string
	for len(b) > 0 {
		if b[0] == 0 {
			break
		}
		i := indexNUL(b)
		if i < 0 {
			return nil, fmt.Errorf("malformed AuthenticationSASL mechanism list")
		}
		mechanisms = append(mechanisms, string(b[:i]))
		b = b[i+1:]
	}
	return mechanisms, nil
}
