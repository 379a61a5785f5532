// Package pgerror parses the structured ErrorResponse/NoticeResponse field
// payload PostgreSQL sends: a sequence of (1-byte key, NUL-terminated
// value) records terminated by a lone NUL.
package pgerror

import (
	"bytes"
	"fmt"
)

// Severity classifies an ErrorResponse/NoticeResponse by its "S"/"V" field.
type Severity int

const (
	UnknownSeverity Severity = iota
	SeverityError
	SeverityFatal
	SeverityPanic
	SeverityWarning
	SeverityNotice
	SeverityDebug
	SeverityInfo
	SeverityLog
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	case SeverityPanic:
		return "PANIC"
	case SeverityWarning:
		return "WARNING"
	case SeverityNotice:
		return "NOTICE"
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityLog:
		return "LOG"
	default:
		return "UNKNOWN"
	}
}

func parseSeverity(s string) Severity {
	switch s {
	case "ERROR":
		return SeverityError
	case "FATAL":
		return SeverityFatal
	case "PANIC":
		return SeverityPanic
	case "WARNING":
		return SeverityWarning
	case "NOTICE":
		return SeverityNotice
	case "DEBUG":
		return SeverityDebug
	case "INFO":
		return SeverityInfo
	case "LOG":
		return SeverityLog
	default:
		return UnknownSeverity
	}
}

// Desc holds the fields of one ErrorResponse or NoticeResponse, shared
// because the two messages use the same field codec.
type Desc struct {
	Severity Severity
	// SeverityText is the raw "S"/"V" string, kept alongside the parsed
	// Severity for diagnostics and for values PostgreSQL may add later.
	SeverityText string
	Code         string
	Message      string

	Detail           string
	Hint             string
	Position         int
	InternalPosition int
	InternalQuery    string
	Where            string
	Schema           string
	Table            string
	Column           string
	DataType         string
	Constraint       string
	File             string
	Line             int
	Routine          string
}

func (d *Desc) Error() string {
	return fmt.Sprintf("pg: %s: %s (%s)", d.SeverityText, d.Message, d.Code)
}

// field keys, per the PostgreSQL protocol's ErrorResponse/NoticeResponse.
const (
	keySeverityLocalized = byte('S')
	keySeverity          = byte('V')
	keyCode              = byte('C')
	keyMessage           = byte('M')
	keyDetail            = byte('D')
	keyHint              = byte('H')
	keyPosition          = byte('P')
	keyInternalPosition  = byte('p')
	keyInternalQuery     = byte('q')
	keyWhere             = byte('W')
	keySchema            = byte('s')
	keyTable             = byte('t')
	keyColumn            = byte('c')
	keyDataType          = byte('d')
	keyConstraint        = byte('n')
	keyFile              = byte('F')
	keyLine              = byte('L')
	keyRoutine           = byte('R')
)

// ParsePayload decodes the raw ErrorResponse/NoticeResponse payload: a
// sequence of (1-byte key, NUL-terminated value) records terminated by a
// lone NUL byte.
func ParsePayload(payload []byte) (*Desc, error) {
	fields := make(map[byte]string)
	for len(payload) > 0 {
		key := payload[0]
		payload = payload[1:]
		if key == 0 {
			break
		}
		i := bytes.IndexByte(payload, 0)
		if i < 0 {
			return nil, fmt.Errorf("pgerror: unterminated field %q", key)
		}
		fields[key] = string(payload[:i])
		payload = payload[i+1:]
	}
	return ParseFields(fields)
}

// ParseFields builds a Desc from ErrorResponse/NoticeResponse field values
// already split out and keyed by their 1-byte field code (as ParsePayload
// does). It returns an error if a mandatory field is missing or an integer
// field fails to parse.
func ParseFields(fields map[byte]string) (*Desc, error) {
	d := &Desc{}

	localized, hasLocalized := fields[keySeverityLocalized]
	unlocalized, hasUnlocalized := fields[keySeverity]
	switch {
	case hasUnlocalized:
		d.SeverityText = unlocalized
	case hasLocalized:
		d.SeverityText = localized
	default:
		return nil, fmt.Errorf("pgerror: missing mandatory severity field")
	}
	d.Severity = parseSeverity(d.SeverityText)

	code, ok := fields[keyCode]
	if !ok {
		return nil, fmt.Errorf("pgerror: missing mandatory code field")
	}
	d.Code = code

	msg, ok := fields[keyMessage]
	if !ok {
		return nil, fmt.Errorf("pgerror: missing mandatory message field")
	}
	d.Message = msg

	d.Detail = fields[keyDetail]
	d.Hint = fields[keyHint]
	d.InternalQuery = fields[keyInternalQuery]
	d.Where = fields[keyWhere]
	d.Schema = fields[keySchema]
	d.Table = fields[keyTable]
	d.Column = fields[keyColumn]
	d.DataType = fields[keyDataType]
	d.Constraint = fields[keyConstraint]
	d.File = fields[keyFile]
	d.Routine = fields[keyRoutine]

	var err error
	if s, ok := fields[keyPosition]; ok {
		if d.Position, err = parseIntField('P', s); err != nil {
			return nil, err
		}
	}
	if s, ok := fields[keyInternalPosition]; ok {
		if d.InternalPosition, err = parseIntField('p', s); err != nil {
			return nil, err
		}
	}
	if s, ok := fields[keyLine]; ok {
		if d.Line, err = parseIntField('L', s); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func parseIntField(key byte, s string) (int, error) {
	n := 0
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("pgerror: malformed integer in field %q: %q", key, s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
