package protocol

import "github.com/VyacheslavHashov/postgres-wire/protocol/pgerror"

// ServerMessage is any message the decoder may produce from the server's
// reply stream.
type ServerMessage interface {
	serverMessage()
}

type AuthenticationOk struct{}

func (AuthenticationOk) serverMessage() {}

type AuthenticationCleartextPassword struct{}

func (AuthenticationCleartextPassword) serverMessage() {}

// AuthenticationMD5Password carries the 4-byte salt used to derive the MD5
// challenge response.
type AuthenticationMD5Password struct {
	Salt [4]byte
}

func (AuthenticationMD5Password) serverMessage() {}

type AuthenticationGSS struct{}

func (AuthenticationGSS) serverMessage() {}

type AuthenticationSSPI struct{}

func (AuthenticationSSPI) serverMessage() {}

type AuthenticationGSSContinue struct {
	Data []byte
}

func (AuthenticationGSSContinue) serverMessage() {}

// AuthenticationSASL lists the mechanisms the server is willing to
// negotiate; this driver only ever accepts SCRAM-SHA-256.
type AuthenticationSASL struct {
	Mechanisms []string
}

func (AuthenticationSASL) serverMessage() {}

type AuthenticationSASLContinue struct {
	Data []byte
}

func (AuthenticationSASLContinue) serverMessage() {}

type AuthenticationSASLFinal struct {
	Data []byte
}

func (AuthenticationSASLFinal) serverMessage() {}

type BackendKeyData struct {
	ProcessID int32
	SecretKey int32
}

func (BackendKeyData) serverMessage() {}

type BindComplete struct{}

func (BindComplete) serverMessage() {}

type CloseComplete struct{}

func (CloseComplete) serverMessage() {}

// CommandComplete carries the raw command tag string; callers needing the
// parsed form call ParseCommandTag.
type CommandComplete struct {
	Tag string
}

func (CommandComplete) serverMessage() {}

// DataRow is one row of tabular data. A nil element denotes SQL NULL and
// corresponds to a -1 length on the wire.
type DataRow struct {
	Columns [][]byte
}

func (DataRow) serverMessage() {}

type EmptyQueryResponse struct{}

func (EmptyQueryResponse) serverMessage() {}

type ErrorResponse struct {
	Desc *pgerror.Desc
}

func (ErrorResponse) serverMessage() {}

type NoData struct{}

func (NoData) serverMessage() {}

type NoticeResponse struct {
	Desc *pgerror.Desc
}

func (NoticeResponse) serverMessage() {}

type NotificationResponse struct {
	PID     int32
	Channel string
	Payload string
}

func (NotificationResponse) serverMessage() {}

type ParameterDescription struct {
	Oids []uint32
}

func (ParameterDescription) serverMessage() {}

type ParameterStatus struct {
	Name  string
	Value string
}

func (ParameterStatus) serverMessage() {}

type ParseComplete struct{}

func (ParseComplete) serverMessage() {}

type PortalSuspended struct{}

func (PortalSuspended) serverMessage() {}

type ReadyForQuery struct {
	Status TransactionStatus
}

func (ReadyForQuery) serverMessage() {}

type RowDescription struct {
	Fields []FieldDescription
}

func (RowDescription) serverMessage() {}
