package protocol

// ClientMessage is any message the core may serialize onto the wire.
// Encode appends the message's framed bytes to w.
type ClientMessage interface {
	Encode(w *Writer)
}

// StartupMessage opens a session. It is the only client message with no
// leading tag byte.
type StartupMessage struct {
	User     string
	Database string
}

func (m *StartupMessage) Encode(w *Writer) {
	w.StartMessage(0)
	w.WriteInt32(startupProtocolVersion)
	w.WriteString("user")
	w.WriteString(m.User)
	w.WriteString("database")
	w.WriteString(m.Database)
	w.WriteByte(0)
	w.FinishMessage()
}

// sslRequest asks the server whether it will upgrade the connection to TLS.
// It predates the tagged message framing and is encoded the same way as
// StartupMessage: length-prefixed, no tag.
type sslRequest struct{}

func (sslRequest) Encode(w *Writer) {
	w.StartMessage(0)
	w.WriteInt32(sslRequestCode)
	w.FinishMessage()
}

// SSLRequest is the shared instance transport dialers use to probe TLS
// support before the protocol version handshake.
var SSLRequest ClientMessage = sslRequest{}

// PasswordMessage carries a cleartext or MD5-hashed password response,
// depending on which authentication request it answers. SASL exchanges use
// SASLInitialResponse and SASLResponse, which share its tag byte.
type PasswordMessage struct {
	Text string
}

func (m *PasswordMessage) Encode(w *Writer) {
	w.StartMessage(msgPasswordMessage)
	w.WriteString(m.Text)
	w.FinishMessage()
}

// SASLInitialResponse is the client's first SASL message, naming the chosen
// mechanism (SCRAM-SHA-256 here) and carrying its client-first-message.
type SASLInitialResponse struct {
	Mechanism string
	Data      []byte
}

func (m *SASLInitialResponse) Encode(w *Writer) {
	w.StartMessage(msgPasswordMessage)
	w.WriteString(m.Mechanism)
	if m.Data == nil {
		w.WriteInt32(-1)
	} else {
		w.WriteInt32(int32(len(m.Data)))
		w.WriteBytes(m.Data)
	}
	w.FinishMessage()
}

// SASLResponse carries a subsequent SASL message (client-final-message).
type SASLResponse struct {
	Data []byte
}

func (m *SASLResponse) Encode(w *Writer) {
	w.StartMessage(msgPasswordMessage)
	w.WriteBytes(m.Data)
	w.FinishMessage()
}

// SimpleQuery runs the simple query protocol: the server parses, binds, and
// executes sql directly, possibly as several ;-separated statements.
type SimpleQuery struct {
	SQL string
}

func (m *SimpleQuery) Encode(w *Writer) {
	w.StartMessage(msgSimpleQuery)
	w.WriteString(m.SQL)
	w.FinishMessage()
}

// Parse creates a prepared statement named StmtName (the empty string names
// the unnamed statement) from sql, with ParamOids declaring the type of
// each positional parameter (an element of 0 lets the server infer it).
type Parse struct {
	StmtName string
	SQL      string
	ParamOids []uint32
}

func (m *Parse) Encode(w *Writer) {
	w.StartMessage(msgParse)
	w.WriteString(m.StmtName)
	w.WriteString(m.SQL)
	w.WriteInt16(int16(len(m.ParamOids)))
	for _, oid := range m.ParamOids {
		w.WriteInt32(int32(oid))
	}
	w.FinishMessage()
}

// Bind binds a prepared statement to a named portal with concrete parameter
// values. A nil element of Values encodes SQL NULL. ParamFormat/ResultFormat
// apply to every parameter/result column: PostgreSQL allows per-parameter
// formats, but this driver always emits the compact single-format form.
type Bind struct {
	Portal       string
	Stmt         string
	ParamFormat  Format
	Values       [][]byte
	ResultFormat Format
}

func (m *Bind) Encode(w *Writer) {
	w.StartMessage(msgBind)
	w.WriteString(m.Portal)
	w.WriteString(m.Stmt)
	w.WriteInt16(1)
	w.WriteInt16(int16(m.ParamFormat))
	w.WriteInt16(int16(len(m.Values)))
	for _, v := range m.Values {
		w.StartParam()
		if v == nil {
			w.FinishNullParam()
			continue
		}
		w.WriteBytes(v)
		w.FinishParam()
	}
	w.WriteInt16(1)
	w.WriteInt16(int16(m.ResultFormat))
	w.FinishMessage()
}

// Execute runs a bound portal. MaxRows limits the number of rows returned
// before PortalSuspended; 0 means unlimited, which is all this driver ever
// sends.
type Execute struct {
	Portal  string
	MaxRows int32
}

func (m *Execute) Encode(w *Writer) {
	w.StartMessage(msgExecute)
	w.WriteString(m.Portal)
	w.WriteInt32(m.MaxRows)
	w.FinishMessage()
}

// DescribeStatement requests a prepared statement's parameter and result
// column metadata.
type DescribeStatement struct {
	Name string
}

func (m *DescribeStatement) Encode(w *Writer) {
	w.StartMessage(msgDescribe)
	w.WriteByte(targetStatement)
	w.WriteString(m.Name)
	w.FinishMessage()
}

// DescribePortal requests a bound portal's result column metadata.
type DescribePortal struct {
	Name string
}

func (m *DescribePortal) Encode(w *Writer) {
	w.StartMessage(msgDescribe)
	w.WriteByte(targetPortal)
	w.WriteString(m.Name)
	w.FinishMessage()
}

// CloseStatement releases a prepared statement.
type CloseStatement struct {
	Name string
}

func (m *CloseStatement) Encode(w *Writer) {
	w.StartMessage(msgClose)
	w.WriteByte(targetStatement)
	w.WriteString(m.Name)
	w.FinishMessage()
}

// ClosePortal releases a bound portal.
type ClosePortal struct {
	Name string
}

func (m *ClosePortal) Encode(w *Writer) {
	w.StartMessage(msgClose)
	w.WriteByte(targetPortal)
	w.WriteString(m.Name)
	w.FinishMessage()
}

// Flush asks the server to deliver any pending output without waiting for
// a Sync.
type Flush struct{}

func (Flush) Encode(w *Writer) {
	w.StartMessage(msgFlush)
	w.FinishMessage()
}

// Sync closes out an extended-query round, committing or rolling back an
// implicit transaction and triggering a ReadyForQuery reply.
type Sync struct{}

func (Sync) Encode(w *Writer) {
	w.StartMessage(msgSync)
	w.FinishMessage()
}

// Terminate closes the session gracefully.
type Terminate struct{}

func (Terminate) Encode(w *Writer) {
	w.StartMessage(msgTerminate)
	w.FinishMessage()
}
