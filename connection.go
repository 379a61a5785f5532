package pgwire

import (
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/VyacheslavHashov/postgres-wire/protocol"
	"github.com/VyacheslavHashov/postgres-wire/transport"
)

// recvChunkSize is how many bytes the receiver asks the transport for on
// each Recv call.
const recvChunkSize = 4096

// ConnectionParameters holds the session parameters PostgreSQL reports
// during startup (and potentially afterward via ParameterStatus, which the
// receiver applies to the same fields).
type ConnectionParameters struct {
	ServerVersion    ServerVersion
	IntegerDatetimes bool
	ServerEncoding   string
}

// DataMessage groups all DataRows produced by one Execute, in receipt
// order.
type DataMessage struct {
	Rows []protocol.DataRow
}

// dataResult is the Either<Error, DataMessage> carried on dataQ.
type dataResult struct {
	msg *DataMessage
	err error
}

// NotificationResult is the value delivered to Notifications() when the
// server sends a NotificationResponse (LISTEN/NOTIFY payload delivery).
type NotificationResult struct {
	PID     int32
	Channel string
	Payload string
}

// Connection is the core session façade: it owns the transport, the
// receiver goroutine, the two outbound queues, session parameters, and an
// opaque caller-supplied StatementStorage handle.
type Connection struct {
	t   transport.Transport
	dec *protocol.Decoder

	sendMu sync.Mutex

	Params    ConnectionParameters
	ProcessID int32
	SecretKey int32

	Statements StatementStorage

	dataQ   chan dataResult
	allQ    chan protocol.ServerMessage
	notifyQ chan NotificationResult

	closeOnce sync.Once
	closed    chan struct{}
	fatalErr  atomic.Value
}

// fatal returns the error that ended the receiver goroutine, or errClosed
// if the connection was closed without the receiver ever failing.
func (cn *Connection) fatal() error {
	if v := cn.fatalErr.Load(); v != nil {
		return v.(error)
	}
	return errClosed
}

// Connect dials opt.Host:opt.Port, performs the wire startup and
// authentication handshake, and spawns the receiver goroutine. On success
// Params, ProcessID, and SecretKey are populated.
func Connect(opt *Options, statements StatementStorage) (*Connection, error) {
	opt = opt.withDefaults()

	t, err := transport.Dial(opt.Host, opt.Port, opt.DialTimeout, opt.ReadTimeout, opt.WriteTimeout)
	if err != nil {
		return nil, err
	}

	if opt.TLSMode == TLSRequired {
		w := protocol.NewWriter()
		protocol.SSLRequest.Encode(w)
		sslBytes := append([]byte(nil), w.Bytes()...)
		w.Release()

		upgraded, err := transport.UpgradeTLS(t, sslBytes, opt.TLSConfig)
		if err != nil {
			_ = t.Close()
			return nil, err
		}
		t = upgraded
	}

	cn := &Connection{
		t:          t,
		dec:        protocol.NewDecoder(),
		Statements: statements,
		dataQ:      make(chan dataResult, 16),
		allQ:       make(chan protocol.ServerMessage, 16),
		notifyQ:    make(chan NotificationResult, 16),
		closed:     make(chan struct{}),
	}

	if err := cn.startup(opt); err != nil {
		_ = t.Close()
		return nil, err
	}

	go cn.receive()

	return cn, nil
}

func (cn *Connection) send(msg protocol.ClientMessage) error {
	w := protocol.NewWriter()
	defer w.Release()
	msg.Encode(w)
	if err := cn.t.Send(w.Bytes()); err != nil {
		return &TransportError{Err: err}
	}
	if err := cn.t.Flush(); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// recvOne blocks until the decoder can produce one ServerMessage, pulling
// more bytes from the transport as needed. It is used both during startup
// (synchronously, before the receiver goroutine exists) and by the
// receiver loop, which owns the transport's read side exclusively
// thereafter.
func (cn *Connection) recvOne() (protocol.ServerMessage, error) {
	for {
		msg, ok, err := cn.dec.Next()
		if err != nil {
			return nil, &DecodeError{Reason: err.Error()}
		}
		if ok {
			return msg, nil
		}

		b, err := cn.t.Recv(recvChunkSize)
		if len(b) > 0 {
			cn.dec.Feed(b)
		}
		if err != nil {
			return nil, &TransportError{Err: err}
		}
	}
}

func (cn *Connection) startup(opt *Options) error {
	if err := cn.send(&protocol.StartupMessage{User: opt.User, Database: opt.Database}); err != nil {
		return err
	}

	for {
		msg, err := cn.recvOne()
		if err != nil {
			return err
		}

		switch m := msg.(type) {
		case protocol.BackendKeyData:
			cn.ProcessID = m.ProcessID
			cn.SecretKey = m.SecretKey
		case protocol.ParameterStatus:
			cn.applyParameterStatus(m)
		case protocol.ReadyForQuery:
			return nil
		case protocol.ErrorResponse:
			return &AuthPostgresError{Desc: m.Desc}
		default:
			if isAuthMessage(m) {
				if err := cn.authenticate(opt, m); err != nil {
					return err
				}
				continue
			}
			return newDecodeError("unexpected message %T during startup", msg)
		}
	}
}

func isAuthMessage(msg protocol.ServerMessage) bool {
	switch msg.(type) {
	case protocol.AuthenticationOk,
		protocol.AuthenticationCleartextPassword,
		protocol.AuthenticationMD5Password,
		protocol.AuthenticationGSS,
		protocol.AuthenticationSSPI,
		protocol.AuthenticationGSSContinue,
		protocol.AuthenticationSASL,
		protocol.AuthenticationSASLContinue,
		protocol.AuthenticationSASLFinal:
		return true
	default:
		return false
	}
}

func (cn *Connection) applyParameterStatus(m protocol.ParameterStatus) {
	switch m.Name {
	case "server_version":
		cn.Params.ServerVersion = parseServerVersion(m.Value)
	case "integer_datetimes":
		cn.Params.IntegerDatetimes = parseIntegerDatetimes(m.Value)
	case "server_encoding":
		cn.Params.ServerEncoding = m.Value
	}
}

// Close terminates the session: it sends Terminate and closes the transport,
// which unblocks the receiver's pending Recv. It returns without waiting for
// the receiver goroutine to exit. Close is idempotent.
func (cn *Connection) Close() error {
	var closeErr error
	cn.closeOnce.Do(func() {
		cn.sendMu.Lock()
		_ = cn.send(&protocol.Terminate{})
		cn.sendMu.Unlock()
		closeErr = cn.t.Close()
		close(cn.closed)
	})
	return closeErr
}

// Notifications returns the channel NotificationResponse payloads are
// delivered on. The core does not filter or route them; it is reserved for
// a future notification-dispatch layer.
func (cn *Connection) Notifications() <-chan NotificationResult {
	return cn.notifyQ
}

func (cn *Connection) publishNotification(m protocol.NotificationResponse) {
	select {
	case cn.notifyQ <- NotificationResult{PID: m.PID, Channel: m.Channel, Payload: m.Payload}:
	default:
		glog.Warningf("pgwire: dropping notification on channel %q: consumer not keeping up", m.Channel)
	}
}
