package pgwire

import (
	"fmt"

	"github.com/VyacheslavHashov/postgres-wire/protocol/pgerror"
)

// PostgresError wraps an ErrorResponse the server sent mid-session.
type PostgresError struct {
	Desc *pgerror.Desc
}

func (e *PostgresError) Error() string {
	return e.Desc.Error()
}

// AuthPostgresError wraps an ErrorResponse the server sent during
// authentication or startup.
type AuthPostgresError struct {
	Desc *pgerror.Desc
}

func (e *AuthPostgresError) Error() string {
	return fmt.Sprintf("pgwire: authentication failed: %s", e.Desc.Error())
}

// AuthNotSupported reports that the server selected an authentication
// method this driver cannot perform (GSS, SSPI, or a SASL mechanism other
// than SCRAM-SHA-256).
type AuthNotSupported struct {
	Name string
}

func (e *AuthNotSupported) Error() string {
	return fmt.Sprintf("pgwire: unsupported authentication method %q", e.Name)
}

// DecodeError wraps a malformed-frame or protocol-invariant violation
// surfaced by the codec or receiver.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pgwire: decode error: %s", e.Reason)
}

func newDecodeError(format string, args ...interface{}) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps a send/recv failure from the underlying transport.
// It is fatal to the connection: the receiver goroutine exits and future
// queue reads observe it.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pgwire: transport error: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errClosed is what fatal reports when a queue is closed and no receiver
// error was recorded. After Close, the receiver records the TransportError
// from its interrupted Recv, and queue reads return that error instead.
var errClosed = fmt.Errorf("pgwire: connection is closed")
