package pgwire

import (
	"github.com/golang/glog"

	"github.com/VyacheslavHashov/postgres-wire/protocol"
	"github.com/VyacheslavHashov/postgres-wire/protocol/pgerror"
)

// receive is the receiver goroutine's body. It owns the transport's read
// side exclusively from here on: it reads frames, accumulates DataRows
// into the in-flight DataMessage, and dispatches everything else per the
// filter/dispatch tables. A decode or transport failure is fatal to the
// connection: it is pushed onto dataQ as a terminal result and both queues
// are closed so blocked consumers observe it.
func (cn *Connection) receive() {
	defer close(cn.dataQ)
	defer close(cn.allQ)

	var accumulator []protocol.DataRow

	for {
		msg, err := cn.recvOne()
		if err != nil {
			cn.fatalErr.Store(err)
			cn.dataQ <- dataResult{err: err}
			return
		}

		switch m := msg.(type) {
		case protocol.DataRow:
			accumulator = append(accumulator, m)
			continue
		case protocol.CommandComplete:
			cn.dataQ <- dataResult{msg: &DataMessage{Rows: accumulator}}
			accumulator = nil
		case protocol.EmptyQueryResponse:
			cn.dataQ <- dataResult{msg: &DataMessage{Rows: accumulator}}
			accumulator = nil
		case protocol.ErrorResponse:
			cn.dataQ <- dataResult{err: &PostgresError{Desc: m.Desc}}
			accumulator = nil
		case protocol.NotificationResponse:
			cn.publishNotification(m)
		case protocol.PortalSuspended:
			// Ignored: the core always sends Execute with maxRows = 0.
		case protocol.NoticeResponse:
			logNotice(m.Desc)
		case protocol.ParameterStatus:
			cn.applyParameterStatus(m)
		}

		if admittedToControlChannel(msg) {
			cn.allQ <- msg
		}
	}
}

// admittedToControlChannel implements the filter table: only messages the
// request API needs to correlate barriers and describe-results reach allQ.
func admittedToControlChannel(msg protocol.ServerMessage) bool {
	switch msg.(type) {
	case protocol.ErrorResponse,
		protocol.NoData,
		protocol.ParameterDescription,
		protocol.ReadyForQuery,
		protocol.RowDescription:
		return true
	default:
		return false
	}
}

func logNotice(desc *pgerror.Desc) {
	if desc == nil {
		return
	}
	glog.V(1).Infof("pgwire: notice: %s: %s", desc.SeverityText, desc.Message)
}
