package pgwire

import (
	"github.com/VyacheslavHashov/postgres-wire/protocol"
)

// Query is one statement of an extended-query batch: the SQL text, its
// positional parameter type oids (0 lets the server infer), the already-
// encoded parameter values (a nil element is SQL NULL), and the wire
// format to use for parameters and result columns.
type Query struct {
	SQL          string
	ParamOids    []uint32
	Values       [][]byte
	ParamFormat  protocol.Format
	ResultFormat protocol.Format
}

// SendSimpleQuery runs sql through the simple query protocol: the server
// parses, binds, and executes it directly, possibly as several statements.
func (cn *Connection) SendSimpleQuery(sql string) error {
	cn.sendMu.Lock()
	defer cn.sendMu.Unlock()
	return cn.send(&protocol.SimpleQuery{SQL: sql})
}

// SendBatch emits Parse/Bind/Execute for each query using the unnamed
// statement and portal, without a trailing Sync.
func (cn *Connection) SendBatch(queries []Query) error {
	cn.sendMu.Lock()
	defer cn.sendMu.Unlock()

	for _, q := range queries {
		if err := cn.send(&protocol.Parse{SQL: q.SQL, ParamOids: q.ParamOids}); err != nil {
			return err
		}
		if err := cn.send(&protocol.Bind{
			ParamFormat:  q.ParamFormat,
			Values:       q.Values,
			ResultFormat: q.ResultFormat,
		}); err != nil {
			return err
		}
		if err := cn.send(&protocol.Execute{MaxRows: 0}); err != nil {
			return err
		}
	}
	return nil
}

// SendSync emits the Sync barrier.
func (cn *Connection) SendSync() error {
	cn.sendMu.Lock()
	defer cn.sendMu.Unlock()
	return cn.send(&protocol.Sync{})
}

// SendFlush emits the Flush barrier.
func (cn *Connection) SendFlush() error {
	cn.sendMu.Lock()
	defer cn.sendMu.Unlock()
	return cn.send(&protocol.Flush{})
}

// SendBatchAndSync is SendBatch followed by SendSync.
func (cn *Connection) SendBatchAndSync(queries []Query) error {
	cn.sendMu.Lock()
	defer cn.sendMu.Unlock()

	for _, q := range queries {
		if err := cn.send(&protocol.Parse{SQL: q.SQL, ParamOids: q.ParamOids}); err != nil {
			return err
		}
		if err := cn.send(&protocol.Bind{
			ParamFormat:  q.ParamFormat,
			Values:       q.Values,
			ResultFormat: q.ResultFormat,
		}); err != nil {
			return err
		}
		if err := cn.send(&protocol.Execute{MaxRows: 0}); err != nil {
			return err
		}
	}
	return cn.send(&protocol.Sync{})
}

// ReadNextData dequeues the next data-channel entry: either the next
// Execute's accumulated DataMessage, or the PostgresError that terminated
// it. It blocks until an entry is available.
func (cn *Connection) ReadNextData() (*DataMessage, error) {
	res, ok := <-cn.dataQ
	if !ok {
		return nil, cn.fatal()
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.msg, nil
}

// ReadReadyForQuery drains the control channel until ReadyForQuery is
// observed, closing out one Sync barrier. If any ErrorResponse was seen in
// the drained prefix, it returns the first one as a PostgresError;
// otherwise nil.
func (cn *Connection) ReadReadyForQuery() error {
	var firstErr error
	for {
		msg, ok := <-cn.allQ
		if !ok {
			return cn.fatal()
		}
		switch m := msg.(type) {
		case protocol.ErrorResponse:
			if firstErr == nil {
				firstErr = &PostgresError{Desc: m.Desc}
			}
		case protocol.ReadyForQuery:
			return firstErr
		}
	}
}

// DescribeResult is the parsed result of DescribeStatement.
type DescribeResult struct {
	ParamOids []uint32
	Fields    []protocol.FieldDescription
}

// DescribeStatement prepares sql as the unnamed statement, describes it,
// and syncs, returning its parameter oids and, if it produces rows, its
// result column descriptions. A statement with no result set (e.g. a DDL
// or SET command) returns a nil Fields slice.
func (cn *Connection) DescribeStatement(sql string) (*DescribeResult, error) {
	cn.sendMu.Lock()
	err := func() error {
		if err := cn.send(&protocol.Parse{SQL: sql}); err != nil {
			return err
		}
		if err := cn.send(&protocol.DescribeStatement{}); err != nil {
			return err
		}
		return cn.send(&protocol.Sync{})
	}()
	cn.sendMu.Unlock()
	if err != nil {
		return nil, err
	}

	var result DescribeResult
	var firstErr error
	haveParams := false

	for {
		msg, ok := <-cn.allQ
		if !ok {
			return nil, cn.fatal()
		}
		switch m := msg.(type) {
		case protocol.ParameterDescription:
			result.ParamOids = m.Oids
			haveParams = true
		case protocol.RowDescription:
			result.Fields = m.Fields
		case protocol.NoData:
			// No result set; Fields stays nil.
		case protocol.ErrorResponse:
			if firstErr == nil {
				firstErr = &PostgresError{Desc: m.Desc}
			}
		case protocol.ReadyForQuery:
			if firstErr != nil {
				return nil, firstErr
			}
			if !haveParams {
				return nil, newDecodeError("describeStatement: missing ParameterDescription")
			}
			return &result, nil
		}
	}
}
