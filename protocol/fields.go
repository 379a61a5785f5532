package protocol

// FieldDescription describes one column of a RowDescription, as sent by the
// server in response to a Describe (portal or statement) or as part of a
// query's result set.
type FieldDescription struct {
	Name         string
	TableOid     uint32
	ColumnAttr   int16
	TypeOid      uint32
	TypeSize     int16
	TypeModifier int32
	Format       Format
}
