package dap

// --------------------------------------------------------------------------
// Variable
// --------------------------------------------------------------------------

// Variable is a single named, typed value (or container of values) in a
// dataset. Datasets are ordered sequences of variables.
type Variable interface {
	// Name returns the (unqualified) name of the variable
	Name() string
	// SetName renames the variable
	SetName(name string)
	// Type returns the type tag of the variable
	Type() DataType
	// Attributes returns the attribute table of the variable, never nil
	Attributes() *AttrTable
	// IsSelected returns whether the variable is selected for output
	IsSelected() bool
	// SetSelected selects or deselects the variable. Containers do not
	// propagate the flag to their fields, see SelectAll for that.
	SetSelected(selected bool)
	// IsRead returns whether the values of the variable are already present
	IsRead() bool
	// SetRead sets the read flag
	SetRead(read bool)
	// Serialize writes the (constrained) value through a marshaller
	Serialize(m IMarshaller) error
	// Deserialize reads the (constrained) value through an un-marshaller
	Deserialize(u IUnMarshaller) error
	// Width returns the size of the value in bytes. If constrained is set
	// only selected parts and hyperslabs are taken into account.
	Width(constrained bool) int64
	// Clone returns a deep copy of the variable
	Clone() Variable
}

// Container is implemented by the constructor types Structure and Sequence
type Container interface {
	Variable
	// Fields returns the member variables in declaration order
	Fields() []Variable
	// Field returns the member with the given name or nil
	Field(name string) Variable
}

// --------------------------------------------------------------------------
// Marshaller
// --------------------------------------------------------------------------

// IMarshaller writes values onto a wire. Implementations live in the
// rpc/serializer package.
//
// Vector values are typed slices ([]uint8, []int8, []int16, []uint16, []int32,
// []uint32, []int64, []uint64, []float32, []float64 or []string) whose element
// type matches the given DataType.
type IMarshaller interface {
	PutByte(v uint8) error
	PutInt8(v int8) error
	PutInt16(v int16) error
	PutUInt16(v uint16) error
	PutInt32(v int32) error
	PutUInt32(v uint32) error
	PutInt64(v int64) error
	PutUInt64(v uint64) error
	PutFloat32(v float32) error
	PutFloat64(v float64) error
	PutStr(v string) error
	PutURL(v string) error
	PutOpaque(v []byte) error
	// PutVector writes a vector whose length is known to the reader
	PutVector(values any, elemType DataType) error
	// PutVaryingVector writes a vector preceded by its length
	PutVaryingVector(values any, elemType DataType) error
	// Flush writes any buffered bytes to the underlying sink
	Flush() error
}

// IChecksumMarshaller is a marshaller with a running checksum over the bytes
// it writes.
type IChecksumMarshaller interface {
	IMarshaller
	// ResetChecksum starts a fresh, independent digest
	ResetChecksum()
	// ChecksumUpdate feeds bytes to the digest. It fails once the digest was finalized.
	ChecksumUpdate(b []byte) error
	// GetChecksum finalizes the digest and returns it as lowercase hex
	GetChecksum() (string, error)
	// PutChecksum finalizes the digest and writes its raw bytes
	PutChecksum() error
	// SetWriteData switches between writing data (true) and only updating the digest (false)
	SetWriteData(write bool)
}

// IUnMarshaller reads values written by the matching IMarshaller
type IUnMarshaller interface {
	GetByte() (uint8, error)
	GetInt8() (int8, error)
	GetInt16() (int16, error)
	GetUInt16() (uint16, error)
	GetInt32() (int32, error)
	GetUInt32() (uint32, error)
	GetInt64() (int64, error)
	GetUInt64() (uint64, error)
	GetFloat32() (float32, error)
	GetFloat64() (float64, error)
	GetStr() (string, error)
	GetURL() (string, error)
	GetOpaque() ([]byte, error)
	// GetVector reads count values of the given type
	GetVector(elemType DataType, count int) (any, error)
	// GetVaryingVector reads a length prefixed vector
	GetVaryingVector(elemType DataType) (any, error)
}

// IChecksumUnMarshaller is an un-marshaller that keeps a digest over the
// bytes it consumed.
type IChecksumUnMarshaller interface {
	IUnMarshaller
	// ResetChecksum starts a fresh digest over the following reads
	ResetChecksum()
	// VerifyChecksum reads a raw checksum from the stream and compares it
	// against the digest of the bytes consumed since the last reset.
	VerifyChecksum() error
}

// RowFilter decides whether a row of a sequence is sent
type RowFilter interface {
	MatchRow(seq *Sequence, row Row) (bool, error)
}
