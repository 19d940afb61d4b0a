package dap

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Data Types
// --------------------------------------------------------------------------

// DataType is the type tag carried by every Variable
type DataType uint8

const (
	TypeUnknown DataType = iota
	TypeByte
	TypeInt8
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeURL
	TypeOpaque
	TypeArray
	TypeStructure
	TypeSequence
)

var typeNames = map[DataType]string{
	TypeUnknown:   "Unknown",
	TypeByte:      "Byte",
	TypeInt8:      "Int8",
	TypeInt16:     "Int16",
	TypeUInt16:    "UInt16",
	TypeInt32:     "Int32",
	TypeUInt32:    "UInt32",
	TypeInt64:     "Int64",
	TypeUInt64:    "UInt64",
	TypeFloat32:   "Float32",
	TypeFloat64:   "Float64",
	TypeString:    "String",
	TypeURL:       "Url",
	TypeOpaque:    "Opaque",
	TypeArray:     "Array",
	TypeStructure: "Structure",
	TypeSequence:  "Sequence",
}

// String returns the name used for the type in DDS, DAS and DDX documents
func (t DataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// ParseDataType is the inverse of String. "URL" is accepted as an alias of "Url".
func ParseDataType(name string) (DataType, error) {
	if name == "URL" {
		return TypeURL, nil
	}
	for t, n := range typeNames {
		if n == name && t != TypeUnknown {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown data type %q", name)
}

// Width returns the number of bytes a single value of a fixed size type
// occupies in memory. Strings, URLs, opaque values and constructors return 0.
func (t DataType) Width() int {
	switch t {
	case TypeByte, TypeInt8:
		return 1
	case TypeInt16, TypeUInt16:
		return 2
	case TypeInt32, TypeUInt32, TypeFloat32:
		return 4
	case TypeInt64, TypeUInt64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsScalar reports whether the type is a simple (non constructor) type
func (t DataType) IsScalar() bool {
	return t >= TypeByte && t <= TypeOpaque
}

// IsNumeric reports whether the type is an integer or floating point type
func (t DataType) IsNumeric() bool {
	return t >= TypeByte && t <= TypeFloat64
}

// IsFloat reports whether the type is one of the two floating point types
func (t DataType) IsFloat() bool {
	return t == TypeFloat32 || t == TypeFloat64
}

// MarshalJSON writes the type by name
func (t DataType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads the type by name
func (t *DataType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseDataType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
