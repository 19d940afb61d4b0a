package dap

import "fmt"

// Scalar is a variable holding a single value of a simple type
type Scalar struct {
	base
	value any
}

// NewScalar creates a scalar of type t. The value is converted with Coerce;
// a nil value leaves the zero value of the type.
func NewScalar(name string, t DataType, value any) (*Scalar, error) {
	if !t.IsScalar() {
		return nil, fmt.Errorf("%s is not a scalar type", t)
	}
	s := &Scalar{base: newBase(name, t)}
	if value == nil {
		value = zeroValue(t)
	}
	if err := s.SetValue(value); err != nil {
		return nil, err
	}
	return s, nil
}

// MustScalar is NewScalar for values known to be valid; it panics on error.
func MustScalar(name string, t DataType, value any) *Scalar {
	s, err := NewScalar(name, t, value)
	if err != nil {
		panic(err)
	}
	return s
}

// Value returns the current value
func (s *Scalar) Value() any {
	return s.value
}

// SetValue converts and stores a new value and marks the variable as read
func (s *Scalar) SetValue(v any) error {
	c, err := Coerce(s.typ, v)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	s.value = c
	s.read = true
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see dap.Variable)
// --------------------------------------------------------------------------

func (s *Scalar) Serialize(m IMarshaller) error {
	return putScalar(m, s.typ, s.value)
}

func (s *Scalar) Deserialize(u IUnMarshaller) error {
	v, err := getScalar(u, s.typ)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	s.value = v
	s.read = true
	return nil
}

func (s *Scalar) Width(_ bool) int64 {
	return scalarWidth(s.typ, s.value)
}

func (s *Scalar) Clone() Variable {
	c := &Scalar{base: s.cloneBase(), value: s.value}
	if b, ok := s.value.([]byte); ok {
		c.value = append([]byte(nil), b...)
	}
	return c
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func zeroValue(t DataType) any {
	switch t {
	case TypeString, TypeURL:
		return ""
	case TypeOpaque:
		return []byte{}
	default:
		return 0
	}
}

func scalarWidth(t DataType, v any) int64 {
	switch t {
	case TypeString, TypeURL:
		s, _ := v.(string)
		return int64(len(s))
	case TypeOpaque:
		b, _ := v.([]byte)
		return int64(len(b))
	default:
		return int64(t.Width())
	}
}

// putScalar writes a single value that was produced by Coerce
func putScalar(m IMarshaller, t DataType, v any) error {
	switch t {
	case TypeByte:
		return m.PutByte(v.(uint8))
	case TypeInt8:
		return m.PutInt8(v.(int8))
	case TypeInt16:
		return m.PutInt16(v.(int16))
	case TypeUInt16:
		return m.PutUInt16(v.(uint16))
	case TypeInt32:
		return m.PutInt32(v.(int32))
	case TypeUInt32:
		return m.PutUInt32(v.(uint32))
	case TypeInt64:
		return m.PutInt64(v.(int64))
	case TypeUInt64:
		return m.PutUInt64(v.(uint64))
	case TypeFloat32:
		return m.PutFloat32(v.(float32))
	case TypeFloat64:
		return m.PutFloat64(v.(float64))
	case TypeString:
		return m.PutStr(v.(string))
	case TypeURL:
		return m.PutURL(v.(string))
	case TypeOpaque:
		return m.PutOpaque(v.([]byte))
	default:
		return fmt.Errorf("cannot serialize %s as a scalar", t)
	}
}

func getScalar(u IUnMarshaller, t DataType) (any, error) {
	switch t {
	case TypeByte:
		return u.GetByte()
	case TypeInt8:
		return u.GetInt8()
	case TypeInt16:
		return u.GetInt16()
	case TypeUInt16:
		return u.GetUInt16()
	case TypeInt32:
		return u.GetInt32()
	case TypeUInt32:
		return u.GetUInt32()
	case TypeInt64:
		return u.GetInt64()
	case TypeUInt64:
		return u.GetUInt64()
	case TypeFloat32:
		return u.GetFloat32()
	case TypeFloat64:
		return u.GetFloat64()
	case TypeString:
		return u.GetStr()
	case TypeURL:
		return u.GetURL()
	case TypeOpaque:
		return u.GetOpaque()
	default:
		return nil, fmt.Errorf("cannot deserialize %s as a scalar", t)
	}
}
