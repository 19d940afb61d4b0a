package dap

import (
	"fmt"
	"math"
)

// Dimension is one axis of an array. Start, Stride and Stop describe the
// hyperslab selected by a constraint; an unconstrained dimension selects
// 0:1:Size-1.
type Dimension struct {
	Name   string
	Size   int
	Start  int
	Stride int
	Stop   int

	constrained bool
}

// Length returns the number of selected indices along the dimension
func (d *Dimension) Length(constrained bool) int {
	if !constrained || !d.constrained {
		return d.Size
	}
	return (d.Stop-d.Start)/d.Stride + 1
}

// ShapeLength returns the number of elements of an array with the given
// dimensions. It fails for negative sizes and products that overflow int.
func ShapeLength(dims []Dimension) (int, error) {
	n := 1
	for _, d := range dims {
		if d.Size < 0 {
			return 0, fmt.Errorf("negative dimension size %d", d.Size)
		}
		if d.Size > 0 && n > math.MaxInt/d.Size {
			return 0, fmt.Errorf("shape with %d elements per dimension overflows", d.Size)
		}
		n *= d.Size
	}
	return n, nil
}

// Array is an n-dimensional array of a simple type. Values is a typed slice
// in row-major order (see MakeVector).
type Array struct {
	base
	ElemType DataType
	Dims     []Dimension
	Values   any
}

// NewArray creates an array; values may be nil to allocate zero values.
func NewArray(name string, elemType DataType, dims []Dimension, values any) (*Array, error) {
	if !elemType.IsScalar() || elemType == TypeOpaque {
		return nil, fmt.Errorf("%s: arrays of %s are not supported", name, elemType)
	}
	if _, err := ShapeLength(dims); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	a := &Array{base: newBase(name, TypeArray), ElemType: elemType}
	for _, d := range dims {
		a.Dims = append(a.Dims, Dimension{Name: d.Name, Size: d.Size})
	}
	a.ResetConstraint()

	if values == nil {
		v, err := MakeVector(elemType, a.Length(false))
		if err != nil {
			return nil, err
		}
		values = v
	}
	if err := a.SetValues(values); err != nil {
		return nil, err
	}
	return a, nil
}

// SetValues replaces the values and marks the array as read
func (a *Array) SetValues(values any) error {
	if err := CheckVector(values, a.ElemType); err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	if n := VectorLen(values); n != a.Length(false) {
		return fmt.Errorf("%s: got %d values for %d elements", a.name, n, a.Length(false))
	}
	a.Values = values
	a.read = true
	return nil
}

// Length returns the number of (selected) elements
func (a *Array) Length(constrained bool) int {
	n := 1
	for i := range a.Dims {
		n *= a.Dims[i].Length(constrained)
	}
	return n
}

// SetHyperslab constrains dimension dim to start:stride:stop (inclusive)
func (a *Array) SetHyperslab(dim, start, stride, stop int) error {
	if dim < 0 || dim >= len(a.Dims) {
		return fmt.Errorf("%s has no dimension %d", a.name, dim)
	}
	d := &a.Dims[dim]
	if stride < 1 {
		return fmt.Errorf("%s: stride must be positive, got %d", a.name, stride)
	}
	if start < 0 || stop >= d.Size || start > stop {
		return fmt.Errorf("%s: hyperslab [%d:%d:%d] out of range for dimension of size %d", a.name, start, stride, stop, d.Size)
	}
	d.Start, d.Stride, d.Stop, d.constrained = start, stride, stop, true
	return nil
}

// ResetConstraint removes all hyperslabs
func (a *Array) ResetConstraint() {
	for i := range a.Dims {
		d := &a.Dims[i]
		d.Start, d.Stride, d.Stop, d.constrained = 0, 1, d.Size-1, false
	}
}

// IsConstrained reports whether any dimension carries a hyperslab
func (a *Array) IsConstrained() bool {
	for i := range a.Dims {
		if a.Dims[i].constrained {
			return true
		}
	}
	return false
}

// selectedIndices returns the row-major offsets of the selected elements
func (a *Array) selectedIndices() []int {
	indices := []int{0}
	for i := range a.Dims {
		d := &a.Dims[i]
		next := make([]int, 0, len(indices)*d.Length(true))
		for _, prefix := range indices {
			for j := d.Start; j <= d.Stop; j += d.Stride {
				next = append(next, prefix*d.Size+j)
			}
		}
		indices = next
	}
	return indices
}

// constrainedValues returns the values selected by the hyperslabs
func (a *Array) constrainedValues() any {
	if !a.IsConstrained() {
		return a.Values
	}
	return PickVector(a.Values, a.selectedIndices())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see dap.Variable)
// --------------------------------------------------------------------------

func (a *Array) Serialize(m IMarshaller) error {
	return m.PutVector(a.constrainedValues(), a.ElemType)
}

func (a *Array) Deserialize(u IUnMarshaller) error {
	values, err := u.GetVector(a.ElemType, a.Length(true))
	if err != nil {
		return fmt.Errorf("%s: %w", a.name, err)
	}
	// the received values are the constrained view, which becomes the whole array
	for i := range a.Dims {
		a.Dims[i].Size = a.Dims[i].Length(true)
	}
	a.ResetConstraint()
	a.Values = values
	a.read = true
	return nil
}

func (a *Array) Width(constrained bool) int64 {
	if a.ElemType == TypeString || a.ElemType == TypeURL {
		var total int64
		values := a.Values
		if constrained {
			values = a.constrainedValues()
		}
		for _, s := range values.([]string) {
			total += int64(len(s))
		}
		return total
	}
	return int64(a.Length(constrained)) * int64(a.ElemType.Width())
}

func (a *Array) Clone() Variable {
	return &Array{
		base:     a.cloneBase(),
		ElemType: a.ElemType,
		Dims:     append([]Dimension(nil), a.Dims...),
		Values:   CopyVector(a.Values),
	}
}
