package dap

// base holds the state shared by all variable implementations
type base struct {
	name     string
	typ      DataType
	attrs    *AttrTable
	selected bool
	read     bool
}

func newBase(name string, typ DataType) base {
	return base{name: name, typ: typ, attrs: NewAttrTable()}
}

func (b *base) Name() string { return b.name }

func (b *base) SetName(name string) { b.name = name }

func (b *base) Type() DataType { return b.typ }

func (b *base) Attributes() *AttrTable { return b.attrs }

func (b *base) IsSelected() bool { return b.selected }

func (b *base) SetSelected(selected bool) { b.selected = selected }

func (b *base) IsRead() bool { return b.read }

func (b *base) SetRead(read bool) { b.read = read }

func (b *base) cloneBase() base {
	c := *b
	c.attrs = b.attrs.Clone()
	return c
}

// SelectAll sets the selection flag of v and, for containers, of all fields.
func SelectAll(v Variable, selected bool) {
	v.SetSelected(selected)
	if c, ok := v.(Container); ok {
		for _, f := range c.Fields() {
			SelectAll(f, selected)
		}
	}
}

// ClearRead clears the read flag of v and all of its fields
func ClearRead(v Variable) {
	v.SetRead(false)
	if c, ok := v.(Container); ok {
		for _, f := range c.Fields() {
			ClearRead(f)
		}
	}
}
