package dap

// --------------------------------------------------------------------------
// Attribute Table
// --------------------------------------------------------------------------

// AttrContainer is the type name of a nested attribute table
const AttrContainer = "Container"

// Attribute is a named, typed list of values or a nested table (Type == AttrContainer)
type Attribute struct {
	Name   string
	Type   string
	Values []string
	Table  *AttrTable
}

// IsContainer reports whether the attribute holds a nested table
func (a *Attribute) IsContainer() bool {
	return a.Type == AttrContainer
}

// AttrTable is an ordered collection of attributes. The zero value is an empty table.
type AttrTable struct {
	attrs []*Attribute
}

// NewAttrTable creates an empty table
func NewAttrTable() *AttrTable {
	return &AttrTable{}
}

// Append adds values to the attribute with the given name, creating it if needed
func (t *AttrTable) Append(name, typ string, values ...string) *Attribute {
	if a := t.Get(name); a != nil && !a.IsContainer() {
		a.Values = append(a.Values, values...)
		return a
	}
	a := &Attribute{Name: name, Type: typ, Values: append([]string(nil), values...)}
	t.attrs = append(t.attrs, a)
	return a
}

// AppendContainer returns the nested table with the given name, creating it if needed
func (t *AttrTable) AppendContainer(name string) *AttrTable {
	if a := t.Get(name); a != nil && a.IsContainer() {
		return a.Table
	}
	a := &Attribute{Name: name, Type: AttrContainer, Table: NewAttrTable()}
	t.attrs = append(t.attrs, a)
	return a.Table
}

// Get returns the attribute with the given name or nil
func (t *AttrTable) Get(name string) *Attribute {
	for _, a := range t.attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Attributes returns all attributes in insertion order
func (t *AttrTable) Attributes() []*Attribute {
	return t.attrs
}

// Len returns the number of attributes
func (t *AttrTable) Len() int {
	return len(t.attrs)
}

// Clone returns a deep copy of the table
func (t *AttrTable) Clone() *AttrTable {
	c := NewAttrTable()
	for _, a := range t.attrs {
		ca := &Attribute{Name: a.Name, Type: a.Type, Values: append([]string(nil), a.Values...)}
		if a.Table != nil {
			ca.Table = a.Table.Clone()
		}
		c.attrs = append(c.attrs, ca)
	}
	return c
}
