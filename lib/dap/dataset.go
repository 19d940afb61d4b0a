package dap

import (
	"fmt"
	"strings"
)

// Dataset is the ordered sequence of variables a response is built from
type Dataset struct {
	Name       string
	Attributes *AttrTable
	Vars       []Variable
}

// NewDataset creates a dataset with the given variables
func NewDataset(name string, vars ...Variable) *Dataset {
	return &Dataset{Name: name, Attributes: NewAttrTable(), Vars: vars}
}

// AddVar appends a variable
func (d *Dataset) AddVar(v Variable) {
	d.Vars = append(d.Vars, v)
}

// Var looks up a variable by its dotted path (e.g. "station.temp")
func (d *Dataset) Var(path string) Variable {
	parts := strings.Split(path, ".")
	var current Variable
	for _, v := range d.Vars {
		if v.Name() == parts[0] {
			current = v
			break
		}
	}
	for _, name := range parts[1:] {
		c, ok := current.(Container)
		if !ok {
			return nil
		}
		current = c.Field(name)
	}
	return current
}

// MarkAll selects or deselects every variable and field
func (d *Dataset) MarkAll(selected bool) {
	for _, v := range d.Vars {
		SelectAll(v, selected)
	}
}

// ClearReadFlags clears the read flag of every variable
func (d *Dataset) ClearReadFlags() {
	for _, v := range d.Vars {
		ClearRead(v)
	}
}

// ResetConstraints removes hyperslabs and row filters and deselects everything
func (d *Dataset) ResetConstraints() {
	d.MarkAll(false)
	for _, v := range d.Vars {
		resetConstraint(v)
	}
}

func resetConstraint(v Variable) {
	switch t := v.(type) {
	case *Array:
		t.ResetConstraint()
	case *Sequence:
		t.ClearFilters()
	case *Structure:
		for _, f := range t.Fields() {
			resetConstraint(f)
		}
	}
}

// SelectedVars returns the selected top level variables
func (d *Dataset) SelectedVars() []Variable {
	var out []Variable
	for _, v := range d.Vars {
		if v.IsSelected() {
			out = append(out, v)
		}
	}
	return out
}

// TagSequences tags nested sequences as parent or leaf so that parent rows
// are only sent when their leaf rows are.
func (d *Dataset) TagSequences() {
	var tag func(v Variable)
	tag = func(v Variable) {
		switch t := v.(type) {
		case *Sequence:
			t.tagLeaf()
		case *Structure:
			for _, f := range t.Fields() {
				tag(f)
			}
		}
	}
	for _, v := range d.Vars {
		tag(v)
	}
}

// RequestSize returns the size of the response data in bytes. With
// constrained set only the selected parts are counted.
func (d *Dataset) RequestSize(constrained bool) int64 {
	var total int64
	for _, v := range d.Vars {
		if constrained && !v.IsSelected() {
			continue
		}
		total += v.Width(constrained)
	}
	return total
}

// Serialize writes all selected variables
func (d *Dataset) Serialize(m IMarshaller) error {
	for _, v := range d.SelectedVars() {
		if err := v.Serialize(m); err != nil {
			return err
		}
	}
	return m.Flush()
}

// Deserialize reads all selected variables
func (d *Dataset) Deserialize(u IUnMarshaller) error {
	for _, v := range d.SelectedVars() {
		if err := v.Deserialize(u); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the dataset
func (d *Dataset) Clone() *Dataset {
	c := &Dataset{Name: d.Name, Attributes: d.Attributes.Clone()}
	for _, v := range d.Vars {
		c.Vars = append(c.Vars, v.Clone())
	}
	return c
}
