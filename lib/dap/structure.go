package dap

import "fmt"

// Structure is an ordered collection of fields serialized one after another
type Structure struct {
	base
	fields []Variable
}

// NewStructure creates a structure holding the given fields
func NewStructure(name string, fields ...Variable) *Structure {
	return &Structure{base: newBase(name, TypeStructure), fields: fields}
}

// AddField appends a field
func (s *Structure) AddField(v Variable) {
	s.fields = append(s.fields, v)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see dap.Container)
// --------------------------------------------------------------------------

func (s *Structure) Fields() []Variable { return s.fields }

func (s *Structure) Field(name string) Variable {
	for _, f := range s.fields {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func (s *Structure) Serialize(m IMarshaller) error {
	for _, f := range s.fields {
		if !f.IsSelected() {
			continue
		}
		if err := f.Serialize(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Structure) Deserialize(u IUnMarshaller) error {
	for _, f := range s.fields {
		if !f.IsSelected() {
			continue
		}
		if err := f.Deserialize(u); err != nil {
			return fmt.Errorf("%s.%w", s.name, err)
		}
	}
	s.read = true
	return nil
}

func (s *Structure) Width(constrained bool) int64 {
	var total int64
	for _, f := range s.fields {
		if constrained && !f.IsSelected() {
			continue
		}
		total += f.Width(constrained)
	}
	return total
}

func (s *Structure) Clone() Variable {
	c := &Structure{base: s.cloneBase()}
	for _, f := range s.fields {
		c.fields = append(c.fields, f.Clone())
	}
	return c
}
