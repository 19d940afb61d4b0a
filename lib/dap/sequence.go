package dap

import (
	"fmt"
)

// Row markers framing the rows of a sequence on the wire
const (
	StartOfInstance byte = 0x5A
	EndOfSequence   byte = 0xA5
)

// Row is one instance of a sequence. Element i holds the value of field i:
// a value as produced by Coerce for simple fields or a []Row for a nested
// sequence field.
type Row []any

// Sequence is a table whose rows are sent one after another. The fields act
// as templates describing the columns; they may be simple variables or
// nested sequences.
type Sequence struct {
	base
	fields  []Variable
	Rows    []Row
	filters []RowFilter
	leaf    bool
}

// NewSequence creates an empty sequence with the given column templates
func NewSequence(name string, fields ...Variable) (*Sequence, error) {
	for _, f := range fields {
		if !f.Type().IsScalar() && f.Type() != TypeSequence {
			return nil, fmt.Errorf("%s: sequence fields must be simple types or sequences, %s is %s", name, f.Name(), f.Type())
		}
	}
	return &Sequence{base: newBase(name, TypeSequence), fields: fields, leaf: true}, nil
}

// AddRow validates and appends a row
func (s *Sequence) AddRow(values ...any) error {
	row, err := s.makeRow(values)
	if err != nil {
		return err
	}
	s.Rows = append(s.Rows, row)
	s.read = true
	return nil
}

func (s *Sequence) makeRow(values []any) (Row, error) {
	if len(values) != len(s.fields) {
		return nil, fmt.Errorf("%s: row has %d values for %d fields", s.name, len(values), len(s.fields))
	}
	row := make(Row, len(values))
	for i, f := range s.fields {
		if nested, ok := f.(*Sequence); ok {
			rows, err := nested.toRows(values[i])
			if err != nil {
				return nil, err
			}
			row[i] = rows
			continue
		}
		c, err := Coerce(f.Type(), values[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.name, f.Name(), err)
		}
		row[i] = c
	}
	return row, nil
}

// toRows accepts either []Row or a list of value lists for a nested sequence
func (s *Sequence) toRows(v any) ([]Row, error) {
	switch rows := v.(type) {
	case []Row:
		return rows, nil
	case nil:
		return nil, nil
	case []any:
		out := make([]Row, 0, len(rows))
		for _, r := range rows {
			values, ok := r.([]any)
			if !ok {
				return nil, fmt.Errorf("%s: nested row must be a list, got %T", s.name, r)
			}
			row, err := s.makeRow(values)
			if err != nil {
				return nil, err
			}
			out = append(out, row)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: cannot use %T as nested rows", s.name, v)
	}
}

// FieldIndex returns the column index of a field or -1
func (s *Sequence) FieldIndex(name string) int {
	for i, f := range s.fields {
		if f.Name() == name {
			return i
		}
	}
	return -1
}

// AddFilter attaches a selection clause evaluated for every row
func (s *Sequence) AddFilter(f RowFilter) {
	s.filters = append(s.filters, f)
}

// ClearFilters removes all selection clauses (recursively)
func (s *Sequence) ClearFilters() {
	s.filters = nil
	for _, f := range s.fields {
		if nested, ok := f.(*Sequence); ok {
			nested.ClearFilters()
		}
	}
}

// IsLeaf reports whether this is the innermost sequence that is sent
func (s *Sequence) IsLeaf() bool {
	return s.leaf
}

// tagLeaf marks the innermost selected sequences as leaves and all sequences
// containing selected nested sequences as parents.
func (s *Sequence) tagLeaf() {
	s.leaf = true
	for _, f := range s.fields {
		if nested, ok := f.(*Sequence); ok && nested.IsSelected() {
			s.leaf = false
			nested.tagLeaf()
		}
	}
}

// rowSent decides whether a row is sent. Parent rows are only sent when at
// least one of their nested rows is.
func (s *Sequence) rowSent(row Row) (bool, error) {
	for _, f := range s.filters {
		ok, err := f.MatchRow(s, row)
		if err != nil || !ok {
			return false, err
		}
	}
	if s.leaf {
		return true, nil
	}
	for i, f := range s.fields {
		nested, ok := f.(*Sequence)
		if !ok || !nested.IsSelected() {
			continue
		}
		rows, _ := row[i].([]Row)
		n, err := nested.countSent(rows)
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (s *Sequence) countSent(rows []Row) (int, error) {
	n := 0
	for _, row := range rows {
		ok, err := s.rowSent(row)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *Sequence) serializeRows(m IMarshaller, rows []Row) error {
	for _, row := range rows {
		ok, err := s.rowSent(row)
		if err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if !ok {
			continue
		}
		if err := m.PutByte(StartOfInstance); err != nil {
			return err
		}
		for i, f := range s.fields {
			if !f.IsSelected() {
				continue
			}
			if nested, ok := f.(*Sequence); ok {
				nestedRows, _ := row[i].([]Row)
				if err := nested.serializeRows(m, nestedRows); err != nil {
					return err
				}
				continue
			}
			if err := putScalar(m, f.Type(), row[i]); err != nil {
				return err
			}
		}
	}
	return m.PutByte(EndOfSequence)
}

func (s *Sequence) deserializeRows(u IUnMarshaller) ([]Row, error) {
	var rows []Row
	for {
		marker, err := u.GetByte()
		if err != nil {
			return nil, err
		}
		if marker == EndOfSequence {
			return rows, nil
		}
		if marker != StartOfInstance {
			return nil, fmt.Errorf("%s: unexpected row marker 0x%02x", s.name, marker)
		}
		row := make(Row, len(s.fields))
		for i, f := range s.fields {
			if !f.IsSelected() {
				continue
			}
			if nested, ok := f.(*Sequence); ok {
				if row[i], err = nested.deserializeRows(u); err != nil {
					return nil, err
				}
				continue
			}
			if row[i], err = getScalar(u, f.Type()); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", s.name, f.Name(), err)
			}
		}
		rows = append(rows, row)
	}
}

func (s *Sequence) rowsWidth(rows []Row, constrained bool) int64 {
	var total int64
	for _, row := range rows {
		for i, f := range s.fields {
			if constrained && !f.IsSelected() {
				continue
			}
			if nested, ok := f.(*Sequence); ok {
				nestedRows, _ := row[i].([]Row)
				total += nested.rowsWidth(nestedRows, constrained)
				continue
			}
			total += scalarWidth(f.Type(), row[i])
		}
	}
	return total
}

// --------------------------------------------------------------------------
// Interface Methods (docu see dap.Container)
// --------------------------------------------------------------------------

func (s *Sequence) Fields() []Variable { return s.fields }

func (s *Sequence) Field(name string) Variable {
	if i := s.FieldIndex(name); i >= 0 {
		return s.fields[i]
	}
	return nil
}

func (s *Sequence) Serialize(m IMarshaller) error {
	return s.serializeRows(m, s.Rows)
}

func (s *Sequence) Deserialize(u IUnMarshaller) error {
	rows, err := s.deserializeRows(u)
	if err != nil {
		return err
	}
	s.Rows = rows
	s.read = true
	return nil
}

func (s *Sequence) Width(constrained bool) int64 {
	return s.rowsWidth(s.Rows, constrained)
}

func (s *Sequence) Clone() Variable {
	c := &Sequence{
		base:    s.cloneBase(),
		filters: append([]RowFilter(nil), s.filters...),
		leaf:    s.leaf,
	}
	for _, f := range s.fields {
		c.fields = append(c.fields, f.Clone())
	}
	c.Rows = cloneRows(s.Rows)
	return c
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, row := range rows {
		r := make(Row, len(row))
		for j, v := range row {
			switch t := v.(type) {
			case []Row:
				r[j] = cloneRows(t)
			case []byte:
				r[j] = append([]byte(nil), t...)
			default:
				r[j] = v
			}
		}
		out[i] = r
	}
	return out
}
