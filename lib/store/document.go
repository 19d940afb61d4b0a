package store

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
)

// --------------------------------------------------------------------------
// Dataset Documents
// --------------------------------------------------------------------------

// Document is the JSON representation of a dataset
type Document struct {
	Name       string         `json:"name"`
	Attributes []AttrDocument `json:"attributes,omitempty"`
	Variables  []VarDocument  `json:"variables"`
}

// AttrDocument is an attribute or, if Attributes is set, a nested container
type AttrDocument struct {
	Name       string         `json:"name"`
	Type       string         `json:"type,omitempty"`
	Values     []string       `json:"values,omitempty"`
	Attributes []AttrDocument `json:"attributes,omitempty"`
}

// VarDocument describes one variable. Which fields apply depends on Type:
// scalars use Value, arrays ElemType, Dims and Values, structures Fields and
// sequences Fields and Rows.
type VarDocument struct {
	Name       string         `json:"name"`
	Type       dap.DataType   `json:"type"`
	Attributes []AttrDocument `json:"attributes,omitempty"`

	Value any `json:"value,omitempty"`

	ElemType dap.DataType `json:"elemType,omitempty"`
	Dims     []DimDocument `json:"dims,omitempty"`
	Values   []any         `json:"values,omitempty"`

	Fields []VarDocument `json:"fields,omitempty"`
	Rows   [][]any       `json:"rows,omitempty"`
}

// DimDocument is one array dimension
type DimDocument struct {
	Name string `json:"name,omitempty"`
	Size int    `json:"size"`
}

// DecodeDocument reads a JSON document and builds the dataset it describes.
// Numbers keep their full precision until they are converted to the type of
// their variable.
func DecodeDocument(r io.Reader) (*dap.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "decoding dataset document")
	}
	return doc.Dataset()
}

// Dataset builds the dataset described by the document
func (d *Document) Dataset() (*dap.Dataset, error) {
	if d.Name == "" {
		return nil, errors.New(errors.Internal, "dataset document without a name")
	}
	ds := dap.NewDataset(d.Name)
	fillAttributes(ds.Attributes, d.Attributes)
	for i := range d.Variables {
		v, err := d.Variables[i].variable()
		if err != nil {
			return nil, errors.Wrapf(err, errors.Internal, "dataset %s", d.Name)
		}
		ds.AddVar(v)
	}
	return ds, nil
}

func fillAttributes(t *dap.AttrTable, attrs []AttrDocument) {
	for _, a := range attrs {
		if a.Attributes != nil || a.Type == dap.AttrContainer {
			fillAttributes(t.AppendContainer(a.Name), a.Attributes)
			continue
		}
		typ := a.Type
		if typ == "" {
			typ = "String"
		}
		t.Append(a.Name, typ, a.Values...)
	}
}

func (vd *VarDocument) variable() (dap.Variable, error) {
	v, err := vd.build()
	if err != nil {
		return nil, err
	}
	fillAttributes(v.Attributes(), vd.Attributes)
	return v, nil
}

func (vd *VarDocument) build() (dap.Variable, error) {
	switch {
	case vd.Type.IsScalar():
		return dap.NewScalar(vd.Name, vd.Type, vd.Value)

	case vd.Type == dap.TypeArray:
		dims := make([]dap.Dimension, len(vd.Dims))
		for i, d := range vd.Dims {
			dims[i] = dap.Dimension{Name: d.Name, Size: d.Size}
		}
		var values any
		if vd.Values != nil {
			vec, err := dap.VectorOf(vd.ElemType, vd.Values)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", vd.Name, err)
			}
			values = vec
		}
		return dap.NewArray(vd.Name, vd.ElemType, dims, values)

	case vd.Type == dap.TypeStructure:
		fields, err := buildFields(vd.Fields)
		if err != nil {
			return nil, err
		}
		return dap.NewStructure(vd.Name, fields...), nil

	case vd.Type == dap.TypeSequence:
		fields, err := buildFields(vd.Fields)
		if err != nil {
			return nil, err
		}
		seq, err := dap.NewSequence(vd.Name, fields...)
		if err != nil {
			return nil, err
		}
		for i, row := range vd.Rows {
			if err := seq.AddRow(row...); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		return seq, nil

	default:
		return nil, fmt.Errorf("%s: unsupported variable type %s", vd.Name, vd.Type)
	}
}

func buildFields(docs []VarDocument) ([]dap.Variable, error) {
	fields := make([]dap.Variable, 0, len(docs))
	for i := range docs {
		f, err := docs[i].variable()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}
