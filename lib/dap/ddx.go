package dap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// DDXNamespace is the XML namespace of DAP 3.2 descriptor documents
	DDXNamespace = "http://xml.opendap.org/ns/DAP/3.2#"
	// DDXVersion is the dapVersion attribute written into DDX documents
	DDXVersion = "3.2"
)

// xmlNode is a generic element used to write and read DDX documents
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func newNode(local string, attrs ...string) xmlNode {
	n := xmlNode{XMLName: xml.Name{Local: local}}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	return n
}

func (n *xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// PrintDDX writes the XML descriptor of the dataset. If blobCID is not empty
// a blob element referencing the data part with that content id is added.
func PrintDDX(w io.Writer, ds *Dataset, constrained bool, blobCID string) error {
	root := newNode("Dataset", "name", ds.Name, "xmlns", DDXNamespace, "dapVersion", DDXVersion)
	root.Nodes = append(root.Nodes, attrNodes(ds.Attributes)...)
	for _, v := range ds.Vars {
		if constrained && !v.IsSelected() {
			continue
		}
		root.Nodes = append(root.Nodes, varNode(v, constrained))
	}
	if blobCID != "" {
		root.Nodes = append(root.Nodes, newNode("blob", "href", "cid:"+blobCID))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", indentUnit)
	if err := enc.Encode(root); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func varNode(v Variable, constrained bool) xmlNode {
	n := newNode(v.Type().String(), "name", v.Name())
	n.Nodes = append(n.Nodes, attrNodes(v.Attributes())...)
	switch t := v.(type) {
	case *Array:
		n.Nodes = append(n.Nodes, newNode(t.ElemType.String()))
		for i := range t.Dims {
			d := &t.Dims[i]
			size := strconv.Itoa(d.Length(constrained))
			if d.Name != "" {
				n.Nodes = append(n.Nodes, newNode("dimension", "name", d.Name, "size", size))
			} else {
				n.Nodes = append(n.Nodes, newNode("dimension", "size", size))
			}
		}
	case Container:
		for _, f := range t.Fields() {
			if constrained && !f.IsSelected() {
				continue
			}
			n.Nodes = append(n.Nodes, varNode(f, constrained))
		}
	}
	return n
}

func attrNodes(t *AttrTable) []xmlNode {
	var nodes []xmlNode
	for _, a := range t.Attributes() {
		n := newNode("Attribute", "name", a.Name, "type", a.Type)
		if a.IsContainer() {
			n.Nodes = attrNodes(a.Table)
		} else {
			for _, v := range a.Values {
				value := newNode("value")
				value.Content = v
				n.Nodes = append(n.Nodes, value)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// ParseDDX reads a document written by PrintDDX. It returns the dataset with
// every variable selected and the content id referenced by the blob element
// (empty if there is none).
func ParseDDX(r io.Reader) (*Dataset, string, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, "", fmt.Errorf("invalid DDX: %w", err)
	}
	if root.XMLName.Local != "Dataset" {
		return nil, "", fmt.Errorf("invalid DDX: root element is %s", root.XMLName.Local)
	}

	ds := NewDataset(root.attr("name"))
	blob := ""
	for i := range root.Nodes {
		n := &root.Nodes[i]
		switch n.XMLName.Local {
		case "Attribute":
			if err := parseAttr(ds.Attributes, n); err != nil {
				return nil, "", err
			}
		case "blob", "dataBLOB":
			blob = strings.TrimPrefix(n.attr("href"), "cid:")
		default:
			v, err := parseVar(n)
			if err != nil {
				return nil, "", err
			}
			ds.AddVar(v)
		}
	}
	ds.MarkAll(true)
	return ds, blob, nil
}

func parseAttr(t *AttrTable, n *xmlNode) error {
	name, typ := n.attr("name"), n.attr("type")
	if name == "" {
		return fmt.Errorf("invalid DDX: attribute without a name")
	}
	if typ == AttrContainer {
		nested := t.AppendContainer(name)
		for i := range n.Nodes {
			if err := parseAttr(nested, &n.Nodes[i]); err != nil {
				return err
			}
		}
		return nil
	}
	var values []string
	for _, v := range n.Nodes {
		if v.XMLName.Local == "value" {
			values = append(values, v.Content)
		}
	}
	t.Append(name, typ, values...)
	return nil
}

func parseVar(n *xmlNode) (Variable, error) {
	typ, err := ParseDataType(n.XMLName.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid DDX: %w", err)
	}
	name := n.attr("name")

	var v Variable
	var attrs []*xmlNode
	switch typ {
	case TypeArray:
		var elem DataType
		var dims []Dimension
		for i := range n.Nodes {
			c := &n.Nodes[i]
			switch c.XMLName.Local {
			case "Attribute":
				attrs = append(attrs, c)
			case "dimension":
				size, err := strconv.Atoi(c.attr("size"))
				if err != nil {
					return nil, fmt.Errorf("invalid DDX: dimension size of %s: %w", name, err)
				}
				dims = append(dims, Dimension{Name: c.attr("name"), Size: size})
			default:
				if elem, err = ParseDataType(c.XMLName.Local); err != nil {
					return nil, fmt.Errorf("invalid DDX: %w", err)
				}
			}
		}
		a, err := NewArray(name, elem, dims, nil)
		if err != nil {
			return nil, err
		}
		a.SetRead(false)
		v = a
	case TypeStructure, TypeSequence:
		var fields []Variable
		for i := range n.Nodes {
			c := &n.Nodes[i]
			if c.XMLName.Local == "Attribute" {
				attrs = append(attrs, c)
				continue
			}
			f, err := parseVar(c)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		if typ == TypeStructure {
			v = NewStructure(name, fields...)
		} else if v, err = NewSequence(name, fields...); err != nil {
			return nil, err
		}
	default:
		s, err := NewScalar(name, typ, nil)
		if err != nil {
			return nil, err
		}
		s.SetRead(false)
		for i := range n.Nodes {
			attrs = append(attrs, &n.Nodes[i])
		}
		v = s
	}

	for _, a := range attrs {
		if a.XMLName.Local != "Attribute" {
			continue
		}
		if err := parseAttr(v.Attributes(), a); err != nil {
			return nil, err
		}
	}
	return v, nil
}
