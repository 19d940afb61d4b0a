package dap

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const indentUnit = "    "

// --------------------------------------------------------------------------
// DDS
// --------------------------------------------------------------------------

// PrintDDS writes the dataset descriptor. With constrained set only
// selected variables are printed and arrays show their hyperslab sizes.
func PrintDDS(w io.Writer, ds *Dataset, constrained bool) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Dataset {\n")
	for _, v := range ds.Vars {
		if constrained && !v.IsSelected() {
			continue
		}
		printDecl(bw, v, 1, constrained)
	}
	fmt.Fprintf(bw, "} %s;\n", ds.Name)
	return bw.Flush()
}

func printDecl(w *bufio.Writer, v Variable, depth int, constrained bool) {
	indent := strings.Repeat(indentUnit, depth)
	switch t := v.(type) {
	case *Array:
		fmt.Fprintf(w, "%s%s %s", indent, t.ElemType, t.Name())
		for i := range t.Dims {
			d := &t.Dims[i]
			if d.Name != "" {
				fmt.Fprintf(w, "[%s = %d]", d.Name, d.Length(constrained))
			} else {
				fmt.Fprintf(w, "[%d]", d.Length(constrained))
			}
		}
		w.WriteString(";\n")
	case Container:
		fmt.Fprintf(w, "%s%s {\n", indent, v.Type())
		for _, f := range t.Fields() {
			if constrained && !f.IsSelected() {
				continue
			}
			printDecl(w, f, depth+1, constrained)
		}
		fmt.Fprintf(w, "%s} %s;\n", indent, v.Name())
	default:
		fmt.Fprintf(w, "%s%s %s;\n", indent, v.Type(), v.Name())
	}
}

// --------------------------------------------------------------------------
// DAS
// --------------------------------------------------------------------------

// PrintDAS writes the attribute document: the global attributes followed by
// one container per variable.
func PrintDAS(w io.Writer, ds *Dataset) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Attributes {\n")
	printAttrTable(bw, ds.Attributes, 1)
	for _, v := range ds.Vars {
		printVarAttributes(bw, v, 1)
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

func printVarAttributes(w *bufio.Writer, v Variable, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	fmt.Fprintf(w, "%s%s {\n", indent, v.Name())
	printAttrTable(w, v.Attributes(), depth+1)
	if c, ok := v.(Container); ok {
		for _, f := range c.Fields() {
			printVarAttributes(w, f, depth+1)
		}
	}
	fmt.Fprintf(w, "%s}\n", indent)
}

func printAttrTable(w *bufio.Writer, t *AttrTable, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	for _, a := range t.Attributes() {
		if a.IsContainer() {
			fmt.Fprintf(w, "%s%s {\n", indent, a.Name)
			printAttrTable(w, a.Table, depth+1)
			fmt.Fprintf(w, "%s}\n", indent)
			continue
		}
		values := make([]string, len(a.Values))
		for i, v := range a.Values {
			if a.Type == "String" || a.Type == "Url" {
				values[i] = quote(v)
			} else {
				values[i] = v
			}
		}
		fmt.Fprintf(w, "%s%s %s %s;\n", indent, a.Type, a.Name, strings.Join(values, ", "))
	}
}

// quote escapes backslashes and double quotes and wraps s in double quotes
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// --------------------------------------------------------------------------
// Error
// --------------------------------------------------------------------------

// PrintError writes an error object as sent in the body of an error response
func PrintError(w io.Writer, code int, message string) error {
	_, err := fmt.Fprintf(w, "Error {\n%scode = %d;\n%smessage = %s;\n};\n", indentUnit, code, indentUnit, quote(message))
	return err
}
