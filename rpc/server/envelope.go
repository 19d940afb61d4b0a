package server

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ValentinKolb/dDAP/rpc/common"
)

// CRLF ends every header line
const CRLF = "\r\n"

// rfc822Layout is the format of the Date and Last-Modified headers
const rfc822Layout = "Mon, 02 Jan 2006 15:04:05 GMT"

// DefaultProtocol is sent in the XDAP header if no protocol version is configured
const DefaultProtocol = "3.2"

// now is replaced in tests
var now = time.Now

// RFC822Date formats t as used in the Date and Last-Modified headers
func RFC822Date(t time.Time) string {
	return t.UTC().Format(rfc822Layout)
}

// Envelope describes the framing of one response. It is created per request
// and never persisted.
type Envelope struct {
	// Type is sent as Content-Description
	Type common.ObjectType
	// Encoding is sent as Content-Encoding unless it is x-plain
	Encoding common.EncodingType
	// LastModified of the dataset, the zero value sends the current time
	LastModified time.Time
	// Protocol is the XDAP version
	Protocol string
	// Server is the server version token
	Server string

	// Boundary, Start and ContentID are only used by multipart responses
	Boundary  string
	Start     string
	ContentID string
}

// --------------------------------------------------------------------------
// Response headers
// --------------------------------------------------------------------------

// WriteText writes the headers of a text response (DAS, DDS, DDX, version)
func (e *Envelope) WriteText(w io.Writer) error {
	return e.writeSingle(w, "text/plain")
}

// WriteBinary writes the headers of a data response
func (e *Envelope) WriteBinary(w io.Writer) error {
	return e.writeSingle(w, "application/octet-stream")
}

func (e *Envelope) writeSingle(w io.Writer, contentType string) error {
	var b strings.Builder
	b.WriteString("HTTP/1.0 200 OK" + CRLF)
	e.serverHeaders(&b)
	e.dateHeaders(&b)
	b.WriteString("Content-Type: " + contentType + CRLF)
	b.WriteString("Content-Description: " + e.Type.String() + CRLF)
	if e.Type == common.ObjError {
		b.WriteString("Cache-Control: no-cache" + CRLF)
	}
	e.encodingHeader(&b)
	b.WriteString(CRLF)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMultipart writes the headers of a data+metadata response. Boundary
// and Start must be set.
func (e *Envelope) WriteMultipart(w io.Writer) error {
	var b strings.Builder
	b.WriteString("HTTP/1.0 200 OK" + CRLF)
	e.serverHeaders(&b)
	e.dateHeaders(&b)
	fmt.Fprintf(&b, "Content-Type: Multipart/Related; boundary=%s; start=\"<%s>\"; type=\"Text/xml\"%s", e.Boundary, e.Start, CRLF)
	b.WriteString("Content-Description: " + e.Type.String() + CRLF)
	e.encodingHeader(&b)
	b.WriteString(CRLF)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteNotModified writes the complete answer to a conditional request whose
// target did not change. There is no body.
func (e *Envelope) WriteNotModified(w io.Writer) error {
	_, err := io.WriteString(w, "HTTP/1.0 304 NOT MODIFIED"+CRLF+"Date: "+RFC822Date(now())+CRLF+CRLF)
	return err
}

// WriteError writes the headers of an error response. The error object
// follows as a text body.
func (e *Envelope) WriteError(w io.Writer, status int, reason string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.0 %d %s%s", status, reason, CRLF)
	e.serverHeaders(&b)
	b.WriteString("Date: " + RFC822Date(now()) + CRLF)
	b.WriteString("Content-Type: text/plain" + CRLF)
	b.WriteString("Content-Description: " + common.ObjError.String() + CRLF)
	b.WriteString("Cache-Control: no-cache" + CRLF)
	b.WriteString(CRLF)
	_, err := io.WriteString(w, b.String())
	return err
}

func (e *Envelope) serverHeaders(b *strings.Builder) {
	server := e.Server
	if server == "" {
		server = "ddap/unknown"
	}
	protocol := e.Protocol
	if protocol == "" {
		protocol = DefaultProtocol
	}
	b.WriteString("XDODS-Server: " + server + CRLF)
	b.WriteString("XOPeNDAP-Server: " + server + CRLF)
	b.WriteString("XDAP: " + protocol + CRLF)
}

func (e *Envelope) dateHeaders(b *strings.Builder) {
	t := now()
	b.WriteString("Date: " + RFC822Date(t) + CRLF)
	if !e.LastModified.IsZero() {
		t = e.LastModified
	}
	b.WriteString("Last-Modified: " + RFC822Date(t) + CRLF)
}

func (e *Envelope) encodingHeader(b *strings.Builder) {
	if e.Encoding != common.EncPlain {
		b.WriteString("Content-Encoding: " + e.Encoding.String() + CRLF)
	}
}

// --------------------------------------------------------------------------
// Multipart part headers
// --------------------------------------------------------------------------

// writeDDXPart opens the metadata part. It is the first part of a document,
// the boundary is not preceded by a line break.
func writeDDXPart(w io.Writer, boundary, cid string) error {
	var b strings.Builder
	b.WriteString("--" + boundary + CRLF)
	b.WriteString("Content-Type: Text/xml; charset=iso-8859-1" + CRLF)
	b.WriteString("Content-Transfer-Encoding: binary" + CRLF)
	b.WriteString("Content-Id: <" + cid + ">" + CRLF)
	b.WriteString("Content-Description: " + common.ObjDDX.String() + CRLF)
	b.WriteString(CRLF)
	_, err := io.WriteString(w, b.String())
	return err
}

// writeDataPart ends the previous part and opens the data part
func writeDataPart(w io.Writer, boundary, cid, byteOrder string) error {
	var b strings.Builder
	b.WriteString(CRLF + "--" + boundary + CRLF)
	b.WriteString("Content-Type: application/octet-stream" + CRLF)
	b.WriteString("Content-Transfer-Encoding: binary" + CRLF)
	b.WriteString("Content-Id: <" + cid + ">" + CRLF)
	b.WriteString("Content-Description: " + common.ObjData.String() + CRLF)
	b.WriteString("X-DAP-Byte-Order: " + byteOrder + CRLF)
	b.WriteString(CRLF)
	_, err := io.WriteString(w, b.String())
	return err
}

// writeClosing ends the last part and the document
func writeClosing(w io.Writer, boundary string) error {
	_, err := io.WriteString(w, CRLF+"--"+boundary+"--"+CRLF)
	return err
}
