package server

import (
	"bufio"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/ValentinKolb/dDAP/lib/cache"
	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/serializer"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

const (
	// DataDDXStart is the content id of the metadata part of a response
	DataDDXStart = "dataddx_start"
	// DefaultContentIDDomain is used if no domain is configured
	DefaultContentIDDomain = "opendap.org"

	cacheStart    = "dataddx_cache_start"
	cacheBoundary = "dataddx_cache_boundary"
)

// NewContentID returns a unique content id "<uuid>@<domain>"
func NewContentID(domain string) string {
	if domain == "" {
		domain = DefaultContentIDDomain
	}
	return uuid.NewString() + "@" + domain
}

// NewBoundary returns a random multipart boundary
func NewBoundary() string {
	return uuid.NewString()
}

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// WriteDataDDX writes the parts of a data+metadata document: the DDX of the
// selected variables referencing the data part, the data part encoded with
// codec and the closing boundary.
func WriteDataDDX(w io.Writer, ds *dap.Dataset, codec serializer.ICodec, boundary, start, cid string) error {
	if err := writeDDXPart(w, boundary, start); err != nil {
		return err
	}
	if err := dap.PrintDDX(w, ds, true, cid); err != nil {
		return err
	}
	if err := writeDataPart(w, boundary, cid, codec.ByteOrder()); err != nil {
		return err
	}
	if err := serializeDataset(codec.NewMarshaller(w), ds); err != nil {
		return err
	}
	return writeClosing(w, boundary)
}

// serializeDataset writes the selected variables. A checksumming marshaller
// follows every top level variable with the digest of its bytes.
func serializeDataset(m dap.IMarshaller, ds *dap.Dataset) error {
	cm, checksummed := m.(dap.IChecksumMarshaller)
	for _, v := range ds.SelectedVars() {
		if checksummed {
			cm.ResetChecksum()
		}
		if err := v.Serialize(m); err != nil {
			return err
		}
		if checksummed {
			if err := cm.PutChecksum(); err != nil {
				return err
			}
		}
	}
	return m.Flush()
}

func deserializeDataset(u dap.IUnMarshaller, ds *dap.Dataset) error {
	cu, checksummed := u.(dap.IChecksumUnMarshaller)
	for _, v := range ds.SelectedVars() {
		if checksummed {
			cu.ResetChecksum()
		}
		if err := v.Deserialize(u); err != nil {
			return errors.Wrapf(err, errors.Internal, "could not read %s", v.Name())
		}
		if checksummed {
			if err := cu.VerifyChecksum(); err != nil {
				return errors.Wrapf(err, errors.Internal, "checksum of %s", v.Name())
			}
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// ReadDataDDX reads a data+metadata document written by WriteDataDDX. r must
// be positioned at the first boundary. The data part is decoded with the
// codec named by its X-DAP-Byte-Order header (XDR if it is missing).
func ReadDataDDX(r io.Reader, boundary string, maxVectorLength int) (*dap.Dataset, error) {
	mr := multipart.NewReader(r, boundary)

	part, err := mr.NextPart()
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "the data ddx document has no metadata part")
	}
	if err := checkPart(part.Header, "text/xml", common.ObjDDX); err != nil {
		return nil, err
	}
	ds, blob, err := dap.ParseDDX(part)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "could not read the metadata part")
	}

	part, err = mr.NextPart()
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "the data ddx document has no data part")
	}
	if err := checkPart(part.Header, "application/octet-stream", common.ObjData); err != nil {
		return nil, err
	}
	cid := strings.Trim(part.Header.Get("Content-Id"), "<>")
	if blob != "" && cid != blob {
		return nil, errors.Newf(errors.Internal, "Content-Id mismatch. Expected: %s, but got: %s", blob, cid)
	}

	codec, err := codecFor(part.Header.Get("X-DAP-Byte-Order"), maxVectorLength)
	if err != nil {
		return nil, err
	}
	if err := deserializeDataset(codec.NewUnMarshaller(bufio.NewReader(part)), ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// ReadResponse reads a complete data+metadata response including its status
// line and headers, e.g. as received from a server
func ReadResponse(r io.Reader, maxVectorLength int) (*dap.Dataset, error) {
	br := bufio.NewReader(r)
	tp := textproto.NewReader(br)

	status, err := tp.ReadLine()
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "could not read the status line")
	}
	fields := strings.Fields(status)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return nil, errors.Newf(errors.Internal, "invalid status line %q", status)
	}
	header, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "could not read the response headers")
	}
	if fields[1] != "200" {
		body, _ := io.ReadAll(io.LimitReader(br, 4096))
		return nil, errors.Newf(errors.Internal, "server answered %s: %s", strings.Join(fields[1:], " "), strings.TrimSpace(string(body)))
	}

	return ReadBody(header, br, maxVectorLength)
}

// ReadBody decodes the body of a data+metadata response given its headers.
// A gzip Content-Encoding is undone first.
func ReadBody(header textproto.MIMEHeader, body io.Reader, maxVectorLength int) (*dap.Dataset, error) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || !strings.EqualFold(mediaType, "multipart/related") || params["boundary"] == "" {
		return nil, errors.Newf(errors.Internal, "not a data ddx response: %q", header.Get("Content-Type"))
	}

	if strings.EqualFold(header.Get("Content-Encoding"), common.EncGzip.String()) {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "invalid gzip body")
		}
		defer gz.Close()
		body = gz
	}
	return ReadDataDDX(body, params["boundary"], maxVectorLength)
}

// checkPart verifies the Content-Type and Content-Description of a part and
// that it has a Content-Id
func checkPart(h textproto.MIMEHeader, contentType string, object common.ObjectType) error {
	if !strings.Contains(strings.ToLower(h.Get("Content-Type")), contentType) {
		return errors.Newf(errors.Internal, "Content-Type for this part of a data ddx document must be %s", contentType)
	}
	if got := common.ParseDescription(h.Get("Content-Description")); got != object {
		return errors.Newf(errors.Internal, "Content-Description '%s' not the expected value (expected: %s)", h.Get("Content-Description"), object)
	}
	if h.Get("Content-Id") == "" {
		return errors.New(errors.Internal, "the data ddx document is broken - missing Content-Id")
	}
	return nil
}

func codecFor(byteOrder string, maxVectorLength int) (serializer.ICodec, error) {
	if byteOrder == "" {
		return serializer.NewCodec(serializer.CodecXDR, nil, maxVectorLength)
	}
	codec, err := serializer.CodecForByteOrder(byteOrder, maxVectorLength)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "unsupported X-DAP-Byte-Order")
	}
	return codec, nil
}

// --------------------------------------------------------------------------
// Cache entries
// --------------------------------------------------------------------------

// NewEntryCodec returns the format of function cache entries: a data+metadata
// document without response headers, encoded with codec
func NewEntryCodec(codec serializer.ICodec, domain string, maxVectorLength int) cache.IEntryCodec {
	return cache.NewEntryCodecFunc(
		func(w io.Writer, ds *dap.Dataset) error {
			return WriteDataDDX(w, ds, codec, cacheBoundary, cacheStart, NewContentID(domain))
		},
		func(r io.Reader) (*dap.Dataset, error) {
			return ReadDataDDX(r, cacheBoundary, maxVectorLength)
		},
	)
}
