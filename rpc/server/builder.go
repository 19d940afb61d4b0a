package server

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dDAP/lib/cache"
	"github.com/ValentinKolb/dDAP/lib/constraint"
	"github.com/ValentinKolb/dDAP/lib/dap"
	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/ValentinKolb/dDAP/lib/functions"
	"github.com/ValentinKolb/dDAP/lib/store"
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/ValentinKolb/dDAP/rpc/serializer"
	"github.com/klauspost/compress/gzip"
)

const bodyBufferSize = 64 * 1024

// Options are the collaborators shared by all responses of a server
type Options struct {
	Config   common.ServerConfig
	Store    store.IDatasetStore
	Registry functions.IFunctionRegistry
	Codec    serializer.ICodec
	// Cache stores function results, nil evaluates them for every request
	Cache cache.IResponseCache
}

// ResponseBuilder writes the response to one request onto a sink. It is
// used by one goroutine.
type ResponseBuilder struct {
	opts Options
	req  *common.Request
	sink io.Writer
	ctx  context.Context
}

// NewResponseBuilder creates a builder for req. ctx is cancelled when the
// response must stop, e.g. by the timeout guard.
func NewResponseBuilder(ctx context.Context, opts Options, req *common.Request, sink io.Writer) *ResponseBuilder {
	return &ResponseBuilder{opts: opts, req: req, sink: sink, ctx: ctx}
}

// --------------------------------------------------------------------------
// Responses
// --------------------------------------------------------------------------

// SendDAS writes the attributes of the dataset. A function call in the
// constraint is evaluated (and cached) and the attributes of its result are
// sent instead.
func (b *ResponseBuilder) SendDAS() error {
	return b.respond(common.ObjDAS, false, func(env *Envelope, ds *dap.Dataset) error {
		return b.writeText(env, func(w io.Writer) error {
			return dap.PrintDAS(w, ds)
		})
	})
}

// SendDDS writes the constrained descriptor of the dataset
func (b *ResponseBuilder) SendDDS() error {
	return b.respond(common.ObjDDS, false, func(env *Envelope, ds *dap.Dataset) error {
		return b.writeText(env, func(w io.Writer) error {
			return dap.PrintDDS(w, ds, true)
		})
	})
}

// SendDDX writes the constrained XML descriptor of the dataset
func (b *ResponseBuilder) SendDDX() error {
	return b.respond(common.ObjDDX, false, func(env *Envelope, ds *dap.Dataset) error {
		return b.writeText(env, func(w io.Writer) error {
			return dap.PrintDDX(w, ds, true, "")
		})
	})
}

// SendData writes the constrained descriptor followed by "Data:" and the
// encoded values of the selected variables
func (b *ResponseBuilder) SendData() error {
	return b.respond(common.ObjData, true, func(env *Envelope, ds *dap.Dataset) error {
		b.negotiate(env)
		return b.writeBody(env.WriteBinary, env, func(w io.Writer) error {
			if err := dap.PrintDDS(w, ds, true); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "Data:\n"); err != nil {
				return err
			}
			return serializeDataset(b.opts.Codec.NewMarshaller(w), ds)
		})
	})
}

// SendDataDDX writes a multipart response holding the constrained DDX and
// the encoded values of the selected variables
func (b *ResponseBuilder) SendDataDDX() error {
	return b.respond(common.ObjDataDDX, true, func(env *Envelope, ds *dap.Dataset) error {
		env.Boundary = NewBoundary()
		env.Start = DataDDXStart
		env.ContentID = NewContentID(b.opts.Config.ContentIDDomain)
		b.negotiate(env)
		return b.writeBody(env.WriteMultipart, env, func(w io.Writer) error {
			return WriteDataDDX(w, ds, b.opts.Codec, env.Boundary, env.Start, env.ContentID)
		})
	})
}

// SendVersion writes the server and protocol versions
func (b *ResponseBuilder) SendVersion() error {
	env := b.envelope(common.ObjVersion, time.Time{})
	return b.writeText(env, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Server version: %s\nProtocol version: %s\n", env.Server, env.Protocol)
		return err
	})
}

// SendNotModified writes the short answer to a conditional request
func (b *ResponseBuilder) SendNotModified() error {
	return b.sinkErr(b.envelope(common.ObjUnknown, time.Time{}).WriteNotModified(b.sink))
}

// SendError writes err as a complete error response. It must only be used
// before anything else was written to the sink.
func (b *ResponseBuilder) SendError(err error) error {
	status, reason := errors.HTTPStatus(err)
	var buf bytes.Buffer
	if werr := b.envelope(common.ObjError, time.Time{}).WriteError(&buf, status, reason); werr != nil {
		return werr
	}
	if werr := dap.PrintError(&buf, errors.DAPCode(err), err.Error()); werr != nil {
		return werr
	}
	_, werr := b.sink.Write(buf.Bytes())
	return b.sinkErr(werr)
}

// --------------------------------------------------------------------------
// Pipeline
// --------------------------------------------------------------------------

// respond runs the steps shared by all dataset responses: load the dataset,
// answer conditional requests, apply the constraint and check the size
func (b *ResponseBuilder) respond(t common.ObjectType, limited bool, write func(env *Envelope, ds *dap.Dataset) error) error {
	ds, err := b.opts.Store.Open(b.req.Dataset)
	if err != nil {
		return err
	}
	modified, ok := b.opts.Store.LastModified(b.req.Dataset)
	if !ok {
		modified = time.Time{}
	}
	if b.notModified(modified) {
		return b.SendNotModified()
	}

	result, release, err := b.constrain(ds)
	if err != nil {
		return err
	}
	defer release()

	if limited {
		if err := b.checkSize(result); err != nil {
			return err
		}
	}
	if err := b.ctx.Err(); err != nil {
		return errors.Wrap(context.Cause(b.ctx), errors.Timeout, "response cancelled")
	}
	return write(b.envelope(t, modified), result)
}

// constrain applies the constraint of the request to ds. Calls of registered
// functions are evaluated first (through the cache if there is one), the
// rest of the constraint then selects from their result. release must be
// called once the returned dataset was written.
func (b *ResponseBuilder) constrain(ds *dap.Dataset) (*dap.Dataset, func(), error) {
	projection, calls := constraint.Split(b.req.Constraint, b.opts.Registry)
	if calls == "" {
		if err := constraint.ParseAndApply(ds, projection); err != nil {
			return nil, nil, err
		}
		return ds, func() {}, nil
	}

	Logger.Debugf("%s: function part %q, projection %q", b.req.Dataset, calls, projection)
	evaluate := func(ctx context.Context) (*dap.Dataset, error) {
		return constraint.EvaluateFunctions(ctx, ds, calls, b.opts.Registry)
	}

	var (
		result *dap.Dataset
		token  *cache.Token
		err    error
	)
	if b.opts.Cache != nil {
		result, token, err = b.opts.Cache.GetOrCompute(b.ctx, b.req.Dataset, calls, evaluate)
	} else {
		result, err = evaluate(b.ctx)
	}
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := token.Release(); err != nil {
			Logger.Warningf("could not release cache entry of %s: %v", b.req.Dataset, err)
		}
	}

	// the function result is marked as read, the remaining projection alone
	// decides what is sent
	result.ClearReadFlags()
	result.MarkAll(false)
	if err := constraint.ParseAndApply(result, projection); err != nil {
		release()
		return nil, nil, err
	}
	return result, release, nil
}

// notModified reports whether a conditional request can be answered with 304
func (b *ResponseBuilder) notModified(modified time.Time) bool {
	since := b.req.IfModifiedSince
	if since.IsZero() || modified.IsZero() {
		return false
	}
	// header dates have a resolution of one second
	return !since.Before(modified.Truncate(time.Second))
}

func (b *ResponseBuilder) checkSize(ds *dap.Dataset) error {
	limit := b.opts.Config.ResponseLimit()
	if limit <= 0 {
		return nil
	}
	if size := ds.RequestSize(true); size > limit {
		return errors.Newf(errors.TooLarge,
			"The Request for %d KB is too large; requests for this user are limited to %d KB.", size/1024, limit/1024)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (b *ResponseBuilder) envelope(t common.ObjectType, modified time.Time) *Envelope {
	return &Envelope{
		Type:         t,
		Encoding:     common.EncPlain,
		LastModified: modified,
		Protocol:     b.opts.Config.ProtocolVersion,
		Server:       b.opts.Config.ServerVersion,
	}
}

// negotiate switches the envelope to gzip if the server and the client allow it
func (b *ResponseBuilder) negotiate(env *Envelope) {
	if b.opts.Config.Compression && b.req.AcceptGzip {
		env.Encoding = common.EncGzip
	}
}

func (b *ResponseBuilder) writeText(env *Envelope, body func(w io.Writer) error) error {
	b.negotiate(env)
	return b.writeBody(env.WriteText, env, body)
}

// writeBody writes the headers uncompressed and the body in the encoding of
// the envelope
func (b *ResponseBuilder) writeBody(headers func(w io.Writer) error, env *Envelope, body func(w io.Writer) error) error {
	bw := bufio.NewWriterSize(b.sink, bodyBufferSize)
	if err := headers(bw); err != nil {
		return b.sinkErr(err)
	}

	var w io.Writer = bw
	var gz *gzip.Writer
	if env.Encoding == common.EncGzip {
		gz = gzip.NewWriter(bw)
		w = gz
	}
	if err := body(w); err != nil {
		// what was buffered so far is still sent, the client detects the
		// truncated response
		_ = bw.Flush()
		return b.sinkErr(err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return b.sinkErr(err)
		}
	}
	return b.sinkErr(bw.Flush())
}

func (b *ResponseBuilder) sinkErr(err error) error {
	return errors.Wrapf(err, errors.SinkFailure, "writing the response for %s", b.req.Dataset)
}
