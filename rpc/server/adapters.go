package server

import (
	"github.com/ValentinKolb/dDAP/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// IResponseAdapter answers the requests for one object type
type IResponseAdapter interface {
	// Handle writes the response using the builder of the request. Errors
	// are returned, the server turns them into an error response.
	Handle(b *ResponseBuilder) error
}

// AdapterFunc adapts a function to IResponseAdapter
type AdapterFunc func(b *ResponseBuilder) error

func (f AdapterFunc) Handle(b *ResponseBuilder) error {
	return f(b)
}

// newAdapterTable returns the adapters of all object types a client can request
func newAdapterTable() *xsync.MapOf[common.ObjectType, IResponseAdapter] {
	adapters := xsync.NewMapOf[common.ObjectType, IResponseAdapter]()
	adapters.Store(common.ObjDAS, AdapterFunc((*ResponseBuilder).SendDAS))
	adapters.Store(common.ObjDDS, AdapterFunc((*ResponseBuilder).SendDDS))
	adapters.Store(common.ObjData, AdapterFunc((*ResponseBuilder).SendData))
	adapters.Store(common.ObjDDX, AdapterFunc((*ResponseBuilder).SendDDX))
	adapters.Store(common.ObjDataDDX, AdapterFunc((*ResponseBuilder).SendDataDDX))
	adapters.Store(common.ObjVersion, AdapterFunc((*ResponseBuilder).SendVersion))
	return adapters
}
