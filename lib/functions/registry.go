package functions

import (
	"sort"

	"github.com/ValentinKolb/dDAP/lib/errors"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("functions")

// registryImpl keeps the functions in a concurrent map so that lookups from
// request goroutines never block on registration
type registryImpl struct {
	functions *xsync.MapOf[string, Definition]
}

// NewRegistry creates an empty function registry
func NewRegistry() IFunctionRegistry {
	return &registryImpl{
		functions: xsync.NewMapOf[string, Definition](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lib/functions/interface.go)
// --------------------------------------------------------------------------

func (r *registryImpl) Register(def Definition) error {
	if def.Name == "" || def.Fn == nil {
		return errors.New(errors.Internal, "a function needs a name and an implementation")
	}
	if _, loaded := r.functions.LoadOrStore(def.Name, def); loaded {
		return errors.Newf(errors.Internal, "function %q is already registered", def.Name)
	}
	Logger.Debugf("registered function %s", def.Name)
	return nil
}

func (r *registryImpl) IsFunction(name string) bool {
	_, ok := r.functions.Load(name)
	return ok
}

func (r *registryImpl) Lookup(name string) (Definition, bool) {
	return r.functions.Load(name)
}

func (r *registryImpl) List() []Definition {
	defs := make([]Definition, 0, r.functions.Size())
	r.functions.Range(func(_ string, def Definition) bool {
		defs = append(defs, def)
		return true
	})
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}
