package store

import (
	"time"

	"github.com/ValentinKolb/dDAP/lib/dap"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IDatasetStore is the source of the datasets a server answers requests for.
// Implementations must be safe for concurrent use.
type IDatasetStore interface {
	// Open returns a fresh copy of the dataset that the caller may constrain
	// and modify. Unknown identifiers yield a NoSuchDataset error.
	Open(id string) (*dap.Dataset, error)
	// LastModified returns the modification time of the dataset. ok is false
	// if the dataset is unknown or the store cannot tell.
	LastModified(id string) (t time.Time, ok bool)
	// List returns the identifiers of all datasets in lexical order
	List() ([]string, error)
}
