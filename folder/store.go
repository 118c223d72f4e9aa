package folder

import (
	"context"
	"time"

	"github.com/xraph/costledger/id"
)

// Store is the persistence interface for folders. Create must enforce name
// uniqueness; Delete must cascade to the folder's records and their
// transactions.
type Store interface {
	Create(ctx context.Context, f *Folder) error
	Get(ctx context.Context, folderID id.FolderID) (*Folder, error)
	GetByName(ctx context.Context, name string) (*Folder, error)
	List(ctx context.Context) ([]*Folder, error)
	Touch(ctx context.Context, folderID id.FolderID, at time.Time) error
	Delete(ctx context.Context, folderID id.FolderID) error
}
