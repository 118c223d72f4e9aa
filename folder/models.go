// Package folder defines the namespace entities that scope ledger records.
// A folder typically isolates one client or one accounting period; deleting
// a folder cascades to every record and transaction inside it.
package folder

import (
	"sort"
	"time"

	"github.com/xraph/costledger/id"
)

// Folder is a named namespace isolating one set of records.
type Folder struct {
	ID           id.FolderID `json:"id"`
	Name         string      `json:"name"` // unique across the store
	CreatedAt    time.Time   `json:"created_at"`
	LastAccessed *time.Time  `json:"last_accessed,omitempty"` // set on open
}

// Opened reports whether the folder has ever been opened.
func (f *Folder) Opened() bool { return f.LastAccessed != nil }

// SortMostRecent orders folders most-recently-opened first. Folders that
// were never opened sort after opened ones; ties break on CreatedAt, newest
// first. The sort is stable so equal folders keep their incoming order.
func SortMostRecent(folders []*Folder) {
	sort.SliceStable(folders, func(i, j int) bool {
		a, b := folders[i], folders[j]
		switch {
		case a.LastAccessed != nil && b.LastAccessed != nil:
			if !a.LastAccessed.Equal(*b.LastAccessed) {
				return a.LastAccessed.After(*b.LastAccessed)
			}
		case a.LastAccessed != nil:
			return true
		case b.LastAccessed != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
