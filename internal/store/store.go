// Package store defines the push-subscribable record collection that backs
// the catalog: every mutation is followed by a full ordered snapshot pushed
// to all subscribers. Subscribers never see diffs.
package store

import (
	"context"

	"github.com/openshelf/prodsync/internal/domain"
)

// Entry pairs a document id with its record as delivered in a snapshot push.
type Entry struct {
	ID     string         `json:"id"`
	Record domain.Product `json:"record"`
}

// Snapshot is a full replacement view of the collection in arrival order.
type Snapshot []Entry

// Clone returns a deep copy; records are value types so a slice copy is enough.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// UnsubscribeFunc releases a subscription. Safe to call more than once.
type UnsubscribeFunc func()

// RecordStore is the remote collection contract. Create assigns the document
// id. Set overwrites the full record at id. Every mutation results in a
// snapshot push to all subscribers; the push is the only confirmation that a
// mutation is visible.
type RecordStore interface {
	// Subscribe registers onSnapshot and immediately delivers the current
	// snapshot to it. The callback may be invoked from the store's own
	// goroutine; callers are responsible for handing it off to their owner
	// loop.
	Subscribe(onSnapshot func(Snapshot)) (UnsubscribeFunc, error)

	Create(ctx context.Context, rec domain.Product) (string, error)
	Set(ctx context.Context, id string, rec domain.Product) error
	Delete(ctx context.Context, id string) error
}
