// Package catalog holds the client-side synchronization core: a controller
// that mirrors a push-subscribed record collection and manages the
// add-new-versus-edit-existing form state against it.
//
// The controller is single-owner: its methods must only be called from one
// goroutine. Start wires a store subscription and a serialization loop so
// snapshot pushes arriving on store goroutines are replayed on the owner
// loop; Do posts work onto that loop from the outside.
package catalog

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/internal/store"
)

// Mode discriminates the form state.
type Mode int

const (
	// Creating composes a brand-new record; the draft has no id yet.
	Creating Mode = iota
	// Editing overwrites the record identified by the session target id.
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "creating"
}

// Field names a draft field for SetField.
type Field string

const (
	FieldName     Field = "name"
	FieldCategory Field = "category"
	FieldPrice    Field = "price"
	FieldImage    Field = "image"
)

// EditSession is the mutable form state: the mode, the edit target when in
// Editing mode, and the draft record under construction.
type EditSession struct {
	Mode     Mode
	TargetID string
	Draft    domain.Product
}

// Controller owns the canonical local view of the remote collection plus a
// single edit session. The list is replaced wholesale on every push, never
// merged; the feed is the only source of truth for what is persisted.
type Controller struct {
	store   store.RecordStore
	list    store.Snapshot
	session EditSession

	onListChanged []func(store.Snapshot)

	ops   chan func()
	quit  chan struct{}
	done  chan struct{}
	unsub store.UnsubscribeFunc
}

func NewController(rs store.RecordStore) *Controller {
	return &Controller{
		store: rs,
		ops:   make(chan func(), 64),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// OnListChanged registers an observer invoked on the owner loop after every
// snapshot replacement. Register before Start.
func (c *Controller) OnListChanged(fn func(store.Snapshot)) {
	c.onListChanged = append(c.onListChanged, fn)
}

// Start launches the owner loop and subscribes to the store. Pushes are
// forwarded onto the loop, so no store goroutine ever touches controller
// state directly.
func (c *Controller) Start() error {
	go c.run()
	unsub, err := c.store.Subscribe(func(snap store.Snapshot) {
		c.post(func() { c.OnRemoteUpdate(snap) })
	})
	if err != nil {
		close(c.quit)
		return errors.Wrap(err, "catalog: subscribe")
	}
	c.unsub = unsub
	return nil
}

// Stop releases the subscription and terminates the owner loop. The
// controller must not be used afterwards.
func (c *Controller) Stop() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	close(c.quit)
	<-c.done
}

// Do executes fn on the owner loop and waits for it to finish. It is the
// only safe way to call controller methods from another goroutine. It
// reports false when the controller was stopped before fn could run;
// callers must not trust any state fn would have produced in that case.
func (c *Controller) Do(fn func()) bool {
	fin := make(chan struct{})
	if !c.post(func() {
		fn()
		close(fin)
	}) {
		return false
	}
	select {
	case <-fin:
		return true
	case <-c.done:
		// the loop may have run fn right before exiting
		select {
		case <-fin:
			return true
		default:
			return false
		}
	}
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.ops:
			fn()
		case <-c.quit:
			return
		}
	}
}

func (c *Controller) post(fn func()) bool {
	select {
	case c.ops <- fn:
		return true
	case <-c.quit:
		return false
	}
}

// OnRemoteUpdate replaces the local list with the pushed snapshot,
// preserving its order. No diffing, no dedup: last writer wins. The edit
// session is untouched unless its target vanished from the feed, in which
// case the session resets to Creating so the form never points at a record
// another actor already deleted.
func (c *Controller) OnRemoteUpdate(snap store.Snapshot) {
	c.list = snap.Clone()
	if c.session.Mode == Editing && !c.contains(c.session.TargetID) {
		zap.L().Info("edit target removed from feed, resetting session",
			zap.String("id", c.session.TargetID))
		c.resetSession()
	}
	for _, fn := range c.onListChanged {
		fn(c.list)
	}
}

// BeginEdit switches the session to Editing(id) with the draft populated
// from a snapshot copy of that record. Any unsaved draft is discarded.
func (c *Controller) BeginEdit(id string) error {
	for _, e := range c.list {
		if e.ID == id {
			c.session = EditSession{
				Mode:     Editing,
				TargetID: id,
				Draft:    e.Record.Clone(),
			}
			return nil
		}
	}
	return ErrNotFound
}

// SetField mutates one draft field in place. Validation happens at submit
// time, not here.
func (c *Controller) SetField(field Field, value string) error {
	switch field {
	case FieldName:
		c.session.Draft.Name = value
	case FieldCategory:
		c.session.Draft.Category = value
	case FieldPrice:
		c.session.Draft.Price = value
	case FieldImage:
		c.session.Draft.Image = value
	default:
		return errors.Errorf("catalog: unknown field %q", field)
	}
	return nil
}

// Submit validates the draft and issues the remote mutation: a create when
// Creating, a full overwrite of the target when Editing. The session resets
// to a fresh Creating draft immediately; the mutation's outcome arrives on
// the returned channel, and the record itself becomes visible only through
// the next feed push.
func (c *Controller) Submit(ctx context.Context) (<-chan error, error) {
	var missing []string
	if c.session.Draft.Name == "" {
		missing = append(missing, string(FieldName))
	}
	if c.session.Draft.Category == "" {
		missing = append(missing, string(FieldCategory))
	}
	if c.session.Draft.Price == "" {
		missing = append(missing, string(FieldPrice))
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	res := make(chan error, 1)
	rec := c.session.Draft.Clone()
	if c.session.Mode == Editing {
		id := c.session.TargetID
		go func() {
			res <- remoteResult("set", c.store.Set(ctx, id, rec))
		}()
	} else {
		go func() {
			_, err := c.store.Create(ctx, rec)
			res <- remoteResult("create", err)
		}()
	}
	c.resetSession()
	return res, nil
}

// DeleteRecord issues the remote delete for a record present in the local
// list. There is no optimistic removal: the record leaves the list when the
// feed push reflecting the deletion arrives.
func (c *Controller) DeleteRecord(ctx context.Context, id string) (<-chan error, error) {
	if !c.contains(id) {
		return nil, ErrNotFound
	}
	res := make(chan error, 1)
	go func() {
		res <- remoteResult("delete", c.store.Delete(ctx, id))
	}()
	return res, nil
}

// List returns the current snapshot. Callers must treat it as read-only.
func (c *Controller) List() store.Snapshot {
	return c.list
}

// Session returns a copy of the active edit session.
func (c *Controller) Session() EditSession {
	return c.session
}

func (c *Controller) resetSession() {
	c.session = EditSession{Mode: Creating}
}

func (c *Controller) contains(id string) bool {
	for _, e := range c.list {
		if e.ID == id {
			return true
		}
	}
	return false
}

func remoteResult(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
