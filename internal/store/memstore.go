package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/pkg/common"
)

// ErrNoSuchRecord is returned by MemStore.Delete for unknown ids when the
// store is configured to be strict. The gorm backend treats deletes of
// missing rows as no-ops, so MemStore defaults to the same.
var ErrNoSuchRecord = errors.New("store: no such record")

// MemStore is an in-memory RecordStore with the same push semantics as
// GormStore. It backs the controller tests and the local demo mode.
type MemStore struct {
	mu      sync.Mutex
	order   []string
	records map[string]domain.Product
	subs    map[int]func(Snapshot)
	nextSub int

	// StrictDelete makes Delete fail for unknown ids instead of no-op.
	StrictDelete bool

	// FailNext, when set, makes the next mutation return the given error
	// without touching state. Used to exercise remote-failure paths.
	FailNext error
}

func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]domain.Product),
		subs:    make(map[int]func(Snapshot)),
	}
}

func (s *MemStore) Subscribe(onSnapshot func(Snapshot)) (UnsubscribeFunc, error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = onSnapshot
	snap := s.snapshotLocked()
	s.mu.Unlock()

	onSnapshot(snap)
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

func (s *MemStore) Create(ctx context.Context, rec domain.Product) (string, error) {
	s.mu.Lock()
	if err := s.takeFailLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	id := common.NextDocID()
	rec.ID = id
	s.records[id] = rec
	s.order = append(s.order, id)
	subs, snap := s.fanoutLocked()
	s.mu.Unlock()

	deliver(subs, snap)
	return id, nil
}

func (s *MemStore) Set(ctx context.Context, id string, rec domain.Product) error {
	s.mu.Lock()
	if err := s.takeFailLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	rec.ID = id
	if _, ok := s.records[id]; !ok {
		s.order = append(s.order, id)
	}
	s.records[id] = rec
	subs, snap := s.fanoutLocked()
	s.mu.Unlock()

	deliver(subs, snap)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.takeFailLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.records[id]; !ok {
		s.mu.Unlock()
		if s.StrictDelete {
			return ErrNoSuchRecord
		}
		return nil
	}
	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	subs, snap := s.fanoutLocked()
	s.mu.Unlock()

	deliver(subs, snap)
	return nil
}

// Len reports the number of stored records.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Get returns the stored record for id, if present.
func (s *MemStore) Get(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec, ok
}

func (s *MemStore) takeFailLocked() error {
	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return err
	}
	return nil
}

func (s *MemStore) snapshotLocked() Snapshot {
	snap := make(Snapshot, 0, len(s.order))
	for _, id := range s.order {
		snap = append(snap, Entry{ID: id, Record: s.records[id]})
	}
	return snap
}

func (s *MemStore) fanoutLocked() ([]func(Snapshot), Snapshot) {
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs, s.snapshotLocked()
}

func deliver(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap.Clone())
	}
}
