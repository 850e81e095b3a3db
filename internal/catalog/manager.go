package catalog

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openshelf/prodsync/internal/store"
)

// Manager hands out one running Controller per owner (an authenticated
// user) and tears down controllers that have gone idle, releasing their
// store subscriptions.
type Manager struct {
	mu    sync.Mutex
	rs    store.RecordStore
	byOwn map[string]*managed
}

type managed struct {
	ctl      *Controller
	lastUsed time.Time
}

func NewManager(rs store.RecordStore) *Manager {
	return &Manager{rs: rs, byOwn: make(map[string]*managed)}
}

// Acquire returns the owner's controller, starting one on first use.
func (m *Manager) Acquire(owner string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.byOwn[owner]; ok {
		e.lastUsed = time.Now()
		return e.ctl, nil
	}
	ctl := NewController(m.rs)
	if err := ctl.Start(); err != nil {
		return nil, err
	}
	m.byOwn[owner] = &managed{ctl: ctl, lastUsed: time.Now()}
	zap.L().Info("catalog workbench started", zap.String("owner", owner))
	return ctl, nil
}

// Release stops and forgets the owner's controller, if any.
func (m *Manager) Release(owner string) {
	m.mu.Lock()
	e, ok := m.byOwn[owner]
	if ok {
		delete(m.byOwn, owner)
	}
	m.mu.Unlock()
	if ok {
		e.ctl.Stop()
		zap.L().Info("catalog workbench released", zap.String("owner", owner))
	}
}

// Sweep stops controllers idle longer than maxIdle and reports how many
// were reclaimed. Wired to the application scheduler.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	var victims []*managed

	m.mu.Lock()
	for owner, e := range m.byOwn {
		if e.lastUsed.Before(cutoff) {
			victims = append(victims, e)
			delete(m.byOwn, owner)
		}
	}
	m.mu.Unlock()

	for _, e := range victims {
		e.ctl.Stop()
	}
	if len(victims) > 0 {
		zap.L().Info("swept idle catalog workbenches", zap.Int("count", len(victims)))
	}
	return len(victims)
}

// Shutdown stops every controller. Called on application release.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*managed, 0, len(m.byOwn))
	for owner, e := range m.byOwn {
		all = append(all, e)
		delete(m.byOwn, owner)
	}
	m.mu.Unlock()
	for _, e := range all {
		e.ctl.Stop()
	}
}
