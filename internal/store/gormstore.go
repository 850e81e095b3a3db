package store

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/pkg/common"
)

const snapshotTopic = "catalog.snapshot"

// GormStore persists catalog records through gorm and broadcasts a full
// ordered snapshot over an event bus after every successful mutation,
// matching the listener semantics of a hosted document collection.
type GormStore struct {
	db  *gorm.DB
	bus EventBus.Bus
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, bus: EventBus.New()}
}

func (s *GormStore) Subscribe(onSnapshot func(Snapshot)) (UnsubscribeFunc, error) {
	handler := func(snap Snapshot) { onSnapshot(snap) }
	// transactional keeps per-subscriber delivery in publish order
	if err := s.bus.SubscribeAsync(snapshotTopic, handler, true); err != nil {
		return nil, errors.Wrap(err, "store: subscribe")
	}
	// a new listener gets the current contents right away
	snap, err := s.snapshot(context.Background())
	if err != nil {
		_ = s.bus.Unsubscribe(snapshotTopic, handler)
		return nil, err
	}
	onSnapshot(snap)

	var done bool
	return func() {
		if done {
			return
		}
		done = true
		if err := s.bus.Unsubscribe(snapshotTopic, handler); err != nil {
			zap.L().Warn("catalog store unsubscribe failed", zap.Error(err))
		}
	}, nil
}

func (s *GormStore) Create(ctx context.Context, rec domain.Product) (string, error) {
	now := time.Now()
	rec.ID = common.NextDocID()
	rec.Sort = common.NextID()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", errors.Wrap(err, "store: create record")
	}
	s.publish(ctx)
	return rec.ID, nil
}

func (s *GormStore) Set(ctx context.Context, id string, rec domain.Product) error {
	var existing domain.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&existing).Error
	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		// document-store set() creates the record at the given id
		rec.ID = id
		rec.Sort = common.NextID()
		rec.CreatedAt = time.Now()
		rec.UpdatedAt = rec.CreatedAt
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return errors.Wrap(err, "store: set record")
		}
	case err != nil:
		return errors.Wrap(err, "store: set record")
	default:
		existing.Name = rec.Name
		existing.Category = rec.Category
		existing.Price = rec.Price
		existing.Image = rec.Image
		existing.UpdatedAt = time.Now()
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return errors.Wrap(err, "store: set record")
		}
	}
	s.publish(ctx)
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{}).Error; err != nil {
		return errors.Wrap(err, "store: delete record")
	}
	s.publish(ctx)
	return nil
}

func (s *GormStore) snapshot(ctx context.Context) (Snapshot, error) {
	var rows []domain.Product
	if err := s.db.WithContext(ctx).Order("sort ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "store: load snapshot")
	}
	snap := make(Snapshot, 0, len(rows))
	for _, r := range rows {
		snap = append(snap, Entry{ID: r.ID, Record: r})
	}
	return snap, nil
}

func (s *GormStore) publish(ctx context.Context) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		zap.L().Error("catalog snapshot publish failed", zap.Error(err))
		return
	}
	s.bus.Publish(snapshotTopic, snap)
}
