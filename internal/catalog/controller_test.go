package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/prodsync/internal/domain"
	"github.com/openshelf/prodsync/internal/store"
)

// recordingStore captures mutation calls so tests can assert exactly what
// the controller sent, without any persistence behind it.
type recordingStore struct {
	creates []domain.Product
	sets    map[string]domain.Product
	deletes []string
	err     error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{sets: make(map[string]domain.Product)}
}

func (s *recordingStore) Subscribe(onSnapshot func(store.Snapshot)) (store.UnsubscribeFunc, error) {
	onSnapshot(nil)
	return func() {}, nil
}

func (s *recordingStore) Create(_ context.Context, rec domain.Product) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.creates = append(s.creates, rec)
	return "generated-id", nil
}

func (s *recordingStore) Set(_ context.Context, id string, rec domain.Product) error {
	if s.err != nil {
		return s.err
	}
	s.sets[id] = rec
	return nil
}

func (s *recordingStore) Delete(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deletes = append(s.deletes, id)
	return nil
}

func snapshotOf(recs ...domain.Product) store.Snapshot {
	snap := make(store.Snapshot, 0, len(recs))
	for _, r := range recs {
		snap = append(snap, store.Entry{ID: r.ID, Record: r})
	}
	return snap
}

func milkTea() domain.Product {
	return domain.Product{ID: "p1", Name: "Trà sữa", Category: "Trà", Price: "25000"}
}

func TestSubmitCreating(t *testing.T) {
	rs := newRecordingStore()
	c := NewController(rs)

	require.NoError(t, c.SetField(FieldName, "Phin sữa đá"))
	require.NoError(t, c.SetField(FieldCategory, "Cà phê"))
	require.NoError(t, c.SetField(FieldPrice, "29000"))

	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-res)

	require.Len(t, rs.creates, 1)
	got := rs.creates[0]
	assert.Equal(t, "Phin sữa đá", got.Name)
	assert.Equal(t, "Cà phê", got.Category)
	assert.Equal(t, "29000", got.Price)
	assert.Empty(t, got.Image)

	// session reset to a fresh empty Creating draft
	sess := c.Session()
	assert.Equal(t, Creating, sess.Mode)
	assert.Empty(t, sess.TargetID)
	assert.Equal(t, domain.Product{}, sess.Draft)
}

func TestSubmitEmptyImageAllowed(t *testing.T) {
	rs := newRecordingStore()
	c := NewController(rs)

	require.NoError(t, c.SetField(FieldName, "n"))
	require.NoError(t, c.SetField(FieldCategory, "c"))
	require.NoError(t, c.SetField(FieldPrice, "1"))

	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-res)
	require.Len(t, rs.creates, 1)
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name    string
		fill    map[Field]string
		missing []string
	}{
		{"all empty", nil, []string{"name", "category", "price"}},
		{"no price", map[Field]string{FieldName: "a", FieldCategory: "b"}, []string{"price"}},
		{"no category", map[Field]string{FieldName: "a", FieldPrice: "1"}, []string{"category"}},
		{"no name", map[Field]string{FieldCategory: "b", FieldPrice: "1"}, []string{"name"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rs := newRecordingStore()
			c := NewController(rs)
			c.OnRemoteUpdate(snapshotOf(milkTea()))
			for f, v := range tc.fill {
				require.NoError(t, c.SetField(f, v))
			}
			before := c.Session()

			res, err := c.Submit(context.Background())
			assert.Nil(t, res)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ElementsMatch(t, tc.missing, verr.Missing)

			// zero remote calls, list and session untouched
			assert.Empty(t, rs.creates)
			assert.Empty(t, rs.sets)
			assert.Empty(t, rs.deletes)
			assert.Equal(t, before, c.Session())
			assert.Len(t, c.List(), 1)
		})
	}
}

func TestBeginEditPopulatesDraft(t *testing.T) {
	c := NewController(newRecordingStore())
	rec := milkTea()
	rec.Image = "aW1n"
	c.OnRemoteUpdate(snapshotOf(rec))

	require.NoError(t, c.BeginEdit("p1"))

	sess := c.Session()
	assert.Equal(t, Editing, sess.Mode)
	assert.Equal(t, "p1", sess.TargetID)
	assert.Equal(t, rec, sess.Draft)

	// draft mutations must not leak back into the snapshot
	require.NoError(t, c.SetField(FieldName, "changed"))
	assert.Equal(t, "Trà sữa", c.List()[0].Record.Name)
}

func TestBeginEditMissing(t *testing.T) {
	c := NewController(newRecordingStore())
	c.OnRemoteUpdate(snapshotOf(milkTea()))
	require.NoError(t, c.BeginEdit("p1"))
	before := c.Session()

	err := c.BeginEdit("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, c.Session())
}

func TestBeginEditOverwritesUnsavedDraft(t *testing.T) {
	c := NewController(newRecordingStore())
	other := domain.Product{ID: "p2", Name: "Freeze", Category: "Đá xay", Price: "55000"}
	c.OnRemoteUpdate(snapshotOf(milkTea(), other))

	require.NoError(t, c.SetField(FieldName, "half-typed"))
	require.NoError(t, c.BeginEdit("p2"))

	assert.Equal(t, other, c.Session().Draft)
}

func TestSubmitEditingOverwritesTarget(t *testing.T) {
	rs := newRecordingStore()
	c := NewController(rs)
	c.OnRemoteUpdate(snapshotOf(milkTea()))

	require.NoError(t, c.BeginEdit("p1"))
	require.NoError(t, c.SetField(FieldPrice, "27000"))

	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-res)

	require.Contains(t, rs.sets, "p1")
	assert.Equal(t, "27000", rs.sets["p1"].Price)
	assert.Empty(t, rs.creates)
	assert.Equal(t, Creating, c.Session().Mode)
}

func TestSubmitRemoteFailureSurfaces(t *testing.T) {
	rs := newRecordingStore()
	rs.err = errors.New("backend unavailable")
	c := NewController(rs)

	require.NoError(t, c.SetField(FieldName, "n"))
	require.NoError(t, c.SetField(FieldCategory, "c"))
	require.NoError(t, c.SetField(FieldPrice, "1"))

	res, err := c.Submit(context.Background())
	require.NoError(t, err)

	remoteErr := <-res
	var rerr *RemoteError
	require.ErrorAs(t, remoteErr, &rerr)
	assert.Equal(t, "create", rerr.Op)

	// session resets regardless of remote outcome
	assert.Equal(t, Creating, c.Session().Mode)
	assert.Equal(t, domain.Product{}, c.Session().Draft)
}

func TestDeleteRecord(t *testing.T) {
	rs := newRecordingStore()
	c := NewController(rs)
	c.OnRemoteUpdate(snapshotOf(milkTea()))

	res, err := c.DeleteRecord(context.Background(), "p1")
	require.NoError(t, err)
	require.NoError(t, <-res)
	assert.Equal(t, []string{"p1"}, rs.deletes)

	// no optimistic removal: the record stays until the next push
	assert.Len(t, c.List(), 1)

	c.OnRemoteUpdate(store.Snapshot{})
	assert.Empty(t, c.List())
}

func TestDeleteRecordMissing(t *testing.T) {
	rs := newRecordingStore()
	c := NewController(rs)

	res, err := c.DeleteRecord(context.Background(), "missing")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, rs.deletes)
}

func TestOnRemoteUpdateIdempotent(t *testing.T) {
	c := NewController(newRecordingStore())
	snap := snapshotOf(milkTea(), domain.Product{ID: "p2", Name: "B", Category: "x", Price: "2"})

	c.OnRemoteUpdate(snap)
	first := c.List()
	c.OnRemoteUpdate(snap)
	second := c.List()

	assert.Equal(t, first, second)
	require.Len(t, second, 2)
	assert.Equal(t, "p1", second[0].ID)
	assert.Equal(t, "p2", second[1].ID)
}

func TestOnRemoteUpdatePreservesOrder(t *testing.T) {
	c := NewController(newRecordingStore())
	snap := snapshotOf(
		domain.Product{ID: "z", Name: "z", Category: "c", Price: "1"},
		domain.Product{ID: "a", Name: "a", Category: "c", Price: "1"},
		domain.Product{ID: "m", Name: "m", Category: "c", Price: "1"},
	)
	c.OnRemoteUpdate(snap)

	got := make([]string, 0, 3)
	for _, e := range c.List() {
		got = append(got, e.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, got)
}

func TestOnRemoteUpdateDoesNotTouchSession(t *testing.T) {
	c := NewController(newRecordingStore())
	c.OnRemoteUpdate(snapshotOf(milkTea()))
	require.NoError(t, c.BeginEdit("p1"))
	require.NoError(t, c.SetField(FieldPrice, "99000"))

	// target still present: session and draft survive the push
	updated := milkTea()
	updated.Price = "26000"
	c.OnRemoteUpdate(snapshotOf(updated))

	sess := c.Session()
	assert.Equal(t, Editing, sess.Mode)
	assert.Equal(t, "99000", sess.Draft.Price)
}

func TestEditTargetDeletedResetsSession(t *testing.T) {
	c := NewController(newRecordingStore())
	c.OnRemoteUpdate(snapshotOf(milkTea()))
	require.NoError(t, c.BeginEdit("p1"))

	// another actor deleted p1; the next push no longer carries it
	c.OnRemoteUpdate(store.Snapshot{})

	sess := c.Session()
	assert.Equal(t, Creating, sess.Mode)
	assert.Empty(t, sess.TargetID)
	assert.Equal(t, domain.Product{}, sess.Draft)
}

func TestSetFieldUnknown(t *testing.T) {
	c := NewController(newRecordingStore())
	assert.Error(t, c.SetField(Field("bogus"), "v"))
}

func TestListObservers(t *testing.T) {
	c := NewController(newRecordingStore())
	var seen []int
	c.OnListChanged(func(snap store.Snapshot) { seen = append(seen, len(snap)) })

	c.OnRemoteUpdate(snapshotOf(milkTea()))
	c.OnRemoteUpdate(store.Snapshot{})

	assert.Equal(t, []int{1, 0}, seen)
}

func TestDoAfterStop(t *testing.T) {
	c := NewController(store.NewMemStore())
	require.NoError(t, c.Start())
	c.Stop()

	var (
		res    <-chan error
		synErr error
	)
	ran := c.Do(func() { res, synErr = c.Submit(context.Background()) })

	// callers must see that nothing ran instead of blocking on res
	assert.False(t, ran)
	assert.Nil(t, res)
	assert.NoError(t, synErr)
}

func TestDoReportsCompletion(t *testing.T) {
	c := NewController(store.NewMemStore())
	require.NoError(t, c.Start())
	defer c.Stop()

	var touched bool
	assert.True(t, c.Do(func() { touched = true }))
	assert.True(t, touched)
}

func TestControllerAgainstMemStore(t *testing.T) {
	ms := store.NewMemStore()
	c := NewController(ms)
	require.NoError(t, c.Start())
	defer c.Stop()

	ctx := context.Background()
	c.Do(func() {
		require.NoError(t, c.SetField(FieldName, "Trà sữa"))
		require.NoError(t, c.SetField(FieldCategory, "Trà"))
		require.NoError(t, c.SetField(FieldPrice, "25000"))
	})

	var res <-chan error
	c.Do(func() {
		var err error
		res, err = c.Submit(ctx)
		require.NoError(t, err)
	})
	require.NoError(t, <-res)

	// created record becomes visible via the feed push
	assert.Eventually(t, func() bool {
		var n int
		c.Do(func() { n = len(c.List()) })
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)

	var id string
	c.Do(func() { id = c.List()[0].ID })

	var delRes <-chan error
	c.Do(func() {
		var err error
		delRes, err = c.DeleteRecord(ctx, id)
		require.NoError(t, err)
	})
	require.NoError(t, <-delRes)

	assert.Eventually(t, func() bool {
		var n int
		c.Do(func() { n = len(c.List()) })
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)
}
