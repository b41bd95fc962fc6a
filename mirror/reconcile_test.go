package mirror_test

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photomirror/photomirror/diff"
	"github.com/photomirror/photomirror/mirror"
)

type item struct {
	ID    string
	Value string
}

var itemSpec = mirror.Spec[item]{
	Entity: "item",
	Key:    func(i item) string { return i.ID },
	Diff: func(o, p item) mirror.DiffResult {
		return diff.Record(diff.Field{Name: "value", Result: diff.Scalar(o.Value, p.Value)})
	},
	Check: func(i item) error {
		if i.Value == "malformed" {
			return fmt.Errorf("malformed item %q", i.ID)
		}
		return nil
	},
}

// memStore is an in-memory Store used to test the reconciler without a real
// database.
type memStore[E any] struct {
	mu   sync.Mutex
	key  func(E) string
	rows map[string]mirror.Persisted[E]
}

func newMemStore[E any](key func(E) string) *memStore[E] {
	return &memStore[E]{key: key, rows: make(map[string]mirror.Persisted[E])}
}

func (s *memStore[E]) Get(_ context.Context, key string) (mirror.Persisted[E], bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[key]
	return p, ok, nil
}

func (s *memStore[E]) Upsert(_ context.Context, e E) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[s.key(e)] = mirror.Persisted[E]{Entity: e}
	return nil
}

func (s *memStore[E]) MarkDeleted(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[key]
	if !ok {
		return fmt.Errorf("no row %q", key)
	}
	p.DeletedAt = &at
	s.rows[key] = p
	return nil
}

func (s *memStore[E]) LiveKeys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k, p := range s.rows {
		if p.DeletedAt == nil {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *memStore[E]) PurgeExpired(_ context.Context, cutoff time.Time) ([]E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged []E
	for k, p := range s.rows {
		if p.DeletedAt != nil && !p.DeletedAt.After(cutoff) {
			purged = append(purged, p.Entity)
			delete(s.rows, k)
		}
	}
	return purged, nil
}

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seqOf[E any](items ...E) iter.Seq[E] {
	return slices.Values(items)
}

func testLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t))
}

func TestReconcile_InsertUpdateUnchangedSkip(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(itemSpec.Key)
	clock := newStubClock()

	require.NoError(t, store.Upsert(ctx, item{ID: "same", Value: "v"}))
	require.NoError(t, store.Upsert(ctx, item{ID: "stale", Value: "old"}))

	c, err := mirror.Reconcile(ctx, itemSpec, store, seqOf(
		item{ID: "new", Value: "v"},
		item{ID: "same", Value: "v"},
		item{ID: "stale", Value: "new"},
		item{ID: "bad", Value: "malformed"},
	), clock, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 1, c.Inserted)
	assert.Equal(t, 1, c.Updated)
	assert.Equal(t, 1, c.Unchanged)
	assert.Equal(t, 1, c.Skipped)
	assert.Equal(t, 0, c.MarkedForDeletion)

	p, found, err := store.Get(ctx, "stale")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", p.Entity.Value)
}

func TestReconcile_AbsentBecomesTombstoned(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(itemSpec.Key)
	clock := newStubClock()

	require.NoError(t, store.Upsert(ctx, item{ID: "gone", Value: "v"}))
	require.NoError(t, store.Upsert(ctx, item{ID: "kept", Value: "v"}))

	c, err := mirror.Reconcile(ctx, itemSpec, store, seqOf(
		item{ID: "kept", Value: "v"},
	), clock, testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 1, c.MarkedForDeletion)
	p, found, _ := store.Get(ctx, "gone")
	require.True(t, found)
	require.NotNil(t, p.DeletedAt)
	assert.Equal(t, clock.Now(), *p.DeletedAt)

	// Already tombstoned rows are not re-marked on the next run.
	c, err = mirror.Reconcile(ctx, itemSpec, store, seqOf(
		item{ID: "kept", Value: "v"},
	), clock, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 0, c.MarkedForDeletion)
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(itemSpec.Key)
	clock := newStubClock()

	observed := []item{{ID: "a", Value: "1"}, {ID: "b", Value: "2"}}

	c, err := mirror.Reconcile(ctx, itemSpec, store, seqOf(observed...), clock, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Inserted)

	c, err = mirror.Reconcile(ctx, itemSpec, store, seqOf(observed...), clock, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, mirror.Counters{Unchanged: 2}, c)
}

func TestReconcile_ResurrectionIsUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(itemSpec.Key)
	clock := newStubClock()

	_, err := mirror.Reconcile(ctx, itemSpec, store, seqOf(item{ID: "a", Value: "1"}), clock, testLogger(t))
	require.NoError(t, err)

	// Disappears, gets tombstoned.
	_, err = mirror.Reconcile(ctx, itemSpec, store, seqOf[item](), clock, testLogger(t))
	require.NoError(t, err)

	// Reappears before expiry: live again, counted as updated.
	clock.Advance(24 * time.Hour)
	c, err := mirror.Reconcile(ctx, itemSpec, store, seqOf(item{ID: "a", Value: "1"}), clock, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Updated)
	assert.Equal(t, 0, c.Inserted)

	p, found, _ := store.Get(ctx, "a")
	require.True(t, found)
	assert.Nil(t, p.DeletedAt)
}

func TestReconcile_DuplicateObservedIdentity(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(itemSpec.Key)
	clock := newStubClock()

	c, err := mirror.Reconcile(ctx, itemSpec, store, seqOf(
		item{ID: "a", Value: "1"},
		item{ID: "a", Value: "1"},
	), clock, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Inserted)
	assert.Equal(t, 0, c.Unchanged)
}

func TestPurgeExpired_OnlyAfterWindow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(itemSpec.Key)
	clock := newStubClock()
	window := 30 * 24 * time.Hour

	_, err := mirror.Reconcile(ctx, itemSpec, store, seqOf(item{ID: "a", Value: "1"}), clock, testLogger(t))
	require.NoError(t, err)
	_, err = mirror.Reconcile(ctx, itemSpec, store, seqOf[item](), clock, testLogger(t))
	require.NoError(t, err)

	// One day before expiry nothing is purged.
	clock.Advance(window - 24*time.Hour)
	purged, err := mirror.PurgeExpired(ctx, "item", store, window, clock, testLogger(t))
	require.NoError(t, err)
	assert.Empty(t, purged)

	clock.Advance(48 * time.Hour)
	purged, err = mirror.PurgeExpired(ctx, "item", store, window, clock, testLogger(t))
	require.NoError(t, err)
	require.Len(t, purged, 1)
	assert.Equal(t, "a", purged[0].ID)

	_, found, _ := store.Get(ctx, "a")
	assert.False(t, found)
}

func TestPurgeExpired_LiveRowsNeverPurged(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(itemSpec.Key)
	clock := newStubClock()

	require.NoError(t, store.Upsert(ctx, item{ID: "live", Value: "v"}))

	clock.Advance(365 * 24 * time.Hour)
	purged, err := mirror.PurgeExpired(ctx, "item", store, 30*24*time.Hour, clock, testLogger(t))
	require.NoError(t, err)
	assert.Empty(t, purged)
}
