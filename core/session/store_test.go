package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookbot/core/order"
)

func newBareStore() *Store {
	return NewStore(func() *order.Cart { return order.NewCart(nopPricer{}) })
}

type nopPricer struct{}

func (nopPricer) Price(string) (decimal.Decimal, bool) { return decimal.Decimal{}, false }

func TestStoreGetCreatesInitialSession(t *testing.T) {
	s := newBareStore()

	sess := s.Get(42)
	require.NotNil(t, sess)
	assert.Equal(t, StateStart, sess.State)
	assert.Same(t, sess, s.Get(42), "one live session per chat id")
	assert.Equal(t, 1, s.Len())
}

func TestStoreTransitionAndRemove(t *testing.T) {
	s := newBareStore()

	s.Transition(42, StateMenuBrowse, "args")
	sess := s.Get(42)
	assert.Equal(t, StateMenuBrowse, sess.State)
	assert.Equal(t, "args", sess.Args)

	s.Remove(42)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, StateStart, s.Get(42).State, "recreated fresh after removal")
}

func TestStoreLockSerializesSameChat(t *testing.T) {
	s := newBareStore()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock(7)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestFileSnapshotterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	snap := NewFileSnapshotter(path)
	ctx := context.Background()

	records := map[int64]Record{
		1: {State: StateMenuBrowse},
		2: {State: StateOrderConfirm, Args: "pending"},
	}
	require.NoError(t, snap.Save(ctx, records))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestFileSnapshotterMissingFileIsEmpty(t *testing.T) {
	snap := NewFileSnapshotter(filepath.Join(t.TempDir(), "absent.json"))

	loaded, err := snap.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRestoreRoundTripKeepsHandlers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	ctx := context.Background()

	first := newBareStore().WithPersistence(NewFileSnapshotter(path), time.Hour)
	first.Transition(1, StateAddressInput, "")
	first.Transition(2, StateCartReview, "")
	require.NoError(t, first.Close(ctx))

	second := newBareStore().WithPersistence(NewFileSnapshotter(path), time.Hour)
	require.NoError(t, second.Restore(ctx))
	defer second.Close(ctx)

	assert.Equal(t, StateAddressInput, second.Get(1).State)
	assert.Equal(t, StateCartReview, second.Get(2).State)
	assert.Nil(t, second.Get(1).Cart, "carts do not survive restarts")
}

func TestRestoreResetsUnknownStateTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	ctx := context.Background()

	snap := NewFileSnapshotter(path)
	require.NoError(t, snap.Save(ctx, map[int64]Record{
		1: {State: "no_such_state"},
		2: {State: StateMenuBrowse},
	}))

	s := newBareStore().WithPersistence(snap, time.Hour)
	require.NoError(t, s.Restore(ctx))
	defer s.Close(ctx)

	assert.Equal(t, StateStart, s.Get(1).State)
	assert.Equal(t, StateMenuBrowse, s.Get(2).State)
}

// countingSnapshotter records Save calls and can fail the first n of them.
type countingSnapshotter struct {
	mu       sync.Mutex
	saves    int
	failNext int
	last     map[int64]Record
}

func (c *countingSnapshotter) Save(_ context.Context, records map[int64]Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.failNext > 0 {
		c.failNext--
		return assert.AnError
	}
	c.last = records
	return nil
}

func (c *countingSnapshotter) Load(context.Context) (map[int64]Record, error) {
	return map[int64]Record{}, nil
}

func (c *countingSnapshotter) stats() (int, map[int64]Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves, c.last
}

func TestPersistenceDebouncesMutations(t *testing.T) {
	snap := &countingSnapshotter{}
	s := newBareStore().WithPersistence(snap, 30*time.Millisecond)

	for i := int64(1); i <= 5; i++ {
		s.Transition(i, StateMenuBrowse, "")
	}

	require.Eventually(t, func() bool {
		saves, last := snap.stats()
		return saves >= 1 && len(last) == 5
	}, time.Second, 5*time.Millisecond)

	saves, _ := snap.stats()
	assert.LessOrEqual(t, saves, 2, "mutations inside one window coalesce")

	// quiescent store stops writing
	time.Sleep(100 * time.Millisecond)
	after, _ := snap.stats()
	assert.Equal(t, saves, after)

	require.NoError(t, s.Close(context.Background()))
}

func TestPersistenceRetriesFailedWrite(t *testing.T) {
	snap := &countingSnapshotter{failNext: 1}
	s := newBareStore().WithPersistence(snap, 20*time.Millisecond)

	s.Transition(1, StateOrderConfirm, "")

	require.Eventually(t, func() bool {
		_, last := snap.stats()
		return last != nil && last[1].State == StateOrderConfirm
	}, time.Second, 5*time.Millisecond, "failed write stays dirty and retries")

	require.NoError(t, s.Close(context.Background()))
}

func TestCloseFlushesPendingState(t *testing.T) {
	snap := &countingSnapshotter{}
	s := newBareStore().WithPersistence(snap, time.Hour)

	s.Transition(9, StateContactInput, "")
	require.NoError(t, s.Close(context.Background()))

	_, last := snap.stats()
	require.NotNil(t, last)
	assert.Equal(t, StateContactInput, last[9].State)
}
