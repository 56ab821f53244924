package session

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"cookbot/core/logger"
	"cookbot/core/order"
)

// Store maps chat ids to sessions. Map access is guarded by one mutex;
// each chat additionally owns a dedicated mutex so dispatches for the same
// chat serialize while distinct chats proceed in parallel.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex

	newCart func() *order.Cart
	saver   *saver
}

// NewStore creates an empty store. cartFactory builds a cart bound to the
// catalog price lookup; it is invoked lazily on first cart access.
func NewStore(cartFactory func() *order.Cart) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
		newCart:  cartFactory,
	}
}

// WithPersistence attaches a debounced snapshotter. Must be called before
// the store starts receiving events.
func (s *Store) WithPersistence(snap Snapshotter, debounce time.Duration) *Store {
	s.saver = newSaver(s, snap, debounce)
	return s
}

// Lock acquires the per-chat mutex and returns the unlock function.
// Independent chats never contend on each other's mutex.
func (s *Store) Lock(chatID int64) func() {
	s.mu.Lock()
	m, ok := s.locks[chatID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[chatID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Get returns the session for a chat, creating one in the initial state if
// necessary. It never fails.
func (s *Store) Get(chatID int64) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[chatID]; ok {
		return sess
	}
	sess = &Session{ChatID: chatID, State: StateStart}
	s.sessions[chatID] = sess
	return sess
}

// Cart returns the session's cart, creating it on first access.
func (s *Store) Cart(chatID int64) *order.Cart {
	sess := s.Get(chatID)
	if sess.Cart == nil {
		sess.Cart = s.newCart()
	}
	return sess.Cart
}

// Transition atomically replaces the expected handler and pending args for
// a chat and schedules a snapshot write.
func (s *Store) Transition(chatID int64, state StateTag, args string) {
	sess := s.Get(chatID)

	s.mu.Lock()
	sess.State = state
	sess.Args = args
	s.mu.Unlock()

	s.markDirty()
}

// Remove deletes the session and its cart, used after order submission.
func (s *Store) Remove(chatID int64) {
	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()

	s.markDirty()
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot projects every session onto its durable record.
func (s *Store) Snapshot() map[int64]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]Record, len(s.sessions))
	for id, sess := range s.sessions {
		out[id] = Record{State: sess.State, Args: sess.Args}
	}
	return out
}

// Restore repopulates the store from the snapshotter. An absent snapshot is
// not an error; records with unknown state tags reset to the initial state.
func (s *Store) Restore(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	records, err := s.saver.snap.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	reset := 0
	for id, rec := range records {
		state := rec.State
		if !state.Valid() {
			state = StateStart
			reset++
		}
		s.sessions[id] = &Session{ChatID: id, State: state, Args: rec.Args}
	}
	total := len(s.sessions)
	s.mu.Unlock()

	logger.Info(ctx, "session", "restore",
		slog.Int("sessions", total),
		slog.Int("reset", reset),
	)
	return nil
}

// Flush forces a synchronous snapshot write.
func (s *Store) Flush(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	return s.saver.flush(ctx)
}

// Close flushes pending writes and stops the background saver.
func (s *Store) Close(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	return s.saver.close(ctx)
}

func (s *Store) markDirty() {
	if s.saver != nil {
		s.saver.markDirty()
	}
}
