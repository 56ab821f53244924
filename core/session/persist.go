package session

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"cookbot/core/logger"
)

// Snapshotter stores and retrieves the durable session mapping.
type Snapshotter interface {
	Save(ctx context.Context, records map[int64]Record) error
	Load(ctx context.Context) (map[int64]Record, error)
}

// saver coalesces snapshot writes: any number of mutations inside one
// debounce window produce a single Save call. Failed writes stay dirty and
// retry on the next tick; they never surface to dispatching code.
type saver struct {
	store    *Store
	snap     Snapshotter
	debounce time.Duration

	mu    sync.Mutex
	dirty bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSaver(store *Store, snap Snapshotter, debounce time.Duration) *saver {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	sv := &saver{
		store:    store,
		snap:     snap,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go sv.loop()
	return sv
}

func (sv *saver) markDirty() {
	sv.mu.Lock()
	sv.dirty = true
	sv.mu.Unlock()
}

func (sv *saver) loop() {
	defer close(sv.done)
	ticker := time.NewTicker(sv.debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sv.saveIfDirty(context.Background())
		case <-sv.stop:
			return
		}
	}
}

func (sv *saver) saveIfDirty(ctx context.Context) {
	sv.mu.Lock()
	if !sv.dirty {
		sv.mu.Unlock()
		return
	}
	// mark clean optimistically; a failure flips it back
	sv.dirty = false
	sv.mu.Unlock()

	if err := sv.save(ctx); err != nil {
		sv.markDirty()
	}
}

func (sv *saver) save(ctx context.Context) error {
	records := sv.store.Snapshot()
	start := time.Now()
	if err := sv.snap.Save(ctx, records); err != nil {
		logger.Error(ctx, "session", "persist",
			slog.String("status", "fail"),
			slog.Int("sessions", len(records)),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Debug(ctx, "session", "persist",
		slog.String("status", "ok"),
		slog.Int("sessions", len(records)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// flush writes synchronously regardless of the dirty flag.
func (sv *saver) flush(ctx context.Context) error {
	sv.mu.Lock()
	sv.dirty = false
	sv.mu.Unlock()
	return sv.save(ctx)
}

// close stops the loop and performs a final flush.
func (sv *saver) close(ctx context.Context) error {
	sv.stopOnce.Do(func() {
		close(sv.stop)
	})
	<-sv.done
	return sv.flush(ctx)
}
