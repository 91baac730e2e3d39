package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lazyrecipes/internal/shoppinglist"
)

// Writer coalesces rapid successive writes: saves arriving closer together
// than the interval collapse to the latest value, written once the interval
// elapses. The zero interval disables throttling.
type Writer struct {
	mu        sync.Mutex
	interval  time.Duration
	save      func(shoppinglist.Result)
	pending   *shoppinglist.Result
	timer     *time.Timer
	lastWrite time.Time
	seq       uint64
	done      uint64

	saveMu sync.Mutex
}

// NewWriter creates a throttled writer around a save function.
func NewWriter(interval time.Duration, save func(shoppinglist.Result)) *Writer {
	return &Writer{interval: interval, save: save}
}

// Write schedules a snapshot save. The call never blocks on the backend.
func (w *Writer) Write(res shoppinglist.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if w.interval <= 0 || now.Sub(w.lastWrite) >= w.interval {
		if w.timer != nil {
			// A trailing write is already queued; fold into it.
			w.pending = &res
			return
		}
		w.lastWrite = now
		w.seq++
		go w.dispatch(w.seq, res)
		return
	}

	w.pending = &res
	if w.timer == nil {
		delay := w.interval - now.Sub(w.lastWrite)
		w.timer = time.AfterFunc(delay, w.flushPending)
	}
}

// dispatch serializes backend saves. A save overtaken by a newer one (or by
// Cancel) is dropped so delayed goroutines cannot resurrect old state.
func (w *Writer) dispatch(seq uint64, res shoppinglist.Result) {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	stale := seq <= w.done
	if !stale {
		w.done = seq
	}
	w.mu.Unlock()

	if stale {
		return
	}
	w.save(res)
}

func (w *Writer) flushPending() {
	w.mu.Lock()
	w.timer = nil
	pending := w.pending
	w.pending = nil
	var seq uint64
	if pending != nil {
		w.lastWrite = time.Now()
		w.seq++
		seq = w.seq
	}
	w.mu.Unlock()

	if pending != nil {
		w.dispatch(seq, *pending)
	}
}

// Flush writes any pending snapshot immediately. Call on shutdown so the
// tail write is never lost.
func (w *Writer) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	pending := w.pending
	w.pending = nil
	var seq uint64
	if pending != nil {
		w.seq++
		seq = w.seq
	}
	w.mu.Unlock()

	if pending != nil {
		w.dispatch(seq, *pending)
	}
}

// Cancel drops any pending write without saving it. Writes already handed to
// a goroutine but not yet applied are dropped too.
func (w *Writer) Cancel() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = nil
	if w.done < w.seq {
		w.done = w.seq
	}
	w.mu.Unlock()
}

// SessionPersister binds a Keeper and a throttled Writer to one session,
// satisfying the list store's write-through port.
type SessionPersister struct {
	keeper  *Keeper
	session string
	writer  *Writer
}

// NewSessionPersister creates the write-through persister for a session.
func NewSessionPersister(keeper *Keeper, session string, interval time.Duration) *SessionPersister {
	p := &SessionPersister{keeper: keeper, session: session}
	p.writer = NewWriter(interval, func(res shoppinglist.Result) {
		if err := keeper.Save(context.Background(), session, res); err != nil {
			log.Error().Err(err).Str("session", session).Msg("Failed to persist shopping list snapshot")
		}
	})
	return p
}

// Persist queues a write-through of the given state.
func (p *SessionPersister) Persist(res shoppinglist.Result) {
	p.writer.Write(res)
}

// Purge cancels pending writes and drops the persisted record, so a queued
// throttled write cannot resurrect a reset list.
func (p *SessionPersister) Purge() {
	p.writer.Cancel()
	if err := p.keeper.Purge(context.Background(), p.session); err != nil {
		log.Error().Err(err).Str("session", p.session).Msg("Failed to purge shopping list snapshot")
	}
}

// Flush forces the tail write.
func (p *SessionPersister) Flush() {
	p.writer.Flush()
}

// Cancel drops pending and in-flight writes without touching the persisted
// record. Used when the session's list is rebuilt and the old state must not
// reach the backend.
func (p *SessionPersister) Cancel() {
	p.writer.Cancel()
}
