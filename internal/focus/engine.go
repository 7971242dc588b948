package focus

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/billowhq/billow/internal/log"
)

// Config holds engine construction options.
type Config struct {
	// TickInterval is the wall-clock period of one elapsed second.
	// Production uses time.Second; tests shrink it.
	TickInterval time.Duration
	// Notifier receives outbound events. Defaults to NopNotifier.
	Notifier Notifier
}

// Engine applies the session state machine on top of the store and owns every
// ticker. It is the only component permitted to construct or mutate sessions.
type Engine struct {
	store    *Store
	notifier Notifier
	interval time.Duration
	logger   zerolog.Logger
}

// NewEngine creates an engine with an empty store.
func NewEngine(cfg Config) *Engine {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		store:    NewStore(),
		notifier: notifier,
		interval: interval,
		logger:   log.WithComponent("focus"),
	}
}

// SetNotifier replaces the outbound sink. Call before any session starts.
func (e *Engine) SetNotifier(n Notifier) {
	if n != nil {
		e.notifier = n
	}
}

// Start creates a fresh running session for owner, superseding any existing
// one. A non-positive duration is rejected without touching state.
func (e *Engine) Start(owner string, duration int) bool {
	if duration <= 0 {
		e.logger.Warn().
			Str(log.FieldOwner, owner).
			Int(log.FieldDuration, duration).
			Msg("rejected start with non-positive duration")
		return false
	}

	entry := e.store.acquireEntry(owner)
	old := entry.session
	var oldTicker *Ticker
	if old != nil && old.ticker != nil {
		oldTicker = old.ticker
		old.ticker = nil
	}

	entry.gen++
	gen := entry.gen
	sess := &Session{
		Owner:  owner,
		Target: duration,
		State:  StateRunning,
		gen:    gen,
	}
	sess.ticker = startTicker(e.interval, func() bool {
		return e.tick(entry, owner, gen)
	})
	entry.session = sess
	entry.mu.Unlock()

	// The superseded ticker is drained outside the entry lock; a late
	// callback from it is rejected by the generation check.
	if oldTicker != nil {
		oldTicker.Cancel()
	}

	if old == nil {
		activeSessions.Inc()
	}
	sessionsStarted.Inc()
	e.logger.Info().
		Str(log.FieldOwner, owner).
		Int(log.FieldDuration, duration).
		Msg("focus session started")
	e.notifier.Notify(owner, Event{Type: EventStarted, Duration: duration, Elapsed: 0})
	return true
}

// Pause freezes a running session. Any other state is a silent no-op.
func (e *Engine) Pause(owner string) {
	entry := e.store.lockedEntry(owner)
	if entry == nil {
		return
	}
	sess := entry.session
	if sess.State != StateRunning {
		entry.mu.Unlock()
		return
	}

	ticker := sess.ticker
	sess.ticker = nil
	sess.State = StatePaused
	elapsed := sess.Elapsed
	entry.mu.Unlock()

	ticker.Cancel()

	e.logger.Info().
		Str(log.FieldOwner, owner).
		Int(log.FieldElapsed, elapsed).
		Msg("focus session paused")
	e.notifier.Notify(owner, Event{Type: EventPaused, Elapsed: elapsed})
}

// Resume continues a paused session from its frozen elapsed time. Any other
// state is a silent no-op.
func (e *Engine) Resume(owner string) {
	entry := e.store.lockedEntry(owner)
	if entry == nil {
		return
	}
	sess := entry.session
	if sess.State != StatePaused {
		entry.mu.Unlock()
		return
	}

	entry.gen++
	gen := entry.gen
	sess.gen = gen
	sess.State = StateRunning
	sess.ticker = startTicker(e.interval, func() bool {
		return e.tick(entry, owner, gen)
	})
	elapsed := sess.Elapsed
	entry.mu.Unlock()

	e.logger.Info().
		Str(log.FieldOwner, owner).
		Int(log.FieldElapsed, elapsed).
		Msg("focus session resumed")
	e.notifier.Notify(owner, Event{Type: EventResumed, Elapsed: elapsed})
}

// Stop terminates a running or paused session, emits the final elapsed time
// and removes the session. A missing session is a silent no-op.
func (e *Engine) Stop(owner string) {
	elapsed, ok := e.remove(owner)
	if !ok {
		return
	}
	sessionsStopped.Inc()
	e.logger.Info().
		Str(log.FieldOwner, owner).
		Int(log.FieldElapsed, elapsed).
		Msg("focus session stopped")
	e.notifier.Notify(owner, Event{Type: EventStopped, Elapsed: elapsed})
}

// Disconnect removes the owner's session after its connection is gone. No
// event is emitted; there is nobody left to deliver it to.
func (e *Engine) Disconnect(owner string) {
	if _, ok := e.remove(owner); ok {
		e.logger.Info().
			Str(log.FieldOwner, owner).
			Msg("focus session cleaned up after disconnect")
	}
}

// remove detaches the owner's session, cancels its ticker and reports the
// final elapsed count.
func (e *Engine) remove(owner string) (int, bool) {
	entry := e.store.lockedEntry(owner)
	if entry == nil {
		return 0, false
	}
	sess := entry.session
	ticker := sess.ticker
	sess.ticker = nil
	elapsed := sess.Elapsed
	entry.session = nil
	entry.removed = true
	e.store.dropEntry(owner, entry)
	entry.mu.Unlock()

	if ticker != nil {
		ticker.Cancel()
	}
	activeSessions.Dec()
	return elapsed, true
}

// tick advances elapsed by exactly one unit. It runs on the ticker goroutine;
// the generation check rejects callbacks from superseded tickers so elapsed
// is never double-incremented. Returns false to terminate the ticker loop.
func (e *Engine) tick(entry *ownerEntry, owner string, gen uint64) bool {
	entry.mu.Lock()
	sess := entry.session
	if entry.removed || sess == nil || sess.gen != gen || sess.State != StateRunning {
		entry.mu.Unlock()
		return false
	}

	sess.Elapsed++
	elapsed := sess.Elapsed
	target := sess.Target
	ticksTotal.Inc()

	if elapsed >= target {
		sess.ticker = nil
		entry.session = nil
		entry.removed = true
		e.store.dropEntry(owner, entry)
		entry.mu.Unlock()

		activeSessions.Dec()
		sessionsCompleted.Inc()
		e.logger.Info().
			Str(log.FieldOwner, owner).
			Int(log.FieldDuration, target).
			Msg("focus session completed")
		e.notifier.Notify(owner, Event{Type: EventCompleted, Duration: target, Elapsed: elapsed})
		return false
	}
	entry.mu.Unlock()

	e.notifier.Notify(owner, Event{Type: EventTick, Elapsed: elapsed, Remaining: target - elapsed})
	return true
}

// Session returns a read-only copy of the owner's live session, if any.
func (e *Engine) Session(owner string) (Snapshot, bool) {
	return e.store.Get(owner)
}

// ActiveCount reports the number of live sessions.
func (e *Engine) ActiveCount() int {
	return e.store.Len()
}

// Shutdown cancels every live session's ticker. Used on daemon shutdown so
// no ticker goroutine outlives the process lifecycle.
func (e *Engine) Shutdown() {
	for _, owner := range e.store.Owners() {
		e.Disconnect(owner)
	}
}
