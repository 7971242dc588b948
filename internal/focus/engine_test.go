package focus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordedEvent struct {
	Owner string
	Event
}

// recorder is a non-blocking Notifier capturing events for assertions.
type recorder struct {
	ch chan recordedEvent
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan recordedEvent, 256)}
}

func (r *recorder) Notify(owner string, evt Event) {
	select {
	case r.ch <- recordedEvent{Owner: owner, Event: evt}:
	default:
	}
}

// await returns the next event of the wanted type, discarding others.
func (r *recorder) await(t *testing.T, want EventType) recordedEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-r.ch:
			if evt.Type == want {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", want)
			return recordedEvent{}
		}
	}
}

// assertNone fails if an event of any listed type arrives within wait.
func (r *recorder) assertNone(t *testing.T, wait time.Duration, types ...EventType) {
	t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case evt := <-r.ch:
			for _, typ := range types {
				if evt.Type == typ {
					t.Fatalf("unexpected %q event: %+v", typ, evt)
				}
			}
		case <-deadline:
			return
		}
	}
}

// drain discards any buffered events.
func (r *recorder) drain() {
	for {
		select {
		case <-r.ch:
		default:
			return
		}
	}
}

func newTestEngine(t *testing.T) (*Engine, *recorder) {
	t.Helper()
	rec := newRecorder()
	engine := NewEngine(Config{TickInterval: 10 * time.Millisecond, Notifier: rec})
	t.Cleanup(engine.Shutdown)
	return engine, rec
}

func TestEngineStartEmitsStartedThenTicks(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 100))

	started := rec.await(t, EventStarted)
	assert.Equal(t, "alice", started.Owner)
	assert.Equal(t, 100, started.Duration)
	assert.Equal(t, 0, started.Elapsed)

	tick := rec.await(t, EventTick)
	assert.Equal(t, 1, tick.Elapsed)
	assert.Equal(t, 99, tick.Remaining)
}

func TestEngineSessionCompletesAtTarget(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 3))

	completed := rec.await(t, EventCompleted)
	assert.Equal(t, "alice", completed.Owner)
	assert.Equal(t, 3, completed.Duration)
	assert.Equal(t, 3, completed.Elapsed)

	assert.Equal(t, 0, engine.ActiveCount())
	_, ok := engine.Session("alice")
	assert.False(t, ok)
}

func TestEngineElapsedAdvancesByExactlyOne(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 10))

	last := 0
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-rec.ch:
			switch evt.Type {
			case EventTick:
				require.Equal(t, last+1, evt.Elapsed, "tick skipped or repeated a second")
				last = evt.Elapsed
			case EventCompleted:
				require.Equal(t, last+1, evt.Elapsed)
				return
			}
		case <-deadline:
			t.Fatal("session did not complete")
		}
	}
}

func TestEngineRejectsNonPositiveDuration(t *testing.T) {
	engine, rec := newTestEngine(t)

	assert.False(t, engine.Start("alice", 0))
	assert.False(t, engine.Start("alice", -5))
	assert.Equal(t, 0, engine.ActiveCount())
	rec.assertNone(t, 30*time.Millisecond, EventStarted)
}

func TestEnginePauseFreezesElapsed(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 1000))
	rec.await(t, EventTick)

	engine.Pause("alice")
	paused := rec.await(t, EventPaused)

	snap, ok := engine.Session("alice")
	require.True(t, ok)
	assert.Equal(t, StatePaused, snap.State)
	assert.Equal(t, paused.Elapsed, snap.Elapsed)

	time.Sleep(50 * time.Millisecond)
	snap2, ok := engine.Session("alice")
	require.True(t, ok)
	assert.Equal(t, paused.Elapsed, snap2.Elapsed, "elapsed advanced while paused")
}

func TestEngineResumeContinuesFromFrozenElapsed(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 1000))
	rec.await(t, EventTick)
	engine.Pause("alice")
	paused := rec.await(t, EventPaused)

	engine.Resume("alice")
	resumed := rec.await(t, EventResumed)
	assert.Equal(t, paused.Elapsed, resumed.Elapsed)

	// Skip any tick from before the pause still in the buffer.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-rec.ch:
			if evt.Type == EventTick && evt.Elapsed > paused.Elapsed {
				assert.Equal(t, paused.Elapsed+1, evt.Elapsed)
				return
			}
		case <-deadline:
			t.Fatal("no tick after resume")
		}
	}
}

func TestEngineStartSupersedesExistingSession(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 100))
	rec.await(t, EventStarted)
	rec.await(t, EventTick)

	require.True(t, engine.Start("alice", 50))
	started := rec.await(t, EventStarted)
	assert.Equal(t, 50, started.Duration)
	assert.Equal(t, 0, started.Elapsed)

	assert.Equal(t, 1, engine.ActiveCount())
	snap, ok := engine.Session("alice")
	require.True(t, ok)
	assert.Equal(t, 50, snap.Target)
}

func TestEngineStopEmitsFinalElapsedAndRemoves(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 1000))
	rec.await(t, EventTick)
	rec.await(t, EventTick)

	engine.Stop("alice")
	stopped := rec.await(t, EventStopped)
	assert.GreaterOrEqual(t, stopped.Elapsed, 2)

	assert.Equal(t, 0, engine.ActiveCount())
	_, ok := engine.Session("alice")
	assert.False(t, ok)

	engine.Stop("alice")
	rec.assertNone(t, 30*time.Millisecond, EventStopped)
}

func TestEngineInvalidTransitionsAreNoOps(t *testing.T) {
	engine, rec := newTestEngine(t)

	engine.Pause("nobody")
	engine.Resume("nobody")
	rec.assertNone(t, 30*time.Millisecond, EventPaused, EventResumed)

	require.True(t, engine.Start("alice", 1000))
	rec.await(t, EventStarted)

	engine.Resume("alice")
	rec.assertNone(t, 30*time.Millisecond, EventResumed)

	engine.Pause("alice")
	rec.await(t, EventPaused)
	engine.Pause("alice")
	rec.assertNone(t, 30*time.Millisecond, EventPaused)
}

func TestEngineDisconnectRemovesWithoutEvent(t *testing.T) {
	engine, rec := newTestEngine(t)

	require.True(t, engine.Start("alice", 1000))
	rec.await(t, EventStarted)

	engine.Disconnect("alice")
	assert.Equal(t, 0, engine.ActiveCount())
	rec.assertNone(t, 50*time.Millisecond, EventStopped, EventCompleted)
}

func TestEngineOwnersRunIndependently(t *testing.T) {
	engine, rec := newTestEngine(t)

	const owners = 10
	for i := 0; i < owners; i++ {
		require.True(t, engine.Start(fmt.Sprintf("owner-%d", i), 2))
	}

	done := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for len(done) < owners {
		select {
		case evt := <-rec.ch:
			if evt.Type == EventCompleted {
				assert.Equal(t, 2, evt.Elapsed)
				done[evt.Owner] = true
			}
		case <-deadline:
			t.Fatalf("only %d of %d owners completed", len(done), owners)
		}
	}
	assert.Equal(t, 0, engine.ActiveCount())
}

func TestEngineConcurrentCommandsKeepOneSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	engine, rec := newTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				switch (n + j) % 4 {
				case 0:
					engine.Start("alice", 1000)
				case 1:
					engine.Pause("alice")
				case 2:
					engine.Resume("alice")
				case 3:
					engine.Stop("alice")
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, engine.ActiveCount(), 1)

	// A fresh session must still advance one second per interval; a ticker
	// left over from a superseded session would show up as extra events.
	engine.Stop("alice")
	rec.drain()
	require.True(t, engine.Start("alice", 3))
	completed := rec.await(t, EventCompleted)
	assert.Equal(t, 3, completed.Elapsed)
	assert.Equal(t, 0, engine.ActiveCount())
	rec.assertNone(t, 50*time.Millisecond, EventTick, EventCompleted)
}

func TestEngineShutdownCancelsAllSessions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	engine, _ := newTestEngine(t)

	require.True(t, engine.Start("alice", 1000))
	require.True(t, engine.Start("bob", 1000))

	engine.Shutdown()
	assert.Equal(t, 0, engine.ActiveCount())
}
