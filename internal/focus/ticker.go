package focus

import (
	"sync"
	"time"
)

// Ticker drives one callback per interval on its own goroutine. At most one
// callback is in flight at a time; each invocation advances the session by
// exactly one unit, so skipped ticks under load are never compensated by
// multi-second jumps.
type Ticker struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// startTicker launches a periodic driver. onTick is invoked once per interval
// until it returns false or Cancel is called. A false return stops the driver
// from inside its own callback, which is how completion terminates the loop
// without deadlocking on Cancel.
func startTicker(interval time.Duration, onTick func() bool) *Ticker {
	t := &Ticker{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run(interval, onTick)
	return t
}

func (t *Ticker) run(interval time.Duration, onTick func() bool) {
	defer close(t.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if !onTick() {
				return
			}
		}
	}
}

// Cancel stops the driver and blocks until any in-flight callback has
// returned. After Cancel returns, no further onTick invocation occurs.
// Cancel must not be called while holding a lock the callback acquires.
func (t *Ticker) Cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}
