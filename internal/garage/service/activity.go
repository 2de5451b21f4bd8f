package service

import (
	"sync"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
)

// Busy sources.
const (
	SourceLPR      = "lpr"
	SourceIntercom = "intercom"
)

// Activity aggregates camera/voice work into the single busy flag read by
// the power manager. Sources are reference counted so overlapping LPR
// requests keep the flag up until the last one ends.
type Activity struct {
	clock clock.Clock
	sink  func(bool)

	mu      sync.Mutex
	counts  map[string]int
	busy    bool
	applied bool
}

// NewActivity reports every change of the aggregate flag to sink, typically
// PowerThermalManager.SetBusy.
func NewActivity(clk clock.Clock, sink func(bool)) *Activity {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Activity{clock: clk, sink: sink, counts: make(map[string]int)}
}

func (a *Activity) Begin(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[source]++
	a.publishLocked()
}

func (a *Activity) End(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts[source] > 0 {
		a.counts[source]--
	}
	if a.counts[source] == 0 {
		delete(a.counts, source)
	}
	a.publishLocked()
}

// EndAfter releases one Begin of source once d has elapsed.
func (a *Activity) EndAfter(source string, d time.Duration) {
	if d <= 0 {
		a.End(source)
		return
	}
	a.clock.AfterFunc(d, func() { a.End(source) })
}

// Set forces a toggle-style source (the intercom) on or off.
func (a *Activity) Set(source string, on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if on {
		a.counts[source] = 1
	} else {
		delete(a.counts, source)
	}
	a.publishLocked()
}

func (a *Activity) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

func (a *Activity) Active(source string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[source] > 0
}

// publishLocked runs the sink under the lock so that flag changes reach the
// power manager in the order they happened.
func (a *Activity) publishLocked() {
	busy := len(a.counts) > 0
	if a.applied && busy == a.busy {
		return
	}
	a.busy = busy
	a.applied = true
	if a.sink != nil {
		a.sink(busy)
	}
}
