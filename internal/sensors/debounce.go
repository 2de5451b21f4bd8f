// Package sensors adapts the garage's physical inputs (obstruction beam,
// proximity beacon) to the boolean signals consumed by the access
// controller, and bridges them to and from MQTT.
package sensors

import (
	"sync"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
)

// Debounced is an obstruction signal that asserts as soon as any raw sample
// reports an obstruction and only releases once the raw signal has stayed
// clear for the whole window. A flickering beam therefore never lets the
// door close.
type Debounced struct {
	clock  clock.Clock
	window time.Duration

	mu         sync.Mutex
	raw        bool
	asserted   bool
	clearSince time.Time
}

func NewDebounced(clk clock.Clock, window time.Duration) *Debounced {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Debounced{clock: clk, window: window}
}

// Set records a raw sample.
func (d *Debounced) Set(obstructed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if obstructed {
		d.raw, d.asserted = true, true
		return
	}
	if d.raw {
		d.clearSince = d.clock.Now()
	}
	d.raw = false
}

// Obstructed reports the debounced value.
func (d *Debounced) Obstructed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.asserted && !d.raw && !d.clock.Now().Before(d.clearSince.Add(d.window)) {
		d.asserted = false
	}
	return d.asserted
}
