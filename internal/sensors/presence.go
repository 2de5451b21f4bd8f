package sensors

import (
	"sync"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
)

// Presence is the proximity/trust beacon. A sighting is trusted for ttl; a
// ttl of 0 keeps the last reported value until the next report.
type Presence struct {
	clock clock.Clock
	ttl   time.Duration

	mu       sync.Mutex
	present  bool
	lastSeen time.Time
}

func NewPresence(clk clock.Clock, ttl time.Duration) *Presence {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Presence{clock: clk, ttl: ttl}
}

func (p *Presence) Set(present bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present = present
	p.lastSeen = p.clock.Now()
}

func (p *Presence) Present() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present {
		return false
	}
	if p.ttl > 0 && p.clock.Now().Sub(p.lastSeen) > p.ttl {
		p.present = false
	}
	return p.present
}
