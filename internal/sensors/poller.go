package sensors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Source is a raw boolean input read on demand.
type Source interface {
	Read() (bool, error)
}

// GPIOFile reads a sysfs-style value file ("0" or "1"). Inverted flips the
// reading for active-low beams.
type GPIOFile struct {
	Path     string
	Inverted bool
}

func (g GPIOFile) Read() (bool, error) {
	b, err := os.ReadFile(g.Path)
	if err != nil {
		return false, err
	}
	v, err := ParseSwitch(b)
	if err != nil {
		return false, fmt.Errorf("%s: %w", g.Path, err)
	}
	return v != g.Inverted, nil
}

// Poller samples src every interval into the debouncer.
type Poller struct {
	src      Source
	target   *Debounced
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPoller(src Source, target *Debounced, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{src: src, target: target, interval: interval, logger: logger, done: make(chan struct{})}
}

// Start samples once immediately, then on every tick.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go func() {
		defer close(p.done)

		p.Sample()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Sample()
			}
		}
	}()
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

// Sample reads the source once. A read error is treated as obstructed.
func (p *Poller) Sample() {
	v, err := p.src.Read()
	if err != nil {
		p.logger.Warn("obstruction read failed, assuming obstructed", "error", err)
		v = true
	}
	p.target.Set(v)
}

// ParseSwitch accepts 1/0, true/false, on/off and {"value":bool}.
func ParseSwitch(payload []byte) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(string(payload)))
	switch s {
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	}
	if strings.HasPrefix(s, "{") {
		return parseSwitchJSON([]byte(s))
	}
	return false, fmt.Errorf("unrecognised switch payload %q", s)
}
