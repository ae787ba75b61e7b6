package bundles

import (
	"context"
	"sync"
	"time"

	"resume-tailor/internal/shared/telemetry"
)

// DefaultJanitorInterval is how often expired bundles are swept.
const DefaultJanitorInterval = 10 * time.Minute

// Sweeper removes expired bundles.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Janitor sweeps expired bundles on an interval and on demand.
type Janitor struct {
	sweeper  Sweeper
	interval time.Duration
	trigger  chan struct{}

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewJanitor builds a janitor; interval <= 0 uses DefaultJanitorInterval.
func NewJanitor(s Sweeper, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{
		sweeper:  s,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx ends. Calling Start twice is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.mu.Unlock()

	go j.loop(ctx)
}

// Trigger requests a sweep without blocking. Requests made while a sweep is
// pending or running collapse into one.
func (j *Janitor) Trigger() {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// Done is closed when the loop has exited.
func (j *Janitor) Done() <-chan struct{} {
	return j.done
}

func (j *Janitor) loop(ctx context.Context) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-j.trigger:
		}
		j.sweepOnce(ctx)
	}
}

func (j *Janitor) sweepOnce(ctx context.Context) {
	start := time.Now()
	removed, err := j.sweeper.Sweep(ctx)
	fields := map[string]any{
		"removed":     removed,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Warn("bundles.janitor.sweep", fields)
		return
	}
	telemetry.Info("bundles.janitor.sweep", fields)
}
