// Package readiness tracks whether the data backend has woken up.
//
// A Poller probes a liveness endpoint on a fixed interval until the first
// success, reporting an attempt-based progress estimate while it waits. A
// debug override pins the progress and suspends probing entirely.
package readiness

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"finsent/internal/model"
)

const (
	DefaultInterval      = 1500 * time.Millisecond
	DefaultProbeTimeout  = time.Second
	DefaultMaxAttempts   = 8
	DefaultDebugProgress = 80
)

// ProbeFunc performs one liveness check. A nil error means the backend is up.
type ProbeFunc func(ctx context.Context) error

// Options configures a Poller. Zero values take the defaults above.
type Options struct {
	Interval      time.Duration
	ProbeTimeout  time.Duration
	MaxAttempts   int
	DebugProgress float64
	// StartInDebug makes Start enter debug instead of probing.
	StartInDebug bool

	Clock Clock
	Log   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.DebugProgress <= 0 {
		o.DebugProgress = DefaultDebugProgress
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

// Poller is the readiness state machine for one dashboard mount. It is the
// only writer of its state; any number of goroutines may read Snapshot.
type Poller struct {
	probe   ProbeFunc
	opts    Options
	mountID string
	log     *zap.Logger

	mu         sync.Mutex
	state      model.ReadinessState
	attempts   int
	generation uint64
	version    uint64
	started    bool
	stopped    bool
	timer      Timer
	deadline   Timer
	cancel     context.CancelFunc
	launches   uint64
	inFlight   uint64 // launch id of the outstanding probe, 0 when none
	handlers   []func(model.Readiness)

	notifyMu  sync.Mutex
	delivered uint64
}

// New creates a Poller in probing state. Nothing happens until Start.
func New(probe ProbeFunc, opts Options) *Poller {
	opts = opts.withDefaults()
	id := uuid.NewString()
	return &Poller{
		probe:   probe,
		opts:    opts,
		mountID: id,
		log:     opts.Log.With(zap.String("mount_id", id)),
		state:   model.StateProbing,
	}
}

// MountID identifies this poller's lifecycle in logs and snapshots.
func (p *Poller) MountID() string { return p.mountID }

// OnStateChange registers a handler called with a snapshot after every
// transition and every counted failure. Handlers run outside the poller's
// lock and always observe snapshots in order; a snapshot superseded before
// delivery is skipped.
func (p *Poller) OnStateChange(h func(model.Readiness)) {
	p.mu.Lock()
	p.handlers = append(p.handlers, h)
	p.mu.Unlock()
}

// Start begins probing immediately. Calling it again, or after Stop, does
// nothing.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.attempts = 0
	if p.opts.StartInDebug {
		p.state = model.StateDebug
	} else {
		p.state = model.StateProbing
		p.launchLocked(p.generation)
	}
	p.log.Info("readiness poller started", zap.String("state", string(p.state)))
	snap, v := p.transitionLocked()
	p.mu.Unlock()
	p.notify(snap, v)
}

// Stop tears the poller down, cancelling any pending or in-flight probe.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.generation++
	p.haltLocked()
	p.mu.Unlock()
	p.log.Info("readiness poller stopped")
}

// EnterDebug forces the debug override from probing. Progress is pinned and
// no probes are issued until ExitDebug. It is a no-op when already in debug,
// once ready, or outside Start/Stop.
func (p *Poller) EnterDebug() {
	p.mu.Lock()
	if !p.started || p.stopped || p.state != model.StateProbing {
		p.mu.Unlock()
		return
	}
	p.generation++
	p.haltLocked()
	p.state = model.StateDebug
	p.log.Info("debug mode entered", zap.Int("attempt", p.attempts))
	snap, v := p.transitionLocked()
	p.mu.Unlock()
	p.notify(snap, v)
}

// ExitDebug leaves debug, resets the attempt count and probes immediately.
// It is a no-op unless the poller is in debug.
func (p *Poller) ExitDebug() {
	p.mu.Lock()
	if p.stopped || p.state != model.StateDebug {
		p.mu.Unlock()
		return
	}
	p.generation++
	p.attempts = 0
	p.state = model.StateProbing
	p.launchLocked(p.generation)
	p.log.Info("debug mode exited")
	snap, v := p.transitionLocked()
	p.mu.Unlock()
	p.notify(snap, v)
}

// Snapshot returns the current readiness view.
func (p *Poller) Snapshot() model.Readiness {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// transitionLocked stamps a new version for a state change and returns the
// snapshot to deliver.
func (p *Poller) transitionLocked() (model.Readiness, uint64) {
	p.version++
	return p.snapshotLocked(), p.version
}

func (p *Poller) snapshotLocked() model.Readiness {
	return model.Readiness{
		MountID:      p.mountID,
		State:        p.state,
		AttemptCount: p.attempts,
		Progress:     p.progressLocked(),
	}
}

func (p *Poller) progressLocked() float64 {
	switch p.state {
	case model.StateDebug:
		return p.opts.DebugProgress
	case model.StateReady:
		return 100
	}
	return math.Min(100, float64(p.attempts)*100/float64(p.opts.MaxAttempts))
}

// haltLocked stops the pending timer and abandons the in-flight probe.
func (p *Poller) haltLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.releaseProbeLocked()
}

// releaseProbeLocked forgets the outstanding probe: its deadline is stopped,
// its context cancelled, and any later outcome for it is ignored.
func (p *Poller) releaseProbeLocked() {
	if p.deadline != nil {
		p.deadline.Stop()
		p.deadline = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.inFlight = 0
}

// launchLocked starts one probe for generation gen. At most one probe is in
// flight; the next is only scheduled once this one's outcome is observed.
// The probe's deadline runs on the poller's clock, so a probe that ignores
// its context still fails after ProbeTimeout.
func (p *Poller) launchLocked(gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	p.launches++
	id := p.launches
	p.inFlight = id
	p.cancel = cancel
	startedAt := p.opts.Clock.Now()
	p.deadline = p.opts.Clock.AfterFunc(p.opts.ProbeTimeout, func() {
		p.complete(gen, id, startedAt, context.DeadlineExceeded)
	})
	go func() {
		err := p.probe(ctx)
		p.complete(gen, id, startedAt, err)
	}()
}

// complete applies the first outcome reported for launch id. Outcomes for
// an older generation or launch, or arriving after leaving probing, are
// discarded.
func (p *Poller) complete(gen, id uint64, startedAt time.Time, err error) {
	p.mu.Lock()
	if gen != p.generation || id != p.inFlight || p.state != model.StateProbing {
		p.mu.Unlock()
		p.log.Debug("discarding stale probe outcome", zap.Error(err))
		return
	}
	p.releaseProbeLocked()

	if err == nil {
		p.state = model.StateReady
		p.log.Info("backend ready", zap.Int("attempts", p.attempts))
		snap, v := p.transitionLocked()
		p.mu.Unlock()
		p.notify(snap, v)
		return
	}

	p.attempts++
	delay := p.opts.Interval - p.opts.Clock.Now().Sub(startedAt)
	if delay < 0 {
		delay = 0
	}
	p.timer = p.opts.Clock.AfterFunc(delay, func() { p.fire(gen) })
	p.log.Debug("probe failed", zap.Int("attempt", p.attempts), zap.Duration("next_in", delay), zap.Error(err))
	snap, v := p.transitionLocked()
	p.mu.Unlock()
	p.notify(snap, v)
}

func (p *Poller) fire(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation || p.state != model.StateProbing {
		return
	}
	p.timer = nil
	p.launchLocked(gen)
}

func (p *Poller) notify(snap model.Readiness, version uint64) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if version <= p.delivered {
		return
	}
	p.delivered = version

	p.mu.Lock()
	handlers := append([]func(model.Readiness){}, p.handlers...)
	p.mu.Unlock()
	for _, h := range handlers {
		h(snap)
	}
}
