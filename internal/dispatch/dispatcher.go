package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"checkin/internal/metrics"
	"checkin/internal/resolver"
	"checkin/internal/scan"
)

// DefaultCooldown absorbs double triggers from both scanner kinds.
const DefaultCooldown = time.Second

// Resolver resolves one accepted payload into an outcome.
type Resolver interface {
	Resolve(ctx context.Context, payload string) resolver.Outcome
}

// Result is delivered once per accepted scan, in acceptance order.
type Result struct {
	Ticket  uint64
	Event   scan.Event
	Outcome resolver.Outcome
}

// Dispatcher owns the DispatchState for one scanning station. Only one resolution runs
// at a time; scans offered meanwhile are dropped, not queued.
type Dispatcher struct {
	resolver Resolver
	cooldown time.Duration
	now      func() time.Time
	log      *logrus.Entry
	metrics  *metrics.Station

	mu    sync.Mutex
	state State
}

type Option func(*Dispatcher)

func WithCooldown(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.cooldown = d }
}

func WithClock(now func() time.Time) Option {
	return func(dp *Dispatcher) { dp.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(dp *Dispatcher) { dp.log = log }
}

func WithMetrics(m *metrics.Station) Option {
	return func(dp *Dispatcher) { dp.metrics = m }
}

func New(r Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: r,
		cooldown: DefaultCooldown,
		now:      time.Now,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Offer applies mutual exclusion and debounce to ev. It returns the ticket of the
// accepted scan.
func (d *Dispatcher) Offer(ev scan.Event) (uint64, bool) {
	d.mu.Lock()
	next, reason, ok := Accept(d.state, ev.Payload, d.now(), d.cooldown)
	d.state = next
	d.mu.Unlock()

	log := d.log.WithFields(logrus.Fields{"payload": ev.Payload, "source": ev.Source})
	if !ok {
		d.metrics.ScanDropped(string(reason))
		log.WithField("reason", reason).Debug("scan dropped")
		return 0, false
	}
	log.WithField("ticket", next.Ticket).Info("scan accepted")
	return next.Ticket, true
}

// Release frees the lock held by ticket. Stale tickets are ignored.
func (d *Dispatcher) Release(ticket uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, ok := Release(d.state, ticket)
	d.state = next
	return ok
}

// Reset clears the lock and cooldown, e.g. when the operator stops scanning.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Clear(d.state)
}

// Snapshot returns a copy of the current state.
func (d *Dispatcher) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Dispatch offers ev and, if accepted, resolves it in the background. done is called
// with the result before the lock is released, so results arrive in acceptance order.
// The lock is held until done returns.
func (d *Dispatcher) Dispatch(ctx context.Context, ev scan.Event, done func(Result)) (uint64, bool) {
	ticket, ok := d.Offer(ev)
	if !ok {
		return 0, false
	}
	go func() {
		start := time.Now()
		out := d.resolver.Resolve(ctx, ev.Payload)
		d.metrics.Outcome(string(out.Kind), time.Since(start).Seconds())
		done(Result{Ticket: ticket, Event: ev, Outcome: out})
		d.Release(ticket)
	}()
	return ticket, true
}
