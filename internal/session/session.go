// Package session drives a scanning station through idle, scanning, processing and
// result. A single goroutine owns the state; inputs, resolutions, timers and operator
// commands reach it as messages.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"checkin/internal/badge"
	"checkin/internal/dispatch"
	"checkin/internal/metrics"
	"checkin/internal/scan"
)

// DefaultResultTimeout is how long a result stays on screen before scanning resumes.
const DefaultResultTimeout = 5 * time.Second

var (
	ErrClosed         = errors.New("session closed")
	ErrUnknownMethod  = errors.New("unknown scan method")
	ErrNoResult       = errors.New("no result on screen")
	ErrNothingToPrint = errors.New("result has no printable badge")
	ErrNoPrinter      = errors.New("no badge printer configured")
)

// Dispatcher gates scans into resolution.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev scan.Event, done func(dispatch.Result)) (uint64, bool)
	Reset()
}

type Option func(*Session)

func WithPrinter(p badge.Printer) Option {
	return func(s *Session) { s.printer = p }
}

func WithResultTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.resultTimeout = d
		}
	}
}

func WithCategory(category string) Option {
	return func(s *Session) { s.category = category }
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Session) { s.log = log }
}

func WithMetrics(m *metrics.Station) Option {
	return func(s *Session) { s.metrics = m }
}

// WithObserver registers fn to receive every state change. fn runs on the session
// goroutine and must return promptly.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Session) { s.observer = fn }
}

type scanMsg struct {
	gen uint64
	ev  scan.Event
}

type resultMsg struct {
	gen uint64
	res dispatch.Result
}

type failureMsg struct {
	gen uint64
	err error
}

type command struct {
	apply func() error
	reply chan error
}

// Session is one operator's scanning session.
type Session struct {
	dispatcher    Dispatcher
	inputs        map[scan.Source]scan.Input
	methods       []scan.Source
	printer       badge.Printer
	category      string
	resultTimeout time.Duration
	log           *logrus.Entry
	metrics       *metrics.Station
	observer      func(Snapshot)

	scans    chan scanMsg
	results  chan resultMsg
	failures chan failureMsg
	timeouts chan uint64
	commands chan command
	stopped  chan struct{}
	runOnce  sync.Once

	mu   sync.RWMutex
	snap Snapshot

	// Owned by the loop goroutine.
	ctx     context.Context
	state   Snapshot
	gen     uint64
	active  scan.Input
	timer   *time.Timer
	timerID uint64
}

// New creates an idle session over the given inputs, one per method.
func New(d Dispatcher, inputs []scan.Input, opts ...Option) *Session {
	s := &Session{
		dispatcher:    d,
		inputs:        make(map[scan.Source]scan.Input, len(inputs)),
		resultTimeout: DefaultResultTimeout,
		log:           logrus.NewEntry(logrus.StandardLogger()),
		scans:         make(chan scanMsg, 16),
		results:       make(chan resultMsg),
		failures:      make(chan failureMsg, 4),
		timeouts:      make(chan uint64),
		commands:      make(chan command),
		stopped:       make(chan struct{}),
	}
	for _, in := range inputs {
		if _, dup := s.inputs[in.Source()]; !dup {
			s.methods = append(s.methods, in.Source())
		}
		s.inputs[in.Source()] = in
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = Snapshot{Phase: PhaseIdle, Methods: s.methods, Category: s.category}
	s.snap = s.state
	return s
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Run owns the session state until ctx is cancelled. It must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	ran := false
	s.runOnce.Do(func() { ran = true })
	if !ran {
		return errors.New("session already running")
	}
	s.ctx = ctx
	defer close(s.stopped)
	s.publish()

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return nil
		case m := <-s.scans:
			s.handleScan(m)
		case m := <-s.results:
			s.handleResult(m)
		case m := <-s.failures:
			s.handleFailure(m)
		case id := <-s.timeouts:
			if id == s.timerID && s.state.Phase == PhaseResult {
				s.log.Debug("result display timed out")
				s.resumeScanning()
			}
		case c := <-s.commands:
			c.reply <- c.apply()
		}
	}
}

// Start begins scanning with method. Starting while another method is active stops it
// first. If the input fails to start the session still enters Scanning with the source
// marked unusable, and the error is returned.
func (s *Session) Start(ctx context.Context, method scan.Source) error {
	return s.do(ctx, func() error { return s.start(method) })
}

// Stop returns the session to Idle. A resolution in flight completes in the background
// and its outcome is discarded.
func (s *Session) Stop(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.stop()
		return nil
	})
}

// Dismiss closes the result early and resumes scanning.
func (s *Session) Dismiss(ctx context.Context) error {
	return s.do(ctx, func() error {
		if s.state.Phase != PhaseResult {
			return ErrNoResult
		}
		s.resumeScanning()
		return nil
	})
}

// Print sends the badge for the displayed result to the printer and resumes scanning.
func (s *Session) Print(ctx context.Context) error {
	return s.do(ctx, s.print)
}

func (s *Session) do(ctx context.Context, apply func() error) error {
	c := command{apply: apply, reply: make(chan error, 1)}
	select {
	case s.commands <- c:
	case <-s.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-c.reply
}

func (s *Session) start(method scan.Source) error {
	in, ok := s.inputs[method]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if s.state.Phase != PhaseIdle {
		s.stop()
	}

	s.gen++
	gen := s.gen
	s.active = in
	s.state.Phase = PhaseScanning
	s.state.Method = method
	s.state.Outcome = nil
	s.state.SourceErr = nil

	log := s.log.WithField("source", method)
	err := in.Start(s.ctx, s.emitter(gen), s.failer(gen))
	if err != nil {
		s.state.SourceErr = sourceError(method, err)
		log.WithError(err).Error("input source failed to start")
	} else {
		log.Info("scanning started")
	}
	s.publish()
	return err
}

func (s *Session) stop() {
	if s.state.Phase == PhaseIdle {
		return
	}
	s.cancelTimer()
	s.gen++
	s.dispatcher.Reset()
	if s.active != nil {
		if err := s.active.Stop(); err != nil {
			s.log.WithError(err).Warn("stop input source")
		}
	}
	s.log.WithField("source", s.state.Method).Info("scanning stopped")
	s.active = nil
	s.state = Snapshot{Phase: PhaseIdle, Methods: s.methods, Category: s.category}
	s.publish()
}

func (s *Session) teardown() {
	s.cancelTimer()
	if s.active != nil {
		if err := s.active.Stop(); err != nil {
			s.log.WithError(err).Warn("stop input source")
		}
		s.active = nil
	}
}

// emitter tags events with the generation of the source start that produced them.
// It never blocks; a full channel means the loop is behind and the scan is noise.
func (s *Session) emitter(gen uint64) scan.Emitter {
	return func(ev scan.Event) {
		select {
		case s.scans <- scanMsg{gen: gen, ev: ev}:
		default:
			s.metrics.ScanDropped("overflow")
			s.log.WithField("payload", ev.Payload).Warn("scan channel full, dropping scan")
		}
	}
}

func (s *Session) failer(gen uint64) func(error) {
	return func(err error) {
		select {
		case s.failures <- failureMsg{gen: gen, err: err}:
		case <-s.stopped:
		}
	}
}

func (s *Session) handleScan(m scanMsg) {
	s.metrics.ScanReceived(string(m.ev.Source))
	log := s.log.WithFields(logrus.Fields{"payload": m.ev.Payload, "source": m.ev.Source})

	if m.gen != s.gen {
		s.metrics.ScanDropped("stale_source")
		log.Debug("scan from a stopped source dropped")
		return
	}
	if s.state.Phase != PhaseScanning {
		s.metrics.ScanDropped("not_scanning")
		log.WithField("phase", s.state.Phase).Debug("scan dropped outside scanning")
		return
	}
	if s.state.SourceErr != nil {
		s.metrics.ScanDropped("source_unusable")
		log.Warn("scan from an unusable source dropped, restart the method")
		return
	}

	gen := s.gen
	_, ok := s.dispatcher.Dispatch(s.ctx, m.ev, func(r dispatch.Result) {
		select {
		case s.results <- resultMsg{gen: gen, res: r}:
		case <-s.stopped:
		}
	})
	if !ok {
		// The camera paused itself on emit; re-arm it for the next code.
		s.resumeInput()
		return
	}
	s.state.Phase = PhaseProcessing
	s.publish()
}

func (s *Session) handleResult(m resultMsg) {
	out := m.res.Outcome
	log := s.log.WithFields(logrus.Fields{"payload": out.Payload, "outcome": out.Kind, "ticket": m.res.Ticket})

	if m.gen != s.gen || s.state.Phase != PhaseProcessing {
		s.metrics.OutcomeDiscarded()
		log.Info("outcome discarded, session moved on")
		return
	}
	if out.Failed() {
		log.WithField("detail", out.Detail).Warn("scan resolved with error")
	} else {
		log.Info("scan resolved")
	}
	s.state.Phase = PhaseResult
	s.state.Outcome = &out
	s.scheduleReturn()
	s.publish()
}

func (s *Session) handleFailure(m failureMsg) {
	if m.gen != s.gen || s.state.Phase == PhaseIdle {
		return
	}
	s.state.SourceErr = sourceError(s.state.Method, m.err)
	s.log.WithError(m.err).WithField("source", s.state.Method).Error("input source unusable")
	s.publish()
}

func (s *Session) print() error {
	if s.state.Phase != PhaseResult {
		return ErrNoResult
	}
	out := s.state.Outcome
	if out == nil || !out.Printable() {
		return ErrNothingToPrint
	}
	if s.printer == nil {
		return ErrNoPrinter
	}

	job := badge.Job{
		Payload:      out.Payload,
		Name:         out.User.Name,
		Organization: out.User.Organization,
		Category:     s.category,
	}
	log := s.log.WithField("payload", out.Payload)
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 10*time.Second)
		defer cancel()
		if err := s.printer.Print(ctx, job); err != nil {
			log.WithError(err).Error("badge print failed")
			return
		}
		log.Info("badge sent to printer")
	}()
	s.resumeScanning()
	return nil
}

func (s *Session) resumeScanning() {
	s.cancelTimer()
	s.state.Phase = PhaseScanning
	s.state.Outcome = nil
	s.resumeInput()
	s.publish()
}

func (s *Session) resumeInput() {
	if s.active == nil || s.state.SourceErr != nil {
		return
	}
	if err := s.active.Resume(); err != nil {
		s.log.WithError(err).Warn("resume input source")
	}
}

func (s *Session) scheduleReturn() {
	s.cancelTimer()
	s.timerID++
	id := s.timerID
	s.timer = time.AfterFunc(s.resultTimeout, func() {
		select {
		case s.timeouts <- id:
		case <-s.stopped:
		}
	})
}

func (s *Session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Invalidate a fire already waiting on the channel.
	s.timerID++
}

func (s *Session) publish() {
	snap := s.state
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	if s.observer != nil {
		s.observer(snap)
	}
}

func sourceError(method scan.Source, err error) error {
	var se *scan.SourceError
	if errors.As(err, &se) {
		return se
	}
	return &scan.SourceError{Source: method, Err: err}
}
