// Package resolver resolves an accepted scan against the remote attendance ledger with a
// status check followed, when needed, by a mark.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"checkin/internal/ledger"
)

// Ledger is the remote attendance ledger.
type Ledger interface {
	CheckStatus(ctx context.Context, payload, category string) (ledger.StatusResult, error)
	MarkAttendance(ctx context.Context, payload, category string) (ledger.MarkResult, error)
}

// Resolver turns a scan payload into exactly one Outcome.
type Resolver struct {
	ledger   Ledger
	category string
	timeout  time.Duration
	now      func() time.Time
	log      *logrus.Entry
}

type Option func(*Resolver)

// WithTimeout bounds each of the two remote calls.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(r *Resolver) { r.log = log }
}

// New creates a resolver marking attendance for category.
func New(l Ledger, category string, opts ...Option) *Resolver {
	r := &Resolver{
		ledger:   l,
		category: category,
		timeout:  10 * time.Second,
		now:      time.Now,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Category returns the attendance category this resolver marks.
func (r *Resolver) Category() string { return r.category }

// Resolve performs check-then-mark for payload. It never reports Marked unless the
// ledger confirmed the write.
func (r *Resolver) Resolve(ctx context.Context, payload string) Outcome {
	log := r.log.WithFields(logrus.Fields{"payload": payload, "category": r.category})

	status, err := r.check(ctx, payload)
	if err != nil {
		log.WithError(err).Warn("status check failed")
		return Outcome{Kind: KindTransportError, Payload: payload, Detail: err.Error()}
	}
	if !status.Found {
		return Outcome{Kind: KindNotFound, Payload: payload}
	}
	if status.Status == ledger.StatusMarked {
		return Outcome{Kind: KindAlreadyMarked, Payload: payload, User: status.User, MarkedAt: deref(status.MarkedAt)}
	}

	res, err := r.mark(ctx, payload)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return Outcome{Kind: KindNotFound, Payload: payload}
	case err != nil:
		log.WithError(err).Warn("mark attendance failed")
		return Outcome{Kind: KindTransportError, Payload: payload, Detail: err.Error()}
	}

	user := res.User
	if user == nil {
		user = status.User
	}
	switch {
	case res.AlreadyMarked:
		return Outcome{Kind: KindAlreadyMarked, Payload: payload, User: user, MarkedAt: deref(res.MarkedAt)}
	case res.Success:
		markedAt := deref(res.MarkedAt)
		if markedAt.IsZero() {
			markedAt = r.now()
		}
		return Outcome{Kind: KindMarked, Payload: payload, User: user, MarkedAt: markedAt}
	default:
		log.Warn("ledger did not confirm mark")
		return Outcome{Kind: KindTransportError, Payload: payload, Detail: "ledger did not confirm attendance"}
	}
}

func (r *Resolver) check(ctx context.Context, payload string) (ledger.StatusResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.ledger.CheckStatus(ctx, payload, r.category)
}

func (r *Resolver) mark(ctx context.Context, payload string) (ledger.MarkResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.ledger.MarkAttendance(ctx, payload, r.category)
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
