// Package attendance implements the attendance ledger: attendees, per-category marks
// and the check/mark operations scanning stations call.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"checkin/internal/ledger"
	"checkin/internal/metrics"
)

// Service coordinates attendance checks and marks.
type Service struct {
	store      Store
	categories map[string]struct{}
	now        func() time.Time
	log        *logrus.Entry
	metrics    *metrics.Ledger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.Ledger) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a service over store accepting the given categories.
func NewService(store Store, categories []string, opts ...Option) *Service {
	s := &Service{
		store:      store,
		categories: make(map[string]struct{}, len(categories)),
		now:        func() time.Time { return time.Now().UTC() },
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, c := range categories {
		s.categories[c] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterStation validates and persists station metadata.
func (s *Service) RegisterStation(ctx context.Context, stationID string) error {
	if strings.TrimSpace(stationID) == "" {
		return fmt.Errorf("%w: station id required", ErrInvalidInput)
	}
	return s.store.UpsertStation(ctx, stationID)
}

// SaveRefreshToken records an issued refresh token.
func (s *Service) SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error {
	return s.store.SaveRefreshToken(ctx, stationID, token, expiresAt)
}

// RegisterAttendee adds an attendee. A missing QR code is generated.
func (s *Service) RegisterAttendee(ctx context.Context, u ledger.User) (ledger.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return ledger.User{}, fmt.Errorf("%w: attendee name required", ErrInvalidInput)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.QRCodeData == "" {
		u.QRCodeData = uuid.NewString()
	}
	if err := s.store.CreateAttendee(ctx, u); err != nil {
		return ledger.User{}, err
	}
	s.log.WithFields(logrus.Fields{"attendee": u.ID, "payload": u.QRCodeData}).Info("attendee registered")
	return u, nil
}

// CheckStatus reports the attendee behind qrCode and their status for category. It
// never writes.
func (s *Service) CheckStatus(ctx context.Context, qrCode, category string) (ledger.StatusResult, error) {
	if err := s.validCategory(category); err != nil {
		return ledger.StatusResult{}, err
	}
	u, err := s.store.FindAttendee(ctx, qrCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.Check("not_found")
		}
		return ledger.StatusResult{}, err
	}
	marks, err := s.store.Marks(ctx, u.ID)
	if err != nil {
		return ledger.StatusResult{}, fmt.Errorf("load marks: %w", err)
	}

	res := ledger.StatusResult{Found: true, User: &u, Status: ledger.StatusNotMarked, Marks: marks}
	if at, ok := marks[category]; ok {
		res.Status = ledger.StatusMarked
		res.MarkedAt = &at
	}
	s.metrics.Check(string(res.Status))
	return res, nil
}

// Mark records attendance for qrCode in category. A mark already present is reported
// with AlreadyMarked and no write. Nothing is written once ctx is done.
func (s *Service) Mark(ctx context.Context, qrCode, category string) (ledger.MarkResult, error) {
	if err := s.validCategory(category); err != nil {
		return ledger.MarkResult{}, err
	}
	u, err := s.store.FindAttendee(ctx, qrCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.Mark(category, "not_found")
		}
		return ledger.MarkResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ledger.MarkResult{}, err
	}

	at, inserted, err := s.store.InsertMark(ctx, u.ID, category, s.now())
	if err != nil {
		s.metrics.Mark(category, "error")
		return ledger.MarkResult{}, fmt.Errorf("insert mark: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{"attendee": u.ID, "category": category})
	if !inserted {
		s.metrics.Mark(category, "already_marked")
		log.Info("attendance already marked")
		return ledger.MarkResult{AlreadyMarked: true, User: &u, MarkedAt: &at}, nil
	}
	s.metrics.Mark(category, "marked")
	log.Info("attendance marked")
	return ledger.MarkResult{Success: true, User: &u, MarkedAt: &at}, nil
}

// HasCategory reports whether category is accepted.
func (s *Service) HasCategory(category string) bool {
	_, ok := s.categories[category]
	return ok
}

func (s *Service) validCategory(category string) error {
	if !s.HasCategory(category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return nil
}
