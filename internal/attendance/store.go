package attendance

import (
	"context"
	"errors"
	"time"

	"checkin/internal/ledger"
)

var (
	ErrNotFound        = errors.New("attendee not found")
	ErrInvalidCategory = errors.New("invalid attendance category")
	ErrDuplicateCode   = errors.New("qr code already registered")
	ErrInvalidInput    = errors.New("invalid input")
)

// Store persists attendees, their per-category marks and station registrations.
type Store interface {
	UpsertStation(ctx context.Context, stationID string) error
	SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error
	CreateAttendee(ctx context.Context, u ledger.User) error
	FindAttendee(ctx context.Context, qrCode string) (ledger.User, error)
	Marks(ctx context.Context, attendeeID string) (map[string]time.Time, error)
	// InsertMark records attendance unless a mark for the category exists. It returns
	// the effective mark time and whether this call wrote it.
	InsertMark(ctx context.Context, attendeeID, category string, at time.Time) (time.Time, bool, error)
}
