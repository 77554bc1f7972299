package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"checkin/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS stations (
	station_id TEXT PRIMARY KEY,
	registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS refresh_tokens (
	token TEXT PRIMARY KEY,
	station_id TEXT NOT NULL REFERENCES stations(station_id),
	expires_at TIMESTAMPTZ NOT NULL,
	revoked BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS attendees (
	id TEXT PRIMARY KEY,
	qr_code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	mobile TEXT NOT NULL DEFAULT '',
	designation TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS attendance_marks (
	attendee_id TEXT NOT NULL REFERENCES attendees(id),
	category TEXT NOT NULL,
	marked_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (attendee_id, category)
);
`

// Repository persists the ledger in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the ledger tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

// UpsertStation ensures a station record exists.
func (r *Repository) UpsertStation(ctx context.Context, stationID string) error {
	if stationID == "" {
		return errors.New("station id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (station_id)
		VALUES ($1)
		ON CONFLICT (station_id) DO NOTHING
	`, stationID)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (station_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, stationID, token, expiresAt)
	return err
}

// CreateAttendee inserts a new attendee.
func (r *Repository) CreateAttendee(ctx context.Context, u ledger.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendees (id, qr_code, name, email, mobile, designation, organization)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, u.ID, u.QRCodeData, u.Name, u.Email, u.Mobile, u.Designation, u.Organization)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

// FindAttendee returns the attendee owning qrCode.
func (r *Repository) FindAttendee(ctx context.Context, qrCode string) (ledger.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, qr_code, name, email, mobile, designation, organization
		FROM attendees WHERE qr_code = $1
	`, qrCode)
	var u ledger.User
	if err := row.Scan(&u.ID, &u.QRCodeData, &u.Name, &u.Email, &u.Mobile, &u.Designation, &u.Organization); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.User{}, ErrNotFound
		}
		return ledger.User{}, err
	}
	return u, nil
}

// Marks returns every category the attendee is marked for.
func (r *Repository) Marks(ctx context.Context, attendeeID string) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, marked_at FROM attendance_marks WHERE attendee_id = $1
	`, attendeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := make(map[string]time.Time)
	for rows.Next() {
		var category string
		var at time.Time
		if err := rows.Scan(&category, &at); err != nil {
			return nil, err
		}
		marks[category] = at
	}
	return marks, rows.Err()
}

// InsertMark writes the mark with a conditional insert so racing stations produce
// exactly one winner.
func (r *Repository) InsertMark(ctx context.Context, attendeeID, category string, at time.Time) (time.Time, bool, error) {
	var markedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_marks (attendee_id, category, marked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (attendee_id, category) DO NOTHING
		RETURNING marked_at
	`, attendeeID, category, at).Scan(&markedAt)
	if err == nil {
		return markedAt, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT marked_at FROM attendance_marks WHERE attendee_id = $1 AND category = $2
	`, attendeeID, category).Scan(&markedAt)
	if err != nil {
		return time.Time{}, false, err
	}
	return markedAt, false, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
