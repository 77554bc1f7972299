// Package ledger holds the wire contract of the remote attendance ledger and an HTTP
// client for it.
package ledger

import (
	"errors"
	"time"
)

// Status is an attendee's attendance for one category.
type Status string

const (
	StatusNotMarked Status = "not_marked"
	StatusMarked    Status = "marked"
)

// ErrNotFound is returned when no attendee matches the scanned payload.
var ErrNotFound = errors.New("attendee not found")

// User is the attendee record returned by the ledger.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
	Designation  string `json:"designation,omitempty"`
	Organization string `json:"organization,omitempty"`
	QRCodeData   string `json:"qrCodeData"`
}

// ScanRequest is the body of both check and mark calls.
type ScanRequest struct {
	QRCodeData string `json:"qrCodeData" binding:"required"`
}

// StatusResult answers checkStatus(payload) for one category.
type StatusResult struct {
	Found    bool                 `json:"found"`
	User     *User                `json:"user,omitempty"`
	Status   Status               `json:"status,omitempty"`
	MarkedAt *time.Time           `json:"markedAt,omitempty"`
	Marks    map[string]time.Time `json:"marks,omitempty"`
}

// MarkResult answers markAttendance(payload, category). AlreadyMarked is set when
// another client recorded the attendance first.
type MarkResult struct {
	Success       bool       `json:"success"`
	AlreadyMarked bool       `json:"alreadyMarked,omitempty"`
	User          *User      `json:"user,omitempty"`
	MarkedAt      *time.Time `json:"markedAt,omitempty"`
}

// RegisterRequest asks the ledger for station tokens.
type RegisterRequest struct {
	StationID string `json:"station_id" binding:"required"`
}

// Tokens is the ledger's answer to a station registration.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}
