package resolver

import (
	"time"

	"checkin/internal/ledger"
)

// Kind classifies a resolved scan.
type Kind string

const (
	KindMarked         Kind = "marked"
	KindAlreadyMarked  Kind = "already_marked"
	KindNotFound       Kind = "not_found"
	KindTransportError Kind = "transport_error"
)

// Outcome is the single terminal result of resolving one accepted scan.
type Outcome struct {
	Kind     Kind
	Payload  string
	User     *ledger.User
	MarkedAt time.Time
	Detail   string
}

// Failed reports whether the outcome renders as an error result.
func (o Outcome) Failed() bool {
	return o.Kind == KindNotFound || o.Kind == KindTransportError
}

// Printable reports whether a badge can be printed for the outcome.
func (o Outcome) Printable() bool {
	return o.User != nil && (o.Kind == KindMarked || o.Kind == KindAlreadyMarked)
}

// Message is the operator-facing summary of the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindMarked:
		return "Attended Successfully"
	case KindAlreadyMarked:
		return "Already Attended"
	case KindNotFound:
		return "Invalid QR Code"
	default:
		return "Network error, please rescan"
	}
}
