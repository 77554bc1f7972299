package session

import (
	"checkin/internal/resolver"
	"checkin/internal/scan"
)

// Phase is the UI-visible stage of a scanning session.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseScanning   Phase = "scanning"
	PhaseProcessing Phase = "processing"
	PhaseResult     Phase = "result"
)

// Snapshot is a read-only copy of the session state handed to observers.
type Snapshot struct {
	Phase Phase
	// Methods lists the input methods selectable from Idle.
	Methods []scan.Source
	// Method is the active input method outside Idle.
	Method   scan.Source
	Category string
	// Outcome is set only in PhaseResult.
	Outcome *resolver.Outcome
	// SourceErr is set when the active input became unusable; the session keeps
	// scanning until the operator stops or restarts it.
	SourceErr error
}

// StatusText is the operator status line for the snapshot.
func (s Snapshot) StatusText() string {
	switch s.Phase {
	case PhaseScanning:
		if s.SourceErr != nil {
			return s.SourceErr.Error()
		}
		if s.Method == scan.SourceCamera {
			return "Point the camera at a QR code..."
		}
		return "Waiting for barcode scan..."
	case PhaseProcessing:
		return "Processing..."
	case PhaseResult:
		if s.Outcome != nil {
			return s.Outcome.Message()
		}
	}
	return "Select a scan method"
}
