// Package scan turns raw scanner input (keystroke bursts from a barcode gun, decode
// callbacks from a camera) into uniform scan events.
package scan

import (
	"context"
	"fmt"
	"time"
)

// Source tags where a scan came from.
type Source string

const (
	SourceGun    Source = "gun"
	SourceCamera Source = "camera"
)

// Valid reports whether s is a known input method.
func (s Source) Valid() bool {
	return s == SourceGun || s == SourceCamera
}

// Event is one completed raw scan. It is immutable once emitted.
type Event struct {
	Payload    string
	Source     Source
	ObservedAt time.Time
}

// Emitter receives normalized events. Implementations must not block.
type Emitter func(Event)

// Input is a raw scan producer driven by a scanning session.
type Input interface {
	Source() Source
	// Start begins delivering events to emit. fail is called with a *SourceError when
	// the source breaks after a successful start.
	Start(ctx context.Context, emit Emitter, fail func(error)) error
	// Resume re-arms a source that paused itself after emitting.
	Resume() error
	// Stop tears the source down; no events are emitted afterwards.
	Stop() error
}

// SourceError marks an input source unusable until the session restarts it.
type SourceError struct {
	Source Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s input unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
