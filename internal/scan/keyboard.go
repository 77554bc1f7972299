package scan

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultQuietInterval separates a scanner burst from stray or hand-typed keys.
const DefaultQuietInterval = 100 * time.Millisecond

// KeyReader buffers keystrokes from a barcode gun that emulates a keyboard. A burst is
// terminated by Enter. A key arriving more than the quiet interval after the previous
// one starts a new burst and discards the stale partial buffer.
type KeyReader struct {
	quiet time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buf     strings.Builder
	lastKey time.Time
	emit    Emitter
}

// NewKeyReader creates a reader; a non-positive quiet interval uses the default.
func NewKeyReader(quiet time.Duration, now func() time.Time) *KeyReader {
	if quiet <= 0 {
		quiet = DefaultQuietInterval
	}
	if now == nil {
		now = time.Now
	}
	return &KeyReader{quiet: quiet, now: now}
}

func (k *KeyReader) Source() Source { return SourceGun }

func (k *KeyReader) Start(_ context.Context, emit Emitter, _ func(error)) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.emit = emit
	k.buf.Reset()
	return nil
}

func (k *KeyReader) Resume() error { return nil }

func (k *KeyReader) Stop() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.emit = nil
	k.buf.Reset()
	return nil
}

// Key feeds a single-character key event. Keys are ignored while the reader is stopped.
func (k *KeyReader) Key(r rune) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.emit == nil {
		return
	}
	now := k.now()
	if k.buf.Len() > 0 && now.Sub(k.lastKey) > k.quiet {
		k.buf.Reset()
	}
	k.buf.WriteRune(r)
	k.lastKey = now
}

// Enter completes the current burst, emitting it when the trimmed buffer is non-empty.
// A buffer left idle past the quiet interval is stray input and is discarded. It reports
// whether an event was emitted.
func (k *KeyReader) Enter() bool {
	k.mu.Lock()
	emit := k.emit
	now := k.now()
	payload := strings.TrimSpace(k.buf.String())
	if now.Sub(k.lastKey) > k.quiet {
		payload = ""
	}
	k.buf.Reset()
	k.mu.Unlock()

	if emit == nil || payload == "" {
		return false
	}
	emit(Event{Payload: payload, Source: SourceGun, ObservedAt: now})
	return true
}

// Pending returns the buffered partial burst.
func (k *KeyReader) Pending() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.buf.String()
}
