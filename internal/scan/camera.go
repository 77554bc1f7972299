package scan

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Decoder is the camera-decoding collaborator. It calls onDecode for every decoded code
// and onError when the camera becomes unusable (permission denied, device lost).
type Decoder interface {
	Start(ctx context.Context, onDecode func(string), onError func(error)) error
	Pause() error
	Resume() error
	Stop() error
}

// CameraReader adapts a Decoder into an Input. After each emitted event it pauses the
// decoder and drops further callbacks until Resume.
type CameraReader struct {
	decoder Decoder
	now     func() time.Time
	log     *logrus.Entry

	mu     sync.Mutex
	emit   Emitter
	paused bool
}

func NewCameraReader(decoder Decoder, now func() time.Time, log *logrus.Entry) *CameraReader {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CameraReader{decoder: decoder, now: now, log: log}
}

func (c *CameraReader) Source() Source { return SourceCamera }

func (c *CameraReader) Start(ctx context.Context, emit Emitter, fail func(error)) error {
	c.mu.Lock()
	c.emit = emit
	c.paused = false
	c.mu.Unlock()

	onError := func(err error) {
		c.log.WithError(err).Warn("camera decoder failed")
		if fail != nil {
			fail(&SourceError{Source: SourceCamera, Err: err})
		}
	}
	if err := c.decoder.Start(ctx, c.onDecode, onError); err != nil {
		c.mu.Lock()
		c.emit = nil
		c.mu.Unlock()
		return &SourceError{Source: SourceCamera, Err: err}
	}
	return nil
}

func (c *CameraReader) onDecode(text string) {
	payload := strings.TrimSpace(text)

	c.mu.Lock()
	if c.emit == nil || c.paused || payload == "" {
		c.mu.Unlock()
		return
	}
	c.paused = true
	emit := c.emit
	c.mu.Unlock()

	// Pause before emitting so a prompt Resume from the session is not undone.
	if err := c.decoder.Pause(); err != nil {
		c.log.WithError(err).Warn("pause camera decoder")
	}
	emit(Event{Payload: payload, Source: SourceCamera, ObservedAt: c.now()})
}

// Resume re-arms the decoder once the session is ready for the next scan.
func (c *CameraReader) Resume() error {
	c.mu.Lock()
	if c.emit == nil {
		c.mu.Unlock()
		return nil
	}
	c.paused = false
	c.mu.Unlock()
	return c.decoder.Resume()
}

func (c *CameraReader) Stop() error {
	c.mu.Lock()
	c.emit = nil
	c.paused = false
	c.mu.Unlock()
	return c.decoder.Stop()
}
