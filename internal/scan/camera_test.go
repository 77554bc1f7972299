package scan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/logging"
)

type fakeDecoder struct {
	mu       sync.Mutex
	onDecode func(string)
	onError  func(error)
	startErr error
	pauses   int
	resumes  int
	stopped  bool
}

func (d *fakeDecoder) Start(_ context.Context, onDecode func(string), onError func(error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.onDecode, d.onError = onDecode, onError
	return nil
}

func (d *fakeDecoder) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	return nil
}

func (d *fakeDecoder) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	return nil
}

func (d *fakeDecoder) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return nil
}

func (d *fakeDecoder) decode(text string) { d.onDecode(text) }

func TestCameraReaderPausesAfterEmit(t *testing.T) {
	dec := &fakeDecoder{}
	c := NewCameraReader(dec, nil, logging.Discard())
	var events []Event
	require.NoError(t, c.Start(context.Background(), collect(&events), nil))

	dec.decode("A2")
	dec.decode("A2")
	dec.decode("A3")

	require.Len(t, events, 1)
	assert.Equal(t, "A2", events[0].Payload)
	assert.Equal(t, SourceCamera, events[0].Source)
	assert.Equal(t, 1, dec.pauses)
}

func TestCameraReaderResumeRearms(t *testing.T) {
	dec := &fakeDecoder{}
	c := NewCameraReader(dec, nil, logging.Discard())
	var events []Event
	require.NoError(t, c.Start(context.Background(), collect(&events), nil))

	dec.decode("A1")
	require.NoError(t, c.Resume())
	dec.decode("A2")

	require.Len(t, events, 2)
	assert.Equal(t, "A2", events[1].Payload)
	assert.Equal(t, 1, dec.resumes)
}

func TestCameraReaderStartFailure(t *testing.T) {
	dec := &fakeDecoder{startErr: errors.New("permission denied")}
	c := NewCameraReader(dec, nil, logging.Discard())

	err := c.Start(context.Background(), func(Event) {}, nil)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, SourceCamera, srcErr.Source)
	assert.ErrorContains(t, err, "permission denied")
}

func TestCameraReaderReportsRuntimeFailure(t *testing.T) {
	dec := &fakeDecoder{}
	c := NewCameraReader(dec, nil, logging.Discard())
	var failures []error
	require.NoError(t, c.Start(context.Background(), func(Event) {}, func(err error) { failures = append(failures, err) }))

	dec.onError(errors.New("device lost"))

	require.Len(t, failures, 1)
	var srcErr *SourceError
	assert.ErrorAs(t, failures[0], &srcErr)
}

func TestCameraReaderStopDropsLateCallbacks(t *testing.T) {
	dec := &fakeDecoder{}
	c := NewCameraReader(dec, nil, logging.Discard())
	var events []Event
	require.NoError(t, c.Start(context.Background(), collect(&events), nil))

	require.NoError(t, c.Stop())
	dec.decode("late")

	assert.Empty(t, events)
	assert.True(t, dec.stopped)
}
