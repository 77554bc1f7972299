package badge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/logging"
	"checkin/internal/queue"
)

func TestQueuePrinterPublishesJob(t *testing.T) {
	q := queue.NewInMemory(1)
	p := NewQueuePrinter(q)
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	require.NoError(t, p.Print(context.Background(), Job{Payload: "QR-1", Name: "Ada"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs

	assert.Equal(t, MessageType, msg.Type)
	var job Job
	require.NoError(t, json.Unmarshal(msg.Body, &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "QR-1", job.Payload)
	assert.True(t, fixed.Equal(job.RequestedAt))
}

func TestQueuePrinterRejectsEmptyPayload(t *testing.T) {
	p := NewQueuePrinter(queue.NewInMemory(1))
	assert.Error(t, p.Print(context.Background(), Job{Name: "Ada"}))
}

func TestRender(t *testing.T) {
	out := Render(Job{Payload: "QR-1", Name: " Ada Lovelace ", Organization: "Analytical Engines"})
	assert.Equal(t, "ADA LOVELACE\nANALYTICAL ENGINES\nQR-1\n", out)

	assert.Equal(t, "GRACE\nQR-2\n", Render(Job{Payload: "QR-2", Name: "grace"}))
}

func TestSpoolerWritesBadges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool")
	q := queue.NewInMemory(4)
	s := NewSpooler(q, dir, logging.Discard())
	p := NewQueuePrinter(q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, q.Publish(ctx, queue.Message{Type: "other", Body: json.RawMessage(`{}`)}))
	require.NoError(t, p.Print(ctx, Job{ID: "job/1", Payload: "QR-1", Name: "Ada", Organization: "ACME"}))

	path := filepath.Join(dir, "job_1.txt")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "ADA\nACME\nQR-1\n"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
