// Package badge hands attendee badges to a print spool.
package badge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"checkin/internal/queue"
)

// MessageType tags badge jobs on the print queue.
const MessageType = "badge"

// Job is one badge to print.
type Job struct {
	ID           string    `json:"id"`
	Payload      string    `json:"payload"`
	Name         string    `json:"name"`
	Organization string    `json:"organization,omitempty"`
	Category     string    `json:"category,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
}

// Printer accepts badge jobs.
type Printer interface {
	Print(ctx context.Context, job Job) error
}

// QueuePrinter publishes jobs to a print queue consumed by a Spooler.
type QueuePrinter struct {
	q   queue.Queue
	now func() time.Time
}

func NewQueuePrinter(q queue.Queue) *QueuePrinter {
	return &QueuePrinter{q: q, now: time.Now}
}

// Print assigns an ID and request time when missing and enqueues the job.
func (p *QueuePrinter) Print(ctx context.Context, job Job) error {
	if job.Payload == "" {
		return errors.New("badge job without payload")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = p.now()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode badge job: %w", err)
	}
	if err := p.q.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
		return fmt.Errorf("enqueue badge %s: %w", job.ID, err)
	}
	return nil
}
