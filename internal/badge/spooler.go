package badge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"checkin/internal/queue"
)

// Spooler consumes badge jobs and writes one text badge per job into a directory,
// where the print driver picks them up.
type Spooler struct {
	q   queue.Queue
	dir string
	log *logrus.Entry
}

func NewSpooler(q queue.Queue, dir string, log *logrus.Entry) *Spooler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Spooler{q: q, dir: dir, log: log}
}

// Run spools jobs until ctx is cancelled or the queue closes.
func (s *Spooler) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}
	msgs, err := s.q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume print queue: %w", err)
	}
	s.log.WithField("dir", s.dir).Info("badge spooler started")
	for msg := range msgs {
		if msg.Type != MessageType {
			continue
		}
		var job Job
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			s.log.WithError(err).Warn("malformed badge job")
			continue
		}
		path, err := s.Write(job)
		if err != nil {
			s.log.WithError(err).WithField("job", job.ID).Error("spool badge")
			continue
		}
		s.log.WithFields(logrus.Fields{"job": job.ID, "payload": job.Payload, "path": path}).Info("badge spooled")
	}
	s.log.Info("badge spooler stopped")
	return nil
}

// Write renders job into the spool directory and returns the file path.
func (s *Spooler) Write(job Job) (string, error) {
	name := job.ID
	if name == "" {
		name = job.Payload
	}
	path := filepath.Join(s.dir, sanitize(name)+".txt")
	if err := os.WriteFile(path, []byte(Render(job)), 0o644); err != nil {
		return "", fmt.Errorf("write badge: %w", err)
	}
	return path, nil
}

// Render lays out the badge text: name and organization upper-cased, then the code.
func Render(job Job) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(job.Name)))
	b.WriteByte('\n')
	if org := strings.TrimSpace(job.Organization); org != "" {
		b.WriteString(strings.ToUpper(org))
		b.WriteByte('\n')
	}
	b.WriteString(job.Payload)
	b.WriteByte('\n')
	return b.String()
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
