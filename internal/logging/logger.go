package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures the shared logger. Zero values mean info level, text format, stderr.
type Options struct {
	Level  string
	Format string // "text" or "json"
	// File, when set, receives all output instead of stderr. "auto" picks
	// ./logs/<component>-<date>.log.
	File         string
	ReportCaller bool
}

var (
	mu      sync.Mutex
	base    = logrus.New()
	loggers = make(map[string]*logrus.Entry)
)

// Configure applies opts to the logger shared by every component. It returns a closer for
// the log file, if one was opened.
func Configure(component string, opts Options) (io.Closer, error) {
	mu.Lock()
	defer mu.Unlock()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)
	base.SetReportCaller(opts.ReportCaller)

	switch opts.Format {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.File == "" {
		base.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	path := opts.File
	if path == "auto" {
		path = filepath.Join("logs", fmt.Sprintf("%s-%s.log", component, time.Now().Format("2006-01-02")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	base.SetOutput(file)
	return file, nil
}

// NewLogger returns the logger for a component, tagged with a "component" field.
func NewLogger(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()

	if entry, ok := loggers[component]; ok {
		return entry
	}
	entry := base.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Discard returns a logger that drops everything. Used by tests and optional wiring.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
