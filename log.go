package ies

import (
	"fmt"
	"os"
	"sync"
)

// LogRecord is one entry a LogSink receives after each UpdateA call, or for
// an out-of-band notice such as the IES_DEBUG acknowledgement.
type LogRecord struct {
	ID           string
	Iteration    int
	CostFunction float64
	Inversion    string
	StepLength   float64
	Message      string
}

// String renders r in the textual log format: "IES iter:<k> cost
// function: <f>", or, for an out-of-band notice, "IES <id>: <message>".
func (r LogRecord) String() string {
	if r.Message != "" {
		return fmt.Sprintf("IES %s: %s", r.ID, r.Message)
	}
	return fmt.Sprintf("IES iter:%d cost function: %g", r.Iteration, r.CostFunction)
}

// LogSink receives one record per UpdateA call. A State never shares its
// Logger with another State automatically, so implementations only need to
// be safe for use from one goroutine at a time unless documented otherwise.
type LogSink interface {
	LogUpdate(LogRecord) error
}

// NopLogSink discards every record; it is the default when no log path is
// configured (the IES_LOGFILE key has never been set).
type NopLogSink struct{}

// LogUpdate implements LogSink.
func (NopLogSink) LogUpdate(LogRecord) error { return nil }

// FileLogSink appends newline-terminated text records to a file.
type FileLogSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFileLogSink opens path for appending, creating it if it does not exist.
func NewFileLogSink(path string) (*FileLogSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ies: open log file %q: %w", path, err)
	}
	return &FileLogSink{path: path, f: f}, nil
}

// LogUpdate implements LogSink.
func (s *FileLogSink) LogUpdate(r LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.f, r.String())
	return err
}

// Path returns the file path this sink was opened on.
func (s *FileLogSink) Path() string { return s.path }

// Close closes the underlying file.
func (s *FileLogSink) Close() error { return s.f.Close() }
