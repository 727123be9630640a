package logging

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const entryTimeFormat = "2006-01-02 15:04:05.000"

// Logger appends the debug trace of one run to <dir>/<run-id>-partyprobe.log.
// Every entry is written; verbosity only filters the console.
type Logger struct {
	runID     string
	component string
	path      string
	out       *log.Logger

	// file is nil on loggers derived with WithComponent
	file      *os.File
	closeOnce sync.Once
}

// NewRunID returns a fresh identifier for one orchestration run.
func NewRunID() string {
	return uuid.NewString()
}

// DefaultDir is ~/.partyprobe/logs.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".partyprobe", "logs"), nil
}

// Open opens the log file of runID in dir for appending, creating the
// directory if needed. An empty dir means DefaultDir.
func Open(dir, runID, component string) (*Logger, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, runID+"-partyprobe.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		runID:     runID,
		component: component,
		path:      path,
		out:       log.New(file, "", 0),
		file:      file,
	}, nil
}

// WithComponent returns a logger writing to the same file under another
// component name. Only the logger returned by Open owns the file.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		runID:     l.runID,
		component: component,
		path:      l.path,
		out:       l.out,
	}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	// log.Logger serialises concurrent writers
	l.out.Printf("[%s] [%s] [%s] %s",
		time.Now().Format(entryTimeFormat), l.component, level, fmt.Sprintf(format, v...))
}

// Debugf writes a DEBUG entry.
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof writes an INFO entry.
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf writes a WARN entry.
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf writes an ERROR entry.
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// RunID returns the run this logger writes for.
func (l *Logger) RunID() string {
	return l.runID
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Close closes the file if this logger owns it. Safe to call twice.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
