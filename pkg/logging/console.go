package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only warnings, errors and the final report
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows agent progress (default)
	LogLevelNormal
	// LogLevelVerbose shows every step and probe decision
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

// ParseLogLevel converts a string log level to LogLevel type
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// Leveled is the logging surface agents and phase drivers depend on.
type Leveled interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type palette struct {
	reset, green, cyan, salmon, yellow, red, gray, boldGreen, boldRed, boldWhite string
}

var ansi = palette{
	reset:     "\033[0m",
	green:     "\033[32m",
	cyan:      "\033[36m",
	salmon:    "\033[38;5;217m",
	yellow:    "\033[33m",
	red:       "\033[31m",
	gray:      "\033[90m",
	boldGreen: "\033[1;32m",
	boldRed:   "\033[1;31m",
	boldWhite: "\033[1;37m",
}

// Console prints human-readable progress for concurrently running agents.
// Copies made by WithPrefix share the writer and its lock, so lines from
// different agents never interleave mid-line.
type Console struct {
	level  LogLevel
	mu     *sync.Mutex
	writer io.Writer
	colors palette
	prefix string
	mirror *Logger
}

// NewConsole creates a console logger writing to w (os.Stdout when nil).
func NewConsole(level LogLevel, w io.Writer, color bool) *Console {
	if w == nil {
		w = os.Stdout
	}
	c := &Console{
		level:  level,
		mu:     &sync.Mutex{},
		writer: w,
	}
	if color {
		c.colors = ansi
	}
	return c
}

// Mirror also sends every message, regardless of level, to the file logger.
func (c *Console) Mirror(l *Logger) {
	c.mirror = l
}

// WithPrefix returns a console that tags each line with [prefix].
func (c *Console) WithPrefix(prefix string) *Console {
	cp := *c
	cp.prefix = prefix
	if c.mirror != nil {
		cp.mirror = c.mirror.WithComponent(prefix)
	}
	return &cp
}

func (c *Console) tag() string {
	if c.prefix == "" {
		return ""
	}
	return fmt.Sprintf("[%s] ", c.prefix)
}

func (c *Console) println(color, marker, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "%s%s%s%s%s\n", color, marker, c.tag(), msg, c.colors.reset)
}

// Header prints a prominent header message
func (c *Console) Header(message string) {
	if c.level < LogLevelNormal {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "\n%s%s%s\n", c.colors.boldWhite, strings.Repeat("=", 70), c.colors.reset)
	fmt.Fprintf(c.writer, "%s  %s%s\n", c.colors.boldWhite, message, c.colors.reset)
	fmt.Fprintf(c.writer, "%s%s%s\n", c.colors.boldWhite, strings.Repeat("=", 70), c.colors.reset)
}

// Step prints a state transition of an agent
func (c *Console) Step(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.mirror != nil {
		c.mirror.Infof("step: %s", msg)
	}
	if c.level >= LogLevelNormal {
		c.println(c.colors.cyan, "▶ ", msg)
	}
}

// Successf prints a success message with checkmark
func (c *Console) Successf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.mirror != nil {
		c.mirror.Infof("%s", msg)
	}
	if c.level >= LogLevelNormal {
		c.println(c.colors.boldGreen, "✓ ", msg)
	}
}

// Infof prints an informational message
func (c *Console) Infof(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.mirror != nil {
		c.mirror.Infof("%s", msg)
	}
	if c.level >= LogLevelNormal {
		c.println(c.colors.salmon, "", msg)
	}
}

// Warningf prints a warning message
func (c *Console) Warningf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.mirror != nil {
		c.mirror.Warnf("%s", msg)
	}
	c.println(c.colors.yellow, "⚠ Warning: ", msg)
}

// Errorf prints an error message
func (c *Console) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.mirror != nil {
		c.mirror.Errorf("%s", msg)
	}
	c.println(c.colors.boldRed, "✗ Error: ", msg)
}

// Verbosef prints detailed information (only in verbose mode)
func (c *Console) Verbosef(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.mirror != nil {
		c.mirror.Debugf("%s", msg)
	}
	if c.level >= LogLevelVerbose {
		c.println(c.colors.gray, "→ ", msg)
	}
}

// Debugf prints debug information (only in debug mode)
func (c *Console) Debugf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.mirror != nil {
		c.mirror.Debugf("%s", msg)
	}
	if c.level >= LogLevelDebug {
		c.println(c.colors.gray, "[DEBUG] ", msg)
	}
}

// Discard is a console that prints nothing, for tests and library callers.
func Discard() *Console {
	return NewConsole(LogLevelQuiet, io.Discard, false)
}
