package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;1;31m"
	colorYellow = "\033[0;33m"
	colorCyan   = "\033[0;36m"
)

type LogLevel int

const (
	LevelError LogLevel = iota
	LevelStep
	LevelInfo
	LevelVerbose
)

// LogSink is one destination of a Logger. Lines above MaxLevel are dropped.
type LogSink struct {
	W        io.Writer
	MaxLevel LogLevel
	Color    bool
}

// Logger fans every line out to its sinks.
type Logger struct {
	mu    sync.Mutex
	sinks []LogSink
}

func NewLogger(sinks ...LogSink) *Logger {
	return &Logger{sinks: sinks}
}

// NewStdoutSink mirrors the usual --verbose/--quiet switches. Errors still
// reach stderr when quiet.
func NewStdoutSink(verbose, quiet bool) LogSink {
	level := LevelInfo
	if verbose {
		level = LevelVerbose
	}
	if quiet {
		return LogSink{W: os.Stderr, MaxLevel: LevelError, Color: IsTerminal(os.Stderr.Fd())}
	}
	return LogSink{W: os.Stdout, MaxLevel: level, Color: IsTerminal(os.Stdout.Fd())}
}

// NewFileSink opens path for a verbose, colourless log.
func NewFileSink(path string) (LogSink, io.Closer, error) {
	f, err := os.Create(path)
	if err != nil {
		return LogSink{}, nil, fmt.Errorf("open log file: %w", err)
	}
	return LogSink{W: f, MaxLevel: LevelVerbose}, f, nil
}

func (l *Logger) AddSink(s LogSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, s)
}

// Enabled reports whether any sink accepts lines at level.
func (l *Logger) Enabled(level LogLevel) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sinks {
		if level <= s.MaxLevel {
			return true
		}
	}
	return false
}

func (l *Logger) write(level LogLevel, color string, format string, args ...any) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sinks {
		if level > s.MaxLevel {
			continue
		}
		if s.Color && color != "" {
			fmt.Fprintln(s.W, color+msg+colorReset)
		} else {
			fmt.Fprintln(s.W, msg)
		}
	}
}

func (l *Logger) Step(format string, args ...any) {
	l.write(LevelStep, colorYellow, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.write(LevelInfo, "", format, args...)
}

func (l *Logger) Verbose(format string, args ...any) {
	l.write(LevelVerbose, colorCyan, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(LevelError, colorRed, format, args...)
}
