// Package logging provides the leveled logger used across nav-command.
//
// Library packages default to Discard so that a command session prints nothing unless the caller
// injects a logger. The CLI builds one from configuration, optionally writing to a rotating file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	ERROR Level = iota
	WARNING
	INFO
	DEBUG
)

// Logger is the minimal leveled logging surface.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
}

// --------------------------------------------------------------------------
// Leveled logger
// --------------------------------------------------------------------------

type navLogger struct {
	name   string
	level  Level
	logger *log.Logger
}

func (l *navLogger) Debugf(format string, args ...any) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *navLogger) Infof(format string, args ...any) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *navLogger) Warningf(format string, args ...any) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *navLogger) Errorf(format string, args ...any) {
	if l.level >= ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *navLogger) log(levelStr string, format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-10s | %s", levelStr, l.name, message)
}

// New creates a logger for the named component writing to w.
func New(name string, level Level, w io.Writer) Logger {
	return &navLogger{
		name:   name,
		level:  level,
		logger: log.New(w, "", log.Ldate|log.Ltime),
	}
}

// --------------------------------------------------------------------------
// Discard
// --------------------------------------------------------------------------

type discard struct{}

func (discard) Debugf(string, ...any)   {}
func (discard) Infof(string, ...any)    {}
func (discard) Warningf(string, ...any) {}
func (discard) Errorf(string, ...any)   {}

// Discard drops everything.
var Discard Logger = discard{}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLevel converts a textual level (debug, info, warn, error) to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warning", "warn":
		return WARNING, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// FileOptions configures the rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Output returns the writer logs go to: a rotating file when opts.Path is set, stderr otherwise.
func Output(opts FileOptions) io.Writer {
	if opts.Path == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
}
