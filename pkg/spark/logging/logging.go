// Package logging builds the leveled logger used by the spark server.
//
// Lines go to stdout and, when it can be opened, to an append-mode log
// file:
//
//	time="2024-03-05 07:08:09" level=info msg="listening" addr="127.0.0.1:8080"
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the layout of the time field.
const TimestampFormat = "2006-01-02 15:04:05"

// ParseLevel maps FATAL, ERROR, WARN (or WARNING), INFO and DEBUG,
// case-insensitively, to a logrus level. Anything else is INFO.
func ParseLevel(s string) logrus.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FATAL":
		return logrus.FatalLevel
	case "ERROR":
		return logrus.ErrorLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "DEBUG":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Options configures New.
type Options struct {
	// File is appended to when non-empty.
	File string

	// Level is parsed with ParseLevel.
	Level string

	// Stdout defaults to os.Stdout.
	Stdout io.Writer

	// Stderr receives the warning printed when File cannot be opened.
	// Defaults to os.Stderr.
	Stderr io.Writer
}

// Logger is a logrus logger that owns its log file.
type Logger struct {
	*logrus.Logger

	stdout io.Writer
	file   *os.File
}

// New builds a Logger. A log file that cannot be opened is reported on
// Stderr and logging continues on Stdout alone.
func New(opts Options) *Logger {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	l := &Logger{Logger: logrus.New(), stdout: stdout}
	l.SetLevel(ParseLevel(opts.Level))
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	})

	out := stdout
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "Warning, could not open log file: %s\n", opts.File)
		} else {
			l.file = f
			out = io.MultiWriter(stdout, f)
		}
	}
	l.SetOutput(out)

	return l
}

// Close closes the log file, if any. Later lines still reach Stdout.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	l.SetOutput(l.stdout)
	err := l.file.Close()
	l.file = nil
	return err
}
