// Package cellmap holds types and functions shared across the schema
// packages: leveled logging and small configuration helpers.
package cellmap

import (
	"fmt"
	"log"
	"time"

	"github.com/natefinch/lumberjack"
)

type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var (
	// Verbose is set when we want to be exceptionally verbose.
	Verbose bool

	// mode is a global variable set to the run mode of this process.
	mode ModeFlag = InfoMode
)

// Logger provides a way for the application to log messages at different severities.
type Logger interface {
	// Debugf formats its arguments analogous to fmt.Printf and records the text as a log
	// message at Debug level.  If cellmap.Verbose is not true, these logs aren't written.
	Debugf(format string, args ...interface{})

	// Infof is like Debugf, but at Info level and will be written regardless if not in
	// verbose mode.
	Infof(format string, args ...interface{})

	// Warningf is like Debugf, but at Warning level.
	Warningf(format string, args ...interface{})

	// Errorf is like Debugf, but at Error level.
	Errorf(format string, args ...interface{})

	// Criticalf is like Debugf, but at Critical level.
	Criticalf(format string, args ...interface{})
}

// SetLogMode sets the severity required for a log message to be printed.
// For example, SetLogMode(cellmap.WarningMode) will log any calls using
// Warningf, Errorf, or Criticalf.  To turn off all logging, use SilentMode.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

func Debugf(format string, args ...interface{}) {
	if mode <= DebugMode {
		logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if mode <= InfoMode {
		logger.Infof(format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if mode <= WarningMode {
		logger.Warningf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if mode <= ErrorMode {
		logger.Errorf(format, args...)
	}
}

func Criticalf(format string, args ...interface{}) {
	if mode <= CriticalMode {
		logger.Criticalf(format, args...)
	}
}

// TimeLog adds elapsed time to logging.
// Example:
//
//	mylog := NewTimeLog()
//	...
//	mylog.Infof("stuff happened")  // Appends elapsed time from NewTimeLog() to message.
type TimeLog struct {
	logger Logger
	start  time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{logger, time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	if mode <= DebugMode {
		t.logger.Debugf(format+": %s\n", append(args, time.Since(t.start))...)
	}
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	if mode <= InfoMode {
		t.logger.Infof(format+": %s\n", append(args, time.Since(t.start))...)
	}
}

func (t TimeLog) Errorf(format string, args ...interface{}) {
	if mode <= ErrorMode {
		t.logger.Errorf(format+": %s\n", append(args, time.Since(t.start))...)
	}
}

// --- standard logger implementation, either stdout or a rotating log file ---

type stdLogger struct {
	*lumberjack.Logger
}

var logger stdLogger

// LogConfig configures logging to a rotating log file.
type LogConfig struct {
	Logfile string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

// SetLogger routes log messages to a rotating log file.  If no file is
// specified, messages go to stdout.
func (c *LogConfig) SetLogger() {
	if c == nil || c.Logfile == "" {
		Infof("Sending log messages to stdout since no log file specified.")
		return
	}
	fmt.Printf("Sending log messages to: %s\n", c.Logfile)
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	log.SetOutput(l)
	logger = stdLogger{l}
}

func (slog stdLogger) write(level, s string) {
	if slog.Logger != nil {
		slog.Write([]byte(level + s))
	} else {
		log.Printf("%s", level+s)
	}
}

func (slog stdLogger) Debugf(format string, args ...interface{}) {
	slog.write(" DEBUG ", fmt.Sprintf(format, args...))
}

func (slog stdLogger) Infof(format string, args ...interface{}) {
	slog.write("  INFO ", fmt.Sprintf(format, args...))
}

func (slog stdLogger) Warningf(format string, args ...interface{}) {
	slog.write("  WARN ", fmt.Sprintf(format, args...))
}

func (slog stdLogger) Errorf(format string, args ...interface{}) {
	slog.write(" ERROR ", fmt.Sprintf(format, args...))
}

func (slog stdLogger) Criticalf(format string, args ...interface{}) {
	slog.write("  CRIT ", fmt.Sprintf(format, args...))
}
