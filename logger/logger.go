package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewLogger will create a new logger implementation that writes JSON lines to stderr.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.JSONFormatter{})
	logLevel, err := log.ParseLevel(level)
	if err == nil {
		log.SetLevel(logLevel)
	} else {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	logger := log.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: logger, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}
}

// OpenLogFile opens fileName for appending and directs all log output to it.
// The caller must close the returned file once logging is finished.
// An empty fileName leaves output on stderr and returns a nil file.
func (l *LoggerImpl) OpenLogFile(fileName string) (*os.File, error) {
	if fileName == "" {
		return nil, nil
	}
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open log file %v", fileName)
	}
	l.SetOutput(f)
	return f, nil
}

// WithFields returns a copy of the logger that adds fields to every entry.
func (l *LoggerImpl) WithFields(fields map[string]interface{}) *LoggerImpl {
	return &LoggerImpl{
		Logger:         l.Logger.WithFields(fields),
		Service:        l.Service,
		LogLevelStr:    l.LogLevelStr,
		PrintStackDump: l.PrintStackDump,
	}
}

// WithField returns log with the extra field added when log is a *LoggerImpl.
// Other implementations are returned unchanged.
func WithField(l Logger, key string, value interface{}) Logger {
	if impl, ok := l.(*LoggerImpl); ok {
		return impl.WithFields(map[string]interface{}{key: value})
	}
	return l
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace in trace mode or if PrintStackDump is set).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.LogLevelStr == "trace" || l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace in debug mode, or if user explicitly sets PrintStackDump).
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.PrintStackDump || l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else {
		l.Logger.Panic(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1).
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	log.SetOutput(writer)
}
