package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu          sync.RWMutex
	debugLogger *log.Logger

	DebugEnabled = false

	logFile *os.File
)

// InitLogging sets up logging based on configuration.
func InitLogging(debugMode bool, logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	DebugEnabled = debugMode

	if DebugEnabled && logPath != "" {
		logDir := filepath.Dir(logPath)
		err := os.MkdirAll(logDir, 0o755)
		if err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		logFile = f
		debugLogger = log.New(f, "", log.Ldate|log.Ltime|log.Lshortfile)
	}

	return nil
}

// InitWriter sends log output to w instead of a file.
func InitWriter(debugMode bool, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	DebugEnabled = debugMode
	debugLogger = log.New(w, "", log.Ldate|log.Ltime)
}

// Close closes the log file if open.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	debugLogger = nil
}

func printf(level, format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()

	if DebugEnabled && debugLogger != nil {
		_ = debugLogger.Output(3, fmt.Sprintf("["+level+"] "+format, v...))
	}
}

func Infof(format string, v ...interface{}) {
	printf("INFO", format, v...)
}

// Errorf logs an error message to the file if debug mode is enabled.
func Errorf(format string, v ...interface{}) {
	printf("ERROR", format, v...)
}

func Debugf(format string, v ...interface{}) {
	printf("DEBUG", format, v...)
}

func Warnf(format string, v ...interface{}) {
	printf("WARNING", format, v...)
}

// Logger is the package logger as a value, for components that take one.
type Logger struct{}

// Default returns a Logger that writes through the package-level functions.
func Default() Logger { return Logger{} }

func (Logger) Infof(format string, v ...interface{})  { printf("INFO", format, v...) }
func (Logger) Errorf(format string, v ...interface{}) { printf("ERROR", format, v...) }
func (Logger) Debugf(format string, v ...interface{}) { printf("DEBUG", format, v...) }
func (Logger) Warnf(format string, v ...interface{})  { printf("WARNING", format, v...) }

type discard struct{}

// Discard drops everything.
var Discard discard

func (discard) Infof(string, ...interface{})  {}
func (discard) Errorf(string, ...interface{}) {}
func (discard) Debugf(string, ...interface{}) {}
func (discard) Warnf(string, ...interface{})  {}
