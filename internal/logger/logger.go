package logger

import (
	"fmt"
	"log"
	"os"
	"time"
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// SetLogLevel changes the minimum level at runtime.
func (l *Logger) SetLogLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.MinLevel = level
}

func (l *Logger) log(level LogLevel, component, format string, args ...interface{}) {
	if level < l.MinLevel {
		return
	}

	stamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if component == "" {
		log.Printf("[%s] [%s] %s", stamp, levelNames[level], msg)
		return
	}
	log.Printf("[%s] [%s] [%s] %s", stamp, levelNames[level], component, msg)
}

func (l *Logger) Debug(component, format string, args ...interface{}) {
	l.log(LevelDebug, component, format, args...)
}

func (l *Logger) Info(component, format string, args ...interface{}) {
	l.log(LevelInfo, component, format, args...)
}

func (l *Logger) Warn(component, format string, args ...interface{}) {
	l.log(LevelWarn, component, format, args...)
}

func (l *Logger) Error(component, format string, args ...interface{}) {
	l.log(LevelError, component, format, args...)
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(component, format string, args ...interface{}) {
	l.log(LevelError, component, format, args...)
	os.Exit(1)
}
