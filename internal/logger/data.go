// Package logger is a small leveled logger. Every message carries a
// component tag ("API", "Guias", "Importer") so the flat log stream
// stays attributable across handlers and commands.
package logger

import "sync"

type Logger struct {
	MinLevel LogLevel
	mu       sync.Mutex
}

// LogLevel orders message severities; messages below MinLevel are
// dropped.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func New(minLevel LogLevel) *Logger {
	return &Logger{MinLevel: minLevel}
}
