package logger

import (
	"log"
)

// Logger - то, что компоненты знают о логировании.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StdLogger пишет через стандартный log с префиксом уровня.
type StdLogger struct {
	l *log.Logger
}

// NewStdLogger создает логгер поверх log.Default().
func NewStdLogger() *StdLogger {
	return &StdLogger{l: log.Default()}
}

// New создает логгер поверх переданного *log.Logger.
func New(l *log.Logger) *StdLogger {
	return &StdLogger{l: l}
}

func (s *StdLogger) Infof(format string, args ...any) {
	s.l.Printf("[INFO] "+format, args...)
}

func (s *StdLogger) Warnf(format string, args ...any) {
	s.l.Printf("[WARN] "+format, args...)
}

func (s *StdLogger) Errorf(format string, args ...any) {
	s.l.Printf("[ERROR] "+format, args...)
}

// Nop отбрасывает всё. Нужен тестам и необязательным зависимостям.
type Nop struct{}

func (Nop) Infof(string, ...any)  {}
func (Nop) Warnf(string, ...any)  {}
func (Nop) Errorf(string, ...any) {}
