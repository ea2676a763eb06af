package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	corelogger "github.com/kilianp07/emsdispatch/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// Settings selects the backend and level used by New.
type Settings struct {
	// Backend is "zerolog" (default) or "logrus".
	Backend string `json:"backend"`
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
}

// SetDefaults fills empty fields.
func (s *Settings) SetDefaults() {
	if s.Backend == "" {
		s.Backend = "zerolog"
	}
	if s.Level == "" {
		s.Level = "info"
	}
}

// Validate checks the backend and level names.
func (s Settings) Validate() error {
	switch s.Backend {
	case "zerolog", "logrus":
	default:
		return fmt.Errorf("unknown log backend %s", s.Backend)
	}
	switch strings.ToLower(s.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %s", s.Level)
	}
	return nil
}

var (
	mu       sync.RWMutex
	settings = Settings{Backend: "zerolog", Level: "info"}
	output   io.Writer = os.Stdout
)

// Configure sets the process wide backend and level for subsequent New calls.
func Configure(s Settings) error {
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		return err
	}
	mu.Lock()
	settings = s
	mu.Unlock()
	return nil
}

// SetOutput redirects loggers created afterwards.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	mu.RLock()
	s, w := settings, output
	mu.RUnlock()
	if s.Backend == "logrus" {
		return NewLogrusLogger(component, s.Level, w)
	}
	return NewZerologLogger(component, s.Level, w)
}
