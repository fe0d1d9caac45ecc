// Package audit emits structured records of every admitted request and
// terminal error. Records carry only sanitized payloads; a sink failure is
// never allowed to affect the request path.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ry-ops/unifi-mcp-server/internal/sanitize"
)

// Record is a single audit event.
type Record struct {
	Timestamp     time.Time
	CorrelationID string
	Action        string
	Success       bool
	Detail        interface{}
	Error         string
}

// Sink receives audit records.
type Sink interface {
	Emit(action string, success bool, detail map[string]interface{}, err error)
}

// Logger writes audit records through zerolog. Detail payloads and error
// text pass through the sanitizer before serialization.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a zerolog-backed sink.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Str("component", "audit").Logger()}
}

// Emit records one event. It swallows its own failures: a recover guard
// keeps any marshaling panic out of the request path.
func (l *Logger) Emit(action string, success bool, detail map[string]interface{}, err error) {
	defer func() {
		_ = recover()
	}()

	rec := Record{
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		Action:        action,
		Success:       success,
		Detail:        sanitize.Value(mapToInterface(detail)),
	}
	if err != nil {
		rec.Error = sanitize.ErrorText(err.Error())
	}

	event := l.logger.Info()
	if !success {
		event = l.logger.Warn()
	}
	event.
		Str("correlation_id", rec.CorrelationID).
		Str("action", rec.Action).
		Bool("success", rec.Success).
		Interface("detail", rec.Detail).
		Str("error", rec.Error).
		Msg("audit")
}

func mapToInterface(m map[string]interface{}) interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// Nop is a sink that discards everything. Used in tests.
type Nop struct{}

func (Nop) Emit(string, bool, map[string]interface{}, error) {}
