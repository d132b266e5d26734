// File: internal/telemetry/logger.go
package telemetry

import (
	"time"

	"go.uber.org/zap"
)

// Logger emits records for exactly one session. It stamps every record with
// the session identity and archetype so scripts and primitives only supply
// what they observed. No two sessions share a Logger instance; the shared
// sink underneath serializes the actual appends.
type Logger struct {
	sink      Sink
	sessionID string
	archetype string
	diag      *zap.Logger
}

// NewLogger binds a session identity to the shared sink. diag receives sink
// write failures; records are never retried.
func NewLogger(sink Sink, sessionID, archetype string, diag *zap.Logger) *Logger {
	return &Logger{
		sink:      sink,
		sessionID: sessionID,
		archetype: archetype,
		diag:      diag.With(zap.String("session_id", sessionID), zap.String("archetype", archetype)),
	}
}

// SessionID returns the identifier this logger stamps onto records.
func (l *Logger) SessionID() string { return l.sessionID }

// Archetype returns the archetype label this logger stamps onto records.
func (l *Logger) Archetype() string { return l.archetype }

// Emit appends one record. A sink failure is surfaced to the diagnostic
// logger and dropped; the session keeps running.
func (l *Logger) Emit(eventType EventType, url, selector string, metadata map[string]any) {
	rec := Record{
		Timestamp: time.Now().UTC(),
		SessionID: l.sessionID,
		Archetype: l.archetype,
		EventType: eventType,
		URL:       url,
		Selector:  selector,
		Metadata:  metadata,
	}
	if err := l.sink.Append(rec); err != nil {
		l.diag.Warn("Dropped telemetry record.", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
