// File: internal/telemetry/record.go
// Package telemetry is the event stream ghostwalk produces: one JSON record
// per observed behavior, appended in emission order. This stream is the
// product of the tool and is kept strictly separate from diagnostic logging.
package telemetry

import "time"

// EventType tags a record with the behavior it describes. The set is closed;
// downstream scoring pipelines key on these exact strings.
type EventType string

const (
	EventSessionStart   EventType = "session_start"
	EventPageNavigation EventType = "page_navigation"
	EventClick          EventType = "click"
	EventDeadClick      EventType = "dead_click"
	EventRageClick      EventType = "rage_click"
	EventScroll         EventType = "scroll"
	EventMouseMove      EventType = "mouse_move"
	EventRefocus        EventType = "refocus"
	EventUTurn          EventType = "u_turn"
	EventIdle           EventType = "idle"
	EventConsoleError   EventType = "console_error"
	EventPageError      EventType = "page_error"
	EventNetworkError   EventType = "network_error"
	EventSessionEnd     EventType = "session_end"
)

// Record is the atomic unit of output. Every field except Selector and
// Metadata is always populated.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Archetype string         `json:"archetype"`
	EventType EventType      `json:"event_type"`
	URL       string         `json:"url"`
	Selector  string         `json:"selector,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
