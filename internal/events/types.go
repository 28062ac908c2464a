package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the type of event
type EventType string

const (
	// Notification events
	NotificationEvent EventType = "notify"

	// Data events
	CacheSettledEvent EventType = "cache.settled"
	RefreshTickEvent  EventType = "refresh.tick"

	// Config events
	ConfigChangedEvent EventType = "config.changed"
)

// Event represents an event in the system
type Event struct {
	Type    EventType
	Payload any
}

// Level is a notification severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is the payload of a NotificationEvent.
type Notification struct {
	ID      uuid.UUID
	Level   Level
	Message string
	Time    time.Time
}

// NewNotification stamps a message with a fresh ID and the current time.
func NewNotification(level Level, message string) Notification {
	return Notification{
		ID:      uuid.New(),
		Level:   level,
		Message: message,
		Time:    time.Now(),
	}
}

// Notify wraps a notification in an event.
func Notify(level Level, message string) Event {
	return Event{Type: NotificationEvent, Payload: NewNotification(level, message)}
}

type RefreshTickPayload struct {
	At    time.Time
	Ticks uint64
}

// ConfigChangedPayload carries a reloaded configuration. Config holds the
// new *config.Config, or nil when the reload failed with Err.
type ConfigChangedPayload struct {
	Keys   []string
	Config any
	Err    error
}
