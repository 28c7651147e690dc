package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the course service.
const (
	EventCourseCreated   = "course.created"
	EventCourseUpdated   = "course.updated"
	EventCourseDeleted   = "course.deleted"
	EventCodeRegenerated = "course.code_regenerated"

	EventStudentEnrolled = "enrollment.student_enrolled"
	EventStudentRemoved  = "enrollment.student_removed"

	EventMaterialUploaded = "material.uploaded"
	EventMaterialDeleted  = "material.deleted"

	// EventMaterialBlobOrphaned marks a blob whose metadata row is gone
	// but whose bytes could not be removed; a cleanup job can sweep it.
	EventMaterialBlobOrphaned = "material.blob_orphaned"

	EventUserRegistered = "user.registered"
)

// Event is the envelope every published message travels in.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with a fresh id and timestamp.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "course-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher is the outbound messaging port of the service.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the log instead of a broker. Used when
// no Kafka brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.Info("event published", "type", event.Type, "id", event.ID)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

// MockEventPublisher records events in memory for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger

	// PublishErr, when set, makes Publish fail.
	PublishErr error
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		return m.PublishErr
	}

	m.events = append(m.events, event)
	if m.logger != nil {
		m.logger.Debug("mock event published", "type", event.Type, "id", event.ID)
	}
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of everything published so far.
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ClearEvents drops the recorded events.
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
