package events

import (
	"context"
	"sync"
	"time"

	"grant-match-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventProgramCreated is emitted when a catalog entry is created or updated
	EventProgramCreated EventType = "program.created"
	// EventProfileSaved is emitted when a user's wizard profile is stored
	EventProfileSaved EventType = "profile.saved"
	// EventMatchesComputed is emitted after a match computation finishes
	EventMatchesComputed EventType = "matches.computed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// ProgramCreatedData contains data for program created events.
type ProgramCreatedData struct {
	Program models.FundingProgram
}

// ProfileSavedData contains data for profile saved events.
type ProfileSavedData struct {
	UserID string
}

// MatchesComputedData contains data for matches computed events.
type MatchesComputedData struct {
	UserID     string
	View       string
	MatchCount int
	TopScore   int
	ComputedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so publishing never blocks the request path.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// PublishProgramCreated publishes a program created event.
func (m *Manager) PublishProgramCreated(ctx context.Context, program models.FundingProgram) {
	m.Publish(ctx, EventProgramCreated, ProgramCreatedData{Program: program})
}

// PublishProfileSaved publishes a profile saved event.
func (m *Manager) PublishProfileSaved(ctx context.Context, userID string) {
	m.Publish(ctx, EventProfileSaved, ProfileSavedData{UserID: userID})
}

// PublishMatchesComputed publishes a matches computed event.
func (m *Manager) PublishMatchesComputed(ctx context.Context, userID, view string, matches []models.GrantMatch) {
	top := 0
	if len(matches) > 0 {
		top = matches[0].Score
	}
	m.Publish(ctx, EventMatchesComputed, MatchesComputedData{
		UserID:     userID,
		View:       view,
		MatchCount: len(matches),
		TopScore:   top,
		ComputedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
