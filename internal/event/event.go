package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yieldland/production-core/internal/domain"
)

// Type represents the type of an event
type Type string

// Common event types
const (
	ToolBroken         Type = "tool.broken"
	SessionPaused      Type = "session.paused"
	SessionCompleted   Type = "session.completed"
	SynthesisCompleted Type = "synthesis.completed"
)

// Event represents a generic event in the system
type Event struct {
	Version string      `json:"version"` // Event schema version (e.g., "1.0")
	Type    Type        `json:"type"`
	Payload interface{} `json:"payload"`
}

// Typed event payloads for type safety

// ToolBrokenPayloadV1 is emitted when wear drives a tool's durability to zero.
type ToolBrokenPayloadV1 struct {
	ToolID    string          `json:"tool_id"`
	ToolType  domain.ToolType `json:"tool_type"`
	Owner     string          `json:"owner"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// SessionPausedPayloadV1 is emitted on any active -> paused transition.
// Forced reports whether the pause was driven by grain exhaustion rather
// than a user command.
type SessionPausedPayloadV1 struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Forced    bool   `json:"forced"`
	Timestamp int64  `json:"timestamp"`
}

// SessionCompletedPayloadV1 is emitted when a session reaches its terminal state.
type SessionCompletedPayloadV1 struct {
	SessionID         string  `json:"session_id"`
	UserID            string  `json:"user_id"`
	AccumulatedOutput float64 `json:"accumulated_output"`
	AccumulatedTax    float64 `json:"accumulated_tax"`
	Timestamp         int64   `json:"timestamp"`
}

// SynthesisCompletedPayloadV1 is emitted after a synthesis attempt resolves.
type SynthesisCompletedPayloadV1 struct {
	UserID    string                 `json:"user_id"`
	Output    domain.SynthesisOutput `json:"output"`
	Attempted int                    `json:"attempted"`
	Succeeded int                    `json:"succeeded"`
	Timestamp int64                  `json:"timestamp"`
}

// Type-safe event constructors

// NewToolBrokenEvent creates a new tool broken event
func NewToolBrokenEvent(t *domain.Tool, sessionID string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    ToolBroken,
		Payload: ToolBrokenPayloadV1{
			ToolID:    t.ID,
			ToolType:  t.Type,
			Owner:     t.Owner,
			SessionID: sessionID,
			Timestamp: time.Now().Unix(),
		},
	}
}

// NewSessionPausedEvent creates a new session paused event
func NewSessionPausedEvent(sess *domain.MiningSession, forced bool) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SessionPaused,
		Payload: SessionPausedPayloadV1{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Forced:    forced,
			Timestamp: time.Now().Unix(),
		},
	}
}

// NewSessionCompletedEvent creates a new session completed event
func NewSessionCompletedEvent(sess *domain.MiningSession) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SessionCompleted,
		Payload: SessionCompletedPayloadV1{
			SessionID:         sess.ID,
			UserID:            sess.UserID,
			AccumulatedOutput: sess.AccumulatedOutput,
			AccumulatedTax:    sess.AccumulatedTax,
			Timestamp:         time.Now().Unix(),
		},
	}
}

// NewSynthesisCompletedEvent creates a new synthesis completed event
func NewSynthesisCompletedEvent(userID string, output domain.SynthesisOutput, attempted, succeeded int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SynthesisCompleted,
		Payload: SynthesisCompletedPayloadV1{
			UserID:    userID,
			Output:    output,
			Attempted: attempted,
			Succeeded: succeeded,
			Timestamp: time.Now().Unix(),
		},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers synchronously.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers, ok := b.handlers[event.Type]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d handler(s) failed for event %s: %v", len(errs), event.Type, errs)
	}
	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
