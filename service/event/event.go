package event

import (
	"time"

	"github.com/jwcompdev/termkit/internal/clock"
)

// Namespaces fired by termkit.
const (
	// NewCommand is fired once for every record appended to a session history.
	NewCommand = "command.new"
	// Connection is fired when a session connects or disconnects.
	Connection = "session.connection"
)

// Event wraps a payload with its namespace.
type Event[T any] struct {
	Namespace string                 `json:"namespace"`
	SessionID string                 `json:"sessionId,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event for namespace.
func NewEvent[T any](namespace, sessionID string, data T) *Event[T] {
	return &Event[T]{
		Namespace: namespace,
		SessionID: sessionID,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
