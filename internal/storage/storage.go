package storage

import "time"

// Source tells where an advice answer came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceLocal    Source = "local"
	SourceFallback Source = "fallback"
)

// Event is one advice exchange: the user's request and the text sent back.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Request   string    `json:"request"`
	Response  string    `json:"response"`
	Source    Source    `json:"source"`
	Error     string    `json:"error,omitempty"`
}

// Recorder persists advice events.
// LoadInteractions returns events in the order they were appended.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}

// Discard drops every event.
type Discard struct{}

func (Discard) AppendInteraction(Event) error { return nil }
func (Discard) LoadInteractions() ([]Event, error) { return nil, nil }
