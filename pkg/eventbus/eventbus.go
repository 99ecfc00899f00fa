package eventbus

import (
	"context"
	"encoding/json"
)

// WorkflowEvent is published once per accepted transition. It is never
// persisted by this service.
type WorkflowEvent struct {
	DocumentID string `json:"documentId"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	Details    string `json:"details"`
}

func (e WorkflowEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher is fire-and-forget: Publish has no error result and must not
// block the caller beyond its own bounded send. Delivery is at most once,
// without retry and without ordering across documents.
type Publisher interface {
	Publish(ctx context.Context, event WorkflowEvent)
}

// Sender is a broker backend able to deliver one encoded event.
type Sender interface {
	Send(ctx context.Context, key string, payload []byte) error
	Close() error
}

// DialFunc establishes a backend connection.
type DialFunc func(ctx context.Context) (Sender, error)

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, WorkflowEvent) {}
