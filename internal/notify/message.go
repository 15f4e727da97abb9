// Package notify carries best-effort user notifications from the order
// service to the delivery worker.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

// Message is the queue payload for one notification.
type Message struct {
	Kind        orders.NotificationKind `json:"kind"`
	RecipientID string                  `json:"recipient_id"`
	Context     map[string]string       `json:"context,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewMessage stamps n with the time it was queued.
func NewMessage(n orders.Notification, at time.Time) Message {
	return Message{
		Kind:        n.Kind,
		RecipientID: n.RecipientID,
		Context:     n.Context,
		CreatedAt:   at.UTC(),
	}
}

// DecodeMessage parses and checks a queue body.
func DecodeMessage(body string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return Message{}, fmt.Errorf("invalid message body: %w", err)
	}
	if msg.Kind == "" || msg.RecipientID == "" {
		return Message{}, fmt.Errorf("invalid message: kind and recipient_id are required")
	}
	return msg, nil
}
