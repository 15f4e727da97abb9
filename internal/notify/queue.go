package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

// Sender publishes a message body with string attributes.
// *aws.Publisher satisfies it.
type Sender interface {
	Send(ctx context.Context, body string, attributes map[string]string) (string, error)
}

// QueueSink hands notifications to the delivery worker through a queue.
type QueueSink struct {
	sender  Sender
	log     logrus.FieldLogger
	nowFunc func() time.Time
}

// NewQueueSink returns a Notifier backed by sender.
func NewQueueSink(sender Sender, log logrus.FieldLogger) *QueueSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QueueSink{sender: sender, log: log, nowFunc: time.Now}
}

func (q *QueueSink) Notify(ctx context.Context, n orders.Notification) error {
	body, err := json.Marshal(NewMessage(n, q.nowFunc()))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	attrs := map[string]string{
		"kind":      string(n.Kind),
		"recipient": n.RecipientID,
	}
	if id := n.Context["order_id"]; id != "" {
		attrs["order_id"] = id
	}

	msgID, err := q.sender.Send(ctx, string(body), attrs)
	if err != nil {
		return fmt.Errorf("queue %s notification: %w", n.Kind, err)
	}
	q.log.WithFields(logrus.Fields{
		"kind":       n.Kind,
		"recipient":  n.RecipientID,
		"message_id": msgID,
	}).Debug("notification queued")
	return nil
}

// LogSink writes notifications to the log instead of delivering them.
type LogSink struct {
	Log logrus.FieldLogger
}

func (l LogSink) Notify(_ context.Context, n orders.Notification) error {
	log := l.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"kind":      n.Kind,
		"recipient": n.RecipientID,
		"context":   n.Context,
	}).Info("notification")
	return nil
}
