package main

import (
	"context"

	"github.com/imrishuroy/go-orderlifecycle/internal/notify"
)

// Deliverer sends one decoded notification. *notify.Mailer satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, msg notify.Message) error
}

const defaultLocalBody = `{"kind":"order_shipped","recipient_id":"local-user","context":{"order_id":"local-order-1","tracking_number":"TRK-LOCAL"}}`
