package main

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderlifecycle/internal/notify"
)

// Processor delivers queued notifications.
type Processor struct {
	deliverer Deliverer
	log       logrus.FieldLogger
}

// NewProcessor creates a worker processor.
func NewProcessor(deliverer Deliverer, log logrus.FieldLogger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{deliverer: deliverer, log: log}
}

// Handle processes an SQS batch and reports the messages that should be
// retried. Messages that can never succeed are logged and dropped.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	p.log.WithField("records", len(ev.Records)).Debug("received SQS batch")

	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.WithField("message_id", rec.MessageId).WithError(err).Warn("delivery failed, will retry")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	log := p.log.WithField("message_id", rec.MessageId)

	msg, err := notify.DecodeMessage(rec.Body)
	if err != nil {
		log.WithError(err).Error("dropping malformed notification")
		return nil
	}
	log = log.WithFields(logrus.Fields{
		"kind":      msg.Kind,
		"recipient": msg.RecipientID,
		"order_id":  msg.Context["order_id"],
	})

	if err := p.deliverer.Deliver(ctx, msg); err != nil {
		if errors.Is(err, notify.ErrUnknownKind) {
			log.WithError(err).Error("dropping notification without template")
			return nil
		}
		return err
	}

	log.Info("notification delivered")
	return nil
}
