package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-orderlifecycle/internal/notify"
	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []notify.Message
	failFor   map[string]error
}

func (f *fakeDeliverer) Deliver(_ context.Context, msg notify.Message) error {
	if err := f.failFor[msg.RecipientID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, msg)
	return nil
}

func body(t *testing.T, kind orders.NotificationKind, recipient string) string {
	t.Helper()
	raw, err := json.Marshal(notify.NewMessage(orders.Notification{
		Kind:        kind,
		RecipientID: recipient,
		Context:     map[string]string{"order_id": "o-" + recipient},
	}, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	return string(raw)
}

func TestProcessor_Success(t *testing.T) {
	d := &fakeDeliverer{}
	logger, _ := logtest.NewNullLogger()
	p := NewProcessor(d, logger)

	resp, err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: body(t, orders.NotifyOrderShipped, "u1")},
		{MessageId: "m2", Body: body(t, orders.NotifyReturnResolved, "u2")},
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	require.Len(t, d.delivered, 2)
	assert.Equal(t, "o-u1", d.delivered[0].Context["order_id"])
	assert.Equal(t, orders.NotifyReturnResolved, d.delivered[1].Kind)
}

func TestProcessor_PartialBatchFailure(t *testing.T) {
	d := &fakeDeliverer{failFor: map[string]error{"u2": errors.New("smtp: 421 try again later")}}
	logger, hook := logtest.NewNullLogger()
	p := NewProcessor(d, logger)

	resp, err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: body(t, orders.NotifyOrderShipped, "u1")},
		{MessageId: "m2", Body: body(t, orders.NotifyOrderShipped, "u2")},
		{MessageId: "m3", Body: `{not json`},
		{MessageId: "m4", Body: `{"kind":"order_shipped"}`},
	}})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m2", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Len(t, d.delivered, 1)

	var dropped int
	for _, e := range hook.AllEntries() {
		if e.Message == "dropping malformed notification" {
			dropped++
		}
	}
	assert.Equal(t, 2, dropped)
}

func TestProcessor_UnknownKindIsDropped(t *testing.T) {
	d := &fakeDeliverer{failFor: map[string]error{"u1": notify.ErrUnknownKind}}
	logger, _ := logtest.NewNullLogger()
	p := NewProcessor(d, logger)

	resp, err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: body(t, "order_teleported", "u1")},
	}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
}

func TestDefaultLocalBodyDecodes(t *testing.T) {
	msg, err := notify.DecodeMessage(defaultLocalBody)
	require.NoError(t, err)
	assert.Equal(t, orders.NotifyOrderShipped, msg.Kind)
	_, err = notify.Render(msg)
	require.NoError(t, err)
}
