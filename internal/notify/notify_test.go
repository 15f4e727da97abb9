package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

type fakeSender struct {
	body  string
	attrs map[string]string
	err   error
}

func (f *fakeSender) Send(_ context.Context, body string, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.body, f.attrs = body, attrs
	return "m-1", nil
}

func shipped() orders.Notification {
	return orders.Notification{
		Kind:        orders.NotifyOrderShipped,
		RecipientID: "42",
		Context:     map[string]string{"order_id": "o1", "tracking_number": "TRK-1"},
	}
}

func TestQueueSink_RoundTrip(t *testing.T) {
	sender := &fakeSender{}
	logger, _ := logtest.NewNullLogger()
	sink := NewQueueSink(sender, logger)
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sink.nowFunc = func() time.Time { return at }

	require.NoError(t, sink.Notify(context.Background(), shipped()))
	assert.Equal(t, map[string]string{"kind": "order_shipped", "recipient": "42", "order_id": "o1"}, sender.attrs)

	msg, err := DecodeMessage(sender.body)
	require.NoError(t, err)
	assert.Equal(t, orders.NotifyOrderShipped, msg.Kind)
	assert.Equal(t, "42", msg.RecipientID)
	assert.Equal(t, "TRK-1", msg.Context["tracking_number"])
	assert.True(t, msg.CreatedAt.Equal(at))
}

func TestQueueSink_SendFailure(t *testing.T) {
	boom := errors.New("queue unavailable")
	sink := NewQueueSink(&fakeSender{err: boom}, nil)
	require.ErrorIs(t, sink.Notify(context.Background(), shipped()), boom)
}

func TestDecodeMessage_Invalid(t *testing.T) {
	_, err := DecodeMessage("not json")
	require.Error(t, err)
	_, err = DecodeMessage(`{"kind":"order_shipped"}`)
	require.Error(t, err)
}

func TestLogSink(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	require.NoError(t, LogSink{Log: logger}.Notify(context.Background(), shipped()))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "notification", hook.LastEntry().Message)
	assert.Equal(t, "42", hook.LastEntry().Data["recipient"])
}

func TestRender(t *testing.T) {
	email, err := Render(NewMessage(orders.Notification{
		Kind:        orders.NotifyOrderShipped,
		RecipientID: "42",
		Context:     map[string]string{"order_id": "o1", "tracking_number": "TRK-1", "estimated_delivery": "2026-03-04"},
	}, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "Your order #o1 has been shipped", email.Subject)
	assert.Contains(t, email.Body, "Tracking number: TRK-1\nEstimated delivery: 2026-03-04")

	email, err = Render(Message{Kind: orders.NotifyOrderShipped, RecipientID: "42", Context: map[string]string{"order_id": "o2"}})
	require.NoError(t, err)
	assert.NotContains(t, email.Body, "Tracking number")
	assert.NotContains(t, email.Body, "no value")

	email, err = Render(Message{Kind: orders.NotifyReturnResolved, RecipientID: "42", Context: map[string]string{
		"order_id": "o1", "return_id": "r1", "status": "Approved", "resolution": "Return approved",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Update on your return for order #o1", email.Subject)
	assert.Contains(t, email.Body, "r1 for order #o1 is now Approved")

	_, err = Render(Message{Kind: "unknown", RecipientID: "42"})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestMailer_Deliver(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	m := NewMailer(SMTPConfig{Host: "mail.local", Port: 2525, From: "orders@example.com", RecipientDomain: "example.com"})
	m.sendMail = func(addr string, a smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	require.NoError(t, m.Deliver(context.Background(), NewMessage(shipped(), time.Now())))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Nil(t, gotAuth)
	assert.Equal(t, []string{"user42@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Your order #o1 has been shipped\r\n")
	assert.Contains(t, gotMsg, "Tracking number: TRK-1\r\n")

	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay denied") }
	require.Error(t, m.Deliver(context.Background(), NewMessage(shipped(), time.Now())))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Deliver(ctx, NewMessage(shipped(), time.Now())), context.Canceled)
}
