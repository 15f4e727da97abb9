package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	id := "msg-1"
	return &sqs.SendMessageOutput{MessageId: &id}, nil
}

func TestPublisherSend(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.local/queue")

	id, err := p.Send(context.Background(), `{"kind":"order_shipped"}`, map[string]string{
		"kind":      "order_shipped",
		"recipient": "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "https://sqs.local/queue", *in.QueueUrl)
	assert.Equal(t, `{"kind":"order_shipped"}`, *in.MessageBody)
	require.Len(t, in.MessageAttributes, 2)
	assert.Equal(t, "order_shipped", *in.MessageAttributes["kind"].StringValue)
	assert.Equal(t, "u1", *in.MessageAttributes["recipient"].StringValue)
	assert.Equal(t, "String", *in.MessageAttributes["recipient"].DataType)
}

func TestPublisherSend_Errors(t *testing.T) {
	_, err := NewPublisher(&fakeSQS{}, "").Send(context.Background(), "{}", nil)
	require.Error(t, err)

	boom := errors.New("throttled")
	_, err = NewPublisher(&fakeSQS{err: boom}, "q").Send(context.Background(), "{}", nil)
	require.ErrorIs(t, err, boom)
}
