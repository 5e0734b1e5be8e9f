package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-faucet/internal/domain"
)

type message struct {
	subject string
	data    []byte
}

type recordingBroker struct {
	mu       sync.Mutex
	messages []message
	err      error
	closed   bool
}

func (b *recordingBroker) Publish(_ context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.messages = append(b.messages, message{subject: subject, data: data})
	return nil
}

func (b *recordingBroker) Close() error {
	b.closed = true
	return nil
}

func testResult() *domain.DistributionResult {
	return &domain.DistributionResult{
		ID:             "dist-1",
		Recipient:      "wallet-1",
		OverallSuccess: true,
		Outcomes: []domain.TransferOutcome{
			domain.NewSuccess("mint-a", "sig-a"),
			domain.NewFailure("mint-b", domain.StageSubmitting, "insufficient funds"),
		},
		StartedAt:   1000,
		CompletedAt: 3000,
	}
}

func TestPublisher_Publish(t *testing.T) {
	broker := &recordingBroker{}
	pub := NewPublisher(broker)

	require.NoError(t, pub.Publish(context.Background(), testResult()))
	require.Len(t, broker.messages, 1)
	assert.Equal(t, SubjectDistributionCompleted, broker.messages[0].subject)

	var event DistributionEvent
	require.NoError(t, json.Unmarshal(broker.messages[0].data, &event))
	assert.Equal(t, "dist-1", event.ID)
	assert.Equal(t, 1, event.Succeeded)
	assert.Equal(t, 1, event.Failed)
	require.Len(t, event.Outcomes, 2)
	assert.Equal(t, domain.StageSubmitting, event.Outcomes[1].Stage)

	require.NoError(t, pub.Close())
	assert.True(t, broker.closed)
}

func TestPublisher_BrokerError(t *testing.T) {
	boom := errors.New("no responders")
	pub := NewPublisher(&recordingBroker{err: boom})

	err := pub.Publish(context.Background(), testResult())
	assert.ErrorIs(t, err, boom)
}

func TestPublisher_NilBrokerIsNoop(t *testing.T) {
	pub := NewPublisher(nil)

	assert.NoError(t, pub.Publish(context.Background(), testResult()))
	assert.NoError(t, pub.Close())
}
