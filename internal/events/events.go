// Package events publishes distribution results to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"solana-token-faucet/internal/domain"
	"solana-token-faucet/internal/observability"
)

// SubjectDistributionCompleted carries one DistributionEvent per finished distribution.
const SubjectDistributionCompleted = "faucet.distribution.completed"

// Broker delivers raw messages.
type Broker interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// DistributionEvent is the JSON payload of SubjectDistributionCompleted.
type DistributionEvent struct {
	ID             string                   `json:"id"`
	Recipient      string                   `json:"recipient"`
	OverallSuccess bool                     `json:"overallSuccess"`
	Succeeded      int                      `json:"succeeded"`
	Failed         int                      `json:"failed"`
	Outcomes       []domain.TransferOutcome `json:"outcomes"`
	StartedAt      int64                    `json:"startedAt"`
	CompletedAt    int64                    `json:"completedAt"`
}

// NewDistributionEvent builds the event of result.
func NewDistributionEvent(result *domain.DistributionResult) DistributionEvent {
	return DistributionEvent{
		ID:             result.ID,
		Recipient:      result.Recipient,
		OverallSuccess: result.OverallSuccess,
		Succeeded:      result.SuccessCount(),
		Failed:         result.FailureCount(),
		Outcomes:       result.Outcomes,
		StartedAt:      result.StartedAt,
		CompletedAt:    result.CompletedAt,
	}
}

// Publisher encodes distribution results and hands them to a Broker.
type Publisher struct {
	broker Broker
}

// NewPublisher creates a Publisher. A nil broker publishes nothing.
func NewPublisher(broker Broker) *Publisher {
	if broker == nil {
		broker = Noop{}
	}
	return &Publisher{broker: broker}
}

// Publish sends the event of result on SubjectDistributionCompleted.
func (p *Publisher) Publish(ctx context.Context, result *domain.DistributionResult) error {
	data, err := json.Marshal(NewDistributionEvent(result))
	if err != nil {
		return fmt.Errorf("encode distribution event: %w", err)
	}
	err = p.broker.Publish(ctx, SubjectDistributionCompleted, data)
	observability.RecordEventPublished(err == nil)
	if err != nil {
		return fmt.Errorf("publish distribution %s: %w", result.ID, err)
	}
	return nil
}

// Close closes the underlying broker.
func (p *Publisher) Close() error {
	return p.broker.Close()
}

// Noop discards every message.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte) error { return nil }
func (Noop) Close() error                                  { return nil }
