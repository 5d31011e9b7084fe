package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz-app-service/internal/domain"
)

// QueuePublisher is the part of Client the event publisher needs.
type QueuePublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// SubmissionPublisher implements app.EventPublisher on a RabbitMQ queue.
type SubmissionPublisher struct {
	queue   QueuePublisher
	name    string
	timeout time.Duration
}

func NewSubmissionPublisher(queue QueuePublisher, queueName string) *SubmissionPublisher {
	return &SubmissionPublisher{queue: queue, name: queueName, timeout: 5 * time.Second}
}

func (p *SubmissionPublisher) PublishSubmission(ctx context.Context, event domain.SubmissionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal submission event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.queue.Publish(ctx, p.name, body); err != nil {
		return fmt.Errorf("publish to %s: %w", p.name, err)
	}
	return nil
}
