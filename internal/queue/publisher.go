package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// attemptsHeader counts prior failed processing attempts. The broker does
// not expose a reliable delivery count across republish, so the counter
// travels in the message headers and is bumped on every re-enqueue.
const attemptsHeader = "x-attempts"

const publishTimeout = 5 * time.Second

// EnqueueResult reports the outcome of an enqueue call.
type EnqueueResult struct {
	MessageID uuid.UUID
	Enqueued  bool
}

// Publisher enqueues processing messages. A nil broker connection means
// "not configured": Enqueue then reports Enqueued=false without error and
// the orchestrator processes inline. That fallback is part of the caller
// contract, not hidden here.
type Publisher struct {
	rabbit *Rabbit
	log    *zap.Logger
}

// NewPublisher creates a publisher. rabbit may be nil when no broker is
// configured.
func NewPublisher(rabbit *Rabbit, log *zap.Logger) *Publisher {
	return &Publisher{rabbit: rabbit, log: log}
}

// Enabled reports whether a durable broker is configured.
func (p *Publisher) Enabled() bool {
	return p.rabbit != nil
}

// Enqueue publishes a processing message. The generated UUID serves as both
// the correlation id and the broker message id.
func (p *Publisher) Enqueue(ctx context.Context, payload ProcessingPayload) (EnqueueResult, error) {
	if !p.Enabled() {
		return EnqueueResult{Enqueued: false}, nil
	}

	messageID := uuid.New()
	body, err := encodeEnvelope(messageID.String(), messageID.String(), TypeResumeProcessing, payload)
	if err != nil {
		return EnqueueResult{}, err
	}

	headers := amqp.Table{
		attemptsHeader: int32(0),
		"tenantId":     payload.TenantID.String(),
		"resumeId":     payload.ResumeID.String(),
		"jobId":        payload.JobID.String(),
	}
	if err := p.publish(ctx, p.rabbit.queues.Processing, messageID.String(), headers, body); err != nil {
		return EnqueueResult{}, err
	}

	p.log.Info("resume processing enqueued",
		zap.String("message_id", messageID.String()),
		zap.String("resume_id", payload.ResumeID.String()))
	return EnqueueResult{MessageID: messageID, Enqueued: true}, nil
}

// PublishResult publishes a terminal-outcome message to the result queue.
// Best effort when no broker is configured.
func (p *Publisher) PublishResult(ctx context.Context, payload ResultPayload) error {
	if !p.Enabled() {
		return nil
	}

	messageID := uuid.New()
	body, err := encodeEnvelope(messageID.String(), messageID.String(), TypeResumeProcessingResult, payload)
	if err != nil {
		return err
	}

	headers := amqp.Table{
		"tenantId": payload.TenantID.String(),
		"resumeId": payload.ResumeID.String(),
		"jobId":    payload.JobID.String(),
	}
	return p.publish(ctx, p.rabbit.queues.Results, messageID.String(), headers, body)
}

// republish re-enqueues a failed processing message with its attempt counter
// incremented. This is the "abandon" operation: the message returns to the
// queue for redelivery.
func (p *Publisher) republish(ctx context.Context, env Envelope, payload ProcessingPayload, attempts int32) error {
	body, err := encodeEnvelope(env.MessageID, env.CorrelationID, TypeResumeProcessing, payload)
	if err != nil {
		return err
	}
	headers := amqp.Table{
		attemptsHeader: attempts,
		"tenantId":     payload.TenantID.String(),
		"resumeId":     payload.ResumeID.String(),
		"jobId":        payload.JobID.String(),
	}
	return p.publish(ctx, p.rabbit.queues.Processing, env.MessageID, headers, body)
}

// deadLetter moves a message to the dead-letter queue with the failure
// reason for manual inspection.
func (p *Publisher) deadLetter(ctx context.Context, env Envelope, reason, errDescription string) error {
	headers := amqp.Table{
		"reason": reason,
		"error":  errDescription,
	}
	return p.publish(ctx, p.rabbit.queues.DeadLetter, env.MessageID, headers, mustReencode(env))
}

func (p *Publisher) publish(ctx context.Context, queueName, messageID string, headers amqp.Table, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.rabbit.channel.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     messageID,
			CorrelationId: messageID,
			Headers:       headers,
			Body:          body,
		},
	)
}

func mustReencode(env Envelope) []byte {
	body, err := encodeEnvelope(env.MessageID, env.CorrelationID, env.Type, env.Payload)
	if err != nil {
		// Envelope came off the wire as valid JSON; re-encoding cannot fail.
		return nil
	}
	return body
}
