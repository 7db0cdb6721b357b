package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/talent-pipeline/internal/storage"
)

// Processor runs the full processing sequence for one resume. The pipeline
// orchestrator implements it.
type Processor interface {
	ProcessResume(ctx context.Context, payload ProcessingPayload, fileData []byte) error
}

// ResumeUpdater records retry and terminal failure state on the resume row.
// *db.DB satisfies it.
type ResumeUpdater interface {
	RecordResumeRetry(ctx context.Context, resumeID uuid.UUID, errMsg string) error
	FailResume(ctx context.Context, resumeID uuid.UUID, errMsg string) error
}

// retryPublisher is the slice of Publisher the retry policy needs.
type retryPublisher interface {
	republish(ctx context.Context, env Envelope, payload ProcessingPayload, attempts int32) error
	deadLetter(ctx context.Context, env Envelope, reason, errDescription string) error
}

// action is the consumer's decision for a failed delivery.
type action int

const (
	actionAbandon    action = iota // republish with attempts+1
	actionDeadLetter               // move to the dead-letter queue
)

// decideAction applies the retry policy: a message that has already failed
// maxAttempts-1 times is on its final attempt, so the next failure
// dead-letters it.
func decideAction(attempts, maxAttempts int32) action {
	if attempts >= maxAttempts-1 {
		return actionDeadLetter
	}
	return actionAbandon
}

// Consumer pulls processing messages off the queue and runs them through the
// processor with bounded concurrency and manual acknowledgement.
type Consumer struct {
	rabbit      *Rabbit
	publisher   retryPublisher
	processor   Processor
	resumes     ResumeUpdater
	store       storage.Store
	concurrency int
	maxAttempts int32
	log         *zap.Logger
}

// NewConsumer creates a consumer bound to the processing queue.
func NewConsumer(rabbit *Rabbit, publisher *Publisher, processor Processor, resumes ResumeUpdater, store storage.Store, concurrency, maxAttempts int, log *zap.Logger) *Consumer {
	return &Consumer{
		rabbit:      rabbit,
		publisher:   publisher,
		processor:   processor,
		resumes:     resumes,
		store:       store,
		concurrency: concurrency,
		maxAttempts: int32(maxAttempts),
		log:         log,
	}
}

// Run consumes until ctx is canceled or the delivery channel closes. Every
// delivery is acknowledged at most once: after success, after a republish, or
// after a dead-letter publish. A delivery whose failure bookkeeping could not
// be persisted anywhere is left unacked so the broker redelivers it.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.rabbit.channel.Qos(c.concurrency, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := c.rabbit.channel.Consume(
		c.rabbit.queues.Processing,
		"",    // consumer tag
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.log.Info("worker consuming",
		zap.String("queue", c.rabbit.queues.Processing),
		zap.Int("concurrency", c.concurrency))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case d, ok := <-deliveries:
			if !ok {
				if err := g.Wait(); err != nil {
					return err
				}
				return fmt.Errorf("delivery channel closed")
			}
			delivery := d
			g.Go(func() error {
				c.handle(ctx, delivery)
				return nil
			})
		}
	}
}

// handle processes one delivery end to end, including the ack decision.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	msg, err := Decode(d.Body)
	if err != nil {
		// Malformed or unknown messages can never succeed; retrying them
		// only clogs the queue. Drop with a log line.
		c.log.Warn("dropping undecodable message", zap.Error(err))
		c.ack(d)
		return
	}
	if msg.Processing == nil {
		c.log.Warn("dropping non-processing message", zap.String("type", msg.Type))
		c.ack(d)
		return
	}

	payload := *msg.Processing
	log := c.log.With(
		zap.String("message_id", msg.MessageID),
		zap.String("resume_id", payload.ResumeID.String()),
		zap.String("tenant_id", payload.TenantID.String()))

	fileData, err := c.loadFile(ctx, payload.StoragePath)
	if err != nil {
		c.fail(ctx, d, msg.Envelope, payload, err, log)
		return
	}

	if err := c.processor.ProcessResume(ctx, payload, fileData); err != nil {
		c.fail(ctx, d, msg.Envelope, payload, err, log)
		return
	}

	log.Info("resume processed")
	c.ack(d)
}

// fail applies the retry policy to a failed attempt. The bookkeeping runs on
// a context detached from cancellation: a SIGTERM that stops the consume loop
// must not also stop the republish that preserves the attempt.
func (c *Consumer) fail(ctx context.Context, d amqp.Delivery, env Envelope, payload ProcessingPayload, procErr error, log *zap.Logger) {
	attempts := attemptsFrom(d.Headers)
	pubCtx := context.WithoutCancel(ctx)

	switch decideAction(attempts, c.maxAttempts) {
	case actionAbandon:
		if err := c.publisher.republish(pubCtx, env, payload, attempts+1); err != nil {
			// Could not hand the message back; leave the row failed and
			// dead-letter so the attempt is not silently lost.
			log.Error("republish failed, dead-lettering", zap.Error(err))
			if !c.deadLetter(pubCtx, env, payload, procErr, log) {
				// Neither queue took the message. Leave the delivery
				// unacked and let the broker redeliver it.
				return
			}
			c.ack(d)
			return
		}
		if err := c.resumes.RecordResumeRetry(pubCtx, payload.ResumeID, procErr.Error()); err != nil {
			log.Error("failed to record retry state", zap.Error(err))
		}
		log.Warn("processing failed, retrying",
			zap.Int32("attempts", attempts+1),
			zap.Error(procErr))
		c.ack(d)

	case actionDeadLetter:
		if !c.deadLetter(pubCtx, env, payload, procErr, log) {
			return
		}
		c.ack(d)
	}
}

// deadLetter moves the message to the dead-letter queue and marks the resume
// failed. Returns false when the dead-letter publish itself failed, in which
// case the caller must not ack the delivery.
func (c *Consumer) deadLetter(ctx context.Context, env Envelope, payload ProcessingPayload, procErr error, log *zap.Logger) bool {
	if err := c.publisher.deadLetter(ctx, env, "max attempts exceeded", procErr.Error()); err != nil {
		log.Error("dead-letter publish failed", zap.Error(err))
		return false
	}
	if err := c.resumes.FailResume(ctx, payload.ResumeID, procErr.Error()); err != nil {
		log.Error("failed to mark resume failed", zap.Error(err))
	}
	log.Error("processing dead-lettered", zap.Error(procErr))
	return true
}

// loadFile reads the stored upload. A missing blob is a processing failure
// like any other and goes through the retry policy.
func (c *Consumer) loadFile(ctx context.Context, path string) ([]byte, error) {
	exists, err := c.store.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check stored file: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("stored file not found: %s", path)
	}
	data, err := c.store.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.log.Error("failed to ack delivery", zap.Error(err))
	}
}

// attemptsFrom extracts the attempt counter, tolerating the integer widths
// the AMQP client may hand back.
func attemptsFrom(headers amqp.Table) int32 {
	v, ok := headers[attemptsHeader]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int32:
		return n
	case int64:
		return int32(n)
	case int:
		return int32(n)
	case int16:
		return int32(n)
	case int8:
		return int32(n)
	default:
		return 0
	}
}
