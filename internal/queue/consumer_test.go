package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func TestDecideAction(t *testing.T) {
	const maxAttempts = 5

	cases := []struct {
		attempts int32
		want     action
	}{
		// First four failures go back to the queue.
		{0, actionAbandon},
		{1, actionAbandon},
		{2, actionAbandon},
		{3, actionAbandon},
		// The fifth attempt (attempts=4 prior failures) dead-letters.
		{4, actionDeadLetter},
		{5, actionDeadLetter},
	}
	for _, c := range cases {
		if got := decideAction(c.attempts, maxAttempts); got != c.want {
			t.Errorf("decideAction(%d, %d) = %v, want %v", c.attempts, maxAttempts, got, c.want)
		}
	}
}

func TestDecideActionSingleAttempt(t *testing.T) {
	// maxAttempts=1 means no retries at all.
	if got := decideAction(0, 1); got != actionDeadLetter {
		t.Errorf("decideAction(0, 1) = %v, want dead-letter", got)
	}
}

// fakeAcknowledger counts settlement calls on a delivery.
type fakeAcknowledger struct {
	acks    int
	nacks   int
	rejects int
}

func (f *fakeAcknowledger) Ack(_ uint64, _ bool) error     { f.acks++; return nil }
func (f *fakeAcknowledger) Nack(_ uint64, _, _ bool) error { f.nacks++; return nil }
func (f *fakeAcknowledger) Reject(_ uint64, _ bool) error  { f.rejects++; return nil }

// fakePublisher records republish and dead-letter calls, with injectable
// failures for each.
type fakePublisher struct {
	republishErr  error
	deadLetterErr error
	republished   []int32
	deadLettered  int
}

func (f *fakePublisher) republish(_ context.Context, _ Envelope, _ ProcessingPayload, attempts int32) error {
	if f.republishErr != nil {
		return f.republishErr
	}
	f.republished = append(f.republished, attempts)
	return nil
}

func (f *fakePublisher) deadLetter(_ context.Context, _ Envelope, _, _ string) error {
	if f.deadLetterErr != nil {
		return f.deadLetterErr
	}
	f.deadLettered++
	return nil
}

type fakeProcessor struct {
	err   error
	calls int
}

func (f *fakeProcessor) ProcessResume(_ context.Context, _ ProcessingPayload, _ []byte) error {
	f.calls++
	return f.err
}

type fakeResumeUpdater struct {
	retries  []string
	failures []string
}

func (f *fakeResumeUpdater) RecordResumeRetry(_ context.Context, _ uuid.UUID, errMsg string) error {
	f.retries = append(f.retries, errMsg)
	return nil
}

func (f *fakeResumeUpdater) FailResume(_ context.Context, _ uuid.UUID, errMsg string) error {
	f.failures = append(f.failures, errMsg)
	return nil
}

// memBlobs is an in-memory blob store for handler tests.
type memBlobs map[string][]byte

func (m memBlobs) Write(_ context.Context, key string, data []byte) error { m[key] = data; return nil }
func (m memBlobs) Read(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}
func (m memBlobs) Exists(_ context.Context, key string) (bool, error) { _, ok := m[key]; return ok, nil }
func (m memBlobs) Delete(_ context.Context, key string) error         { delete(m, key); return nil }

func newTestConsumer(pub *fakePublisher, proc *fakeProcessor, resumes *fakeResumeUpdater, blobs memBlobs) *Consumer {
	return &Consumer{
		publisher:   pub,
		processor:   proc,
		resumes:     resumes,
		store:       blobs,
		concurrency: 1,
		maxAttempts: 5,
		log:         zap.NewNop(),
	}
}

func processingDelivery(t *testing.T, ack *fakeAcknowledger, payload ProcessingPayload, attempts int32) amqp.Delivery {
	t.Helper()
	body, err := encodeEnvelope("msg-1", "msg-1", TypeResumeProcessing, payload)
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}
	return amqp.Delivery{
		Acknowledger: ack,
		Headers:      amqp.Table{attemptsHeader: attempts},
		Body:         body,
	}
}

func testPayload() ProcessingPayload {
	return ProcessingPayload{
		ResumeID:         uuid.New(),
		JobID:            uuid.New(),
		TenantID:         uuid.New(),
		StoragePath:      "tenants/t/jobs/j/resume.pdf",
		OriginalFileName: "resume.pdf",
		FileType:         "application/pdf",
	}
}

func TestHandleSuccess(t *testing.T) {
	payload := testPayload()
	proc := &fakeProcessor{}
	resumes := &fakeResumeUpdater{}
	c := newTestConsumer(&fakePublisher{}, proc, resumes, memBlobs{payload.StoragePath: []byte("pdf")})
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), processingDelivery(t, ack, payload, 0))

	if proc.calls != 1 {
		t.Errorf("processor calls = %d, want 1", proc.calls)
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
	if len(resumes.retries) != 0 || len(resumes.failures) != 0 {
		t.Errorf("unexpected resume updates: retries=%v failures=%v", resumes.retries, resumes.failures)
	}
}

func TestHandleDropsNonProcessingMessage(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(&fakePublisher{}, proc, &fakeResumeUpdater{}, memBlobs{})
	ack := &fakeAcknowledger{}

	body, err := encodeEnvelope("msg-1", "msg-1", TypeResumeProcessingResult, ResultPayload{Status: "completed"})
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})

	if proc.calls != 0 {
		t.Error("processor must not run for non-processing messages")
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1 (dropped, not redelivered)", ack.acks)
	}
}

func TestHandleDropsMalformedMessage(t *testing.T) {
	proc := &fakeProcessor{}
	c := newTestConsumer(&fakePublisher{}, proc, &fakeResumeUpdater{}, memBlobs{})
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")})

	if proc.calls != 0 {
		t.Error("processor must not run for malformed messages")
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
}

func TestHandleAbandonRecordsRetry(t *testing.T) {
	payload := testPayload()
	pub := &fakePublisher{}
	resumes := &fakeResumeUpdater{}
	proc := &fakeProcessor{err: errors.New("model timeout")}
	c := newTestConsumer(pub, proc, resumes, memBlobs{payload.StoragePath: []byte("pdf")})
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), processingDelivery(t, ack, payload, 0))

	if len(pub.republished) != 1 || pub.republished[0] != 1 {
		t.Errorf("republished = %v, want [1]", pub.republished)
	}
	if pub.deadLettered != 0 {
		t.Errorf("deadLettered = %d, want 0", pub.deadLettered)
	}
	if len(resumes.retries) != 1 || resumes.retries[0] != "model timeout" {
		t.Errorf("retries = %v, want the processing error recorded", resumes.retries)
	}
	if len(resumes.failures) != 0 {
		t.Errorf("failures = %v, want none before the final attempt", resumes.failures)
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
}

func TestHandleDeadLettersFinalAttempt(t *testing.T) {
	payload := testPayload()
	pub := &fakePublisher{}
	resumes := &fakeResumeUpdater{}
	proc := &fakeProcessor{err: errors.New("model timeout")}
	c := newTestConsumer(pub, proc, resumes, memBlobs{payload.StoragePath: []byte("pdf")})
	ack := &fakeAcknowledger{}

	// Four prior failures: this delivery is the fifth and final attempt.
	c.handle(context.Background(), processingDelivery(t, ack, payload, 4))

	if len(pub.republished) != 0 {
		t.Errorf("republished = %v, want none on the final attempt", pub.republished)
	}
	if pub.deadLettered != 1 {
		t.Errorf("deadLettered = %d, want 1", pub.deadLettered)
	}
	if len(resumes.failures) != 1 {
		t.Errorf("failures = %v, want the resume marked failed", resumes.failures)
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
}

func TestHandleMissingFileGoesThroughRetryPolicy(t *testing.T) {
	payload := testPayload()
	pub := &fakePublisher{}
	proc := &fakeProcessor{}
	c := newTestConsumer(pub, proc, &fakeResumeUpdater{}, memBlobs{})
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), processingDelivery(t, ack, payload, 0))

	if proc.calls != 0 {
		t.Error("processor must not run without the stored file")
	}
	if len(pub.republished) != 1 {
		t.Errorf("republished = %v, want a retry", pub.republished)
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
}

func TestHandleRepublishFailureFallsBackToDeadLetter(t *testing.T) {
	payload := testPayload()
	pub := &fakePublisher{republishErr: errors.New("channel closed")}
	resumes := &fakeResumeUpdater{}
	proc := &fakeProcessor{err: errors.New("model timeout")}
	c := newTestConsumer(pub, proc, resumes, memBlobs{payload.StoragePath: []byte("pdf")})
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), processingDelivery(t, ack, payload, 0))

	if pub.deadLettered != 1 {
		t.Errorf("deadLettered = %d, want 1", pub.deadLettered)
	}
	if len(resumes.failures) != 1 {
		t.Errorf("failures = %v, want the resume marked failed", resumes.failures)
	}
	if ack.acks != 1 {
		t.Errorf("acks = %d, want 1", ack.acks)
	}
}

func TestHandleLeavesDeliveryUnackedWhenNoQueueTakesIt(t *testing.T) {
	payload := testPayload()
	pub := &fakePublisher{
		republishErr:  errors.New("channel closed"),
		deadLetterErr: errors.New("channel closed"),
	}
	resumes := &fakeResumeUpdater{}
	proc := &fakeProcessor{err: errors.New("model timeout")}
	c := newTestConsumer(pub, proc, resumes, memBlobs{payload.StoragePath: []byte("pdf")})
	ack := &fakeAcknowledger{}

	c.handle(context.Background(), processingDelivery(t, ack, payload, 0))

	// Neither queue has the message; acking here would lose the attempt.
	// The delivery stays unsettled so the broker redelivers it.
	if ack.acks != 0 {
		t.Errorf("acks = %d, want 0", ack.acks)
	}
	if len(resumes.failures) != 0 {
		t.Errorf("failures = %v, want none when the dead-letter publish failed", resumes.failures)
	}
}

func TestAttemptsFrom(t *testing.T) {
	cases := []struct {
		name    string
		headers amqp.Table
		want    int32
	}{
		{"missing", amqp.Table{}, 0},
		{"nil table", nil, 0},
		{"int32", amqp.Table{attemptsHeader: int32(3)}, 3},
		{"int64", amqp.Table{attemptsHeader: int64(2)}, 2},
		{"int", amqp.Table{attemptsHeader: 4}, 4},
		{"unexpected type", amqp.Table{attemptsHeader: "7"}, 0},
	}
	for _, c := range cases {
		if got := attemptsFrom(c.headers); got != c.want {
			t.Errorf("%s: attemptsFrom = %d, want %d", c.name, got, c.want)
		}
	}
}
