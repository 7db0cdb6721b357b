// Package queue implements the asynchronous hand-off between the upload
// orchestrator and the processing workers over RabbitMQ: message envelope,
// publisher, and a consumer applying the retry and dead-letter policy.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message types carried in the envelope discriminant.
const (
	TypeResumeProcessing       = "RESUME_PROCESSING"
	TypeResumeProcessingResult = "RESUME_PROCESSING_RESULT"
)

// EnvelopeVersion is the wire format version stamped on every message.
const EnvelopeVersion = "1.0"

// Envelope is the JSON wire envelope. Payload decoding branches on Type;
// unknown types are dropped by the consumer, never retried.
type Envelope struct {
	MessageID     string          `json:"messageId"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       string          `json:"version"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
}

// ProcessingPayload asks a worker to process one uploaded resume.
type ProcessingPayload struct {
	ResumeID         uuid.UUID `json:"resumeId"`
	JobID            uuid.UUID `json:"jobId"`
	TenantID         uuid.UUID `json:"tenantId"`
	UserID           uuid.UUID `json:"userId"`
	StoragePath      string    `json:"storagePath"`
	OriginalFileName string    `json:"originalFileName"`
	FileType         string    `json:"fileType"`
}

// ResultPayload reports the terminal outcome of one processing attempt.
type ResultPayload struct {
	ResumeID         uuid.UUID  `json:"resumeId"`
	JobID            uuid.UUID  `json:"jobId"`
	TenantID         uuid.UUID  `json:"tenantId"`
	Status           string     `json:"status"` // completed | failed
	CandidateID      *uuid.UUID `json:"candidateId,omitempty"`
	OverallScore     *int       `json:"overallScore,omitempty"`
	Error            string     `json:"error,omitempty"`
	ProcessingTimeMs int64      `json:"processingTime"`
}

// Message is a decoded envelope with exactly one payload variant set.
type Message struct {
	Envelope
	Processing *ProcessingPayload
	Result     *ResultPayload
}

// UnknownTypeError marks a message whose discriminant is not recognized.
// Consumers acknowledge and drop these.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type: %s", e.Type)
}

// Decode parses a wire message, branching on the type discriminant.
func Decode(data []byte) (*Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode message envelope: %w", err)
	}

	msg := &Message{Envelope: env}
	switch env.Type {
	case TypeResumeProcessing:
		var p ProcessingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode processing payload: %w", err)
		}
		msg.Processing = &p
	case TypeResumeProcessingResult:
		var p ResultPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode result payload: %w", err)
		}
		msg.Result = &p
	default:
		return msg, &UnknownTypeError{Type: env.Type}
	}
	return msg, nil
}

// encodeEnvelope builds the wire bytes for a payload.
func encodeEnvelope(messageID, correlationID, msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	env := Envelope{
		MessageID:     messageID,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
		Version:       EnvelopeVersion,
		Type:          msgType,
		Payload:       raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}
