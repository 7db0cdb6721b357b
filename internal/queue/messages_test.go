package queue

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestEncodeDecodeProcessing(t *testing.T) {
	payload := ProcessingPayload{
		ResumeID:         uuid.New(),
		JobID:            uuid.New(),
		TenantID:         uuid.New(),
		UserID:           uuid.New(),
		StoragePath:      "tenants/t/jobs/j/file.pdf",
		OriginalFileName: "file.pdf",
		FileType:         "application/pdf",
	}

	data, err := encodeEnvelope("msg-1", "corr-1", TypeResumeProcessing, payload)
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}

	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Type != TypeResumeProcessing {
		t.Errorf("Type = %q", msg.Type)
	}
	if msg.Version != EnvelopeVersion {
		t.Errorf("Version = %q, want %q", msg.Version, EnvelopeVersion)
	}
	if msg.Processing == nil {
		t.Fatal("expected processing payload")
	}
	if *msg.Processing != payload {
		t.Errorf("payload mismatch: %+v", msg.Processing)
	}
	if msg.Result != nil {
		t.Error("result payload must be nil for a processing message")
	}
}

func TestDecodeResult(t *testing.T) {
	candidateID := uuid.New()
	score := 82
	payload := ResultPayload{
		ResumeID:         uuid.New(),
		JobID:            uuid.New(),
		TenantID:         uuid.New(),
		Status:           "completed",
		CandidateID:      &candidateID,
		OverallScore:     &score,
		ProcessingTimeMs: 1234,
	}

	data, err := encodeEnvelope("msg-2", "corr-2", TypeResumeProcessingResult, payload)
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}

	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.Result == nil {
		t.Fatal("expected result payload")
	}
	if *msg.Result.OverallScore != 82 || *msg.Result.CandidateID != candidateID {
		t.Errorf("payload mismatch: %+v", msg.Result)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	data, err := encodeEnvelope("msg-3", "", "SOMETHING_ELSE", map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}

	_, err = Decode(data)
	var unknown *UnknownTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTypeError, got %v", err)
	}
	if unknown.Type != "SOMETHING_ELSE" {
		t.Errorf("Type = %q", unknown.Type)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
	// Valid envelope, malformed payload for the declared type.
	if _, err := Decode([]byte(`{"type": "RESUME_PROCESSING", "payload": "nope"}`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
