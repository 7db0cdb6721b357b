package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrResumeNotFound indicates the resume is absent or owned by another
// tenant.
type ErrResumeNotFound struct {
	ResumeID uuid.UUID
}

func (e *ErrResumeNotFound) Error() string {
	return fmt.Sprintf("resume not found: %s", e.ResumeID)
}

// ErrRetryNotAllowed indicates a retry was requested for a resume that is not
// in a failed state.
type ErrRetryNotAllowed struct {
	ResumeID uuid.UUID
	Status   string
}

func (e *ErrRetryNotAllowed) Error() string {
	return fmt.Sprintf("resume %s is %s; only failed resumes can be retried", e.ResumeID, e.Status)
}
