package features

import "fmt"

// ErrFeatureNotFound indicates the feature catalog has no such entry.
type ErrFeatureNotFound struct {
	FeatureID string
}

func (e *ErrFeatureNotFound) Error() string {
	return fmt.Sprintf("feature not found: %s", e.FeatureID)
}

// PermissionError indicates a tenant may not use a feature right now. A
// disabled feature and an exhausted quota raise the same error kind,
// distinguished only by the user-facing message.
type PermissionError struct {
	FeatureID string
	Message   string
}

func (e *PermissionError) Error() string {
	return e.Message
}
