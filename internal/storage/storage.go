// Package storage provides path-addressed blob storage for uploaded resumes.
package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
)

// Store is the path-addressed blob store the pipeline reads and writes
// uploaded documents through.
type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// ResumePath builds the tenant/job/file-scoped key for an uploaded resume.
// The file ID keeps concurrent uploads of identically named files apart.
func ResumePath(tenantID, jobID, fileID uuid.UUID, fileName string) string {
	return path.Join("tenants", tenantID.String(), "jobs", jobID.String(),
		fmt.Sprintf("%s_%s", fileID, fileName))
}
