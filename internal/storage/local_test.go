package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()
	key := "tenants/abc/jobs/def/file.pdf"

	exists, err := store.Exists(ctx, key)
	if err != nil || exists {
		t.Fatalf("Exists before write = %v, %v", exists, err)
	}

	if err := store.Write(ctx, key, []byte("content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := store.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("Read = %q", data)
	}

	exists, err = store.Exists(ctx, key)
	if err != nil || !exists {
		t.Fatalf("Exists after write = %v, %v", exists, err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	// Deleting again is not an error.
	if err := store.Delete(ctx, key); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestLocalStoreRequiresRoot(t *testing.T) {
	if _, err := NewLocalStore(""); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestResumePath(t *testing.T) {
	tenantID := uuid.New()
	jobID := uuid.New()
	fileID := uuid.New()

	p := ResumePath(tenantID, jobID, fileID, "resume.pdf")
	for _, part := range []string{"tenants/" + tenantID.String(), "jobs/" + jobID.String(), fileID.String() + "_resume.pdf"} {
		if !strings.Contains(p, part) {
			t.Errorf("path %q missing %q", p, part)
		}
	}

	// Identical file names from concurrent uploads stay distinct.
	other := ResumePath(tenantID, jobID, uuid.New(), "resume.pdf")
	if p == other {
		t.Error("expected distinct paths for distinct file IDs")
	}
}
