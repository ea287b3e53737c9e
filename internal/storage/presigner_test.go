package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperscribe/backend/internal/apperror"
)

type sequentialIDProvider struct {
	counter int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.counter++
	return fmt.Sprintf("object-%d", p.counter), nil
}

func mustNewPresigner(t *testing.T) *Presigner {
	t.Helper()
	presigner, err := NewPresigner(context.Background(), PresignerConfig{
		Endpoint:   "http://127.0.0.1:9000",
		Region:     "us-east-1",
		Bucket:     "attachments",
		AccessKey:  "test-access-key",
		SecretKey:  "test-secret-key",
		IDProvider: &sequentialIDProvider{},
	})
	if err != nil {
		t.Fatalf("failed to build presigner: %v", err)
	}
	return presigner
}

func TestPresignUploadScopesKeyToCaller(t *testing.T) {
	presigner := mustNewPresigner(t)

	ticket, err := presigner.PresignUpload(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("presign upload failed: %v", err)
	}
	if !strings.HasPrefix(ticket.StorageKey, "users/user-1/") {
		t.Fatalf("key must live under the caller prefix, got %q", ticket.StorageKey)
	}
	if !strings.Contains(ticket.URL, ticket.StorageKey) {
		t.Fatalf("url must address the issued key: %q", ticket.URL)
	}
	if ticket.ExpiresAt.IsZero() {
		t.Fatalf("expected an expiry on the ticket")
	}

	if _, err := presigner.PresignUpload(context.Background(), ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for missing caller, got %v", err)
	}
}

func TestPresignDownloadRejectsForeignKey(t *testing.T) {
	presigner := mustNewPresigner(t)

	url, err := presigner.PresignDownload(context.Background(), "user-1", "users/user-1/object-7")
	if err != nil {
		t.Fatalf("presign download failed: %v", err)
	}
	if !strings.Contains(url, "users/user-1/object-7") {
		t.Fatalf("url must address the requested key: %q", url)
	}

	if _, err := presigner.PresignDownload(context.Background(), "user-1", "users/user-2/secret-object"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found for a foreign key, got %v", err)
	}
	if _, err := presigner.PresignDownload(context.Background(), "user-1", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for missing key, got %v", err)
	}
	if _, err := presigner.PresignDownload(context.Background(), "", "users/user-1/object-7"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for missing caller, got %v", err)
	}
}
