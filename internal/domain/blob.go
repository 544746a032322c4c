package domain

import (
	"context"
	"io"
	"time"
)

// EvidenceWriter stores claim evidence attachments in object storage.
type EvidenceWriter interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, key string, data io.Reader, partSize int64) error
}

// EvidenceReader retrieves claim evidence attachments.
type EvidenceReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether an attachment is present without fetching it.
	Exists(ctx context.Context, key string) (bool, error)
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
