package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/freelanceshield/shieldd/internal/crypto"
	"github.com/freelanceshield/shieldd/internal/domain"
)

// EvidenceService stores claim evidence attachments and keeps an integrity
// digest for each upload. The digest travels back to the caller so it can be
// quoted in the claim submission and re-verified by arbitrators.
type EvidenceService struct {
	writer domain.EvidenceWriter
	reader domain.EvidenceReader
	signer *crypto.EvidenceSigner
	logger *slog.Logger
}

// multipartCutoff is the payload size above which uploads switch to the
// multipart path.
const multipartCutoff = 8 * 1024 * 1024

// NewEvidenceService creates an EvidenceService with all required
// dependencies.
func NewEvidenceService(
	writer domain.EvidenceWriter,
	reader domain.EvidenceReader,
	signer *crypto.EvidenceSigner,
	logger *slog.Logger,
) *EvidenceService {
	return &EvidenceService{
		writer: writer,
		reader: reader,
		signer: signer,
		logger: logger.With(slog.String("component", "evidence_service")),
	}
}

// Upload stores an attachment under the given key and returns its integrity
// digest. The payload is buffered to digest and upload in one pass; payloads
// over the multipart cutoff upload in parts.
func (s *EvidenceService) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("evidence_service: read payload: %w", err)
	}

	digest := s.signer.DigestBytes(payload)

	if int64(len(payload)) > multipartCutoff {
		err = s.writer.PutMultipart(ctx, key, bytes.NewReader(payload), 0)
	} else {
		err = s.writer.Put(ctx, key, bytes.NewReader(payload), contentType)
	}
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "evidence stored",
		slog.String("key", key),
		slog.Int("bytes", len(payload)),
	)
	return digest, nil
}

// Verify recomputes the stored object's digest and compares it to the
// expected value.
func (s *EvidenceService) Verify(ctx context.Context, key, expected string) (bool, error) {
	body, err := s.reader.Get(ctx, key)
	if err != nil {
		return false, err
	}
	defer body.Close()

	ok, err := s.signer.Verify(body, expected)
	if err != nil {
		return false, fmt.Errorf("evidence_service: verify %s: %w", key, err)
	}
	return ok, nil
}

// Presign returns a time-limited download URL for an attachment.
func (s *EvidenceService) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.reader.Presign(ctx, key, expiry)
}

// List returns the stored attachment keys under a prefix.
func (s *EvidenceService) List(ctx context.Context, prefix string) ([]string, error) {
	return s.reader.List(ctx, prefix)
}
