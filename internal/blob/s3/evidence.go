package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/freelanceshield/shieldd/internal/domain"
)

// minPartSize is the minimum allowed part size for S3 multipart uploads (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// EvidenceKey builds the object key for a claim attachment. All evidence for
// a claim lives under a common prefix so it can be listed in one call.
func EvidenceKey(claimID, filename string) string {
	return "evidence/" + claimID + "/" + filename
}

// EvidencePrefix is the listing prefix for all of a claim's attachments.
func EvidencePrefix(claimID string) string {
	return "evidence/" + claimID + "/"
}

// EvidenceStore implements domain.EvidenceWriter and domain.EvidenceReader
// against the configured bucket.
type EvidenceStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

var (
	_ domain.EvidenceWriter = (*EvidenceStore)(nil)
	_ domain.EvidenceReader = (*EvidenceStore)(nil)
)

// NewEvidenceStore creates an EvidenceStore over the given client's bucket.
func NewEvidenceStore(c *Client) *EvidenceStore {
	return &EvidenceStore{
		client:  c.S3(),
		presign: s3.NewPresignClient(c.S3()),
		bucket:  c.Bucket(),
	}
}

// Put uploads an attachment as a single PutObject request. Suitable for
// typical evidence documents; use PutMultipart for large payloads.
func (e *EvidenceStore) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

// PutMultipart uploads an attachment using the multipart upload manager,
// which splits the payload into parts and uploads them concurrently. A part
// size below the S3 minimum is clamped to 5 MiB.
func (e *EvidenceStore) PutMultipart(ctx context.Context, key string, data io.Reader, partSize int64) error {
	if partSize < minPartSize {
		partSize = minPartSize
	}

	uploader := manager.NewUploader(e.client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}

// Get retrieves an attachment body. The caller must close the returned
// reader. Returns domain.ErrNotFound if the object does not exist.
func (e *EvidenceStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3blob: get %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3blob: get %s: %w", key, err)
	}
	return output.Body, nil
}

// Presign returns a time-limited GET URL for an attachment, used to hand
// evidence to arbitrators without proxying the bytes.
func (e *EvidenceStore) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := e.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("s3blob: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// List returns the keys of all objects under the given prefix, following
// continuation tokens until exhausted.
func (e *EvidenceStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(e.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(e.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list prefix %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

// Exists checks whether an object exists via HeadObject.
func (e *EvidenceStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := e.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3blob: exists %s: %w", key, err)
	}
	return true, nil
}

// isNotFound reports whether the error indicates a missing object. HeadObject
// does not return NoSuchKey; it surfaces a generic NotFound.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}
