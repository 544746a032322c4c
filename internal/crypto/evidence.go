// Package crypto provides integrity digests for claim evidence. Attachment
// digests travel with the claim so arbitrators can verify that the object in
// storage is the object the claimant submitted.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// pbkdf2Iterations follows the OWASP recommendation for PBKDF2-HMAC-SHA256.
const pbkdf2Iterations = 600_000

// evidenceSalt is a fixed application salt for deriving the digest key. The
// secret itself is per-deployment; the salt only domain-separates this use
// from any other use of the same secret.
var evidenceSalt = []byte("shieldd/evidence/v1")

// EvidenceSigner computes and verifies keyed digests over evidence payloads.
type EvidenceSigner struct {
	key []byte
}

// NewEvidenceSigner derives the digest key from the configured secret using
// PBKDF2-HMAC-SHA256.
func NewEvidenceSigner(secret string) (*EvidenceSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("crypto: evidence secret is required")
	}
	key := pbkdf2.Key([]byte(secret), evidenceSalt, pbkdf2Iterations, 32, sha256.New)
	return &EvidenceSigner{key: key}, nil
}

// Digest reads the payload and returns its hex-encoded HMAC-SHA256 digest.
func (s *EvidenceSigner) Digest(payload io.Reader) (string, error) {
	mac := hmac.New(sha256.New, s.key)
	if _, err := io.Copy(mac, payload); err != nil {
		return "", fmt.Errorf("crypto: digest evidence: %w", err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// DigestBytes returns the hex-encoded HMAC-SHA256 digest of the payload.
func (s *EvidenceSigner) DigestBytes(payload []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the digest of the payload and compares it to the
// expected value in constant time.
func (s *EvidenceSigner) Verify(payload io.Reader, expected string) (bool, error) {
	got, err := s.Digest(payload)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(got), []byte(expected)), nil
}
