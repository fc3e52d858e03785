package manifest

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// AlgorithmEd25519 is the only signature algorithm the host accepts.
const AlgorithmEd25519 = "ed25519"

// Signature is a manifest's signature block. The public key id only names
// which compiled-in key the signer claims to have used; the key material
// itself never comes from the manifest.
type Signature struct {
	Algorithm   string `json:"algorithm"`
	PublicKeyID string `json:"public_key_id"`
	Signature   string `json:"signature"`    // base64 Ed25519 signature
	SignedAt    string `json:"signed_at"`    // RFC3339
	ContentHash string `json:"content_hash"` // hex SHA-256 of the bundle
}

// Validate checks the block is structurally usable: correct algorithm,
// decodable fields, parseable timestamp. Cryptographic verification is the
// signature package's job.
func (s *Signature) Validate() error {
	if s.Algorithm != AlgorithmEd25519 {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidSignature, s.Algorithm)
	}
	if s.PublicKeyID == "" {
		return fmt.Errorf("%w: missing public_key_id", ErrInvalidSignature)
	}
	if _, err := base64.StdEncoding.DecodeString(s.Signature); err != nil || s.Signature == "" {
		return fmt.Errorf("%w: signature is not valid base64", ErrInvalidSignature)
	}
	if _, err := s.SignedAtTime(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	raw, err := hex.DecodeString(s.ContentHash)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("%w: content_hash is not a hex SHA-256 digest", ErrInvalidSignature)
	}
	return nil
}

// SignedAtTime parses the signing timestamp.
func (s *Signature) SignedAtTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s.SignedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid signed_at %q", s.SignedAt)
	}
	return t, nil
}

// SignatureBytes decodes the base64 signature.
func (s *Signature) SignatureBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Signature)
}
