// Package signature verifies Ed25519 signatures over plugin bundles.
//
// A signature binds a specific plugin identity and version to the SHA-256
// digest of the bundle's bytes. Verification fails closed: every check that
// cannot positively confirm validity yields an invalid result with a
// distinguishable reason.
package signature

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
)

// ProtocolTag versions the canonical signed-message format. Changing the
// message layout requires a new tag.
const ProtocolTag = "tibok-plugin-v1"

// ValidityWindow is how long a signature stays valid after signing.
const ValidityWindow = 30 * 24 * time.Hour

// Reason identifies why verification failed.
type Reason int

const (
	// ReasonNone means verification succeeded.
	ReasonNone Reason = iota

	// ReasonMissingSignature means the manifest has no signature block.
	ReasonMissingSignature

	// ReasonMalformed means the signature block is structurally unusable.
	ReasonMalformed

	// ReasonHashMismatch means the bundle was modified after signing.
	ReasonHashMismatch

	// ReasonUnknownKey means the named key is not in the trusted set.
	ReasonUnknownKey

	// ReasonBadSignature means the signature bytes do not verify.
	ReasonBadSignature

	// ReasonExpired means the signature is older than the validity window.
	ReasonExpired
)

// String returns a short identifier for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingSignature:
		return "missing-signature"
	case ReasonMalformed:
		return "malformed"
	case ReasonHashMismatch:
		return "hash-mismatch"
	case ReasonUnknownKey:
		return "unknown-key"
	case ReasonBadSignature:
		return "bad-signature"
	case ReasonExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Result is the outcome of a verification.
type Result struct {
	Valid  bool
	Reason Reason

	// Detail is a human-readable explanation suitable for showing to the
	// user when a plugin is blocked.
	Detail string
}

func invalid(reason Reason, format string, args ...any) Result {
	return Result{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// defaultTrustedKeys is the compiled-in trusted key set. The manifest only
// names which of these keys it claims to use; key material never comes from
// the manifest or the network.
var defaultTrustedKeys = map[string]string{
	"tibok-registry-2025": "3q2+796tvu/erb7v3q2+796tvu/erb7v3q2+796tvu8=",
}

// Verifier validates plugin signatures against a trusted key set.
type Verifier struct {
	keys map[string]ed25519.PublicKey
	now  func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTrustedKeys replaces the compiled-in key set. Intended for tests and
// for the registry's catalog-signing key.
func WithTrustedKeys(keys map[string]ed25519.PublicKey) Option {
	return func(v *Verifier) {
		v.keys = keys
	}
}

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a verifier over the compiled-in trusted key set.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		keys: decodeDefaultKeys(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// TrustedKeyIDs returns the identifiers of the keys this verifier accepts.
func (v *Verifier) TrustedKeyIDs() []string {
	ids := make([]string, 0, len(v.keys))
	for id := range v.keys {
		ids = append(ids, id)
	}
	return ids
}

func decodeDefaultKeys() map[string]ed25519.PublicKey {
	keys := make(map[string]ed25519.PublicKey, len(defaultTrustedKeys))
	for id, b64 := range defaultTrustedKeys {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			continue
		}
		keys[id] = ed25519.PublicKey(raw)
	}
	return keys
}

// ContentHash returns the hex SHA-256 digest of a bundle's bytes.
func ContentHash(bundle []byte) string {
	sum := sha256.Sum256(bundle)
	return hex.EncodeToString(sum[:])
}

// CanonicalMessage reconstructs the signed message. The format binds the
// signature to one plugin identity and version so it cannot be replayed
// onto another bundle. The colon-delimited layout must not change without a
// new protocol tag.
func CanonicalMessage(identifier, version, contentHash string) []byte {
	return []byte(ProtocolTag + ":" + identifier + ":" + version + ":" + contentHash)
}

// Verify checks the manifest's signature against the bundle bytes.
//
// Checks run in order: content hash, trusted key lookup, Ed25519 signature,
// validity window. The first failing check short-circuits.
func (v *Verifier) Verify(m *manifest.Manifest, bundle []byte) Result {
	sig := m.Signature
	if sig == nil {
		return invalid(ReasonMissingSignature, "plugin %s has no signature", m.Identifier)
	}
	if err := sig.Validate(); err != nil {
		return invalid(ReasonMalformed, "plugin %s has a malformed signature block: %v", m.Identifier, err)
	}

	if got := ContentHash(bundle); got != sig.ContentHash {
		return invalid(ReasonHashMismatch,
			"plugin %s bundle was modified after signing (hash mismatch)", m.Identifier)
	}

	key, ok := v.keys[sig.PublicKeyID]
	if !ok {
		return invalid(ReasonUnknownKey,
			"plugin %s names signing key %q which is not trusted", m.Identifier, sig.PublicKeyID)
	}

	sigBytes, err := sig.SignatureBytes()
	if err != nil {
		return invalid(ReasonMalformed, "plugin %s signature is not decodable", m.Identifier)
	}
	message := CanonicalMessage(m.Identifier, m.Version, sig.ContentHash)
	if !ed25519.Verify(key, message, sigBytes) {
		return invalid(ReasonBadSignature,
			"plugin %s signature does not verify against key %q", m.Identifier, sig.PublicKeyID)
	}

	signedAt, err := sig.SignedAtTime()
	if err != nil {
		return invalid(ReasonMalformed, "plugin %s has an unparseable signing time", m.Identifier)
	}
	if v.now().Sub(signedAt) > ValidityWindow {
		return invalid(ReasonExpired,
			"plugin %s signature expired (signed %s)", m.Identifier, signedAt.Format(time.RFC3339))
	}

	return Result{Valid: true, Reason: ReasonNone}
}

// Sign produces a signature block for a bundle. Used by the registry
// tooling and by tests; the host itself only verifies.
func Sign(priv ed25519.PrivateKey, keyID, identifier, version string, bundle []byte, signedAt time.Time) *manifest.Signature {
	contentHash := ContentHash(bundle)
	sig := ed25519.Sign(priv, CanonicalMessage(identifier, version, contentHash))
	return &manifest.Signature{
		Algorithm:   manifest.AlgorithmEd25519,
		PublicKeyID: keyID,
		Signature:   base64.StdEncoding.EncodeToString(sig),
		SignedAt:    signedAt.UTC().Format(time.RFC3339),
		ContentHash: contentHash,
	}
}
