package registry

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tidwall/sjson"

	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
)

// SignCatalog embeds a registry-level signature into raw catalog JSON.
// Used by registry publishing tooling and tests; the host only verifies.
func SignCatalog(priv ed25519.PrivateKey, keyID string, raw []byte, signedAt time.Time) ([]byte, error) {
	// The signature covers the document with the signature field absent.
	stripped, err := sjson.DeleteBytes(raw, "registry_signature")
	if err != nil {
		return nil, fmt.Errorf("registry: cannot strip signature field: %w", err)
	}
	sum := sha256.Sum256(stripped)
	contentHash := hex.EncodeToString(sum[:])

	sig := ed25519.Sign(priv, []byte(RegistryProtocolTag+":"+contentHash))
	block := manifest.Signature{
		Algorithm:   manifest.AlgorithmEd25519,
		PublicKeyID: keyID,
		Signature:   base64.StdEncoding.EncodeToString(sig),
		SignedAt:    signedAt.UTC().Format(time.RFC3339),
		ContentHash: contentHash,
	}
	signed, err := sjson.SetBytes(stripped, "registry_signature", block)
	if err != nil {
		return nil, fmt.Errorf("registry: cannot embed signature: %w", err)
	}
	return signed, nil
}
