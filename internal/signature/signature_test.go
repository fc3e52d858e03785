package signature

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
)

const testKeyID = "test-key"

func newTestVerifier(t *testing.T, now time.Time) (*Verifier, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	v := NewVerifier(
		WithTrustedKeys(map[string]ed25519.PublicKey{testKeyID: pub}),
		WithClock(func() time.Time { return now }),
	)
	return v, priv
}

func signedManifest(priv ed25519.PrivateKey, bundle []byte, signedAt time.Time) *manifest.Manifest {
	m := &manifest.Manifest{
		Identifier: "com.example.signed",
		Name:       "Signed",
		Version:    "1.0.0",
		Type:       manifest.TypeNative,
	}
	m.Signature = Sign(priv, testKeyID, m.Identifier, m.Version, bundle, signedAt)
	return m
}

func TestVerifyRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v, priv := newTestVerifier(t, now)
	bundle := []byte("plugin bundle bytes")

	m := signedManifest(priv, bundle, now)
	res := v.Verify(m, bundle)
	if !res.Valid {
		t.Fatalf("Verify = invalid (%s): %s", res.Reason, res.Detail)
	}
	if res.Reason != ReasonNone {
		t.Errorf("Reason = %v, want none", res.Reason)
	}
}

func TestVerifyTamperedBundle(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v, priv := newTestVerifier(t, now)
	bundle := []byte("plugin bundle bytes")
	m := signedManifest(priv, bundle, now)

	tampered := append([]byte(nil), bundle...)
	tampered[0] ^= 0x01

	res := v.Verify(m, tampered)
	if res.Valid {
		t.Fatal("Verify accepted a tampered bundle")
	}
	if res.Reason != ReasonHashMismatch {
		t.Errorf("Reason = %v, want hash-mismatch", res.Reason)
	}
}

func TestVerifyExpired(t *testing.T) {
	signedAt := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	bundle := []byte("plugin bundle bytes")

	tests := []struct {
		name  string
		now   time.Time
		valid bool
	}{
		{"fresh", signedAt.Add(time.Hour), true},
		{"day 29", signedAt.Add(29 * 24 * time.Hour), true},
		{"day 31", signedAt.Add(31 * 24 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, priv := newTestVerifier(t, tt.now)
			m := signedManifest(priv, bundle, signedAt)
			res := v.Verify(m, bundle)
			if res.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (%s)", res.Valid, tt.valid, res.Detail)
			}
			if !tt.valid && res.Reason != ReasonExpired {
				t.Errorf("Reason = %v, want expired", res.Reason)
			}
		})
	}
}

func TestVerifyUnknownKey(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v, priv := newTestVerifier(t, now)
	bundle := []byte("bundle")

	m := signedManifest(priv, bundle, now)
	m.Signature.PublicKeyID = "somebody-else"

	res := v.Verify(m, bundle)
	if res.Valid || res.Reason != ReasonUnknownKey {
		t.Errorf("Result = %+v, want unknown-key", res)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v, _ := newTestVerifier(t, now)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	bundle := []byte("bundle")

	// Signed with a key other than the one testKeyID resolves to.
	m := signedManifest(otherPriv, bundle, now)

	res := v.Verify(m, bundle)
	if res.Valid || res.Reason != ReasonBadSignature {
		t.Errorf("Result = %+v, want bad-signature", res)
	}
}

func TestVerifyReplayedIdentity(t *testing.T) {
	// A valid signature for one plugin must not verify for another
	// identifier or version over the same bytes.
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v, priv := newTestVerifier(t, now)
	bundle := []byte("bundle")

	m := signedManifest(priv, bundle, now)

	other := *m
	other.Identifier = "com.example.impostor"
	if res := v.Verify(&other, bundle); res.Valid || res.Reason != ReasonBadSignature {
		t.Errorf("identifier replay: Result = %+v, want bad-signature", res)
	}

	bumped := *m
	bumped.Version = "9.9.9"
	if res := v.Verify(&bumped, bundle); res.Valid || res.Reason != ReasonBadSignature {
		t.Errorf("version replay: Result = %+v, want bad-signature", res)
	}
}

func TestVerifyMissingSignature(t *testing.T) {
	v := NewVerifier()
	m := &manifest.Manifest{Identifier: "com.example.unsigned", Version: "1.0.0"}
	res := v.Verify(m, []byte("bundle"))
	if res.Valid || res.Reason != ReasonMissingSignature {
		t.Errorf("Result = %+v, want missing-signature", res)
	}
	if res.Detail == "" {
		t.Error("Detail is empty; failures must carry a specific message")
	}
}

func TestVerifyMalformedBlock(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	v, priv := newTestVerifier(t, now)
	bundle := []byte("bundle")
	m := signedManifest(priv, bundle, now)
	m.Signature.Algorithm = "rsa"

	res := v.Verify(m, bundle)
	if res.Valid || res.Reason != ReasonMalformed {
		t.Errorf("Result = %+v, want malformed", res)
	}
}

func TestCanonicalMessage(t *testing.T) {
	got := string(CanonicalMessage("com.x.y", "1.0.0", "abcd"))
	want := "tibok-plugin-v1:com.x.y:1.0.0:abcd"
	if got != want {
		t.Errorf("CanonicalMessage = %q, want %q", got, want)
	}
}
