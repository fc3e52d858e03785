// Package trust classifies plugins into trust tiers.
//
// Tier elevation requires external provenance or a cryptographic claim; a
// manifest can never promote itself by writing a tier string into its own
// JSON.
package trust

import "github.com/sturdy-barnacle/tibok-plugins/internal/manifest"

// Tier is the coarse trust classification governing permission
// auto-approval.
type Tier int

const (
	// TierCommunity plugins are unsigned and user-installed. Every
	// permission grant goes through user approval.
	TierCommunity Tier = iota

	// TierVerified plugins are signed by the registry. Safe-only permission
	// sets are auto-approved after signature verification.
	TierVerified

	// TierOfficial plugins ship inside the application bundle and are
	// always trusted. Never assigned to discovered or downloaded manifests.
	TierOfficial
)

// String returns the tier's manifest identifier.
func (t Tier) String() string {
	switch t {
	case TierOfficial:
		return "official"
	case TierVerified:
		return "verified"
	case TierCommunity:
		return "community"
	default:
		return "unknown"
	}
}

// Provenance records where a manifest came from. It is supplied by the
// discovery layer, never by the manifest itself.
type Provenance int

const (
	// ProvenanceBundled manifests ship compiled into the application.
	ProvenanceBundled Provenance = iota

	// ProvenanceDisk manifests were discovered in the user's plugin
	// directory.
	ProvenanceDisk

	// ProvenanceDownloaded manifests came from the plugin registry.
	ProvenanceDownloaded
)

// String returns a string representation of the provenance.
func (p Provenance) String() string {
	switch p {
	case ProvenanceBundled:
		return "bundled"
	case ProvenanceDisk:
		return "disk"
	case ProvenanceDownloaded:
		return "downloaded"
	default:
		return "unknown"
	}
}

// Resolve determines a manifest's effective tier.
//
// Rules, in order: bundled provenance forces official regardless of the
// declared value; a declared verified tier with a structurally valid
// signature block resolves to verified; everything else is community. The
// second return is true when the manifest declared a tier it was not
// granted, so callers can log the downgrade.
func Resolve(m *manifest.Manifest, prov Provenance) (Tier, bool) {
	if prov == ProvenanceBundled {
		return TierOfficial, false
	}

	switch m.DeclaredTier {
	case "verified":
		if m.HasValidSignatureBlock() {
			return TierVerified, false
		}
		return TierCommunity, true
	case "official":
		// Self-asserted official status from a discovered manifest is a
		// forgery attempt; downgrade, honoring the signature if present.
		if m.HasValidSignatureBlock() {
			return TierVerified, true
		}
		return TierCommunity, true
	case "", "community":
		return TierCommunity, false
	default:
		return TierCommunity, true
	}
}
