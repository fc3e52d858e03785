// Package registry fetches the remote plugin catalog and installs plugin
// bundles after integrity verification.
package registry

import (
	"strings"

	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
)

// Catalog is the remote registry's plugin index.
type Catalog struct {
	SchemaVersion string `json:"schema_version"`
	GeneratedAt   string `json:"generated_at"`

	// Signature covers the whole catalog document (minus this field).
	// Separate from per-plugin signatures.
	Signature *manifest.Signature `json:"registry_signature,omitempty"`

	Plugins []Entry `json:"plugins"`
}

// Entry is one installable plugin in the catalog.
type Entry struct {
	Manifest    manifest.Manifest `json:"manifest"`
	DownloadURL string            `json:"download_url"`

	// Size is the declared bundle byte size. Checked against the download
	// within a tolerance band, not exact-match.
	Size int64 `json:"size"`

	// ContentHash is the hex SHA-256 of the bundle bytes.
	ContentHash string `json:"content_hash"`
}

// Matches reports whether the entry matches a free-text search query.
func (e *Entry) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(e.Manifest.Identifier), q) ||
		strings.Contains(strings.ToLower(e.Manifest.Name), q) ||
		strings.Contains(strings.ToLower(e.Manifest.Description), q)
}

// HasUpdate reports whether the entry is newer than an installed version.
func (e *Entry) HasUpdate(installedVersion string) bool {
	return manifest.CompareVersions(e.Manifest.Version, installedVersion) > 0
}
