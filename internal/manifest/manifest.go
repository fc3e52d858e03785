// Package manifest parses and validates Tibok plugin manifests.
//
// A manifest is rejected wholesale on structural problems (malformed JSON,
// missing identity fields). Unknown permission strings are not structural
// problems: they are dropped from the resolved set and retained so callers
// can warn about them.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

// Type distinguishes interpreted, sandboxed plugins from compiled ones.
type Type string

const (
	// TypeScript plugins run in an interpreted sandbox and are barred from
	// elevated permissions unconditionally.
	TypeScript Type = "script"

	// TypeNative plugins are compiled code loaded into the host process.
	TypeNative Type = "native"
)

// Manifest describes a plugin's identity, requirements, and declared
// permissions. It is immutable after Parse; reparse wholesale if the source
// changes.
type Manifest struct {
	// Identity
	Identifier  string `json:"identifier"` // Reverse-DNS, globally unique
	Name        string `json:"name"`
	Version     string `json:"version"` // Semver
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Author      string `json:"author,omitempty"`

	// Requirements
	MinimumTibokVersion string `json:"minimum_tibok_version,omitempty"`

	// Runtime
	Type Type `json:"plugin_type"`

	// Declared permissions as raw strings. Resolved against the catalog at
	// parse time; use Permissions() for the mapped set.
	RawPermissions []string `json:"permissions"`

	// DeclaredTier is the tier the manifest claims for itself. It is never
	// trusted on its own; see the trust package.
	DeclaredTier string `json:"trust_tier,omitempty"`

	Signature  *Signature  `json:"signature,omitempty"`
	EntryPoint *EntryPoint `json:"entry_point,omitempty"`

	// Resolved at decode time
	permissions permission.Set
	unknown     []string
	path        string
}

// UnmarshalJSON decodes the manifest and resolves its declared permission
// strings against the catalog. Resolution happens here rather than in Parse
// so manifests embedded in other documents, such as registry catalog
// entries, carry a usable permission set too.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	type plain Manifest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Manifest(p)
	m.permissions, m.unknown = permission.ParseAll(m.RawPermissions)
	return nil
}

// EntryPoint locates a plugin's executable code.
type EntryPoint struct {
	Framework string `json:"framework,omitempty"`  // Native: bundle name
	Script    string `json:"script,omitempty"`     // Script: relative path
	ClassName string `json:"class_name,omitempty"` // Native: registered factory key
}

// Validation errors.
var (
	ErrMissingIdentifier = errors.New("manifest: identifier is required")
	ErrInvalidIdentifier = errors.New("manifest: identifier must be reverse-DNS")
	ErrMissingName       = errors.New("manifest: name is required")
	ErrMissingVersion    = errors.New("manifest: version is required")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrInvalidType       = errors.New("manifest: plugin_type must be script or native")
	ErrInvalidSignature  = errors.New("manifest: malformed signature block")
)

// identifierPattern validates reverse-DNS identifiers (com.example.plugin).
var identifierPattern = regexp.MustCompile(`^[a-z0-9]+(\.[a-z0-9][a-z0-9-]*)+$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// Parse decodes and validates a manifest from JSON bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.path = filepath.Dir(path)
	return m, nil
}

// LoadFromDir loads plugin.json from a plugin directory.
func LoadFromDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, "plugin.json"))
}

// Validate checks structural validity. It does not resolve trust or verify
// signatures; it only rejects manifests that cannot be processed at all.
func (m *Manifest) Validate() error {
	if m.Identifier == "" {
		return ErrMissingIdentifier
	}
	if !identifierPattern.MatchString(m.Identifier) {
		return fmt.Errorf("%w: %s", ErrInvalidIdentifier, m.Identifier)
	}
	if m.Name == "" {
		return ErrMissingName
	}
	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	if m.Type != TypeScript && m.Type != TypeNative {
		return fmt.Errorf("%w: %q", ErrInvalidType, m.Type)
	}
	// A malformed signature block is not a structural error: the manifest
	// still parses, it just cannot claim verified tier.
	return nil
}

// Permissions returns the declared permissions resolved against the catalog.
func (m *Manifest) Permissions() permission.Set {
	return m.permissions
}

// UnknownPermissions returns declared strings that did not map to any
// catalog permission.
func (m *Manifest) UnknownPermissions() []string {
	return m.unknown
}

// Path returns the plugin directory, if the manifest was loaded from disk.
func (m *Manifest) Path() string {
	return m.path
}

// HasValidSignatureBlock returns true if the manifest carries a
// structurally valid signature block. It says nothing about whether the
// signature actually verifies.
func (m *Manifest) HasValidSignatureBlock() bool {
	return m.Signature != nil && m.Signature.Validate() == nil
}

// String returns a short description for logs.
func (m *Manifest) String() string {
	return fmt.Sprintf("%s (%s v%s)", m.Name, m.Identifier, m.Version)
}
