package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

const validJSON = `{
	"identifier": "com.example.wordcount",
	"name": "Word Count",
	"version": "1.2.0",
	"description": "Live word count in the status bar",
	"author": "Example Co",
	"plugin_type": "script",
	"permissions": ["slash-commands", "editor-content"]
}`

func TestParseValid(t *testing.T) {
	m, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if m.Identifier != "com.example.wordcount" {
		t.Errorf("Identifier = %q", m.Identifier)
	}
	if m.Type != TypeScript {
		t.Errorf("Type = %q, want script", m.Type)
	}
	want := permission.NewSet(permission.PermSlashCommands, permission.PermEditorContent)
	if !m.Permissions().Equal(want) {
		t.Errorf("Permissions = %v, want %v", m.Permissions(), want)
	}
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"malformed", `{not json`, nil},
		{"missing identifier", `{"name":"X","version":"1.0.0","plugin_type":"script"}`, ErrMissingIdentifier},
		{"bad identifier", `{"identifier":"not reverse dns","name":"X","version":"1.0.0","plugin_type":"script"}`, ErrInvalidIdentifier},
		{"missing name", `{"identifier":"com.x.y","version":"1.0.0","plugin_type":"script"}`, ErrMissingName},
		{"missing version", `{"identifier":"com.x.y","name":"X","plugin_type":"script"}`, ErrMissingVersion},
		{"bad version", `{"identifier":"com.x.y","name":"X","version":"one","plugin_type":"script"}`, ErrInvalidVersion},
		{"bad type", `{"identifier":"com.x.y","name":"X","version":"1.0.0","plugin_type":"applet"}`, ErrInvalidType},
		{"missing type", `{"identifier":"com.x.y","name":"X","version":"1.0.0"}`, ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if err == nil {
				t.Fatal("Parse accepted invalid manifest")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnknownPermissionsDropped(t *testing.T) {
	m, err := Parse([]byte(`{
		"identifier": "com.example.future",
		"name": "Future",
		"version": "2.0.0",
		"plugin_type": "native",
		"permissions": ["slash-commands", "hologram-access"]
	}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if m.Permissions().Len() != 1 {
		t.Errorf("Permissions().Len() = %d, want 1", m.Permissions().Len())
	}
	if !reflect.DeepEqual(m.UnknownPermissions(), []string{"hologram-access"}) {
		t.Errorf("UnknownPermissions = %v", m.UnknownPermissions())
	}
}

func TestSignatureBlockValidation(t *testing.T) {
	sig := func(mutate func(*Signature)) *Signature {
		s := &Signature{
			Algorithm:   AlgorithmEd25519,
			PublicKeyID: "tibok-registry-2025",
			Signature:   "aGVsbG8=",
			SignedAt:    "2026-08-01T12:00:00Z",
			ContentHash: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		}
		if mutate != nil {
			mutate(s)
		}
		return s
	}

	tests := []struct {
		name   string
		sig    *Signature
		wantOK bool
	}{
		{"valid", sig(nil), true},
		{"wrong algorithm", sig(func(s *Signature) { s.Algorithm = "rsa" }), false},
		{"missing key id", sig(func(s *Signature) { s.PublicKeyID = "" }), false},
		{"bad base64", sig(func(s *Signature) { s.Signature = "!!!" }), false},
		{"bad timestamp", sig(func(s *Signature) { s.SignedAt = "yesterday" }), false},
		{"short hash", sig(func(s *Signature) { s.ContentHash = "abcd" }), false},
		{"non-hex hash", sig(func(s *Signature) { s.ContentHash = "zz86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08" }), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Validate()
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate() error = %v, wantOK %v", err, tt.wantOK)
			}
		})
	}
}

func TestHasValidSignatureBlock(t *testing.T) {
	m, err := Parse([]byte(validJSON))
	if err != nil {
		t.Fatal(err)
	}
	if m.HasValidSignatureBlock() {
		t.Error("HasValidSignatureBlock = true with no signature")
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(validJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("LoadFromDir returned error: %v", err)
	}
	if m.Path() != dir {
		t.Errorf("Path = %q, want %q", m.Path(), dir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromDir(t.TempDir()); err == nil {
		t.Error("LoadFromDir succeeded for empty directory")
	}
}

func TestUnmarshalResolvesPermissions(t *testing.T) {
	// Manifests embedded in larger documents are decoded with plain
	// json.Unmarshal, never Parse. The permission set must resolve there
	// too.
	var doc struct {
		Manifest Manifest `json:"manifest"`
	}
	data := []byte(`{
		"manifest": {
			"identifier": "com.example.shell",
			"name": "Shell",
			"version": "1.0.0",
			"plugin_type": "native",
			"permissions": ["network-access", "execute-process", "made-up"]
		}
	}`)
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	perms := doc.Manifest.Permissions()
	if perms.Len() != 2 {
		t.Fatalf("permissions len = %d, want 2", perms.Len())
	}
	if !perms.HasElevated() {
		t.Error("HasElevated() = false, want true")
	}
	if got := doc.Manifest.UnknownPermissions(); !reflect.DeepEqual(got, []string{"made-up"}) {
		t.Errorf("unknown = %v, want [made-up]", got)
	}
}
