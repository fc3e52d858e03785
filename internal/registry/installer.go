package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sturdy-barnacle/tibok-plugins/internal/signature"
)

// SizeTolerance is the allowed relative deviation between the declared and
// actual bundle size. A band rather than exact-match absorbs compression
// variance between registry mirrors.
const SizeTolerance = 0.10

// Installer errors.
var (
	ErrSizeMismatch      = errors.New("install: bundle size outside tolerance band")
	ErrHashMismatch      = errors.New("install: bundle content hash mismatch")
	ErrUnsignedVerified  = errors.New("install: verified-tier plugin is unsigned")
	ErrSignatureRejected = errors.New("install: bundle signature verification failed")
	ErrPathEscape        = errors.New("install: target escapes the plugins directory")
)

// Installer downloads, verifies, and installs plugin bundles.
//
// Installation is transactional: the bundle is downloaded and verified in a
// temporary directory and moved into place atomically only after every
// check passes. Any failure, including cancellation, removes the partial
// artifacts.
type Installer struct {
	fetcher    Fetcher
	verifier   *signature.Verifier
	pluginsDir string
	logger     *slog.Logger
}

// NewInstaller creates an installer targeting the third-party plugins
// directory. All installs are confined beneath it.
func NewInstaller(fetcher Fetcher, verifier *signature.Verifier, pluginsDir string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{
		fetcher:    fetcher,
		verifier:   verifier,
		pluginsDir: pluginsDir,
		logger:     logger,
	}
}

// Install downloads and installs a catalog entry, returning the installed
// plugin directory.
func (ins *Installer) Install(ctx context.Context, entry *Entry) (installed string, err error) {
	if err := entry.Manifest.Validate(); err != nil {
		return "", err
	}

	target, err := ins.confinedTarget(entry.Manifest.Identifier)
	if err != nil {
		return "", err
	}

	bundle, err := ins.fetcher.Fetch(ctx, entry.DownloadURL)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := checkSize(entry.Size, int64(len(bundle))); err != nil {
		return "", err
	}
	if got := signature.ContentHash(bundle); got != entry.ContentHash {
		return "", fmt.Errorf("%w: %s", ErrHashMismatch, entry.Manifest.Identifier)
	}

	if entry.Manifest.DeclaredTier == "verified" {
		if entry.Manifest.Signature == nil {
			return "", fmt.Errorf("%w: %s", ErrUnsignedVerified, entry.Manifest.Identifier)
		}
		res := ins.verifier.Verify(&entry.Manifest, bundle)
		if !res.Valid {
			return "", fmt.Errorf("%w: %s", ErrSignatureRejected, res.Detail)
		}
	}

	staging, err := os.MkdirTemp(ins.pluginsDir, ".staging-*")
	if err != nil {
		return "", fmt.Errorf("install: cannot create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(staging)
		}
	}()

	manifestJSON, err := json.MarshalIndent(&entry.Manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("install: cannot encode manifest: %w", err)
	}
	if err = os.WriteFile(filepath.Join(staging, "plugin.json"), manifestJSON, 0o644); err != nil {
		return "", fmt.Errorf("install: cannot write manifest: %w", err)
	}
	if err = os.WriteFile(filepath.Join(staging, bundleFileName(entry)), bundle, 0o644); err != nil {
		return "", fmt.Errorf("install: cannot write bundle: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}

	// Replace any previous version, then move the verified staging
	// directory into place in one rename.
	if err = os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("install: cannot remove previous version: %w", err)
	}
	if err = os.Rename(staging, target); err != nil {
		return "", fmt.Errorf("install: cannot move plugin into place: %w", err)
	}

	ins.logger.Info("plugin installed",
		slog.String("plugin", entry.Manifest.Identifier),
		slog.String("version", entry.Manifest.Version),
		slog.String("path", target))
	return target, nil
}

// confinedTarget resolves the install path for a plugin and confirms it
// stays strictly beneath the plugins directory after symlink resolution.
func (ins *Installer) confinedTarget(pluginID string) (string, error) {
	if err := os.MkdirAll(ins.pluginsDir, 0o755); err != nil {
		return "", fmt.Errorf("install: cannot create plugins directory: %w", err)
	}
	root, err := filepath.EvalSymlinks(ins.pluginsDir)
	if err != nil {
		return "", fmt.Errorf("install: cannot resolve plugins directory: %w", err)
	}

	target := filepath.Join(root, pluginID)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, pluginID)
	}
	// The identifier must map to a single directory level; a crafted id
	// with separators must not nest or traverse.
	if strings.ContainsRune(rel, os.PathSeparator) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, pluginID)
	}
	return target, nil
}

// Uninstall removes an installed plugin directory, with the same path
// confinement as Install.
func (ins *Installer) Uninstall(pluginID string) error {
	target, err := ins.confinedTarget(pluginID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("uninstall: %w", err)
	}
	ins.logger.Info("plugin uninstalled", slog.String("plugin", pluginID))
	return nil
}

func checkSize(declared, actual int64) error {
	if declared <= 0 {
		return nil // registry omitted the size; nothing to compare
	}
	diff := declared - actual
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > float64(declared)*SizeTolerance {
		return fmt.Errorf("%w: declared %d bytes, got %d", ErrSizeMismatch, declared, actual)
	}
	return nil
}

func bundleFileName(entry *Entry) string {
	if ep := entry.Manifest.EntryPoint; ep != nil && ep.Script != "" {
		return filepath.Base(ep.Script)
	}
	return "plugin.bundle"
}
