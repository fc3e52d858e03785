package registry

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CatalogTTL is how long a fetched catalog stays fresh in memory.
const CatalogTTL = time.Hour

// RegistryProtocolTag versions the catalog signed-message format.
const RegistryProtocolTag = "tibok-registry-v1"

const catalogCacheKey = "catalog"

// Client errors.
var (
	ErrInvalidCatalogSignature = errors.New("registry: catalog signature is invalid")
	ErrUnknownRegistryKey      = errors.New("registry: catalog names an untrusted signing key")
	ErrPluginNotFound          = errors.New("registry: plugin not found in catalog")
)

// Client fetches and caches the plugin catalog.
//
// If the catalog carries a registry-level signature it must verify before
// any entry is exposed; an invalid signature fails the whole fetch closed.
type Client struct {
	url     string
	fetcher Fetcher
	cache   *gocache.Cache
	keys    map[string]ed25519.PublicKey
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRegistryKeys sets the trusted catalog-signing keys.
func WithRegistryKeys(keys map[string]ed25519.PublicKey) ClientOption {
	return func(c *Client) {
		c.keys = keys
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a registry client for the given catalog URL.
func NewClient(url string, fetcher Fetcher, opts ...ClientOption) *Client {
	c := &Client{
		url:     url,
		fetcher: fetcher,
		cache:   gocache.New(CatalogTTL, 10*time.Minute),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the catalog, from cache when fresh. force bypasses the
// cache; it never silently serves stale data.
func (c *Client) Fetch(ctx context.Context, force bool) (*Catalog, error) {
	if !force {
		if cached, ok := c.cache.Get(catalogCacheKey); ok {
			return cached.(*Catalog), nil
		}
	}

	raw, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		return nil, err
	}

	catalog, err := c.parseAndVerify(raw)
	if err != nil {
		return nil, err
	}

	c.cache.Set(catalogCacheKey, catalog, CatalogTTL)
	c.logger.Debug("catalog refreshed", slog.Int("plugins", len(catalog.Plugins)))
	return catalog, nil
}

// parseAndVerify decodes the catalog and, when a registry signature is
// present, verifies it over the raw document bytes with the signature field
// stripped. Verifying raw bytes avoids any re-marshaling canonicalization.
func (c *Client) parseAndVerify(raw []byte) (*Catalog, error) {
	var catalog Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("registry: malformed catalog: %w", err)
	}

	if !gjson.GetBytes(raw, "registry_signature").Exists() {
		return &catalog, nil
	}

	sig := catalog.Signature
	if sig == nil {
		return nil, fmt.Errorf("%w: signature field is not an object", ErrInvalidCatalogSignature)
	}
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalogSignature, err)
	}

	stripped, err := sjson.DeleteBytes(raw, "registry_signature")
	if err != nil {
		return nil, fmt.Errorf("%w: cannot isolate signed bytes", ErrInvalidCatalogSignature)
	}
	sum := sha256.Sum256(stripped)
	if hex.EncodeToString(sum[:]) != sig.ContentHash {
		return nil, fmt.Errorf("%w: catalog bytes do not match signed hash", ErrInvalidCatalogSignature)
	}

	key, ok := c.keys[sig.PublicKeyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegistryKey, sig.PublicKeyID)
	}
	sigBytes, err := sig.SignatureBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable signature", ErrInvalidCatalogSignature)
	}
	message := []byte(RegistryProtocolTag + ":" + sig.ContentHash)
	if !ed25519.Verify(key, message, sigBytes) {
		return nil, fmt.Errorf("%w: signature does not verify against key %q",
			ErrInvalidCatalogSignature, sig.PublicKeyID)
	}

	return &catalog, nil
}

// Search returns catalog entries matching a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]Entry, error) {
	catalog, err := c.Fetch(ctx, false)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range catalog.Plugins {
		if e.Matches(query) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Get returns the catalog entry for a plugin identifier.
func (c *Client) Get(ctx context.Context, pluginID string) (*Entry, error) {
	catalog, err := c.Fetch(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range catalog.Plugins {
		if catalog.Plugins[i].Manifest.Identifier == pluginID {
			return &catalog.Plugins[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginID)
}

// Invalidate drops the cached catalog.
func (c *Client) Invalidate() {
	c.cache.Delete(catalogCacheKey)
}
