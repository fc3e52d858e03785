// Package approval decides whether a plugin may load and manages the
// user-approval lifecycle for permission grants.
package approval

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
	"github.com/sturdy-barnacle/tibok-plugins/internal/signature"
	"github.com/sturdy-barnacle/tibok-plugins/internal/trust"
)

// Decision is the outcome of validating a plugin for loading.
type Decision int

const (
	// DecisionApproved means the loader may instantiate the plugin.
	DecisionApproved Decision = iota

	// DecisionNeedsApproval means the user must grant the required
	// permissions first. Not an error: callers suspend and re-validate
	// after ApprovePermissions.
	DecisionNeedsApproval

	// DecisionDenied means the plugin must not load.
	DecisionDenied
)

// String returns a string representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionApproved:
		return "approved"
	case DecisionNeedsApproval:
		return "needs-approval"
	case DecisionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// DenyReason distinguishes why a plugin was denied.
type DenyReason int

const (
	// DenyNone means the plugin was not denied.
	DenyNone DenyReason = iota

	// DenyScriptElevated means a script plugin declared elevated
	// permissions. This is a hard boundary; no tier or prior approval
	// overrides it.
	DenyScriptElevated

	// DenyVersionIncompatible means the plugin requires a newer host.
	DenyVersionIncompatible

	// DenySignatureInvalid means a verified-tier plugin failed signature
	// verification.
	DenySignatureInvalid
)

// String returns a string representation of the deny reason.
func (r DenyReason) String() string {
	switch r {
	case DenyNone:
		return "none"
	case DenyScriptElevated:
		return "script-elevated-permissions"
	case DenyVersionIncompatible:
		return "version-incompatible"
	case DenySignatureInvalid:
		return "signature-invalid"
	default:
		return "unknown"
	}
}

// Result is the outcome of ValidateForLoading. For DecisionApproved the
// loader constructs a context scoped to Granted; for DecisionNeedsApproval
// Required holds the set to put in front of the user.
type Result struct {
	Decision   Decision
	Tier       trust.Tier
	Granted    permission.Set
	Required   permission.Set
	DenyReason DenyReason

	// Offending lists the elevated permissions behind a script-elevated
	// denial.
	Offending []permission.Permission

	// Detail is a human-readable explanation of denials.
	Detail string
}

// ErrNoPendingRequest is returned when responding to a plugin with no
// pending approval request.
var ErrNoPendingRequest = errors.New("approval: no pending request for plugin")

// Validator is the central policy engine. All mutation paths for one plugin
// identifier go through its single mutex.
type Validator struct {
	mu      sync.Mutex
	pending map[string]*Request

	store       Store
	verifier    *signature.Verifier
	hostVersion string
	logger      *slog.Logger
	now         func() time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithHostVersion sets the host application version used for
// minimum-version gating.
func WithHostVersion(v string) ValidatorOption {
	return func(val *Validator) {
		val.hostVersion = v
	}
}

// WithLogger sets the validator's logger.
func WithLogger(l *slog.Logger) ValidatorOption {
	return func(val *Validator) {
		val.logger = l
	}
}

// WithValidatorClock replaces the time source used for record timestamps.
func WithValidatorClock(now func() time.Time) ValidatorOption {
	return func(val *Validator) {
		val.now = now
	}
}

// NewValidator creates a validator over the given store and verifier.
func NewValidator(store Store, verifier *signature.Verifier, opts ...ValidatorOption) *Validator {
	v := &Validator{
		pending:  make(map[string]*Request),
		store:    store,
		verifier: verifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateForLoading decides whether a plugin may load. bundle holds the
// plugin's content bytes for signature verification; it may be nil for
// tiers that never verify.
func (v *Validator) ValidateForLoading(m *manifest.Manifest, prov trust.Provenance, bundle []byte) Result {
	tier, downgraded := trust.Resolve(m, prov)
	if downgraded {
		v.logger.Warn("declared trust tier not honored",
			slog.String("plugin", m.Identifier),
			slog.String("declared", m.DeclaredTier),
			slog.String("resolved", tier.String()))
	}
	if unknown := m.UnknownPermissions(); len(unknown) > 0 {
		v.logger.Warn("unknown permissions dropped",
			slog.String("plugin", m.Identifier),
			slog.String("permissions", strings.Join(unknown, ",")))
	}

	declared := m.Permissions()

	// Script plugins are categorically barred from elevated capability.
	// No tier and no prior approval overrides this.
	if m.Type == manifest.TypeScript && declared.HasElevated() {
		offending := declared.Elevated()
		return Result{
			Decision:   DecisionDenied,
			Tier:       tier,
			DenyReason: DenyScriptElevated,
			Offending:  offending,
			Detail: fmt.Sprintf("script plugin %s requested elevated permissions: %s",
				m.Identifier, joinPermissions(offending)),
		}
	}

	if v.hostVersion != "" && m.MinimumTibokVersion != "" &&
		manifest.CompareVersions(m.MinimumTibokVersion, v.hostVersion) > 0 {
		return Result{
			Decision:   DecisionDenied,
			Tier:       tier,
			DenyReason: DenyVersionIncompatible,
			Detail: fmt.Sprintf("plugin %s requires Tibok %s or newer (running %s)",
				m.Identifier, m.MinimumTibokVersion, v.hostVersion),
		}
	}

	switch tier {
	case trust.TierOfficial:
		return Result{Decision: DecisionApproved, Tier: tier, Granted: declared}

	case trust.TierVerified:
		res := v.verifier.Verify(m, bundle)
		if !res.Valid {
			return Result{
				Decision:   DecisionDenied,
				Tier:       tier,
				DenyReason: DenySignatureInvalid,
				Detail:     res.Detail,
			}
		}
		if !declared.HasElevated() {
			// Verified and safe-only skips the prompt.
			return Result{Decision: DecisionApproved, Tier: tier, Granted: declared}
		}
		// Verified but elevated: falls through to stored approvals.
	}

	return v.consultStore(m, tier, declared)
}

func (v *Validator) consultStore(m *manifest.Manifest, tier trust.Tier, declared permission.Set) Result {
	rec, err := v.store.Get(m.Identifier)
	if err != nil {
		v.logger.Error("approval store read failed",
			slog.String("plugin", m.Identifier), slog.Any("error", err))
	}
	// A stored grant covering the declared set approves silently. The
	// record may be wider than the current declaration; the historical
	// grant stands until the user revokes or re-approves.
	if rec != nil && rec.Permissions.IsSupersetOf(declared) {
		return Result{Decision: DecisionApproved, Tier: tier, Granted: rec.Permissions}
	}
	return Result{Decision: DecisionNeedsApproval, Tier: tier, Required: declared}
}

// RequestApproval registers a pending approval request for a manifest. If a
// request for the same plugin is already pending, that request is returned
// and created is false; callbacks of the second caller are discarded.
func (v *Validator) RequestApproval(m *manifest.Manifest, required permission.Set, onApprove, onDeny func()) (req *Request, created bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if existing, ok := v.pending[m.Identifier]; ok {
		return existing, false
	}
	r := newRequest(m, required, onApprove, onDeny)
	v.pending[m.Identifier] = r
	return r, true
}

// PendingRequests returns the currently queued approval requests.
func (v *Validator) PendingRequests() []*Request {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*Request, 0, len(v.pending))
	for _, r := range v.pending {
		out = append(out, r)
	}
	return out
}

// PendingRequest returns the pending request for a plugin, if any.
func (v *Validator) PendingRequest(pluginID string) (*Request, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.pending[pluginID]
	return r, ok
}

// ApprovePermissions persists the user's grant, fully replacing any prior
// record, and resolves a pending request for the plugin if one exists.
func (v *Validator) ApprovePermissions(pluginID string, set permission.Set) error {
	v.mu.Lock()
	req := v.pending[pluginID]
	delete(v.pending, pluginID)
	v.mu.Unlock()

	err := v.store.Put(&Record{
		PluginID:    pluginID,
		Permissions: set,
		GrantedAt:   v.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to persist approval for %s: %w", pluginID, err)
	}

	v.logger.Info("permissions approved",
		slog.String("plugin", pluginID),
		slog.String("permissions", set.String()))

	if req != nil && req.onApprove != nil {
		req.onApprove()
	}
	return nil
}

// DenyRequest resolves a pending request without persisting anything.
func (v *Validator) DenyRequest(pluginID string) error {
	v.mu.Lock()
	req, ok := v.pending[pluginID]
	delete(v.pending, pluginID)
	v.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingRequest, pluginID)
	}
	v.logger.Info("permission request denied", slog.String("plugin", pluginID))
	if req.onDeny != nil {
		req.onDeny()
	}
	return nil
}

// CancelRequest drops a pending request without invoking either callback.
func (v *Validator) CancelRequest(pluginID string) {
	v.mu.Lock()
	delete(v.pending, pluginID)
	v.mu.Unlock()
}

// RevokeApproval deletes the stored record; subsequent loads require
// re-approval.
func (v *Validator) RevokeApproval(pluginID string) error {
	if err := v.store.Delete(pluginID); err != nil {
		return fmt.Errorf("failed to revoke approval for %s: %w", pluginID, err)
	}
	v.logger.Info("approval revoked", slog.String("plugin", pluginID))
	return nil
}

// HasPermission reports whether the stored grant for a plugin includes the
// permission. Used at runtime to gate individual capability calls.
func (v *Validator) HasPermission(p permission.Permission, pluginID string) bool {
	rec, err := v.store.Get(pluginID)
	if err != nil || rec == nil {
		return false
	}
	return rec.Permissions.Contains(p)
}

func joinPermissions(perms []permission.Permission) string {
	parts := make([]string, len(perms))
	for i, p := range perms {
		parts[i] = string(p)
	}
	return strings.Join(parts, ", ")
}
