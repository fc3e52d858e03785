package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/sturdy-barnacle/tibok-plugins/internal/approval"
	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
)

// DefaultScriptTimeout bounds each script execution (load and lifecycle
// hooks). A plugin stuck in a loop cannot wedge the host.
const DefaultScriptTimeout = 5 * time.Second

// Host manages one plugin's runtime and lifecycle. It is constructed only
// from an approved validation result; the host performs no policy checks
// beyond the per-call capability gate in Context.
type Host struct {
	mu sync.RWMutex

	manifest *manifest.Manifest
	ctx      *Context
	registry *Registry

	state State
	err   error

	// Script runtime (script plugins only)
	L *lua.LState

	// Native instance (native plugins only)
	plugin Plugin

	scriptTimeout time.Duration
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithScriptTimeout overrides the per-execution script timeout.
func WithScriptTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.scriptTimeout = d
	}
}

// NewHost creates a host for an approved plugin. result must come from the
// approval validator for this manifest.
func NewHost(m *manifest.Manifest, result approval.Result, ctx *Context, registry *Registry, opts ...HostOption) (*Host, error) {
	if m == nil {
		return nil, ErrNilManifest
	}
	if result.Decision != approval.DecisionApproved {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotApproved, m.Identifier, result.Decision)
	}
	h := &Host{
		manifest:      m,
		ctx:           ctx,
		registry:      registry,
		state:         StateUnloaded,
		scriptTimeout: DefaultScriptTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Manifest returns the hosted plugin's manifest.
func (h *Host) Manifest() *manifest.Manifest {
	return h.manifest
}

// State returns the current lifecycle state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the error that put the host into StateError, if any.
func (h *Host) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Load loads the plugin's code without activating it.
func (h *Host) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateUnloaded {
		return fmt.Errorf("plugin %s: cannot load from state %s", h.manifest.Identifier, h.state)
	}

	var err error
	switch h.manifest.Type {
	case manifest.TypeNative:
		err = h.loadNative()
	case manifest.TypeScript:
		err = h.loadScript()
	default:
		err = fmt.Errorf("plugin %s: unsupported type %q", h.manifest.Identifier, h.manifest.Type)
	}
	if err != nil {
		h.state = StateError
		h.err = err
		return err
	}
	h.state = StateLoaded
	return nil
}

func (h *Host) loadNative() error {
	factory, ok := h.registry.Lookup(h.manifest.Identifier)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoFactory, h.manifest.Identifier)
	}
	plugin, err := factory()
	if err != nil {
		return fmt.Errorf("plugin %s: factory failed: %w", h.manifest.Identifier, err)
	}
	h.plugin = plugin
	return nil
}

func (h *Host) loadScript() error {
	ep := h.manifest.EntryPoint
	if ep == nil || ep.Script == "" {
		return fmt.Errorf("%w: %s", ErrNoEntryPoint, h.manifest.Identifier)
	}

	L := newSandboxedState(h.ctx)
	script := filepath.Join(h.manifest.Path(), filepath.Base(ep.Script))
	err := h.boundedScript(L, func() error { return L.DoFile(script) })
	if err != nil {
		L.Close()
		return fmt.Errorf("plugin %s: script failed: %w", h.manifest.Identifier, err)
	}
	h.L = L
	return nil
}

// boundedScript runs fn with the script timeout applied to the Lua state.
func (h *Host) boundedScript(L *lua.LState, fn func() error) error {
	if h.scriptTimeout <= 0 {
		return fn()
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.scriptTimeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()
	return fn()
}

// Activate starts the plugin.
func (h *Host) Activate() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateActive:
		return fmt.Errorf("plugin %s: %w", h.manifest.Identifier, ErrAlreadyActive)
	case StateLoaded:
	default:
		return fmt.Errorf("plugin %s: cannot activate from state %s", h.manifest.Identifier, h.state)
	}

	var err error
	if h.manifest.Type == manifest.TypeNative {
		err = h.plugin.Activate(h.ctx)
	} else {
		err = h.callScript("on_activate")
	}
	if err != nil {
		h.state = StateError
		h.err = err
		return err
	}
	h.state = StateActive
	return nil
}

// Deactivate stops the plugin but keeps its code loaded.
func (h *Host) Deactivate() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateActive {
		return fmt.Errorf("plugin %s: %w", h.manifest.Identifier, ErrNotActive)
	}

	var err error
	if h.manifest.Type == manifest.TypeNative {
		err = h.plugin.Deactivate()
	} else {
		err = h.callScript("on_deactivate")
	}
	if err != nil {
		h.state = StateError
		h.err = err
		return err
	}
	h.state = StateLoaded
	return nil
}

// Close releases the plugin's runtime. The host is unusable afterwards.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.L != nil {
		h.L.Close()
		h.L = nil
	}
	h.plugin = nil
	h.state = StateUnloaded
}

// callScript invokes a global Lua function if the script defines it.
func (h *Host) callScript(name string) error {
	fn := h.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	return h.boundedScript(h.L, func() error {
		return h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	})
}
