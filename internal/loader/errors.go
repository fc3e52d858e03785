package loader

import (
	"errors"
	"fmt"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

// Loader errors.
var (
	// ErrNotApproved is returned when instantiation is attempted for a
	// plugin whose validation did not end in approval.
	ErrNotApproved = errors.New("plugin is not approved for loading")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrNoFactory is returned when no factory is registered for a native
	// plugin identifier.
	ErrNoFactory = errors.New("no factory registered for plugin")

	// ErrFactoryExists is returned when registering a duplicate factory.
	ErrFactoryExists = errors.New("factory already registered for plugin")

	// ErrNoEntryPoint is returned when a script plugin names no script.
	ErrNoEntryPoint = errors.New("plugin has no script entry point")

	// ErrAlreadyActive is returned when activating an active host.
	ErrAlreadyActive = errors.New("plugin is already active")

	// ErrNotActive is returned when deactivating an inactive host.
	ErrNotActive = errors.New("plugin is not active")
)

// CapabilityError reports a capability check failure at a plugin API call.
type CapabilityError struct {
	PluginID   string
	Permission permission.Permission
	Operation  string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("plugin %s: permission %q required for %s",
		e.PluginID, e.Permission, e.Operation)
}

func newCapabilityError(pluginID string, p permission.Permission, operation string) *CapabilityError {
	return &CapabilityError{PluginID: pluginID, Permission: p, Operation: operation}
}
