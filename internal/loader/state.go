package loader

// State represents the lifecycle state of a hosted plugin.
type State int

// Plugin states.
const (
	// StateUnloaded - plugin code is not loaded.
	StateUnloaded State = iota

	// StateLoaded - plugin code is loaded but not activated.
	StateLoaded

	// StateActive - plugin is active and may receive calls.
	StateActive

	// StateError - plugin encountered an error and is unusable.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the plugin can receive calls.
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateActive
}
