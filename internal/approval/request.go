package approval

import (
	"github.com/google/uuid"

	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

// Request is an ephemeral, in-memory approval request awaiting a user
// decision. It is never persisted; only the resulting Record is.
type Request struct {
	// ID uniquely identifies this request instance.
	ID string

	// Manifest is the plugin asking for approval.
	Manifest *manifest.Manifest

	// Required is the permission set the user is being asked to grant.
	Required permission.Set

	onApprove func()
	onDeny    func()
}

func newRequest(m *manifest.Manifest, required permission.Set, onApprove, onDeny func()) *Request {
	return &Request{
		ID:        uuid.NewString(),
		Manifest:  m,
		Required:  required,
		onApprove: onApprove,
		onDeny:    onDeny,
	}
}
