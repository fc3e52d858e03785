// Package permission defines the closed catalog of capabilities a Tibok
// plugin can request, together with their risk classification.
package permission

import "sort"

// Permission identifies a single capability a plugin may request.
type Permission string

// The full permission catalog. The set is closed: unknown identifiers in a
// manifest never map to a Permission and never grant capability.
const (
	// PermSlashCommands allows registering slash commands in the editor.
	PermSlashCommands Permission = "slash-commands"

	// PermEditorContent allows reading and modifying the active document.
	PermEditorContent Permission = "editor-content"

	// PermFrontmatter allows reading and modifying document frontmatter.
	PermFrontmatter Permission = "frontmatter"

	// PermPreview allows contributing to the rendered preview.
	PermPreview Permission = "preview"

	// PermNotifications allows showing user notifications.
	PermNotifications Permission = "notifications"

	// PermThemes allows registering editor and preview themes.
	PermThemes Permission = "themes"

	// PermWorkspaceAccess allows listing and reading workspace files.
	PermWorkspaceAccess Permission = "workspace-access"

	// PermClipboardAccess allows reading and writing the clipboard.
	PermClipboardAccess Permission = "clipboard-access"

	// PermGitStatus allows reading repository status and history.
	PermGitStatus Permission = "git-status"

	// PermNetworkAccess allows making network requests.
	PermNetworkAccess Permission = "network-access"

	// PermFileSystemAccess allows reading and writing files outside the
	// workspace.
	PermFileSystemAccess Permission = "file-system-access"

	// PermExecuteProcess allows spawning external processes.
	PermExecuteProcess Permission = "execute-process"

	// PermGitWrite allows creating commits and pushing to remotes.
	PermGitWrite Permission = "git-write"
)

// RiskLevel classifies how dangerous a permission is.
type RiskLevel int

const (
	// RiskSafe permissions are script-plugin compatible and auto-grantable.
	RiskSafe RiskLevel = iota

	// RiskModerate permissions touch user data beyond the open document.
	RiskModerate

	// RiskHigh permissions can modify the system outside the editor.
	RiskHigh
)

// String returns a string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "safe"
	case RiskModerate:
		return "moderate"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Info provides display metadata for a permission.
type Info struct {
	// Name is the permission identifier.
	Name Permission

	// DisplayName is a human-readable name.
	DisplayName string

	// Description explains what the permission allows.
	Description string

	// Icon is the symbol name shown next to the permission in approval UI.
	Icon string

	// Risk classifies the permission.
	Risk RiskLevel
}

// catalog holds metadata for every known permission.
var catalog = map[Permission]Info{
	PermSlashCommands: {
		Name:        PermSlashCommands,
		DisplayName: "Slash Commands",
		Description: "Register custom slash commands",
		Icon:        "text.cursor",
		Risk:        RiskSafe,
	},
	PermEditorContent: {
		Name:        PermEditorContent,
		DisplayName: "Editor Content",
		Description: "Read and modify the active document",
		Icon:        "doc.text",
		Risk:        RiskSafe,
	},
	PermFrontmatter: {
		Name:        PermFrontmatter,
		DisplayName: "Frontmatter",
		Description: "Read and modify document frontmatter",
		Icon:        "list.bullet.rectangle",
		Risk:        RiskSafe,
	},
	PermPreview: {
		Name:        PermPreview,
		DisplayName: "Preview",
		Description: "Contribute to the rendered preview",
		Icon:        "eye",
		Risk:        RiskSafe,
	},
	PermNotifications: {
		Name:        PermNotifications,
		DisplayName: "Notifications",
		Description: "Show user notifications",
		Icon:        "bell",
		Risk:        RiskSafe,
	},
	PermThemes: {
		Name:        PermThemes,
		DisplayName: "Themes",
		Description: "Register editor and preview themes",
		Icon:        "paintbrush",
		Risk:        RiskSafe,
	},
	PermWorkspaceAccess: {
		Name:        PermWorkspaceAccess,
		DisplayName: "Workspace Access",
		Description: "List and read files in the workspace",
		Icon:        "folder",
		Risk:        RiskModerate,
	},
	PermClipboardAccess: {
		Name:        PermClipboardAccess,
		DisplayName: "Clipboard Access",
		Description: "Read and write the clipboard",
		Icon:        "doc.on.clipboard",
		Risk:        RiskModerate,
	},
	PermGitStatus: {
		Name:        PermGitStatus,
		DisplayName: "Git Status",
		Description: "Read repository status and history",
		Icon:        "arrow.triangle.branch",
		Risk:        RiskModerate,
	},
	PermNetworkAccess: {
		Name:        PermNetworkAccess,
		DisplayName: "Network Access",
		Description: "Make network requests",
		Icon:        "network",
		Risk:        RiskModerate,
	},
	PermFileSystemAccess: {
		Name:        PermFileSystemAccess,
		DisplayName: "File System Access",
		Description: "Read and write files outside the workspace",
		Icon:        "externaldrive",
		Risk:        RiskHigh,
	},
	PermExecuteProcess: {
		Name:        PermExecuteProcess,
		DisplayName: "Execute Process",
		Description: "Spawn external processes",
		Icon:        "terminal",
		Risk:        RiskHigh,
	},
	PermGitWrite: {
		Name:        PermGitWrite,
		DisplayName: "Git Write",
		Description: "Create commits and push to remotes",
		Icon:        "arrow.up.circle",
		Risk:        RiskHigh,
	},
}

// GetInfo returns metadata for a permission.
func GetInfo(p Permission) (Info, bool) {
	info, ok := catalog[p]
	return info, ok
}

// Parse maps a raw manifest string to a Permission. Unknown strings report
// ok=false; they are dropped by callers, never treated as a parse error.
func Parse(raw string) (Permission, bool) {
	p := Permission(raw)
	_, ok := catalog[p]
	return p, ok
}

// IsValid returns true if the permission is in the catalog.
func (p Permission) IsValid() bool {
	_, ok := catalog[p]
	return ok
}

// Risk returns the permission's risk level. Unknown permissions report
// RiskHigh so a stale identifier can never be mistaken for safe.
func (p Permission) Risk() RiskLevel {
	if info, ok := catalog[p]; ok {
		return info.Risk
	}
	return RiskHigh
}

// IsSafe returns true if the permission is compatible with script plugins.
func (p Permission) IsSafe() bool {
	return p.IsValid() && p.Risk() == RiskSafe
}

// IsElevated returns true if the permission requires user approval.
// IsSafe and IsElevated are mutually exclusive for catalog permissions.
func (p Permission) IsElevated() bool {
	return p.IsValid() && p.Risk() != RiskSafe
}

// DisplayName returns the human-readable name, falling back to the raw
// identifier for unknown permissions.
func (p Permission) DisplayName() string {
	if info, ok := catalog[p]; ok {
		return info.DisplayName
	}
	return string(p)
}

// All returns every catalog permission, sorted by identifier.
func All() []Permission {
	perms := make([]Permission, 0, len(catalog))
	for p := range catalog {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// SafePermissions returns the catalog's safe subset, sorted.
func SafePermissions() []Permission {
	var perms []Permission
	for p, info := range catalog {
		if info.Risk == RiskSafe {
			perms = append(perms, p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// ElevatedPermissions returns the catalog's moderate and high subset, sorted.
func ElevatedPermissions() []Permission {
	var perms []Permission
	for p, info := range catalog {
		if info.Risk != RiskSafe {
			perms = append(perms, p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
