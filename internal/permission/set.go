package permission

import (
	"sort"
	"strings"
)

// Set is an immutable, deduplicated collection of permissions.
// The zero value is the empty set.
type Set struct {
	members map[Permission]struct{}
}

// NewSet creates a set from catalog permissions. Invalid permissions are
// ignored.
func NewSet(perms ...Permission) Set {
	members := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		if p.IsValid() {
			members[p] = struct{}{}
		}
	}
	return Set{members: members}
}

// ParseAll maps raw manifest strings to a Set. Unknown strings never grant
// capability and never fail the parse; they are returned separately so
// callers can surface a warning.
func ParseAll(raw []string) (Set, []string) {
	members := make(map[Permission]struct{}, len(raw))
	var unknown []string
	for _, s := range raw {
		if p, ok := Parse(s); ok {
			members[p] = struct{}{}
		} else {
			unknown = append(unknown, s)
		}
	}
	return Set{members: members}, unknown
}

// Contains reports membership.
func (s Set) Contains(p Permission) bool {
	_, ok := s.members[p]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.members)
}

// IsEmpty returns true if the set has no members.
func (s Set) IsEmpty() bool {
	return len(s.members) == 0
}

// Members returns the permissions sorted by identifier.
func (s Set) Members() []Permission {
	perms := make([]Permission, 0, len(s.members))
	for p := range s.members {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Strings returns the sorted member identifiers as raw strings.
func (s Set) Strings() []string {
	members := s.Members()
	out := make([]string, len(members))
	for i, p := range members {
		out[i] = string(p)
	}
	return out
}

// Elevated returns the sorted subset requiring user approval.
func (s Set) Elevated() []Permission {
	var perms []Permission
	for p := range s.members {
		if p.IsElevated() {
			perms = append(perms, p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Safe returns the sorted script-compatible subset.
func (s Set) Safe() []Permission {
	var perms []Permission
	for p := range s.members {
		if p.IsSafe() {
			perms = append(perms, p)
		}
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// HasElevated returns true if any member requires user approval.
func (s Set) HasElevated() bool {
	for p := range s.members {
		if p.IsElevated() {
			return true
		}
	}
	return false
}

// IsScriptCompatible returns true if every member is safe. The empty set is
// script compatible.
func (s Set) IsScriptCompatible() bool {
	return !s.HasElevated()
}

// MaxRisk returns the highest risk level among members. The empty set
// reports RiskSafe.
func (s Set) MaxRisk() RiskLevel {
	max := RiskSafe
	for p := range s.members {
		if r := p.Risk(); r > max {
			max = r
		}
	}
	return max
}

// IsSupersetOf returns true if every member of other is in s.
func (s Set) IsSupersetOf(other Set) bool {
	for p := range other.members {
		if !s.Contains(p) {
			return false
		}
	}
	return true
}

// Equal returns true if both sets have identical membership.
func (s Set) Equal(other Set) bool {
	return s.Len() == other.Len() && s.IsSupersetOf(other)
}

// String returns a comma-separated list of sorted member identifiers.
func (s Set) String() string {
	return strings.Join(s.Strings(), ",")
}
