package permission

import (
	"reflect"
	"testing"
)

func TestNewSetDeduplicates(t *testing.T) {
	s := NewSet(PermPreview, PermPreview, PermGitWrite)
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestNewSetDropsInvalid(t *testing.T) {
	s := NewSet(PermPreview, Permission("bogus"))
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if s.Contains(Permission("bogus")) {
		t.Error("set contains invalid permission")
	}
}

func TestParseAll(t *testing.T) {
	s, unknown := ParseAll([]string{"slash-commands", "network-access", "warp-drive", "slash-commands"})
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if !reflect.DeepEqual(unknown, []string{"warp-drive"}) {
		t.Errorf("unknown = %v, want [warp-drive]", unknown)
	}
}

func TestElevatedAndSafeViews(t *testing.T) {
	s := NewSet(PermNetworkAccess, PermSlashCommands, PermExecuteProcess, PermPreview)

	wantElevated := []Permission{PermExecuteProcess, PermNetworkAccess}
	if got := s.Elevated(); !reflect.DeepEqual(got, wantElevated) {
		t.Errorf("Elevated = %v, want %v", got, wantElevated)
	}

	wantSafe := []Permission{PermPreview, PermSlashCommands}
	if got := s.Safe(); !reflect.DeepEqual(got, wantSafe) {
		t.Errorf("Safe = %v, want %v", got, wantSafe)
	}
}

func TestScriptCompatibleIffNoElevated(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		want bool
	}{
		{"empty", NewSet(), true},
		{"safe only", NewSet(PermSlashCommands, PermThemes), true},
		{"one moderate", NewSet(PermSlashCommands, PermClipboardAccess), false},
		{"one high", NewSet(PermExecuteProcess), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.IsScriptCompatible(); got != tt.want {
				t.Errorf("IsScriptCompatible = %v, want %v", got, tt.want)
			}
			if got := tt.set.HasElevated(); got == tt.want {
				t.Errorf("HasElevated = %v, want %v", got, !tt.want)
			}
		})
	}
}

func TestMaxRisk(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		want RiskLevel
	}{
		{"empty", NewSet(), RiskSafe},
		{"safe", NewSet(PermPreview), RiskSafe},
		{"moderate", NewSet(PermPreview, PermGitStatus), RiskModerate},
		{"high", NewSet(PermGitStatus, PermGitWrite), RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.MaxRisk(); got != tt.want {
				t.Errorf("MaxRisk = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSupersetOf(t *testing.T) {
	big := NewSet(PermSlashCommands, PermNetworkAccess, PermGitStatus)
	small := NewSet(PermSlashCommands, PermGitStatus)

	if !big.IsSupersetOf(small) {
		t.Error("IsSupersetOf = false for proper superset")
	}
	if small.IsSupersetOf(big) {
		t.Error("IsSupersetOf = true for proper subset")
	}
	if !big.IsSupersetOf(big) {
		t.Error("IsSupersetOf = false for itself")
	}
	if !big.IsSupersetOf(NewSet()) {
		t.Error("IsSupersetOf = false for empty set")
	}
}

func TestEqual(t *testing.T) {
	a := NewSet(PermPreview, PermGitWrite)
	b := NewSet(PermGitWrite, PermPreview)
	if !a.Equal(b) {
		t.Error("Equal = false for same membership")
	}
	if a.Equal(NewSet(PermPreview)) {
		t.Error("Equal = true for different membership")
	}
}

func TestSetString(t *testing.T) {
	s := NewSet(PermGitWrite, PermPreview)
	if got := s.String(); got != "git-write,preview" {
		t.Errorf("String = %q, want %q", got, "git-write,preview")
	}
}
