package approval

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
)

func TestGormStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.db")
	store, err := OpenGormStore(path)
	if err != nil {
		t.Fatalf("OpenGormStore: %v", err)
	}

	set := permission.NewSet(permission.PermSlashCommands, permission.PermNetworkAccess)
	rec := &Record{
		PluginID:    "com.example.rt",
		Permissions: set,
		GrantedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get("com.example.rt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !got.Permissions.Equal(set) {
		t.Errorf("Get = %+v, want permissions %v", got, set)
	}
}

func TestGormStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.db")
	store, err := OpenGormStore(path)
	if err != nil {
		t.Fatal(err)
	}
	set := permission.NewSet(permission.PermGitStatus)
	if err := store.Put(&Record{PluginID: "com.example.durable", Permissions: set, GrantedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenGormStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get("com.example.durable")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || !got.Permissions.Equal(set) {
		t.Error("record did not survive reopen")
	}
}

func TestGormStoreOverwriteAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.db")
	store, err := OpenGormStore(path)
	if err != nil {
		t.Fatal(err)
	}

	first := permission.NewSet(permission.PermSlashCommands, permission.PermNetworkAccess)
	second := permission.NewSet(permission.PermSlashCommands)
	if err := store.Put(&Record{PluginID: "com.example.ow", Permissions: first, GrantedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(&Record{PluginID: "com.example.ow", Permissions: second, GrantedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get("com.example.ow")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Permissions.Equal(second) {
		t.Errorf("overwrite: got %v, want %v", got.Permissions, second)
	}

	if err := store.Delete("com.example.ow"); err != nil {
		t.Fatal(err)
	}
	got, err = store.Get("com.example.ow")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("record still present after Delete")
	}

	// Deleting a missing record is not an error.
	if err := store.Delete("com.example.ow"); err != nil {
		t.Errorf("Delete of missing record: %v", err)
	}
}

func TestGormStoreList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.db")
	store, err := OpenGormStore(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"com.a.p", "com.b.q"} {
		if err := store.Put(&Record{PluginID: id, Permissions: permission.NewSet(permission.PermPreview), GrantedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("List = %d records, want 2", len(recs))
	}
}
