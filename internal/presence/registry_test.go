package presence

import (
	"reflect"
	"testing"
)

// fakeHandle satisfies Handle for registry tests.
type fakeHandle struct {
	key string
}

func (f *fakeHandle) Key() string { return f.key }
func (f *fakeHandle) WriteMessage(data []byte) error { return nil }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	h := &fakeHandle{key: "conn-1"}

	if wasOnline := r.Register("alice", h); wasOnline {
		t.Error("expected wasOnline=false for first registration")
	}

	got, ok := r.Lookup("alice")
	if !ok {
		t.Fatal("expected alice to be online")
	}
	if got != h {
		t.Errorf("expected handle conn-1, got %v", got.Key())
	}
}

func TestLookupOffline(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Lookup("nobody"); ok {
		t.Error("expected absent for never-registered user")
	}
}

func TestLastWriteWins(t *testing.T) {
	r := NewRegistry()
	h1 := &fakeHandle{key: "conn-1"}
	h2 := &fakeHandle{key: "conn-2"}

	r.Register("alice", h1)
	if wasOnline := r.Register("alice", h2); !wasOnline {
		t.Error("expected wasOnline=true for re-registration")
	}

	got, ok := r.Lookup("alice")
	if !ok || got.Key() != "conn-2" {
		t.Fatalf("expected conn-2 after re-registration, got %v ok=%v", got, ok)
	}
	if r.Count() != 1 {
		t.Errorf("expected one online user, got %d", r.Count())
	}
}

func TestRemoveByHandle(t *testing.T) {
	r := NewRegistry()
	h := &fakeHandle{key: "conn-1"}

	r.Register("alice", h)
	if userID := r.Remove(h); userID != "alice" {
		t.Errorf("expected removed userID alice, got %q", userID)
	}
	if _, ok := r.Lookup("alice"); ok {
		t.Error("expected alice offline after remove")
	}
}

// A stale disconnect must not evict a fresher registration: removal is keyed
// by handle identity, not by user ID.
func TestStaleRemoveKeepsNewerHandle(t *testing.T) {
	r := NewRegistry()
	hOld := &fakeHandle{key: "conn-old"}
	hNew := &fakeHandle{key: "conn-new"}

	r.Register("alice", hOld)
	r.Register("alice", hNew) // reconnect before old conn's cleanup fires

	if userID := r.Remove(hOld); userID != "" {
		t.Errorf("stale remove should report no user going offline, got %q", userID)
	}

	got, ok := r.Lookup("alice")
	if !ok || got.Key() != "conn-new" {
		t.Fatalf("expected conn-new to survive stale remove, got %v ok=%v", got, ok)
	}
}

func TestRemoveUnknownHandle(t *testing.T) {
	r := NewRegistry()

	if userID := r.Remove(&fakeHandle{key: "ghost"}); userID != "" {
		t.Errorf("expected no-op for unknown handle, got %q", userID)
	}
}

func TestSnapshotSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("carol", &fakeHandle{key: "c3"})
	r.Register("alice", &fakeHandle{key: "c1"})
	r.Register("bob", &fakeHandle{key: "c2"})

	want := []string{"alice", "bob", "carol"}
	if got := r.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected snapshot %v, got %v", want, got)
	}

	r.Remove(&fakeHandle{key: "c2"})
	want = []string{"alice", "carol"}
	if got := r.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected snapshot %v after remove, got %v", want, got)
	}
}

func TestHandlesMatchesCount(t *testing.T) {
	r := NewRegistry()
	r.Register("a", &fakeHandle{key: "c1"})
	r.Register("b", &fakeHandle{key: "c2"})
	r.Register("a", &fakeHandle{key: "c3"}) // reconnect

	if len(r.Handles()) != 2 {
		t.Errorf("expected 2 handles, got %d", len(r.Handles()))
	}
	if r.Count() != 2 {
		t.Errorf("expected count 2, got %d", r.Count())
	}
}
