package session

import (
	"testing"
	"time"
)

func TestCreateAndTouch(t *testing.T) {
	r := NewRegistry()
	if r.Has("abc") {
		t.Fatal("empty registry should not have abc")
	}

	m := r.Create("abc", "/tmp/sessions/abc")
	if m.CreatedAt.IsZero() || m.LastActivity.IsZero() {
		t.Fatal("timestamps not set on create")
	}
	if !r.Has("abc") {
		t.Fatal("registry should have abc after create")
	}

	// Backdate, then touch should refresh.
	r.mu.Lock()
	r.sessions["abc"].LastActivity = time.Now().Add(-time.Hour)
	r.mu.Unlock()

	r.Touch("abc")
	got, _ := r.Get("abc")
	if time.Since(got.LastActivity) > time.Minute {
		t.Errorf("touch did not refresh last activity: %v", got.LastActivity)
	}

	// Touch of an unknown session is a no-op.
	r.Touch("missing")
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	r.Create("abc", "/tmp/x")
	r.Remove("abc")
	if r.Has("abc") {
		t.Fatal("abc should be gone after remove")
	}
	r.Remove("abc") // idempotent
}

func TestSweepIdle(t *testing.T) {
	r := NewRegistry()
	r.Create("fresh", "/tmp/a")
	r.Create("stale", "/tmp/b")
	r.Create("ancient", "/tmp/c")

	r.mu.Lock()
	r.sessions["stale"].LastActivity = time.Now().Add(-25 * time.Hour)
	r.sessions["ancient"].LastActivity = time.Now().Add(-48 * time.Hour)
	r.mu.Unlock()

	removed := r.SweepIdle(24)
	if len(removed) != 2 {
		t.Fatalf("SweepIdle removed %d sessions, want 2 (%v)", len(removed), removed)
	}
	if !r.Has("fresh") {
		t.Error("fresh session should survive the sweep")
	}
	if r.Has("stale") || r.Has("ancient") {
		t.Error("idle sessions should be removed")
	}
}
