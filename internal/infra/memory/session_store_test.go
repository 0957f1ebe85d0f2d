package memory

import (
	"testing"

	"codium-engine/internal/app"
	"codium-engine/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session, err := app.NewSession("shrine-1:p1", "p1", "Alice", sampleSet(), app.DefaultSpawnConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.Put(session)

	if _, ok := store.Get("shrine-1:p1"); !ok {
		t.Fatalf("expected session present")
	}

	// Active sessions survive delete attempts.
	store.DeleteIfEnded("shrine-1:p1")
	if _, ok := store.Get("shrine-1:p1"); !ok {
		t.Fatalf("active session removed")
	}

	// Lose the run, then the store may drop it.
	if _, err := session.Submit(domain.Submission{Values: []string{"wrong!"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	store.DeleteIfEnded("shrine-1:p1")
	if _, ok := store.Get("shrine-1:p1"); ok {
		t.Fatalf("ended session not removed")
	}
}
