package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/huarongpass/game/config"
	"github.com/wricardo/huarongpass/game/engine"
)

// createTestConfig returns a 3x3 board: king on top, two tall blocks below,
// the middle column open down to the gate.
func createTestConfig() *engine.LayoutConfig {
	layout := &engine.LayoutConfig{
		Name:        "practice",
		Description: "Three by three practice board",
		GridUnit:    100,
		Columns:     3,
		Rows:        3,
		KeyPiece:    "king",
		GateColumn:  1,
		Pieces: []engine.Placement{
			{Name: "king", Cols: 1, Rows: 1, X: 1, Y: 0},
			{Name: "left", Cols: 1, Rows: 2, X: 0, Y: 1},
			{Name: "right", Cols: 1, Rows: 2, X: 2, Y: 1},
		},
	}
	layout.Messages.Welcome = "Welcome!"
	layout.Messages.Moved = "%s now at %d,%d"
	layout.Messages.Blocked = "%s is stuck"
	return layout
}

// newTestConfigManager returns a layout manager over a temp dir holding
// practice.json.
func newTestConfigManager(t *testing.T) *config.Manager {
	t.Helper()
	dir := t.TempDir()

	manager, err := config.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	if err := manager.SaveConfig("practice", createTestConfig()); err != nil {
		t.Fatalf("Failed to save practice layout: %v", err)
	}
	return manager
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	layout := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", layout)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
		if session.Config != layout {
			t.Error("Expected session to keep its layout")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", layout)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
		if strings.Trim(session.ID, "0123456789abcdef") != "" {
			t.Errorf("Expected hex session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", layout)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", layout)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		for _, id := range []string{"../escape", "a/b", `a\b`, "has space"} {
			if _, err := manager.Create(id, layout); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("Create(%q): expected ErrInvalidSessionID, got %v", id, err)
			}
		}
	})

	t.Run("invalid layout", func(t *testing.T) {
		invalid := createTestConfig()
		invalid.Name = ""
		_, err := manager.Create("invalid-test", invalid)
		if !errors.Is(err, engine.ErrInvalidLayout) {
			t.Errorf("Expected ErrInvalidLayout, got %v", err)
		}
		if _, err := manager.Get("invalid-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Failed create should not register a session")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, err := manager.Create("get-test", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected the same session instance")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session != created {
			t.Error("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()
	layout := createTestConfig()

	first, err := manager.GetOrCreate("new-session", layout)
	if err != nil {
		t.Fatalf("Failed to get or create session: %v", err)
	}
	if first.ID != "new-session" {
		t.Errorf("Expected session ID 'new-session', got '%s'", first.ID)
	}

	second, err := manager.GetOrCreate("NEW-SESSION", layout)
	if err != nil {
		t.Fatalf("Failed to get existing session: %v", err)
	}
	if second != first {
		t.Error("Expected GetOrCreate to return the existing session")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_ListAndDelete(t *testing.T) {
	manager := NewManager()
	layout := createTestConfig()

	for _, id := range []string{"one", "two", "three"} {
		if _, err := manager.Create(id, layout); err != nil {
			t.Fatalf("Failed to create %s: %v", id, err)
		}
	}

	if got := len(manager.List()); got != 3 {
		t.Fatalf("Expected 3 sessions, got %d", got)
	}

	if err := manager.Delete("TWO"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := manager.Get("two"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected deleted session to be gone, got %v", err)
	}
	if err := manager.Delete("two"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}

	if err := manager.DeleteFromMemory("one"); err != nil {
		t.Fatalf("Failed to delete from memory: %v", err)
	}
	if err := manager.DeleteFromMemory("one"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session left, got %d", manager.Count())
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, err := manager.Create("access", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	before := session.LastAccessed()
	time.Sleep(5 * time.Millisecond)

	if err := manager.UpdateLastAccessed("ACCESS"); err != nil {
		t.Fatalf("Failed to update access time: %v", err)
	}
	if !session.LastAccessed().After(before) {
		t.Error("Expected LastAccessedAt to move forward")
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	manager := NewManager()
	layout := createTestConfig()

	stale, _ := manager.Create("stale", layout)
	fresh, _ := manager.Create("fresh", layout)
	stale.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	fresh.LastAccessedAt = time.Now()

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 session removed, got %d", removed)
	}
	if _, err := manager.Get("stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected stale session to be removed")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to remain: %v", err)
	}
}

func TestManager_SaveWithoutPersistence(t *testing.T) {
	manager := NewManager()
	if _, err := manager.Create("mem", createTestConfig()); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := manager.Save("mem"); err != nil {
		t.Errorf("Save without persistence should be a no-op, got %v", err)
	}
	if err := manager.SaveAllSessions(); err != nil {
		t.Errorf("SaveAllSessions without persistence should be a no-op, got %v", err)
	}
	if err := manager.LoadPersistedSessions(); err != nil {
		t.Errorf("LoadPersistedSessions without persistence should be a no-op, got %v", err)
	}
	if n := manager.PruneOrphaned(); n != 0 {
		t.Errorf("PruneOrphaned without persistence should prune nothing, got %d", n)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	layout := createTestConfig()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers*3)

	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("worker-%d", i)
			if _, err := manager.Create(id, layout); err != nil {
				errs <- err
				return
			}
			if _, err := manager.Get(id); err != nil {
				errs <- err
			}
			if err := manager.UpdateLastAccessed(id); err != nil {
				errs <- err
			}
			_ = manager.List()
			_ = manager.CleanupExpiredSessions(time.Hour)
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	if manager.Count() != workers {
		t.Errorf("Expected %d sessions, got %d", workers, manager.Count())
	}
}
