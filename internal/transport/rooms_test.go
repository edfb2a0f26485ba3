package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relaymesh/engine/internal/config"
)

func newTestLive(t *testing.T) *config.Live {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("displayManager: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	live, err := config.WatchConfig(path)
	if err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	t.Cleanup(func() { live.Close() })
	return live
}

func TestRoomsGetStartsASessionOnFirstUse(t *testing.T) {
	rooms := NewRooms(newTestLive(t))

	e := rooms.Get("room-1")
	if e == nil {
		t.Fatal("expected a non-nil Engine")
	}
	defer e.Stop()
}

func TestRoomsGetReturnsTheSameSessionForTheSameRoom(t *testing.T) {
	rooms := NewRooms(newTestLive(t))

	first := rooms.Get("room-1")
	defer first.Stop()
	second := rooms.Get("room-1")

	if first != second {
		t.Fatal("Get should return the same *engine.Engine for the same room ID")
	}
}

func TestRoomsGetStartsDistinctSessionsForDistinctRooms(t *testing.T) {
	rooms := NewRooms(newTestLive(t))

	a := rooms.Get("room-1")
	defer a.Stop()
	b := rooms.Get("room-2")
	defer b.Stop()

	if a == b {
		t.Fatal("different room IDs should get different Engine sessions")
	}
}
