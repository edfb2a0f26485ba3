package transport

import (
	"sync"

	"github.com/relaymesh/engine/internal/config"
	"github.com/relaymesh/engine/internal/engine"
)

// Rooms owns the set of Engine sessions a single process hosts, keyed by
// room ID, starting one lazily on first use.
type Rooms struct {
	cfg *config.Live

	mutex sync.Mutex
	live  map[string]*engine.Engine
}

func NewRooms(cfg *config.Live) *Rooms {
	return &Rooms{cfg: cfg, live: make(map[string]*engine.Engine)}
}

// Get returns the session for roomID, starting it if this is the first
// request to reference it.
func (r *Rooms) Get(roomID string) *engine.Engine {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if e, ok := r.live[roomID]; ok {
		return e
	}

	snapshot := r.cfg.Current()
	e := engine.Start(engine.Config{ID: roomID, DisplayManager: snapshot.DisplayManager})
	r.live[roomID] = e
	return e
}
