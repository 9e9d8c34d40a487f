package processor

import (
	"context"
	"sync"

	"github.com/babelroom/babelroom/internal/observe"
)

// Manager hands out one Processor per room, all sharing the same worker pool,
// caches, and providers. Rooms are created lazily on first use and released
// when the last session leaves.
type Manager struct {
	deps Deps

	mu    sync.Mutex
	rooms map[string]*Processor
}

// NewManager builds the room processor registry around shared dependencies.
func NewManager(deps Deps) *Manager {
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	return &Manager{deps: deps, rooms: make(map[string]*Processor)}
}

// Room returns the processor for room, creating it on first use.
func (m *Manager) Room(room string) *Processor {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rooms[room]
	if !ok {
		p = NewProcessor(room, m.deps)
		m.rooms[room] = p
		m.deps.Metrics.ActiveRooms.Add(context.Background(), 1)
		observe.Debug(context.Background(), observe.CatPipeline, "room processor created", "room_id", room)
	}
	return p
}

// Release tears down room's processor and invalidates its cache entries and
// listener registrations. Called when the room's last session ends.
func (m *Manager) Release(room string) {
	m.mu.Lock()
	_, ok := m.rooms[room]
	delete(m.rooms, room)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.deps.Metrics.ActiveRooms.Add(context.Background(), -1)
	m.deps.Cache.InvalidateRoom(room)
	observe.Debug(context.Background(), observe.CatPipeline, "room processor released", "room_id", room)
}

// Rooms returns the number of live room processors.
func (m *Manager) Rooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}
