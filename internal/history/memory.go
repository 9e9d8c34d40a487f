package history

import (
	"context"
	"sync"

	"github.com/babelroom/babelroom/internal/processor"
)

// defaultRoomCap bounds how many transcripts one room retains in memory.
const defaultRoomCap = 200

// MemoryStore keeps the most recent transcripts per room. It is the default
// archive when no Postgres DSN is configured.
type MemoryStore struct {
	roomCap int

	mu    sync.Mutex
	rooms map[string][]Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds a store retaining up to roomCap transcripts per room;
// zero or negative means the default cap.
func NewMemoryStore(roomCap int) *MemoryStore {
	if roomCap <= 0 {
		roomCap = defaultRoomCap
	}
	return &MemoryStore{roomCap: roomCap, rooms: make(map[string][]Entry)}
}

// RecordTranscript appends the transcript to the room's archive, evicting the
// oldest entry when the cap is exceeded.
func (s *MemoryStore) RecordTranscript(_ context.Context, room string, t *processor.Transcript) {
	e := entryFromTranscript(room, t)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append(s.rooms[room], e)
	if len(entries) > s.roomCap {
		entries = entries[len(entries)-s.roomCap:]
	}
	s.rooms[room] = entries
}

// Recent returns up to limit transcripts for room, newest first.
func (s *MemoryStore) Recent(_ context.Context, room string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.rooms[room]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(entries) - 1; i >= len(entries)-limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// DropRoom discards a room's archive.
func (s *MemoryStore) DropRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
}

// Close is a no-op.
func (s *MemoryStore) Close() {}
