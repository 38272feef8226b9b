package game

import (
	"log"
	"sync"
	"time"

	"github.com/pongarena/backend/internal/models"
)

// Registry is the process-wide map of live rooms. Creation and deletion are
// serialized here; everything inside a room is guarded by the room's own
// mutex.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for a game, materializing it from the game
// record on first access.
func (reg *Registry) GetOrCreate(g *models.Game) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[g.ID]; ok {
		return room, false
	}
	room := NewRoom(g.ID, g.Player1ID, g.Player2ID, g.Difficulty, time.Now().UnixNano())
	reg.rooms[g.ID] = room
	log.Printf("[REGISTRY] Created room for game %s (%d vs %d, %s)", g.ID, g.Player1ID, g.Player2ID, g.Difficulty)
	return room, true
}

func (reg *Registry) Get(gameID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[gameID]
	return room, ok
}

// Delete removes a room and cancels its loop if one is running.
func (reg *Registry) Delete(gameID string) {
	reg.mu.Lock()
	room, ok := reg.rooms[gameID]
	if ok {
		delete(reg.rooms, gameID)
	}
	reg.mu.Unlock()

	if !ok {
		return
	}
	room.Lock()
	cancel := room.cancel
	room.cancel = nil
	room.Unlock()
	if cancel != nil {
		cancel()
	}
	log.Printf("[REGISTRY] Removed room for game %s", gameID)
}

// Count reports the number of live rooms, for the health endpoint.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
