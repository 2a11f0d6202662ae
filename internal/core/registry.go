package core

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

// DetachResult tells the caller what a disconnect changed.
type DetachResult struct {
	Role          domain.Role
	WasGM         bool
	PlayerOffline bool
}

// Registry maps room codes to rooms for the lifetime of the process.
// Rooms are created on first reference and never removed.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]*Room
	now   func() time.Time
}

// NewRegistry builds an empty registry. now defaults to time.Now.
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		rooms: make(map[domain.RoomCode]*Room),
		now:   now,
	}
}

// GetOrCreate returns the room for code, creating it when unknown.
// It returns nil, and leaves the registry untouched, for codes that fail
// NormalizeRoomCode.
func (reg *Registry) GetOrCreate(code domain.RoomCode) *Room {
	norm, err := NormalizeRoomCode(string(code))
	if err != nil {
		log.Warn().Err(err).Str("module", "core.registry").Str("room", string(code)).Msg("rejected room code")
		return nil
	}

	reg.mu.RLock()
	room, ok := reg.rooms[norm]
	reg.mu.RUnlock()
	if ok {
		return room
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room, ok = reg.rooms[norm]; ok {
		return room
	}
	room = newRoom(norm, reg.now())
	reg.rooms[norm] = room
	log.Info().Str("module", "core.registry").Str("room", string(norm)).Msg("room created")
	return room
}

// Lookup finds an existing room without creating it.
func (reg *Registry) Lookup(code domain.RoomCode) (*Room, bool) {
	norm, err := NormalizeRoomCode(string(code))
	if err != nil {
		return nil, false
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[norm]
	return room, ok
}

// AttachGM makes conn the room's GM, replacing any previous GM connection.
// It returns the replaced connection, empty when the slot was free.
func (reg *Registry) AttachGM(code domain.RoomCode, conn domain.ConnID) (*Room, domain.ConnID) {
	room := reg.GetOrCreate(code)
	if room == nil {
		return nil, ""
	}
	return room, room.setGM(conn)
}

// AttachOverlay adds a role-less viewer connection to the room.
func (reg *Registry) AttachOverlay(code domain.RoomCode, conn domain.ConnID) *Room {
	room := reg.GetOrCreate(code)
	if room == nil {
		return nil
	}
	room.addOverlay(conn)
	return room
}

// AttachPlayer creates a player session under conn, or revives an offline
// session with the same identity so its cached summary survives reconnects.
func (reg *Registry) AttachPlayer(code domain.RoomCode, conn domain.ConnID, identity, displayName string) (*Room, domain.PlayerSession, bool) {
	room := reg.GetOrCreate(code)
	if room == nil {
		return nil, domain.PlayerSession{}, false
	}
	ps, revived := room.addPlayer(conn, identity, displayName, reg.now())
	return room, ps, revived
}

// UpdateSummary stores a player's latest summary and sync time.
func (reg *Registry) UpdateSummary(code domain.RoomCode, conn domain.ConnID, summary domain.Summary) bool {
	room, ok := reg.Lookup(code)
	if !ok {
		return false
	}
	return room.updateSummary(conn, summary, reg.now())
}

// Detach clears the GM slot or marks the player offline. Sessions are never
// deleted here; see RemoveIfOffline.
func (reg *Registry) Detach(code domain.RoomCode, conn domain.ConnID) DetachResult {
	room, ok := reg.Lookup(code)
	if !ok {
		return DetachResult{}
	}
	return room.detach(conn, reg.now())
}

// RemoveIfOffline deletes the session under conn only if it is still offline.
func (reg *Registry) RemoveIfOffline(code domain.RoomCode, conn domain.ConnID) bool {
	room, ok := reg.Lookup(code)
	if !ok {
		return false
	}
	return room.removeIfOffline(conn)
}

func (reg *Registry) List() []domain.RoomInfo {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	out := make([]domain.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	slices.SortFunc(out, func(a, b domain.RoomInfo) int {
		return strings.Compare(string(a.Code), string(b.Code))
	})
	return out
}

func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
