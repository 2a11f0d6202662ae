package core

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

// Room is a threadsafe in-memory table session.
// It never touches transport resources; members are plain connection IDs.
type Room struct {
	code      domain.RoomCode
	createdAt time.Time

	mu      sync.RWMutex
	gm      domain.ConnID
	players map[domain.ConnID]*domain.PlayerSession
	members map[domain.ConnID]domain.Role
}

func newRoom(code domain.RoomCode, now time.Time) *Room {
	return &Room{
		code:      code,
		createdAt: now,
		players:   make(map[domain.ConnID]*domain.PlayerSession),
		members:   make(map[domain.ConnID]domain.Role),
	}
}

func (r *Room) Code() domain.RoomCode { return r.code }

// GM returns the current GM connection, if any.
func (r *Room) GM() (domain.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gm, r.gm != ""
}

// Role reports how conn joined this room.
func (r *Room) Role(conn domain.ConnID) (domain.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.members[conn]
	return role, ok
}

// Members lists every live connection in the room: GM, online players and overlays.
func (r *Room) Members() []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(r.members))
	for conn := range r.members {
		out = append(out, conn)
	}
	slices.Sort(out)
	return out
}

// OnlinePlayers lists connections of players currently online.
func (r *Room) OnlinePlayers() []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(r.players))
	for conn, p := range r.players {
		if p.Online {
			out = append(out, conn)
		}
	}
	slices.Sort(out)
	return out
}

// Player returns a copy of the session stored under conn.
func (r *Room) Player(conn domain.ConnID) (domain.PlayerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[conn]
	if !ok {
		return domain.PlayerSession{}, false
	}
	return *p, true
}

// Roster snapshots all player sessions, online or not, ordered by name.
func (r *Room) Roster() []domain.RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RosterEntry, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.RosterEntry())
	}
	slices.SortFunc(out, func(a, b domain.RosterEntry) int {
		if c := strings.Compare(a.PlayerName, b.PlayerName); c != 0 {
			return c
		}
		return strings.Compare(string(a.ConnectionID), string(b.ConnectionID))
	})
	return out
}

func (r *Room) Info() domain.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := domain.RoomInfo{
		Code:      r.code,
		HasGM:     r.gm != "",
		Players:   len(r.players),
		Members:   len(r.members),
		CreatedAt: r.createdAt,
	}
	for _, p := range r.players {
		if p.Online {
			info.OnlinePlayers++
		}
	}
	return info
}

func (r *Room) setGM(conn domain.ConnID) domain.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.gm
	r.gm = conn
	r.members[conn] = domain.RoleGM
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(conn)).Str("previous", string(prev)).Msg("gm attached")
	return prev
}

func (r *Room) addOverlay(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[conn] = domain.RoleOverlay
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(conn)).Msg("overlay attached")
}

// addPlayer revives an offline session with the same identity or creates a new one.
func (r *Room) addPlayer(conn domain.ConnID, identity, name string, now time.Time) (domain.PlayerSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[conn] = domain.RolePlayer

	if identity != "" {
		for oldConn, p := range r.players {
			if p.Online || p.Identity != identity {
				continue
			}
			delete(r.players, oldConn)
			p.ConnID = conn
			p.Online = true
			p.OfflineSince = time.Time{}
			if name != "" {
				p.DisplayName = name
			}
			r.players[conn] = p
			log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(conn)).Str("previous", string(oldConn)).Msg("player revived")
			return *p, true
		}
	}

	p := &domain.PlayerSession{
		ConnID:      conn,
		Identity:    identity,
		DisplayName: name,
		Online:      true,
		JoinedAt:    now,
	}
	r.players[conn] = p
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(conn)).Str("player", name).Msg("player added")
	return *p, false
}

func (r *Room) updateSummary(conn domain.ConnID, summary domain.Summary, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[conn]
	if !ok || !p.Online {
		return false
	}
	p.Summary = summary
	p.LastSync = now
	return true
}

func (r *Room) detach(conn domain.ConnID, now time.Time) DetachResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := DetachResult{Role: r.members[conn]}
	delete(r.members, conn)
	if r.gm == conn {
		r.gm = ""
		res.WasGM = true
	}
	if p, ok := r.players[conn]; ok && p.Online {
		p.Online = false
		p.OfflineSince = now
		res.PlayerOffline = true
	}
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(conn)).Bool("was_gm", res.WasGM).Bool("player_offline", res.PlayerOffline).Msg("member detached")
	return res
}

func (r *Room) removeIfOffline(conn domain.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[conn]
	if !ok || p.Online {
		return false
	}
	delete(r.players, conn)
	log.Info().Str("module", "core.room").Str("room", string(r.code)).Str("conn", string(conn)).Str("player", p.DisplayName).Msg("offline player removed")
	return true
}
