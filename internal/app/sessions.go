package app

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownConn   = errors.New("unknown connection")
	ErrAlreadyJoined = errors.New("connection already joined a room")
)

// ConnSession is the router's view of one transport connection.
type ConnSession struct {
	ID          domain.ConnID
	Role        domain.Role
	Room        domain.RoomCode
	Identity    *domain.Identity
	ClientToken string
	DisplayName string
	ConnectedAt time.Time
}

// IdentityKey picks the key used to revive a player session on reconnect.
// A verified account beats a client-supplied player id, which beats the
// browser's cookie token. Empty means the session can never be revived.
func (s ConnSession) IdentityKey(playerID string) string {
	switch {
	case s.Identity != nil:
		return "user:" + string(s.Identity.ID)
	case playerID != "":
		return "player:" + playerID
	case s.ClientToken != "":
		return "client:" + s.ClientToken
	}
	return ""
}

// Sessions tracks live connections and the single room each one joined.
type Sessions struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*ConnSession
}

func NewSessions() *Sessions {
	return &Sessions{conns: make(map[domain.ConnID]*ConnSession)}
}

func (s *Sessions) Bind(sess ConnSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[sess.ID] = &sess
	log.Info().Str("module", "app.sessions").Str("conn", string(sess.ID)).Bool("verified", sess.Identity != nil).Msg("bound connection")
}

func (s *Sessions) Get(id domain.ConnID) (ConnSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.conns[id]; ok {
		return *sess, true
	}
	return ConnSession{}, false
}

// Join records the role and room for a connection. Roles are one-way:
// a connection that already joined must reconnect to change them.
func (s *Sessions) Join(id domain.ConnID, role domain.Role, code domain.RoomCode, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.conns[id]
	if !ok {
		return ErrUnknownConn
	}
	if sess.Role.Joined() {
		return ErrAlreadyJoined
	}
	sess.Role = role
	sess.Room = code
	if displayName != "" {
		sess.DisplayName = displayName
	}
	log.Info().Str("module", "app.sessions").Str("conn", string(id)).Str("room", string(code)).Str("role", string(role)).Msg("joined room")
	return nil
}

// Unbind forgets the connection and returns its last state.
func (s *Sessions) Unbind(id domain.ConnID) (ConnSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.conns[id]
	if !ok {
		return ConnSession{}, false
	}
	delete(s.conns, id)
	log.Info().Str("module", "app.sessions").Str("conn", string(id)).Msg("unbind connection")
	return *sess, true
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
