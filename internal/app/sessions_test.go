package app

import (
	"testing"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsJoinIsOneWay(t *testing.T) {
	s := NewSessions()
	s.Bind(ConnSession{ID: "c1"})

	require.NoError(t, s.Join("c1", domain.RolePlayer, "R", "Pat"))
	assert.ErrorIs(t, s.Join("c1", domain.RoleGM, "R", ""), ErrAlreadyJoined)
	assert.ErrorIs(t, s.Join("nope", domain.RoleGM, "R", ""), ErrUnknownConn)

	sess, ok := s.Get("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RolePlayer, sess.Role)
	assert.Equal(t, domain.RoomCode("R"), sess.Room)
	assert.Equal(t, "Pat", sess.DisplayName)

	last, ok := s.Unbind("c1")
	assert.True(t, ok)
	assert.Equal(t, domain.RolePlayer, last.Role)
	_, ok = s.Unbind("c1")
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestIdentityKeyPrecedence(t *testing.T) {
	verified := ConnSession{Identity: &domain.Identity{ID: "u1"}, ClientToken: "tok"}
	assert.Equal(t, "user:u1", verified.IdentityKey("pid"))

	anon := ConnSession{ClientToken: "tok"}
	assert.Equal(t, "player:pid", anon.IdentityKey("pid"))
	assert.Equal(t, "client:tok", anon.IdentityKey(""))
	assert.Empty(t, ConnSession{}.IdentityKey(""))
}
