package app

import (
	"encoding/json"

	"github.com/dkeye/dicetable/internal/core"
	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

func (r *Router) decodeJoin(sess ConnSession, eventType string, frame []byte) (joinFrame, domain.RoomCode, []Outbound) {
	if sess.Role.Joined() {
		return joinFrame{}, "", r.rejectErr(sess.ID, eventType, ErrAlreadyJoined)
	}
	var f joinFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return joinFrame{}, "", r.rejectErr(sess.ID, eventType, err)
	}
	code, err := core.NormalizeRoomCode(string(f.RoomCode))
	if err != nil {
		return joinFrame{}, "", r.rejectErr(sess.ID, eventType, err)
	}
	return f, code, nil
}

func (r *Router) onJoinRoom(sess ConnSession, frame []byte) []Outbound {
	_, code, rejected := r.decodeJoin(sess, EventJoinRoom, frame)
	if code == "" {
		return rejected
	}
	room := r.rooms.AttachOverlay(code, sess.ID)
	if err := r.sessions.Join(sess.ID, domain.RoleOverlay, code, ""); err != nil {
		return r.rejectErr(sess.ID, EventJoinRoom, err)
	}

	out := []Outbound{to(sess.ID, RoomJoined{Type: EventRoomJoined, RoomCode: code, Role: domain.RoleOverlay})}
	if _, ok := room.GM(); ok {
		out = append(out, to(sess.ID, GMStatus{Type: EventGMStatus, RoomCode: code, Online: true}))
	}
	return out
}

func (r *Router) onGMJoin(sess ConnSession, frame []byte) []Outbound {
	f, code, rejected := r.decodeJoin(sess, EventGMJoinRoom, frame)
	if code == "" {
		return rejected
	}
	name := domain.DisplayNameOr(sess.DisplayName, string(f.GMName), DefaultGMName)
	room, prev := r.rooms.AttachGM(code, sess.ID)
	if err := r.sessions.Join(sess.ID, domain.RoleGM, code, name); err != nil {
		return r.rejectErr(sess.ID, EventGMJoinRoom, err)
	}
	if prev != "" {
		log.Info().Str("module", "app.router").Str("room", string(code)).Str("conn", string(sess.ID)).Str("replaced", string(prev)).Msg("gm slot taken over")
	}

	out := []Outbound{
		to(sess.ID, RoomJoined{Type: EventRoomJoined, RoomCode: code, Role: domain.RoleGM}),
		to(sess.ID, PlayerListUpdate{Type: EventPlayerListUpdate, RoomCode: code, Players: room.Roster()}),
	}
	if prev == "" {
		out = append(out, r.gmStatus(room, true)...)
	}
	return out
}

func (r *Router) onPlayerJoin(sess ConnSession, frame []byte) []Outbound {
	f, code, rejected := r.decodeJoin(sess, EventPlayerJoinRoom, frame)
	if code == "" {
		return rejected
	}
	name := domain.DisplayNameOr(sess.DisplayName, string(f.PlayerName), DefaultPlayerName)
	key := sess.IdentityKey(string(f.PlayerID))
	room, ps, revived := r.rooms.AttachPlayer(code, sess.ID, key, name)
	if err := r.sessions.Join(sess.ID, domain.RolePlayer, code, ps.DisplayName); err != nil {
		return r.rejectErr(sess.ID, EventPlayerJoinRoom, err)
	}
	log.Info().Str("module", "app.router").Str("room", string(code)).Str("conn", string(sess.ID)).Str("player", ps.DisplayName).Bool("revived", revived).Msg("player joined")

	out := []Outbound{to(sess.ID, RoomJoined{Type: EventRoomJoined, RoomCode: code, Role: domain.RolePlayer})}
	if _, ok := room.GM(); ok {
		out = append(out, to(sess.ID, GMStatus{Type: EventGMStatus, RoomCode: code, Online: true}))
	}
	return append(out, r.rosterToGM(room)...)
}
