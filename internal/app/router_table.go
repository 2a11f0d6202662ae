package app

import (
	"encoding/json"

	"github.com/dkeye/dicetable/internal/dice"
	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

func (r *Router) onPlayerSync(sess ConnSession, frame []byte) []Outbound {
	room, ok := r.playerRoom(sess)
	if !ok {
		return r.reject(sess.ID, EventPlayerSync, CodeForbidden, "only players can sync")
	}
	summary, err := decodeSummary(frame)
	if err != nil {
		return r.rejectErr(sess.ID, EventPlayerSync, err)
	}
	if !r.rooms.UpdateSummary(room.Code(), sess.ID, summary) {
		log.Warn().Str("module", "app.router").Str("room", string(room.Code())).Str("conn", string(sess.ID)).Msg("sync for missing session dropped")
		return nil
	}
	return r.rosterToGM(room)
}

func (r *Router) onRequestAllSync(sess ConnSession, _ []byte) []Outbound {
	room, ok := r.currentGM(sess)
	if !ok {
		return r.reject(sess.ID, EventRequestAllSync, CodeForbidden, "only the gm can request sync")
	}
	var targets []domain.ConnID
	for _, p := range room.OnlinePlayers() {
		if p != sess.ID {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return []Outbound{{To: targets, Msg: RequestSync{Type: EventRequestSync}}}
}

func (r *Router) onRequestPlayerSheet(sess ConnSession, frame []byte) []Outbound {
	room, ok := r.currentGM(sess)
	if !ok {
		return r.reject(sess.ID, EventRequestPlayerSheet, CodeForbidden, "only the gm can request sheets")
	}
	var f sheetRequestFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return r.rejectErr(sess.ID, EventRequestPlayerSheet, err)
	}
	target := domain.ConnID(f.TargetConnectionID)
	if role, ok := room.Role(target); !ok || role != domain.RolePlayer {
		log.Debug().Str("module", "app.router").Str("room", string(room.Code())).Str("target", string(target)).Msg("sheet request for unknown target")
		return nil
	}
	return []Outbound{to(target, RequestSheetData{Type: EventRequestSheetData, RequesterID: sess.ID})}
}

func (r *Router) onPlayerSheetResponse(sess ConnSession, frame []byte) []Outbound {
	room, ok := r.playerRoom(sess)
	if !ok {
		return r.reject(sess.ID, EventPlayerSheetResponse, CodeForbidden, "only players can send sheets")
	}
	var f sheetResponseFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return r.rejectErr(sess.ID, EventPlayerSheetResponse, err)
	}
	requester := domain.ConnID(f.RequesterID)
	if role, ok := room.Role(requester); !ok || role != domain.RoleGM {
		log.Debug().Str("module", "app.router").Str("room", string(room.Code())).Str("requester", string(requester)).Msg("sheet response for unknown requester")
		return nil
	}
	return []Outbound{to(requester, PlayerSheetData{
		Type:         EventPlayerSheetData,
		ConnectionID: sess.ID,
		SheetData:    f.SheetData,
	})}
}

func (r *Router) onGMRoll(sess ConnSession, frame []byte) []Outbound {
	if _, ok := r.currentGM(sess); !ok {
		return r.reject(sess.ID, EventGMRoll, CodeForbidden, "only the gm can send gm rolls")
	}
	return r.roll(sess, EventGMRoll, DefaultGMLabel, frame)
}

func (r *Router) onPlayerRoll(sess ConnSession, frame []byte) []Outbound {
	if _, ok := r.playerRoom(sess); !ok {
		return r.reject(sess.ID, EventPlayerRoll, CodeForbidden, "only players can send player rolls")
	}
	return r.roll(sess, EventPlayerRoll, DefaultRollLabel, frame)
}

func (r *Router) roll(sess ConnSession, eventType, defaultLabel string, frame []byte) []Outbound {
	room, ok := r.rooms.Lookup(sess.Room)
	if !ok {
		return nil
	}
	meta, spec, err := decodeRoll(frame)
	if err != nil {
		return r.rejectErr(sess.ID, eventType, err)
	}
	result := dice.Resolve(spec, r.rng)

	character := string(meta.CharacterName)
	if character == "" {
		if p, ok := room.Player(sess.ID); ok {
			character = string(p.Summary.CharacterName)
		}
	}
	label := string(meta.Label)
	if label == "" {
		label = defaultLabel
	}
	log.Info().Str("module", "app.router").Str("room", string(room.Code())).Str("conn", string(sess.ID)).Str("dice", result.Description).Int("final", result.FinalResult).Msg("roll resolved")

	return []Outbound{{To: room.Members(), Msg: BroadcastRoll{
		Type:          EventBroadcastRoll,
		RoomCode:      room.Code(),
		ConnectionID:  sess.ID,
		Roller:        sess.DisplayName,
		Role:          sess.Role,
		CharacterName: character,
		Label:         label,
		RollType:      string(meta.RollType),
		Timestamp:     r.clock.Now().UnixMilli(),
		Result:        result,
	}}}
}

func (r *Router) onPing(sess ConnSession, _ []byte) []Outbound {
	return []Outbound{to(sess.ID, Pong{Type: EventPong})}
}

func (r *Router) onWhoAmI(sess ConnSession, _ []byte) []Outbound {
	return []Outbound{to(sess.ID, WhoAmI{
		Type:         EventWhoAmI,
		ConnectionID: sess.ID,
		Role:         sess.Role,
		RoomCode:     sess.Room,
		DisplayName:  sess.DisplayName,
		Verified:     sess.Identity != nil,
	})}
}
