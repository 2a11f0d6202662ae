package app

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/dicetable/internal/core"
	"github.com/dkeye/dicetable/internal/dice"
	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound is one message addressed to a set of connections.
type Outbound struct {
	To  []domain.ConnID
	Msg any
}

// Sink delivers router output to transport connections.
type Sink interface {
	Deliver(out []Outbound)
}

type Options struct {
	Registry *core.Registry
	Sessions *Sessions
	Clock    Clock
	// Rand is the die source in [0,1). Defaults to a crypto-seeded source.
	Rand        func() float64
	GracePeriod time.Duration
	// ReportErrors turns silent drops into typed error frames for the sender.
	ReportErrors bool
	Sink         Sink
}

type handlerFunc func(sess ConnSession, frame []byte) []Outbound

// Router is the transport independent event dispatcher. One event is
// processed at a time; handlers, disconnects and reaper callbacks share mu.
type Router struct {
	mu       sync.Mutex
	rooms    *core.Registry
	sessions *Sessions
	clock    Clock
	rng      func() float64
	reaper   *Reaper
	strict   bool
	sink     Sink
	handlers map[string]handlerFunc
}

func NewRouter(opts Options) *Router {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Registry == nil {
		opts.Registry = core.NewRegistry(opts.Clock.Now)
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessions()
	}
	if opts.Rand == nil {
		seed, err := dice.NewSeed()
		if err != nil {
			log.Warn().Err(err).Str("module", "app.router").Msg("falling back to time seed")
			seed = time.Now().UnixNano()
		}
		opts.Rand = dice.NewSource(seed)
	}

	r := &Router{
		rooms:    opts.Registry,
		sessions: opts.Sessions,
		clock:    opts.Clock,
		rng:      opts.Rand,
		strict:   opts.ReportErrors,
		sink:     opts.Sink,
	}
	r.reaper = NewReaper(opts.Clock, opts.GracePeriod, r.reap)
	r.handlers = map[string]handlerFunc{
		EventJoinRoom:            r.onJoinRoom,
		EventGMJoinRoom:          r.onGMJoin,
		EventPlayerJoinRoom:      r.onPlayerJoin,
		EventPlayerSync:          r.onPlayerSync,
		EventRequestAllSync:      r.onRequestAllSync,
		EventRequestPlayerSheet:  r.onRequestPlayerSheet,
		EventPlayerSheetResponse: r.onPlayerSheetResponse,
		EventGMRoll:              r.onGMRoll,
		EventPlayerRoll:          r.onPlayerRoll,
		EventPing:                r.onPing,
		EventWhoAmI:              r.onWhoAmI,
	}
	return r
}

func (r *Router) Rooms() *core.Registry { return r.rooms }

func (r *Router) Sessions() *Sessions { return r.sessions }

// Connect registers a fresh, unjoined connection. identity is nil for
// anonymous connections.
func (r *Router) Connect(conn domain.ConnID, identity *domain.Identity, clientToken string) {
	sess := ConnSession{
		ID:          conn,
		Identity:    identity,
		ClientToken: clientToken,
		ConnectedAt: r.clock.Now(),
	}
	if identity != nil {
		sess.DisplayName = identity.DisplayName
	}
	r.sessions.Bind(sess)
}

// Handle processes one inbound event and returns what must be sent.
func (r *Router) Handle(conn domain.ConnID, eventType string, frame []byte) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle(conn, eventType, frame)
}

// Dispatch handles an event and hands the result to the sink before the
// next event is processed.
func (r *Router) Dispatch(conn domain.ConnID, eventType string, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(r.handle(conn, eventType, frame))
}

// Receive decodes the frame envelope and dispatches it.
func (r *Router) Receive(conn domain.ConnID, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.deliver(r.reject(conn, "", CodeBadPayload, "frame is not a json object"))
		return
	}
	r.Dispatch(conn, env.Type, data)
}

// Throttled tells the sender a frame was dropped by the rate limiter.
func (r *Router) Throttled(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(r.reject(conn, "", CodeRateLimited, "too many frames"))
}

// Disconnect detaches conn from its room and returns the resulting notices.
func (r *Router) Disconnect(conn domain.ConnID) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnect(conn)
}

// Drop is Disconnect followed by delivery.
func (r *Router) Drop(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliver(r.disconnect(conn))
}

func (r *Router) handle(conn domain.ConnID, eventType string, frame []byte) (out []Outbound) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.router").Str("conn", string(conn)).Str("event", eventType).Interface("panic", rec).Msg("handler panic")
			out = r.reject(conn, eventType, CodeInternal, "internal error")
		}
	}()

	sess, ok := r.sessions.Get(conn)
	if !ok {
		log.Warn().Str("module", "app.router").Str("conn", string(conn)).Str("event", eventType).Msg("event from unknown connection")
		return nil
	}
	h, ok := r.handlers[eventType]
	if !ok {
		return r.reject(conn, eventType, CodeUnknownEvent, "unknown event type")
	}
	log.Debug().Str("module", "app.router").Str("conn", string(conn)).Str("event", eventType).Str("role", string(sess.Role)).Msg("event")
	return h(sess, frame)
}

func (r *Router) disconnect(conn domain.ConnID) []Outbound {
	sess, ok := r.sessions.Unbind(conn)
	if !ok || !sess.Role.Joined() {
		return nil
	}
	res := r.rooms.Detach(sess.Room, conn)
	room, ok := r.rooms.Lookup(sess.Room)
	if !ok {
		return nil
	}

	var out []Outbound
	if res.PlayerOffline {
		out = append(out, r.rosterToGM(room)...)
		r.reaper.Schedule(sess.Room, conn)
	}
	if res.WasGM {
		out = append(out, r.gmStatus(room, false)...)
	}
	return out
}

func (r *Router) reap(code domain.RoomCode, conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.rooms.RemoveIfOffline(code, conn) {
		log.Debug().Str("module", "app.router").Str("room", string(code)).Str("conn", string(conn)).Msg("reap skipped")
		return
	}
	if room, ok := r.rooms.Lookup(code); ok {
		r.deliver(r.rosterToGM(room))
	}
}

func (r *Router) deliver(out []Outbound) {
	if r.sink == nil || len(out) == 0 {
		return
	}
	r.sink.Deliver(out)
}

func (r *Router) reject(conn domain.ConnID, eventType, code, msg string) []Outbound {
	log.Warn().Str("module", "app.router").Str("conn", string(conn)).Str("event", eventType).Str("code", code).Msg(msg)
	if !r.strict {
		return nil
	}
	return []Outbound{to(conn, NewError(code, msg))}
}

func (r *Router) rejectErr(conn domain.ConnID, eventType string, err error) []Outbound {
	switch {
	case errors.Is(err, ErrAlreadyJoined):
		return r.reject(conn, eventType, CodeAlreadyJoined, err.Error())
	case errors.Is(err, core.ErrReservedRoomCode),
		errors.Is(err, core.ErrEmptyRoomCode),
		errors.Is(err, core.ErrRoomCodeTooLong):
		return r.reject(conn, eventType, CodeInvalidRoomCode, err.Error())
	default:
		return r.reject(conn, eventType, CodeBadPayload, err.Error())
	}
}

func (r *Router) rosterToGM(room *core.Room) []Outbound {
	gm, ok := room.GM()
	if !ok {
		return nil
	}
	return []Outbound{to(gm, PlayerListUpdate{
		Type:     EventPlayerListUpdate,
		RoomCode: room.Code(),
		Players:  room.Roster(),
	})}
}

// gmStatus notifies everyone in the room except the GM.
func (r *Router) gmStatus(room *core.Room, online bool) []Outbound {
	gm, _ := room.GM()
	var targets []domain.ConnID
	for _, m := range room.Members() {
		if m != gm {
			targets = append(targets, m)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return []Outbound{{To: targets, Msg: GMStatus{Type: EventGMStatus, RoomCode: room.Code(), Online: online}}}
}

// currentGM returns the room sess governs, if sess still holds its GM slot.
func (r *Router) currentGM(sess ConnSession) (*core.Room, bool) {
	if sess.Role != domain.RoleGM {
		return nil, false
	}
	room, ok := r.rooms.Lookup(sess.Room)
	if !ok {
		return nil, false
	}
	gm, ok := room.GM()
	return room, ok && gm == sess.ID
}

func (r *Router) playerRoom(sess ConnSession) (*core.Room, bool) {
	if sess.Role != domain.RolePlayer {
		return nil, false
	}
	room, ok := r.rooms.Lookup(sess.Room)
	if !ok {
		return nil, false
	}
	role, ok := room.Role(sess.ID)
	return room, ok && role == domain.RolePlayer
}

func to(conn domain.ConnID, msg any) Outbound {
	return Outbound{To: []domain.ConnID{conn}, Msg: msg}
}
