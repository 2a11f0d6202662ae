package app

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dkeye/dicetable/internal/dice"
	"github.com/dkeye/dicetable/internal/domain"
)

// Inbound event types.
const (
	EventJoinRoom            = "join_room"
	EventGMJoinRoom          = "gm_join_room"
	EventPlayerJoinRoom      = "player_join_room"
	EventPlayerSync          = "player_sync"
	EventRequestAllSync      = "request_all_sync"
	EventRequestPlayerSheet  = "request_player_sheet"
	EventPlayerSheetResponse = "player_sheet_response"
	EventGMRoll              = "gm_roll"
	EventPlayerRoll          = "player_roll"
	EventPing                = "ping"
	EventWhoAmI              = "whoami"
)

// Outbound event types.
const (
	EventRoomJoined       = "room_joined"
	EventPlayerListUpdate = "player_list_update"
	EventRequestSheetData = "request_sheet_data"
	EventPlayerSheetData  = "player_sheet_data"
	EventBroadcastRoll    = "broadcast_roll"
	EventRequestSync      = "request_sync"
	EventGMStatus         = "gm_status"
	EventPong             = "pong"
	EventError            = "error"
)

// Error codes sent when strict error reporting is on.
const (
	CodeBadPayload      = "bad_payload"
	CodeInvalidRoomCode = "invalid_room_code"
	CodeForbidden       = "forbidden"
	CodeAlreadyJoined   = "already_joined"
	CodeUnknownEvent    = "unknown_event"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

const (
	DefaultPlayerName = "Anonymous"
	DefaultGMName     = "GM"
	DefaultGMLabel    = "GM Roll"
	DefaultRollLabel  = "Roll"
)

// ---- outbound ----

type RoomJoined struct {
	Type     string          `json:"type"`
	RoomCode domain.RoomCode `json:"roomCode"`
	Role     domain.Role     `json:"role"`
}

type PlayerListUpdate struct {
	Type     string               `json:"type"`
	RoomCode domain.RoomCode      `json:"roomCode"`
	Players  []domain.RosterEntry `json:"players"`
}

type RequestSheetData struct {
	Type        string        `json:"type"`
	RequesterID domain.ConnID `json:"requesterId"`
}

type PlayerSheetData struct {
	Type         string          `json:"type"`
	ConnectionID domain.ConnID   `json:"connectionId"`
	SheetData    json.RawMessage `json:"sheetData"`
}

type BroadcastRoll struct {
	Type          string          `json:"type"`
	RoomCode      domain.RoomCode `json:"roomCode"`
	ConnectionID  domain.ConnID   `json:"connectionId"`
	Roller        string          `json:"roller"`
	Role          domain.Role     `json:"role"`
	CharacterName string          `json:"characterName,omitempty"`
	Label         string          `json:"label"`
	RollType      string          `json:"rollType,omitempty"`
	Timestamp     int64           `json:"timestamp"`
	dice.Result
}

type RequestSync struct {
	Type string `json:"type"`
}

type GMStatus struct {
	Type     string          `json:"type"`
	RoomCode domain.RoomCode `json:"roomCode"`
	Online   bool            `json:"online"`
}

type Pong struct {
	Type string `json:"type"`
}

type WhoAmI struct {
	Type         string          `json:"type"`
	ConnectionID domain.ConnID   `json:"connectionId"`
	Role         domain.Role     `json:"role"`
	RoomCode     domain.RoomCode `json:"roomCode"`
	DisplayName  string          `json:"displayName"`
	Verified     bool            `json:"verified"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: EventError, Code: code, Message: message}
}

// ---- inbound ----

type joinFrame struct {
	RoomCode   flexString `json:"roomCode"`
	GMName     flexString `json:"gmName"`
	PlayerName flexString `json:"playerName"`
	PlayerID   flexString `json:"playerId"`
}

type syncFrame struct {
	Summary json.RawMessage `json:"summary"`
}

type sheetRequestFrame struct {
	TargetConnectionID flexString `json:"targetConnectionId"`
}

type sheetResponseFrame struct {
	RequesterID flexString      `json:"requesterId"`
	SheetData   json.RawMessage `json:"sheetData"`
}

type rollFrame struct {
	Spec          json.RawMessage `json:"spec"`
	Label         flexString      `json:"label"`
	CharacterName flexString      `json:"characterName"`
	RollType      flexString      `json:"rollType"`
}

type rollSpecFrame struct {
	DieFaces flexInt         `json:"dieFaces"`
	DiceType flexString      `json:"diceType"`
	Quantity flexInt         `json:"quantity"`
	Modifier flexInt         `json:"modifier"`
	Mode     flexString      `json:"mode"`
	Critical flexBool        `json:"critical"`
	Extra    json.RawMessage `json:"extra"`
	Notation flexString      `json:"notation"`
}

type extraFrame struct {
	DieFaces flexInt `json:"dieFaces"`
	Quantity flexInt `json:"quantity"`
}

// decodeSummary accepts {"summary":{...}} as well as the summary fields at the top level.
func decodeSummary(frame []byte) (domain.Summary, error) {
	var env syncFrame
	if err := json.Unmarshal(frame, &env); err != nil {
		return domain.Summary{}, err
	}
	src := frame
	if present(env.Summary) {
		src = env.Summary
	}
	var s domain.Summary
	if err := json.Unmarshal(src, &s); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}

// decodeRoll reads the roll spec either from "spec" or from the frame itself.
func decodeRoll(frame []byte) (rollFrame, dice.Spec, error) {
	var rf rollFrame
	if err := json.Unmarshal(frame, &rf); err != nil {
		return rollFrame{}, dice.Spec{}, err
	}
	src := frame
	if present(rf.Spec) {
		src = rf.Spec
	}
	var sf rollSpecFrame
	if err := json.Unmarshal(src, &sf); err != nil {
		return rollFrame{}, dice.Spec{}, err
	}
	return rf, sf.toSpec(), nil
}

func (f rollSpecFrame) toSpec() dice.Spec {
	spec := dice.Spec{
		DieFaces: int(f.DieFaces),
		Quantity: int(f.Quantity),
		Modifier: int(f.Modifier),
		Mode:     dice.ParseMode(string(f.Mode)),
		Critical: bool(f.Critical),
	}
	if spec.DieFaces == 0 && f.DiceType != "" {
		if n, err := dice.ParseNotation(string(f.DiceType)); err == nil {
			spec.DieFaces = n.Sides
		}
	}
	if present(f.Extra) {
		var ef extraFrame
		if json.Unmarshal(f.Extra, &ef) == nil {
			spec.Extra = &dice.Extra{DieFaces: int(ef.DieFaces), Quantity: int(ef.Quantity)}
		}
	}
	if f.Notation != "" {
		if n, err := dice.ParseNotation(string(f.Notation)); err == nil {
			spec = n.Apply(spec)
		}
	}
	return spec
}

func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// flexInt accepts numbers or numeric strings. Anything else decodes as 0.
type flexInt int

const flexIntLimit = 1 << 30

func (n *flexInt) UnmarshalJSON(b []byte) error {
	*n = 0
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) {
		return nil
	}
	f = math.Max(-flexIntLimit, math.Min(flexIntLimit, f))
	*n = flexInt(math.Trunc(f))
	return nil
}

// flexString accepts strings or numbers (kept as their literal text).
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	*s = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		*s = flexString(strings.TrimSpace(str))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = flexString(b)
	}
	return nil
}

// flexBool accepts booleans, "true"/"false" and numbers.
type flexBool bool

func (v *flexBool) UnmarshalJSON(b []byte) error {
	*v = false
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	switch t := raw.(type) {
	case bool:
		*v = flexBool(t)
	case float64:
		*v = t != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(t))
		*v = flexBool(err == nil && parsed)
	}
	return nil
}
