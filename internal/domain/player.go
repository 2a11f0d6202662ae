package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Placeholder is shown in the roster for summary fields a player never sent.
	Placeholder = "—"
	// UnknownCharacter replaces a missing character name.
	UnknownCharacter = "Unknown"

	maxStatLen = 64
)

// Stat is an opaque summary value. Clients send strings or numbers;
// both are kept as their literal text.
type Stat string

func (s *Stat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = clipStat(str)
	case data[0] == '{' || data[0] == '[':
		*s = ""
	default:
		*s = clipStat(string(data))
	}
	return nil
}

func (s Stat) Or(fallback string) string {
	if s == "" {
		return fallback
	}
	return string(s)
}

func clipStat(v string) Stat {
	v = strings.TrimSpace(v)
	if utf8.RuneCountInString(v) > maxStatLen {
		v = string([]rune(v)[:maxStatLen])
	}
	return Stat(v)
}

// Summary is the combat snapshot a player pushes with player_sync.
type Summary struct {
	CharacterName Stat `json:"characterName"`
	AC            Stat `json:"ac"`
	CurrentHP     Stat `json:"currentHp"`
	MaxHP         Stat `json:"maxHp"`
	Level         Stat `json:"level"`
	Race          Stat `json:"race"`
	Class         Stat `json:"class"`
}

func (s Summary) IsZero() bool { return s == Summary{} }

// PlayerSession is one player's presence in one room, keyed by connection.
// Offline sessions linger until the reaper removes them.
type PlayerSession struct {
	ConnID       ConnID
	Identity     string
	DisplayName  string
	Summary      Summary
	Online       bool
	JoinedAt     time.Time
	LastSync     time.Time
	OfflineSince time.Time
}

// RosterEntry is the GM-facing row for one player session.
type RosterEntry struct {
	ConnectionID  ConnID `json:"connectionId"`
	PlayerName    string `json:"playerName"`
	CharacterName string `json:"characterName"`
	AC            string `json:"ac"`
	CurrentHP     string `json:"currentHp"`
	MaxHP         string `json:"maxHp"`
	Level         string `json:"level"`
	Race          string `json:"race"`
	Class         string `json:"class"`
	Online        bool   `json:"online"`
	LastSync      int64  `json:"lastSync,omitempty"`
}

func (p PlayerSession) RosterEntry() RosterEntry {
	e := RosterEntry{
		ConnectionID:  p.ConnID,
		PlayerName:    p.DisplayName,
		CharacterName: p.Summary.CharacterName.Or(UnknownCharacter),
		AC:            p.Summary.AC.Or(Placeholder),
		CurrentHP:     p.Summary.CurrentHP.Or(Placeholder),
		MaxHP:         p.Summary.MaxHP.Or(Placeholder),
		Level:         p.Summary.Level.Or(Placeholder),
		Race:          p.Summary.Race.Or(Placeholder),
		Class:         p.Summary.Class.Or(Placeholder),
		Online:        p.Online,
	}
	if !p.LastSync.IsZero() {
		e.LastSync = p.LastSync.UnixMilli()
	}
	return e
}
