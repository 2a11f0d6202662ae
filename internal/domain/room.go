package domain

import "time"

type (
	RoomCode string
	ConnID   string
)

// Role is fixed for the lifetime of a connection once it joins a room.
type Role string

const (
	RoleNone    Role = ""
	RoleGM      Role = "gm"
	RolePlayer  Role = "player"
	RoleOverlay Role = "overlay"
)

func (r Role) Joined() bool { return r != RoleNone }

// RoomInfo is a read-only view of a room for APIs.
type RoomInfo struct {
	Code          RoomCode  `json:"roomCode"`
	HasGM         bool      `json:"hasGm"`
	Players       int       `json:"players"`
	OnlinePlayers int       `json:"onlinePlayers"`
	Members       int       `json:"members"`
	CreatedAt     time.Time `json:"createdAt"`
}
