package core

import (
	"errors"
	"strings"

	"github.com/dkeye/dicetable/internal/domain"
)

const MaxRoomCodeLen = 64

var (
	ErrEmptyRoomCode    = errors.New("room code empty")
	ErrRoomCodeTooLong  = errors.New("room code too long")
	ErrReservedRoomCode = errors.New("room code reserved")
)

// Codes that name registry internals in key-based stores. They are never rooms.
var reservedCodes = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// NormalizeRoomCode trims raw and rejects codes the registry must never key on.
func NormalizeRoomCode(raw string) (domain.RoomCode, error) {
	code := strings.TrimSpace(raw)
	switch {
	case code == "":
		return "", ErrEmptyRoomCode
	case len(code) > MaxRoomCodeLen:
		return "", ErrRoomCodeTooLong
	}
	if _, ok := reservedCodes[code]; ok {
		return "", ErrReservedRoomCode
	}
	return domain.RoomCode(code), nil
}
