// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 36
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrUserIDEmpty        = errors.New("user id empty")
	ErrUserIDTooLong      = errors.New("user id too long")
)

type UserID string

// Identity is a verified account supplied by the identity provider.
// A nil *Identity means the connection is anonymous.
type Identity struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"displayName"`
}

func NewIdentity(id, displayName string) (*Identity, error) {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)
	switch {
	case id == "":
		return nil, ErrUserIDEmpty
	case len(id) > MaxUserIDLen:
		return nil, ErrUserIDTooLong
	case displayName == "":
		return nil, ErrDisplayNameEmpty
	case utf8.RuneCountInString(displayName) > MaxDisplayNameLen:
		return nil, ErrDisplayNameTooLong
	}
	return &Identity{ID: UserID(id), DisplayName: displayName}, nil
}

// DisplayNameOr picks the first non-blank candidate, truncated to MaxDisplayNameLen runes.
func DisplayNameOr(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if utf8.RuneCountInString(c) > MaxDisplayNameLen {
			c = string([]rune(c)[:MaxDisplayNameLen])
		}
		return c
	}
	return ""
}
