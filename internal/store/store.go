// Package store persists opaque JSON records (rooms, sheets, monsters)
// for the HTTP API. The live table state never goes through it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidKind   = errors.New("invalid record kind")
	ErrInvalidRecord = errors.New("invalid record")
)

type Kind string

const (
	KindRooms    Kind = "rooms"
	KindSheets   Kind = "sheets"
	KindMonsters Kind = "monsters"
)

const maxIDLen = 128

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindRooms, KindSheets, KindMonsters:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
}

// Record is one stored document. Data is kept byte-for-byte.
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	RoomID    string          `json:"roomId,omitempty"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (r Record) Validate() error {
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	switch {
	case r.ID == "" || utf8.RuneCountInString(r.ID) > maxIDLen:
		return fmt.Errorf("%w: id", ErrInvalidRecord)
	case utf8.RuneCountInString(r.RoomID) > maxIDLen:
		return fmt.Errorf("%w: roomId", ErrInvalidRecord)
	case !json.Valid(r.Data):
		return fmt.Errorf("%w: data is not json", ErrInvalidRecord)
	}
	return nil
}

// RecordStore is the key-value collaborator behind /api/records.
type RecordStore interface {
	Get(ctx context.Context, kind Kind, id string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, kind Kind, id string) error
	ListByRoom(ctx context.Context, kind Kind, roomID string) ([]Record, error)
	Ping(ctx context.Context) error
	Close() error
}
