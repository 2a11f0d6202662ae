// Package redisstore keeps records as JSON strings in Redis, with one set
// per room and kind indexing record ids.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dkeye/dicetable/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps client. A zero ttl keeps records forever.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Open connects to addr and pings it.
func Open(ctx context.Context, addr string, ttl time.Duration) (*Store, error) {
	addr = strings.TrimPrefix(addr, "redis://")
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, ttl), nil
}

func recordKey(kind store.Kind, id string) string {
	return fmt.Sprintf("record:%s:%s", kind, id)
}

func roomKey(roomID string, kind store.Kind) string {
	return fmt.Sprintf("room:%s:%s", roomID, kind)
}

func (s *Store) Get(ctx context.Context, kind store.Kind, id string) (store.Record, error) {
	data, err := s.client.Get(ctx, recordKey(kind, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, err
	}
	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return store.Record{}, fmt.Errorf("decode %s: %w", recordKey(kind, id), err)
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, rec store.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	prev, err := s.Get(ctx, rec.Kind, rec.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(rec.Kind, rec.ID), data, s.ttl)
		if prev.RoomID != "" && prev.RoomID != rec.RoomID {
			pipe.SRem(ctx, roomKey(prev.RoomID, rec.Kind), rec.ID)
		}
		if rec.RoomID != "" {
			pipe.SAdd(ctx, roomKey(rec.RoomID, rec.Kind), rec.ID)
		}
		return nil
	})
	return err
}

func (s *Store) Delete(ctx context.Context, kind store.Kind, id string) error {
	prev, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(kind, id))
		if prev.RoomID != "" {
			pipe.SRem(ctx, roomKey(prev.RoomID, kind), id)
		}
		return nil
	})
	return err
}

// ListByRoom returns the room's records sorted by id. Index entries whose
// record expired are pruned on the way.
func (s *Store) ListByRoom(ctx context.Context, kind store.Kind, roomID string) ([]store.Record, error) {
	ids, err := s.client.SMembers(ctx, roomKey(roomID, kind)).Result()
	if err != nil {
		return nil, err
	}
	out := []store.Record{}
	if len(ids) == 0 {
		return out, nil
	}
	slices.Sort(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(kind, id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var stale []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec store.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("key", keys[i]).Msg("skipping undecodable record")
			continue
		}
		out = append(out, rec)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, roomKey(roomID, kind), stale...).Err(); err != nil {
			log.Warn().Err(err).Str("module", "store.redis").Str("room", roomID).Msg("prune index")
		}
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
