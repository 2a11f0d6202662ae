package store

import (
	"context"
	"slices"
	"strings"
	"sync"
)

type memKey struct {
	kind Kind
	id   string
}

// Memory is a process-local RecordStore.
type Memory struct {
	mu      sync.RWMutex
	records map[memKey]Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[memKey]Record)}
}

func (m *Memory) Get(_ context.Context, kind Kind, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[memKey{kind, id}]
	if !ok {
		return Record{}, ErrNotFound
	}
	return clone(rec), nil
}

func (m *Memory) Put(_ context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[memKey{rec.Kind, rec.ID}] = clone(rec)
	return nil
}

func (m *Memory) Delete(_ context.Context, kind Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey{kind, id}
	if _, ok := m.records[k]; !ok {
		return ErrNotFound
	}
	delete(m.records, k)
	return nil
}

func (m *Memory) ListByRoom(_ context.Context, kind Kind, roomID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Record{}
	for k, rec := range m.records {
		if k.kind == kind && rec.RoomID == roomID {
			out = append(out, clone(rec))
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func clone(rec Record) Record {
	rec.Data = append([]byte(nil), rec.Data...)
	return rec
}
