package signal

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/dicetable/internal/app"
	"github.com/dkeye/dicetable/internal/core"
	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

// Hub maps connection IDs to live transports and implements app.Sink.
type Hub struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]core.SignalConnection
	policy app.Policy
}

func NewHub(policy app.Policy) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:  make(map[domain.ConnID]core.SignalConnection),
		policy: policy,
	}
}

func (h *Hub) Register(id domain.ConnID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = conn
}

func (h *Hub) Unregister(id domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Deliver encodes each message once and queues it on every addressed connection.
func (h *Hub) Deliver(out []app.Outbound) {
	for _, o := range out {
		data, err := json.Marshal(o.Msg)
		if err != nil {
			log.Error().Err(err).Str("module", "signal.hub").Msg("marshal outbound")
			continue
		}
		for _, id := range o.To {
			h.send(id, data)
		}
	}
}

func (h *Hub) send(id domain.ConnID, data core.Frame) {
	h.mu.RLock()
	conn, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		log.Debug().Str("module", "signal.hub").Str("conn", string(id)).Msg("target gone")
		return
	}

	err := conn.TrySend(data)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrBackpressure):
		switch h.policy.OnBackPressure(id) {
		case app.KickMember:
			log.Warn().Str("module", "signal.hub").Str("conn", string(id)).Msg("slow consumer kicked")
			conn.Close()
		case app.MarkSlow, app.DropFrame, app.NoAction:
			log.Warn().Str("module", "signal.hub").Str("conn", string(id)).Msg("frame dropped")
		}
	default:
		log.Debug().Err(err).Str("module", "signal.hub").Str("conn", string(id)).Msg("send failed")
	}
}
