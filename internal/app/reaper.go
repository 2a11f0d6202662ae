package app

import (
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/rs/zerolog/log"
)

// DefaultGracePeriod is how long an offline player session survives.
const DefaultGracePeriod = 5 * time.Minute

// Reaper schedules delayed removal of offline player sessions.
// Timers are never cancelled: the callback rechecks state when it fires,
// so a reconnect simply turns a pending removal into a no-op.
type Reaper struct {
	clock Clock
	grace time.Duration
	reap  func(domain.RoomCode, domain.ConnID)
}

func NewReaper(clock Clock, grace time.Duration, reap func(domain.RoomCode, domain.ConnID)) *Reaper {
	if clock == nil {
		clock = SystemClock{}
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Reaper{clock: clock, grace: grace, reap: reap}
}

func (r *Reaper) Grace() time.Duration { return r.grace }

// Schedule queues a removal check after the grace period.
func (r *Reaper) Schedule(code domain.RoomCode, conn domain.ConnID) {
	r.ScheduleAfter(code, conn, r.grace)
}

func (r *Reaper) ScheduleAfter(code domain.RoomCode, conn domain.ConnID, delay time.Duration) {
	log.Debug().Str("module", "app.reaper").Str("room", string(code)).Str("conn", string(conn)).Dur("delay", delay).Msg("removal scheduled")
	r.clock.AfterFunc(delay, func() {
		r.reap(code, conn)
	})
}
