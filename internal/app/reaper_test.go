package app

import (
	"testing"
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestReaperFiresAfterGrace(t *testing.T) {
	clock := newFakeClock()
	var fired []domain.ConnID
	r := NewReaper(clock, 0, func(_ domain.RoomCode, conn domain.ConnID) {
		fired = append(fired, conn)
	})
	assert.Equal(t, DefaultGracePeriod, r.Grace())

	r.Schedule("R", "a")
	clock.Advance(time.Minute)
	r.ScheduleAfter("R", "b", time.Second)

	clock.Advance(time.Second)
	assert.Equal(t, []domain.ConnID{"b"}, fired)

	clock.Advance(4 * time.Minute)
	assert.Equal(t, []domain.ConnID{"b", "a"}, fired)
	assert.Zero(t, clock.Pending())
}

func TestReaperDuplicatesAreHarmless(t *testing.T) {
	clock := newFakeClock()
	calls := 0
	r := NewReaper(clock, time.Second, func(domain.RoomCode, domain.ConnID) { calls++ })

	r.Schedule("R", "a")
	r.Schedule("R", "a")
	clock.Advance(time.Second)
	assert.Equal(t, 2, calls)
}
