package state

import (
	"testing"
	"time"

	"board-relay/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeWaitNeverBelowFloor(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	cases := []struct {
		name     string
		noReacts float64
		carried  float64
		oldest   int64
	}{
		{"just engaged", 0, 0, 0},
		{"starving", 12, 0, 0},
		{"fresh content", 3, 0, now.Unix() - 1},
		{"stale content", 3, 0, now.Unix() - 86400},
		{"heavy carry", 1, 1e6, 0},
		{"future post time", 2, 0, now.Unix() + 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&Document{NoReacts: tc.noReacts, CarriedOverDumps: tc.carried})
			if tc.oldest != 0 {
				s.Doc().OldestPostTime["g"] = tc.oldest
			}
			wait := s.ComputeWait(now)
			assert.GreaterOrEqual(t, wait, DefaultMinWait)
		})
	}
}

func TestComputeWaitFormula(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	s := New(&Document{QueueWait: 3600, NoReacts: 2, CarriedOverDumps: 3})
	r := models.PostRef{Target: "g", ThreadID: "1", PostID: "10"}
	s.Record(r, "a", models.Based)
	s.Record(r, "b", models.Fav)
	s.Record(r, "c", models.Fav)

	// 3600 / (1 + (1 + 0.5*2) + 3) * 2
	assert.InDelta(t, 1200.0, s.RawWait(now), 1e-9)

	s.Doc().OldestPostTime["g"] = now.Unix() - 1800
	assert.InDelta(t, 600.0, s.RawWait(now), 1e-9)
}

func TestComputeWaitZeroReactsSkipsDecay(t *testing.T) {
	s := New(&Document{NoReacts: 0, CarriedOverDumps: 4})

	wait := s.ComputeWait(time.Now())

	assert.Equal(t, DefaultMinWait, wait)
	assert.Equal(t, 4.0, s.CarriedOver())
}

func TestCarriedOverConverges(t *testing.T) {
	s := New(&Document{NoReacts: 1, CarriedOverDumps: 50})
	now := time.Now()

	prev := s.CarriedOver()
	for i := 0; i < 40; i++ {
		s.ComputeWait(now)
		assert.LessOrEqual(t, s.CarriedOver(), prev)
		prev = s.CarriedOver()
	}
	assert.Zero(t, s.CarriedOver())
}

func TestDecayCarried(t *testing.T) {
	assert.Zero(t, DecayCarried(0))
	assert.Zero(t, DecayCarried(-3))
	assert.InDelta(t, 2.0, DecayCarried(8), 1e-9)
	assert.Zero(t, DecayCarried(1e-4))
}

func TestSchedulePostNeverRewinds(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	s := New(&Document{NoReacts: 1, NextPost: now.Unix() + 100000})

	next := s.SchedulePost(now)

	assert.Equal(t, now.Unix()+100000, next.Unix())
}

func TestPublishThenSchedule(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	s := New(&Document{QueueWait: 600})

	s.RecordPublish(now)
	next := s.SchedulePost(now)

	assert.Equal(t, 1.0, s.NoReacts())
	assert.Equal(t, now.Unix()+600, next.Unix())
	assert.False(t, s.Due(now))
	assert.True(t, s.Due(next))
}

func TestRecomputeAfterEngagement(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	s := New(&Document{QueueWait: 600, NoReacts: 5, LastPost: now.Unix() - 60, NextPost: now.Unix() + 3000})

	s.ResetNoReacts()
	moved := s.RecomputeAfterEngagement(now)

	assert.True(t, moved)
	assert.Equal(t, now.Unix(), s.NextPost().Unix(), "bounded below by now")

	assert.False(t, s.RecomputeAfterEngagement(now))
}
