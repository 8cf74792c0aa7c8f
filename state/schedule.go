package state

import (
	"math"
	"time"
)

// carriedEpsilon is the magnitude under which carried_over_dumps snaps to zero.
const carriedEpsilon = 1e-3

// DecayCarried applies the square-root decay to carried_over_dumps. The
// form sqrt(1+x)-1 has its fixed point at zero, so repeated application
// converges there.
func DecayCarried(x float64) float64 {
	if x <= 0 {
		return 0
	}
	y := math.Sqrt(1+x) - 1
	if y < carriedEpsilon {
		return 0
	}
	return y
}

// Staleness is the age in seconds of the oldest queued post across targets.
func (s *State) Staleness(now time.Time) float64 {
	var oldest int64
	for _, ts := range s.doc.OldestPostTime {
		if ts > 0 && (oldest == 0 || ts < oldest) {
			oldest = ts
		}
	}
	if oldest == 0 {
		return 0
	}
	return math.Max(0, float64(now.Unix()-oldest))
}

// RawWait evaluates the wait formula without the floor or decay.
func (s *State) RawWait(now time.Time) float64 {
	d := s.doc
	wait := d.QueueWait / (1 + s.EngagementMass() + d.CarriedOverDumps)
	wait *= d.NoReacts
	if st := s.Staleness(now); st > 0 {
		wait *= st / d.QueueWait
	}
	if math.IsNaN(wait) || wait < 0 {
		return 0
	}
	return wait
}

// ComputeWait returns the delay in seconds until the next publish attempt,
// never below min_wait, and decays carried_over_dumps when the raw wait is
// positive.
func (s *State) ComputeWait(now time.Time) float64 {
	wait := s.RawWait(now)
	if wait > 0 && s.doc.CarriedOverDumps > 0 {
		s.doc.CarriedOverDumps = DecayCarried(s.doc.CarriedOverDumps)
		s.dirty = true
	}
	if wait < s.doc.MinWait {
		wait = s.doc.MinWait
	}
	return wait
}

// Due reports whether the publish time has been reached.
func (s *State) Due(now time.Time) bool {
	return now.Unix() >= s.doc.NextPost
}

// NextPost returns the persisted next publish time.
func (s *State) NextPost() time.Time {
	return time.Unix(s.doc.NextPost, 0)
}

// RecordPublish counts a successful publish toward reaction starvation.
func (s *State) RecordPublish(now time.Time) {
	s.doc.NoReacts++
	s.doc.LastPost = now.Unix()
	s.dirty = true
}

// SchedulePost recomputes next_post from now. It never rewinds.
func (s *State) SchedulePost(now time.Time) time.Time {
	wait := s.ComputeWait(now)
	next := now.Unix() + int64(math.Ceil(wait))
	if next > s.doc.NextPost {
		s.doc.NextPost = next
		s.dirty = true
	}
	return s.NextPost()
}

// ResetNoReacts records that engagement of some kind arrived.
func (s *State) ResetNoReacts() {
	if s.doc.NoReacts != 0 {
		s.doc.NoReacts = 0
		s.dirty = true
	}
}

// RecomputeAfterEngagement shortens next_post to last_post + wait when that
// is earlier, bounded below by now. It reports whether next_post moved.
func (s *State) RecomputeAfterEngagement(now time.Time) bool {
	wait := s.ComputeWait(now)
	candidate := s.doc.LastPost + int64(math.Ceil(wait))
	if candidate < now.Unix() {
		candidate = now.Unix()
	}
	if candidate >= s.doc.NextPost {
		return false
	}
	s.doc.NextPost = candidate
	s.dirty = true
	return true
}

// AddCarriedOver raises carried_over_dumps.
func (s *State) AddCarriedOver(n float64) {
	if n <= 0 {
		return
	}
	s.doc.CarriedOverDumps += n
	s.dirty = true
}

// CarriedOver returns carried_over_dumps.
func (s *State) CarriedOver() float64 {
	return s.doc.CarriedOverDumps
}

// NoReacts returns the posts-without-reaction counter.
func (s *State) NoReacts() float64 {
	return s.doc.NoReacts
}

// OrphanReblogBonus is added to carried_over_dumps for reblogs of unknown statuses.
func (s *State) OrphanReblogBonus() float64 {
	return s.doc.OrphanReblogBonus
}

// Snapshot is a read-only view of scheduler state.
type Snapshot struct {
	NextPost         time.Time `json:"next_post"`
	LastPost         time.Time `json:"last_post"`
	NoReacts         float64   `json:"no_reacts"`
	CarriedOverDumps float64   `json:"carried_over_dumps"`
	EngagementMass   float64   `json:"engagement_mass"`
	Staleness        float64   `json:"staleness_seconds"`
	QueueLen         int       `json:"queue_len"`
	Targets          int       `json:"targets"`
}

// Snapshot captures the scheduler state at now.
func (s *State) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		NextPost:         s.NextPost(),
		LastPost:         time.Unix(s.doc.LastPost, 0),
		NoReacts:         s.doc.NoReacts,
		CarriedOverDumps: s.doc.CarriedOverDumps,
		EngagementMass:   s.EngagementMass(),
		Staleness:        s.Staleness(now),
		QueueLen:         len(s.doc.Queue),
		Targets:          len(s.doc.Targets),
	}
}
