package state

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"board-relay/models"
)

// ErrNoCandidate is returned when nothing is eligible to publish.
var ErrNoCandidate = errors.New("no media eligible for publishing")

// Saver persists a document.
type Saver interface {
	Save(doc *Document) error
}

// State is the aggregate every component mutates. It is not safe for
// concurrent use; the bot serializes access under a single mutex.
type State struct {
	doc      *Document
	dirty    bool
	byStatus map[string]models.PostRef
	notices  []string
	rng      *rand.Rand
}

// Option configures a State.
type Option func(*State)

// WithRand replaces the random source used by queue selection.
func WithRand(r *rand.Rand) Option {
	return func(s *State) {
		s.rng = r
	}
}

// New wraps a loaded document.
func New(doc *Document, opts ...Option) *State {
	doc.Normalize()
	s := &State{
		doc: doc,
		rng: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reindex()
	return s
}

// Doc exposes the underlying document for read access.
func (s *State) Doc() *Document {
	return s.doc
}

// Targets returns the watched boards.
func (s *State) Targets() []models.Target {
	return s.doc.Targets
}

// MarkDirty schedules a persistence flush.
func (s *State) MarkDirty() {
	s.dirty = true
}

// Dirty reports whether unsaved mutations exist.
func (s *State) Dirty() bool {
	return s.dirty
}

// Flush saves the document when it has unsaved mutations. On failure the
// state stays dirty so the next flush retries.
func (s *State) Flush(saver Saver) error {
	if !s.dirty {
		return nil
	}
	s.doc.RoundFloats()
	if err := saver.Save(s.doc); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	s.dirty = false
	return nil
}

// Touched returns the last-processed epoch of a thread.
func (s *State) Touched(target, threadID string) (int64, bool) {
	ts, ok := s.doc.ThreadsTouched[target][threadID]
	return ts, ok
}

// Touch records the last-processed epoch of a thread.
func (s *State) Touch(target, threadID string, ts int64) {
	m, ok := s.doc.ThreadsTouched[target]
	if !ok {
		m = map[string]int64{}
		s.doc.ThreadsTouched[target] = m
	}
	m[threadID] = ts
	s.dirty = true
}

// Untouch forgets a thread's processing mark.
func (s *State) Untouch(target, threadID string) {
	if m, ok := s.doc.ThreadsTouched[target]; ok {
		delete(m, threadID)
		s.dirty = true
	}
}

// OldThreads returns the catalog seen on the previous poll.
func (s *State) OldThreads(target string) ([]models.CatalogThread, bool) {
	threads, ok := s.doc.OldThreads[target]
	return threads, ok
}

// SetOldThreads stores the catalog seen on this poll.
func (s *State) SetOldThreads(target string, threads []models.CatalogThread) {
	if threads == nil {
		threads = []models.CatalogThread{}
	}
	s.doc.OldThreads[target] = threads
	s.dirty = true
}

// ThreadOp returns the cached first-post excerpt of a thread.
func (s *State) ThreadOp(target, threadID string) string {
	return s.doc.ThreadOps[target][threadID]
}

// SetThreadOp caches a thread's first-post excerpt.
func (s *State) SetThreadOp(target, threadID, excerpt string) {
	m, ok := s.doc.ThreadOps[target]
	if !ok {
		m = map[string]string{}
		s.doc.ThreadOps[target] = m
	}
	if m[threadID] == excerpt {
		return
	}
	m[threadID] = excerpt
	s.dirty = true
}

// AddPendingDump records a dump that must be retried.
func (s *State) AddPendingDump(target, threadID string) {
	for _, id := range s.doc.PendingDumps[target] {
		if id == threadID {
			return
		}
	}
	s.doc.PendingDumps[target] = append(s.doc.PendingDumps[target], threadID)
	s.dirty = true
}

// RemovePendingDump clears a retried dump.
func (s *State) RemovePendingDump(target, threadID string) {
	ids := s.doc.PendingDumps[target]
	for i, id := range ids {
		if id == threadID {
			s.doc.PendingDumps[target] = append(ids[:i], ids[i+1:]...)
			if len(s.doc.PendingDumps[target]) == 0 {
				delete(s.doc.PendingDumps, target)
			}
			s.dirty = true
			return
		}
	}
}

// PendingDumps lists dumps awaiting retry as target/thread refs.
func (s *State) PendingDumps() []models.PostRef {
	var out []models.PostRef
	for target, ids := range s.doc.PendingDumps {
		for _, id := range ids {
			out = append(out, models.PostRef{Target: target, ThreadID: id})
		}
	}
	return out
}

// Notag reports whether the account opted out of mentions.
func (s *State) Notag(acct string) bool {
	return s.doc.Notag.Has(acct)
}

// SetNotag adds or removes an account from the opt-out list and reports
// whether membership changed.
func (s *State) SetNotag(acct string, optOut bool) bool {
	var changed bool
	if optOut {
		changed = s.doc.Notag.Add(acct)
	} else {
		changed = s.doc.Notag.Remove(acct)
	}
	if changed {
		s.dirty = true
	}
	return changed
}

// TakeNotices returns and clears accounts awaiting the opt-out notice.
func (s *State) TakeNotices() []string {
	n := s.notices
	s.notices = nil
	return n
}

// MarkNotified records that an account received the opt-out notice.
func (s *State) MarkNotified(acct string) {
	if s.doc.Notified.Add(acct) {
		s.dirty = true
	}
}

// AddForceMention queues an account for the next outgoing post.
func (s *State) AddForceMention(acct string) {
	if s.doc.ForceMentions.Add(acct) {
		s.dirty = true
	}
}

// ForceMentions returns queued force-mentions minus opted-out accounts.
func (s *State) ForceMentions() []string {
	var out []string
	for _, a := range s.doc.ForceMentions.Sorted() {
		if !s.doc.Notag.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// ClearForceMentions empties the force-mention set.
func (s *State) ClearForceMentions() {
	if len(s.doc.ForceMentions) > 0 {
		s.doc.ForceMentions = models.AccountSet{}
		s.dirty = true
	}
}

// NotificationCursor returns the last processed notification id.
func (s *State) NotificationCursor() string {
	return s.doc.LastNotificationID
}

// AdvanceCursor moves the cursor forward; older ids are ignored.
func (s *State) AdvanceCursor(id string) bool {
	if CompareIDs(id, s.doc.LastNotificationID) <= 0 {
		return false
	}
	s.doc.LastNotificationID = id
	s.dirty = true
	return true
}

// CompareIDs orders notification ids by length then lexically, which
// matches numeric and flake id ordering.
func CompareIDs(a, b string) int {
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
