package state

import "board-relay/models"

// Push adds an entry. At most one entry exists per post and per path; a
// duplicate push is ignored and reports false.
func (s *State) Push(entry models.QueueEntry) bool {
	for _, e := range s.doc.Queue {
		if e.Path == entry.Path || (e.Target == entry.Target && e.ThreadID == entry.ThreadID && e.PostID == entry.PostID) {
			return false
		}
	}
	s.doc.Queue = append(s.doc.Queue, entry)
	s.dirty = true
	return true
}

// Pop removes and returns an entry chosen uniformly at random among those
// matching pred.
func (s *State) Pop(pred func(models.QueueEntry) bool) (models.QueueEntry, bool) {
	var idx []int
	for i, e := range s.doc.Queue {
		if pred == nil || pred(e) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return models.QueueEntry{}, false
	}
	i := idx[s.rng.IntN(len(idx))]
	entry := s.doc.Queue[i]
	s.doc.Queue = append(s.doc.Queue[:i], s.doc.Queue[i+1:]...)
	s.dirty = true
	return entry, true
}

// Peek returns an entry chosen like Pop without removing it.
func (s *State) Peek(pred func(models.QueueEntry) bool) (models.QueueEntry, bool) {
	var matches []models.QueueEntry
	for _, e := range s.doc.Queue {
		if pred == nil || pred(e) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return models.QueueEntry{}, false
	}
	return matches[s.rng.IntN(len(matches))], true
}

// RemoveMatching drops every entry matching pred and returns them.
func (s *State) RemoveMatching(pred func(models.QueueEntry) bool) []models.QueueEntry {
	var removed []models.QueueEntry
	kept := s.doc.Queue[:0]
	for _, e := range s.doc.Queue {
		if pred(e) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	s.doc.Queue = kept
	if len(removed) > 0 {
		s.dirty = true
	}
	return removed
}

// Lookup finds the entry for a blob path.
func (s *State) Lookup(path string) (models.QueueEntry, bool) {
	for _, e := range s.doc.Queue {
		if e.Path == path {
			return e, true
		}
	}
	return models.QueueEntry{}, false
}

// QueueLen returns the number of cached entries.
func (s *State) QueueLen() int {
	return len(s.doc.Queue)
}

// SampleFrom picks one key uniformly at random from the blob store listing.
func (s *State) SampleFrom(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", ErrNoCandidate
	}
	return keys[s.rng.IntN(len(keys))], nil
}

// ForThread matches entries of one thread.
func ForThread(target, threadID string) func(models.QueueEntry) bool {
	return func(e models.QueueEntry) bool {
		return e.Target == target && e.ThreadID == threadID
	}
}

// RecomputeOldest refreshes the oldest queued post time of a target.
func (s *State) RecomputeOldest(target string) {
	var oldest int64
	for _, e := range s.doc.Queue {
		if e.Target != target || e.PostedAt <= 0 {
			continue
		}
		if oldest == 0 || e.PostedAt < oldest {
			oldest = e.PostedAt
		}
	}
	prev, had := s.doc.OldestPostTime[target]
	switch {
	case oldest == 0 && had:
		delete(s.doc.OldestPostTime, target)
		s.dirty = true
	case oldest != 0 && prev != oldest:
		s.doc.OldestPostTime[target] = oldest
		s.dirty = true
	}
}
