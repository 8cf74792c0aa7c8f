package state

import "board-relay/models"

func (s *State) thread(target, threadID string, create bool) *models.ThreadEngagement {
	threads, ok := s.doc.BasedCringe[target]
	if !ok {
		if !create {
			return nil
		}
		threads = map[string]*models.ThreadEngagement{}
		s.doc.BasedCringe[target] = threads
	}
	te, ok := threads[threadID]
	if !ok && create {
		te = models.NewThreadEngagement()
		threads[threadID] = te
	}
	return te
}

func (s *State) post(ref models.PostRef, create bool) *models.PostEngagement {
	te := s.thread(ref.Target, ref.ThreadID, create)
	if te == nil {
		return nil
	}
	pe, ok := te.Posts[ref.PostID]
	if !ok && create {
		pe = models.NewPostEngagement()
		te.Posts[ref.PostID] = pe
	}
	return pe
}

// Record adds an endorsing account to a post's record. It is idempotent
// and reports whether the account was new for this post. An account's
// first engagement queues the opt-out notice.
func (s *State) Record(ref models.PostRef, acct string, kind models.EngagementKind) bool {
	pe := s.post(ref, true)
	var added bool
	switch kind {
	case models.Based:
		added = pe.Based.Add(acct)
	case models.Fav:
		added = pe.Fav.Add(acct)
	}
	s.dirty = true
	if added && !s.doc.Notified.Has(acct) && !s.doc.Notag.Has(acct) {
		s.queueNotice(acct)
	}
	return added
}

func (s *State) queueNotice(acct string) {
	for _, a := range s.notices {
		if a == acct {
			return
		}
	}
	s.notices = append(s.notices, acct)
}

// BasedScore is the sum over a thread's posts of their strong endorsements.
func (s *State) BasedScore(target, threadID string) float64 {
	te := s.thread(target, threadID, false)
	if te == nil {
		return 0
	}
	var n float64
	for _, pe := range te.Posts {
		n += float64(len(pe.Based))
	}
	return n
}

// CringeScore counts a thread's post records. Records exist once a post
// was published or engaged with.
func (s *State) CringeScore(target, threadID string) float64 {
	te := s.thread(target, threadID, false)
	if te == nil {
		return 0
	}
	return float64(len(te.Posts))
}

// Gated reports whether a thread may not admit new posts: its cringe score
// exceeds its based score.
func (s *State) Gated(target, threadID string) bool {
	return s.CringeScore(target, threadID) > s.BasedScore(target, threadID)
}

// ResolvePost maps a published status back to its post.
func (s *State) ResolvePost(statusID string) (models.PostRef, bool) {
	if statusID == "" {
		return models.PostRef{}, false
	}
	ref, ok := s.byStatus[statusID]
	return ref, ok
}

// SetPleromaID records the status a post became, creating its record.
func (s *State) SetPleromaID(ref models.PostRef, statusID string) {
	pe := s.post(ref, true)
	if pe.PleromaID != "" {
		delete(s.byStatus, pe.PleromaID)
	}
	pe.PleromaID = statusID
	s.byStatus[statusID] = ref
	s.dirty = true
}

// Untag excludes an account from a thread's dump mention list.
func (s *State) Untag(target, threadID, acct string) {
	te := s.thread(target, threadID, true)
	if te.Untagged.Add(acct) {
		s.dirty = true
	}
}

// MentionList is the deduplicated, sorted set of accounts with strong
// engagement on the thread, minus its untagged set and the opt-out list.
func (s *State) MentionList(target, threadID string) []string {
	te := s.thread(target, threadID, false)
	if te == nil {
		return nil
	}
	accts := models.AccountSet{}
	for _, pe := range te.Posts {
		for a := range pe.Based {
			if te.Untagged.Has(a) || s.doc.Notag.Has(a) {
				continue
			}
			accts.Add(a)
		}
	}
	return accts.Sorted()
}

// StronglyEngagedPosts counts a thread's posts with at least one strong
// endorsement.
func (s *State) StronglyEngagedPosts(target, threadID string) int {
	te := s.thread(target, threadID, false)
	if te == nil {
		return 0
	}
	var n int
	for _, pe := range te.Posts {
		if len(pe.Based) > 0 {
			n++
		}
	}
	return n
}

// EngagementMass sums |based| + favWeight*|fav| over every active record.
func (s *State) EngagementMass() float64 {
	var mass float64
	for _, threads := range s.doc.BasedCringe {
		for _, te := range threads {
			for _, pe := range te.Posts {
				mass += float64(len(pe.Based)) + s.doc.FavWeight*float64(len(pe.Fav))
			}
		}
	}
	return mass
}

// HasRecord reports whether the thread has an engagement record.
func (s *State) HasRecord(target, threadID string) bool {
	return s.thread(target, threadID, false) != nil
}

// DeleteThread purges a thread's engagement record and cached excerpt.
func (s *State) DeleteThread(target, threadID string) {
	if te := s.thread(target, threadID, false); te != nil {
		for _, pe := range te.Posts {
			if pe.PleromaID != "" {
				delete(s.byStatus, pe.PleromaID)
			}
		}
		delete(s.doc.BasedCringe[target], threadID)
		if len(s.doc.BasedCringe[target]) == 0 {
			delete(s.doc.BasedCringe, target)
		}
		s.dirty = true
	}
	if ops, ok := s.doc.ThreadOps[target]; ok {
		if _, ok := ops[threadID]; ok {
			delete(ops, threadID)
			s.dirty = true
		}
	}
}

func (s *State) reindex() {
	s.byStatus = map[string]models.PostRef{}
	for target, threads := range s.doc.BasedCringe {
		for threadID, te := range threads {
			for postID, pe := range te.Posts {
				if pe.PleromaID != "" {
					s.byStatus[pe.PleromaID] = models.PostRef{Target: target, ThreadID: threadID, PostID: postID}
				}
			}
		}
	}
}

// Published reports whether a post already became a status.
func (s *State) Published(ref models.PostRef) bool {
	pe := s.post(ref, false)
	return pe != nil && pe.PleromaID != ""
}
