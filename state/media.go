package state

// CachedMedia returns the remote media id previously obtained for a path.
func (s *State) CachedMedia(path string) (string, bool) {
	id, ok := s.doc.MediaIDs[path]
	return id, ok && id != ""
}

// CacheMedia remembers the remote media id of a path.
func (s *State) CacheMedia(path, mediaID string) {
	s.doc.MediaIDs[path] = mediaID
	s.dirty = true
}

// ForgetMedia drops a path from the cache once its file is gone.
func (s *State) ForgetMedia(path string) {
	if _, ok := s.doc.MediaIDs[path]; ok {
		delete(s.doc.MediaIDs, path)
		s.dirty = true
	}
}
