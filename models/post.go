package models

import (
	"path"
	"strconv"
	"strings"
)

// URL template placeholders.
const (
	PlaceholderNumber = "%%NUMBER%%"
	PlaceholderTim    = "%%TIM%%"
	PlaceholderExt    = "%%EXT%%"
)

// Target identifies one board being watched.
type Target struct {
	Directory  string `json:"directory"`
	CatalogURL string `json:"catalog_url"`
	ThreadURL  string `json:"thread_url"`
	ImageURL   string `json:"image_url"`
}

// ThreadURLFor returns the thread URL with the thread id substituted.
func (t Target) ThreadURLFor(threadID string) string {
	return strings.ReplaceAll(t.ThreadURL, PlaceholderNumber, threadID)
}

// ImageURLFor returns the media URL for a post.
func (t Target) ImageURLFor(p Post) string {
	u := strings.ReplaceAll(t.ImageURL, PlaceholderTim, p.MediaRef)
	return strings.ReplaceAll(u, PlaceholderExt, p.Ext)
}

// Thread is rebuilt from the Source API on every poll.
type Thread struct {
	ID           string
	LastModified int64
	Closed       bool
	Posts        []Post
}

// Post is a single board post. Immutable once fetched.
type Post struct {
	ID          string
	MediaRef    string // remote media reference ("tim")
	Filename    string // local file name, <tim><ext>
	DisplayName string // original upload name
	Subject     string
	Body        string // raw comment HTML
	Ext         string
	PostedAt    int64
	Closed      bool
}

// HasMedia reports whether the post carries an attachment.
func (p Post) HasMedia() bool {
	return p.MediaRef != "" && p.Ext != ""
}

// QueueEntry is downloaded media awaiting publication.
type QueueEntry struct {
	Target   string `json:"target"`
	ThreadID string `json:"thread_id"`
	PostID   string `json:"post_id"`
	Path     string `json:"path"`
	Body     string `json:"body,omitempty"`
	PostedAt int64  `json:"posted_at"`
}

// MediaKey builds the blob store key for a post's media.
func MediaKey(directory, threadID, filename string) string {
	return path.Join(directory, threadID, filename)
}

// ThreadPrefix is the blob store prefix holding a thread's media.
func ThreadPrefix(directory, threadID string) string {
	return path.Join(directory, threadID) + "/"
}

// SplitMediaKey recovers directory and thread id from a media key.
func SplitMediaKey(key string) (directory, threadID, filename string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return "", "", "", false
	}
	n := len(parts)
	return strings.Join(parts[:n-2], "/"), parts[n-2], parts[n-1], true
}

// FormatID renders a numeric board id the way it is keyed in state.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
