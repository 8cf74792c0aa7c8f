package models

import "time"

// NotificationKind is the closed set of notification types the relay acts on.
type NotificationKind int

const (
	KindUnknown NotificationKind = iota
	KindReblog
	KindFavourite
	KindEmojiReaction
	KindMention
)

var notificationKinds = map[string]NotificationKind{
	"reblog":                 KindReblog,
	"favourite":              KindFavourite,
	"favorite":               KindFavourite,
	"pleroma:emoji_reaction": KindEmojiReaction,
	"emoji_reaction":         KindEmojiReaction,
	"mention":                KindMention,
}

// ParseNotificationKind maps the API's type string to a kind.
func ParseNotificationKind(s string) NotificationKind {
	return notificationKinds[s]
}

func (k NotificationKind) String() string {
	switch k {
	case KindReblog:
		return "reblog"
	case KindFavourite:
		return "favourite"
	case KindEmojiReaction:
		return "emoji_reaction"
	case KindMention:
		return "mention"
	default:
		return "unknown"
	}
}

// Account is the subset of an account the relay uses.
type Account struct {
	ID   string `json:"id"`
	Acct string `json:"acct"`
}

// Mention is an account mentioned by a status.
type Mention struct {
	ID   string `json:"id"`
	Acct string `json:"acct"`
}

// Status is a posted status as the Posting API returns it.
type Status struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	InReplyToID string    `json:"in_reply_to_id"`
	Visibility  string    `json:"visibility"`
	Mentions    []Mention `json:"mentions"`
}

// Notification is an inbound event from the notification feed.
type Notification struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Kind      NotificationKind `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
	Account   Account          `json:"account"`
	Status    *Status          `json:"status"`
}

// StatusID returns the id of the referenced status, if any.
func (n Notification) StatusID() string {
	if n.Status == nil {
		return ""
	}
	return n.Status.ID
}
