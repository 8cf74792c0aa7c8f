package models

import (
	"encoding/json"
	"sort"
)

// EngagementKind distinguishes strong from weak endorsement.
type EngagementKind int

const (
	Based EngagementKind = iota // reblog
	Fav                         // favourite or emoji reaction
)

// AccountSet is a set of account identifiers. It serializes as a sorted
// JSON array.
type AccountSet map[string]struct{}

// NewAccountSet builds a set from the given accounts.
func NewAccountSet(accts ...string) AccountSet {
	s := make(AccountSet, len(accts))
	for _, a := range accts {
		s.Add(a)
	}
	return s
}

// Add inserts an account and reports whether it was new.
func (s AccountSet) Add(acct string) bool {
	if _, ok := s[acct]; ok {
		return false
	}
	s[acct] = struct{}{}
	return true
}

// Remove deletes an account and reports whether it was present.
func (s AccountSet) Remove(acct string) bool {
	if _, ok := s[acct]; !ok {
		return false
	}
	delete(s, acct)
	return true
}

// Has reports membership.
func (s AccountSet) Has(acct string) bool {
	_, ok := s[acct]
	return ok
}

// Sorted returns the members in lexical order.
func (s AccountSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (s AccountSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *AccountSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = NewAccountSet(list...)
	return nil
}

// PostEngagement is the engagement record of one post.
type PostEngagement struct {
	Based     AccountSet `json:"based"`
	Fav       AccountSet `json:"fav"`
	PleromaID string     `json:"pleroma_id,omitempty"`
}

// NewPostEngagement returns an empty record.
func NewPostEngagement() *PostEngagement {
	return &PostEngagement{Based: AccountSet{}, Fav: AccountSet{}}
}

// Engaged reports whether anyone endorsed the post.
func (p *PostEngagement) Engaged() bool {
	return len(p.Based) > 0 || len(p.Fav) > 0
}

// ThreadEngagement holds the per-post records of one thread.
type ThreadEngagement struct {
	Posts    map[string]*PostEngagement `json:"posts"`
	Untagged AccountSet                 `json:"untagged"`
}

// NewThreadEngagement returns an empty thread record.
func NewThreadEngagement() *ThreadEngagement {
	return &ThreadEngagement{Posts: map[string]*PostEngagement{}, Untagged: AccountSet{}}
}

// PostRef locates a post across targets.
type PostRef struct {
	Target   string
	ThreadID string
	PostID   string
}
