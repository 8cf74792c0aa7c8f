package models

import "encoding/json"

// CatalogPage is one page of a board catalog response.
type CatalogPage struct {
	Page    int             `json:"page"`
	Threads []CatalogThread `json:"threads"`
}

// CatalogThread is the catalog view of a thread. It is also what is kept
// in old_threads between polls.
type CatalogThread struct {
	No           int64 `json:"no"`
	LastModified int64 `json:"last_modified"`
	Closed       int   `json:"closed,omitempty"`
}

// ThreadResponse is the body of a thread fetch.
type ThreadResponse struct {
	Posts []WirePost `json:"posts"`
}

// WirePost is a post as the Source API returns it.
type WirePost struct {
	No       int64       `json:"no"`
	Com      string      `json:"com"`
	Sub      string      `json:"sub"`
	Name     string      `json:"name"`
	Filename string      `json:"filename"`
	Ext      string      `json:"ext"`
	Tim      json.Number `json:"tim"`
	Time     int64       `json:"time"`
	Closed   int         `json:"closed"`
}

// Post converts the wire form into a Post.
func (w WirePost) Post() Post {
	p := Post{
		ID:          FormatID(w.No),
		MediaRef:    w.Tim.String(),
		DisplayName: w.Filename,
		Subject:     w.Sub,
		Body:        w.Com,
		Ext:         w.Ext,
		PostedAt:    w.Time,
		Closed:      w.Closed != 0,
	}
	if p.HasMedia() {
		p.Filename = p.MediaRef + p.Ext
	}
	return p
}
