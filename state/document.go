package state

import (
	"math"
	"strings"

	"board-relay/models"
)

// TouchedForever marks a thread as permanently skipped.
const TouchedForever int64 = math.MaxInt64

// Tuning defaults.
const (
	DefaultQueueWait         = 3600.0
	DefaultMinWait           = 5.0
	DefaultFavWeight         = 0.5
	DefaultOrphanReblogBonus = 1.0
	DefaultVisibility        = "public"
)

// Document is the persisted state document.
type Document struct {
	Targets  []models.Target `json:"targets"`
	BadWords []string        `json:"badwords"`
	BadRegex []string        `json:"badregex"`

	BasedCringe    map[string]map[string]*models.ThreadEngagement `json:"based_cringe"`
	ThreadOps      map[string]map[string]string                   `json:"thread_ops"`
	ThreadsTouched map[string]map[string]int64                    `json:"threads_touched"`
	OldThreads     map[string][]models.CatalogThread              `json:"old_threads"`
	PendingDumps   map[string][]string                            `json:"pending_dumps,omitempty"`
	Queue          []models.QueueEntry                            `json:"queue"`

	MediaIDs      map[string]string `json:"media_ids"`
	Notag         models.AccountSet `json:"notag"`
	Notified      models.AccountSet `json:"notified"`
	ForceMentions models.AccountSet `json:"force_mentions"`

	LastNotificationID string           `json:"last_notification_id"`
	NextPost           int64            `json:"next_post"`
	LastPost           int64            `json:"last_post"`
	NoReacts           float64          `json:"no_reacts"`
	CarriedOverDumps   float64          `json:"carried_over_dumps"`
	OldestPostTime     map[string]int64 `json:"oldest_post_time"`

	QueueWait         float64 `json:"queue_wait"`
	MinWait           float64 `json:"min_wait"`
	FavWeight         float64 `json:"fav_weight"`
	OrphanReblogBonus float64 `json:"orphan_reblog_bonus"`
	JannyLag          int64   `json:"janny_lag"`

	Sensitive         bool   `json:"sensitive"`
	VisibilityListing string `json:"visibility_listing"`
	ContentPrepend    string `json:"content_prepend"`
	ContentAppend     string `json:"content_append"`
}

// Normalize fills nil maps and zero tuning values so callers never need
// nested-key initialization.
func (d *Document) Normalize() {
	if d.BasedCringe == nil {
		d.BasedCringe = map[string]map[string]*models.ThreadEngagement{}
	}
	for _, threads := range d.BasedCringe {
		for id, te := range threads {
			if te == nil {
				te = models.NewThreadEngagement()
				threads[id] = te
			}
			if te.Posts == nil {
				te.Posts = map[string]*models.PostEngagement{}
			}
			if te.Untagged == nil {
				te.Untagged = models.AccountSet{}
			}
			for pid, pe := range te.Posts {
				if pe == nil {
					pe = models.NewPostEngagement()
					te.Posts[pid] = pe
				}
				if pe.Based == nil {
					pe.Based = models.AccountSet{}
				}
				if pe.Fav == nil {
					pe.Fav = models.AccountSet{}
				}
			}
		}
	}
	if d.ThreadOps == nil {
		d.ThreadOps = map[string]map[string]string{}
	}
	if d.ThreadsTouched == nil {
		d.ThreadsTouched = map[string]map[string]int64{}
	}
	if d.OldThreads == nil {
		d.OldThreads = map[string][]models.CatalogThread{}
	}
	if d.PendingDumps == nil {
		d.PendingDumps = map[string][]string{}
	}
	if d.MediaIDs == nil {
		d.MediaIDs = map[string]string{}
	}
	if d.Notag == nil {
		d.Notag = models.AccountSet{}
	}
	if d.Notified == nil {
		d.Notified = models.AccountSet{}
	}
	if d.ForceMentions == nil {
		d.ForceMentions = models.AccountSet{}
	}
	if d.OldestPostTime == nil {
		d.OldestPostTime = map[string]int64{}
	}
	for i, w := range d.BadWords {
		d.BadWords[i] = strings.ToLower(w)
	}
	if d.QueueWait <= 0 {
		d.QueueWait = DefaultQueueWait
	}
	if d.MinWait <= 0 {
		d.MinWait = DefaultMinWait
	}
	if d.FavWeight <= 0 {
		d.FavWeight = DefaultFavWeight
	}
	if d.OrphanReblogBonus <= 0 {
		d.OrphanReblogBonus = DefaultOrphanReblogBonus
	}
	if d.VisibilityListing == "" {
		d.VisibilityListing = DefaultVisibility
	}
	if d.NoReacts < 0 {
		d.NoReacts = 0
	}
	if d.CarriedOverDumps < 0 {
		d.CarriedOverDumps = 0
	}
}

// Target returns the configured target with the given directory.
func (d *Document) Target(dir string) (models.Target, bool) {
	for _, t := range d.Targets {
		if t.Directory == dir {
			return t, true
		}
	}
	return models.Target{}, false
}

// RoundFloats applies the persistence-boundary rounding.
func (d *Document) RoundFloats() {
	d.NoReacts = round6(d.NoReacts)
	d.CarriedOverDumps = round6(d.CarriedOverDumps)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
