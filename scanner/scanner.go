package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"board-relay/database"
	"board-relay/models"
	"board-relay/state"
	"board-relay/storage"
	"board-relay/utils"
)

// touchSlack is how far behind last_modified a touch may lag before the
// thread is refetched.
const touchSlack = 600

// Dumper consolidates a thread's remaining media into one status and
// purges the thread.
type Dumper interface {
	Dump(ctx context.Context, target models.Target, threadID string) error
}

// ExclusionRecorder keeps a record of threads skipped by moderation.
type ExclusionRecorder interface {
	AddExclusion(e database.Exclusion) error
}

// Result summarizes one poll.
type Result struct {
	Queued      int
	Dumped      int
	Flagged     int
	FetchErrors int
}

func (r *Result) add(o Result) {
	r.Queued += o.Queued
	r.Dumped += o.Dumped
	r.Flagged += o.Flagged
	r.FetchErrors += o.FetchErrors
}

// Poller refreshes catalogs, downloads eligible media into the blob store
// and drives the thread lifecycle.
type Poller struct {
	state   *state.State
	source  *Client
	blobs   storage.BlobStore
	dumper  Dumper
	history ExclusionRecorder
	filter  *Filter
	maxDim  int
	now     func() time.Time
}

type Option func(*Poller)

// WithHistory records moderation exclusions.
func WithHistory(h ExclusionRecorder) Option {
	return func(p *Poller) {
		p.history = h
	}
}

// WithMaxDimension downscales images larger than px on either side.
func WithMaxDimension(px int) Option {
	return func(p *Poller) {
		p.maxDim = px
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

func NewPoller(st *state.State, source *Client, blobs storage.BlobStore, dumper Dumper, opts ...Option) *Poller {
	p := &Poller{
		state:  st,
		source: source,
		blobs:  blobs,
		dumper: dumper,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollAll refreshes every target. A failing target does not stop the rest.
func (p *Poller) PollAll(ctx context.Context) Result {
	var total Result
	for _, t := range p.state.Targets() {
		res, err := p.PollTarget(ctx, t)
		if err != nil {
			utils.Warn("scanner", "poll "+t.Directory, err.Error())
		}
		total.add(res)
	}
	return total
}

// PollTarget runs one catalog poll of a target. A catalog failure leaves
// state untouched.
func (p *Poller) PollTarget(ctx context.Context, t models.Target) (Result, error) {
	var res Result
	dir := t.Directory

	threads, err := p.source.Catalog(ctx, t)
	if err != nil {
		res.FetchErrors++
		return res, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	now := p.now().Unix()
	cutoff := now - p.state.Doc().JannyLag

	current := make(map[string]bool, len(threads))
	for _, ct := range threads {
		current[models.FormatID(ct.No)] = true
	}

	old, seen := p.state.OldThreads(dir)
	for _, ct := range old {
		id := models.FormatID(ct.No)
		if current[id] {
			continue
		}
		log.Printf("Thread %s/%s fell off the catalog.", dir, id)
		if p.dump(ctx, t, id) {
			res.Dumped++
		}
		p.state.Untouch(dir, id)
	}
	p.state.SetOldThreads(dir, threads)

	if !seen {
		log.Printf("First poll of %s, skipping backlog of %d threads.", dir, len(threads))
		for _, ct := range threads {
			p.state.Touch(dir, models.FormatID(ct.No), cutoff)
		}
		return res, nil
	}

	for _, ct := range threads {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.add(p.processThread(ctx, t, ct, cutoff))
	}
	p.state.RecomputeOldest(dir)
	return res, nil
}

func (p *Poller) processThread(ctx context.Context, t models.Target, ct models.CatalogThread, cutoff int64) Result {
	var res Result
	dir := t.Directory
	id := models.FormatID(ct.No)

	touched, ok := p.state.Touched(dir, id)
	if ok && touched >= ct.LastModified-touchSlack {
		return res
	}
	if p.state.Gated(dir, id) {
		return res
	}

	thread, err := p.source.Thread(ctx, t, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("Failed to fetch thread %s/%s: %v", dir, id, err)
		}
		res.FetchErrors++
		return res
	}
	thread.LastModified = ct.LastModified

	if ct.Closed != 0 || thread.Closed {
		log.Printf("Thread %s/%s is closed.", dir, id)
		if p.dump(ctx, t, id) {
			res.Dumped++
		}
		p.state.Touch(dir, id, state.TouchedForever)
		return res
	}

	if reason, flagged := p.moderation().Check(thread.Posts); flagged {
		p.exclude(ctx, t, id, reason)
		res.Flagged++
		return res
	}

	if len(thread.Posts) > 0 {
		p.state.SetThreadOp(dir, id, Excerpt(thread.Posts[0].Body))
	}

	failed := false
	for _, post := range thread.Posts {
		if !post.HasMedia() || post.PostedAt < touched || post.PostedAt >= cutoff {
			continue
		}
		queued, err := p.admit(ctx, t, id, post)
		if err != nil {
			log.Printf("Failed to admit %s/%s/%s: %v", dir, id, post.ID, err)
			failed = true
			continue
		}
		if queued {
			res.Queued++
		}
	}
	if !failed {
		p.state.Touch(dir, id, cutoff)
	}
	return res
}

// admit downloads a post's media unless it is already stored or posted.
func (p *Poller) admit(ctx context.Context, t models.Target, threadID string, post models.Post) (bool, error) {
	ref := models.PostRef{Target: t.Directory, ThreadID: threadID, PostID: post.ID}
	if p.state.Published(ref) {
		return false, nil
	}
	key := models.MediaKey(t.Directory, threadID, post.Filename)

	exists, err := p.blobs.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	if !exists {
		data, err := p.source.Media(ctx, t, post)
		if err != nil {
			return false, err
		}
		data, err = Downscale(data, post.Ext, p.maxDim)
		if err != nil {
			return false, fmt.Errorf("failed to downscale %s: %w", key, err)
		}
		if err := p.blobs.Put(ctx, key, data); err != nil {
			return false, fmt.Errorf("failed to store %s: %w", key, err)
		}
		log.Printf("Stored new media %s", key)
	}

	return p.state.Push(models.QueueEntry{
		Target:   t.Directory,
		ThreadID: threadID,
		PostID:   post.ID,
		Path:     key,
		Body:     post.Body,
		PostedAt: post.PostedAt,
	}), nil
}

// exclude skips a flagged thread for good and purges what it queued.
func (p *Poller) exclude(ctx context.Context, t models.Target, threadID, reason string) {
	dir := t.Directory
	utils.Info("scanner", "moderation", fmt.Sprintf("skipping thread %s/%s (%s)", dir, threadID, reason))
	p.state.Touch(dir, threadID, state.TouchedForever)

	for _, e := range p.state.RemoveMatching(state.ForThread(dir, threadID)) {
		p.state.ForgetMedia(e.Path)
	}
	if err := p.blobs.DeletePrefix(ctx, models.ThreadPrefix(dir, threadID)); err != nil {
		log.Printf("Failed to purge media of %s/%s: %v", dir, threadID, err)
	}
	if p.history != nil {
		if err := p.history.AddExclusion(database.Exclusion{Target: dir, ThreadID: threadID, Reason: reason}); err != nil {
			log.Printf("Failed to record exclusion of %s/%s: %v", dir, threadID, err)
		}
	}
}

// dump runs the finalizer; on failure the thread is kept for retry.
func (p *Poller) dump(ctx context.Context, t models.Target, threadID string) bool {
	if err := p.dumper.Dump(ctx, t, threadID); err != nil {
		utils.Error("scanner", "dump", fmt.Sprintf("thread %s/%s: %v", t.Directory, threadID, err))
		p.state.AddPendingDump(t.Directory, threadID)
		return false
	}
	return true
}

func (p *Poller) moderation() *Filter {
	if p.filter == nil {
		doc := p.state.Doc()
		p.filter = NewFilter(doc.BadWords, doc.BadRegex)
	}
	return p.filter
}
