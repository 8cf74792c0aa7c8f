package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"board-relay/database"
	"board-relay/models"
	"board-relay/pleroma"
	"board-relay/scanner"
	"board-relay/state"
	"board-relay/storage"

	"github.com/google/uuid"
)

// idempotencyKey is stable for a given item so a retried create does not
// post twice.
func idempotencyKey(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func formatMentions(accts []string) string {
	out := make([]string, len(accts))
	for i, a := range accts {
		out[i] = "@" + a
	}
	return strings.Join(out, " ")
}

// compose wraps a caption and mention line in the configured prepend and
// append.
func (b *Bot) compose(caption string, mentions []string) string {
	doc := b.state.Doc()
	var parts []string
	if caption != "" {
		parts = append(parts, caption)
	}
	if len(mentions) > 0 {
		parts = append(parts, formatMentions(mentions))
	}
	return doc.ContentPrepend + strings.Join(parts, "<br>") + doc.ContentAppend
}

// uploadMedia returns the remote media id of a stored file. A cached id
// skips the upload.
func (b *Bot) uploadMedia(ctx context.Context, key string) (string, error) {
	if id, ok := b.state.CachedMedia(key); ok {
		mediaUploads.WithLabelValues("hit").Inc()
		return id, nil
	}
	data, err := b.blobs.Get(ctx, key)
	if err != nil {
		return "", err
	}
	id, err := b.api.UploadMedia(ctx, path.Base(key), data)
	if err != nil {
		return "", err
	}
	mediaUploads.WithLabelValues("miss").Inc()
	b.state.CacheMedia(key, id)
	return id, nil
}

// publishNext samples one stored file across all targets and publishes it,
// then reschedules.
func (b *Bot) publishNext(ctx context.Context) error {
	var keys []string
	for _, t := range b.state.Targets() {
		ks, err := b.blobs.List(ctx, t.Directory+"/")
		if err != nil {
			return fmt.Errorf("failed to list media of %s: %w", t.Directory, err)
		}
		keys = append(keys, ks...)
	}
	key, err := b.state.SampleFrom(keys)
	if err != nil {
		return err
	}

	entry, known := b.state.Lookup(key)
	if !known {
		log.Printf("No queue metadata for %s, posting without caption.", key)
		entry = models.QueueEntry{Path: key}
		if dir, threadID, _, ok := models.SplitMediaKey(key); ok {
			entry.Target, entry.ThreadID = dir, threadID
		}
	}

	if _, err := b.publishEntry(ctx, entry, known, "", database.KindPost); err != nil {
		return err
	}
	now := b.now()
	b.state.RecordPublish(now)
	next := b.state.SchedulePost(now)
	log.Printf("Next post at %s", next.Format("2006-01-02 15:04:05"))
	return nil
}

// FastTrack publishes one queued entry of a thread as a reply to replyTo.
// It leaves the schedule alone.
func (b *Bot) FastTrack(ctx context.Context, target, threadID, replyTo string) error {
	entry, ok := b.state.Peek(state.ForThread(target, threadID))
	if !ok {
		return state.ErrNoCandidate
	}
	exists, err := b.blobs.Exists(ctx, entry.Path)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", entry.Path, err)
	}
	if !exists {
		b.dropEntry(entry.Path)
		return state.ErrNoCandidate
	}
	_, err = b.publishEntry(ctx, entry, true, replyTo, database.KindFastTrack)
	return err
}

// publishEntry uploads and posts one file. On failure the file and its
// queue entry stay for the next attempt.
func (b *Bot) publishEntry(ctx context.Context, entry models.QueueEntry, known bool, replyTo, kind string) (models.Status, error) {
	mediaID, err := b.uploadMedia(ctx, entry.Path)
	if err != nil {
		publishFailures.Inc()
		if errors.Is(err, storage.ErrNotFound) {
			b.dropEntry(entry.Path)
		}
		return models.Status{}, fmt.Errorf("failed to upload %s: %w", entry.Path, err)
	}

	doc := b.state.Doc()
	mentions := b.state.ForceMentions()
	status, err := b.api.CreateStatus(ctx, pleroma.StatusParams{
		Text:           b.compose(scanner.Caption(entry.Body), mentions),
		Visibility:     doc.VisibilityListing,
		Sensitive:      doc.Sensitive,
		MediaIDs:       []string{mediaID},
		InReplyToID:    replyTo,
		IdempotencyKey: idempotencyKey(entry.Path),
	})
	if err != nil {
		publishFailures.Inc()
		return models.Status{}, fmt.Errorf("failed to publish %s: %w", entry.Path, err)
	}

	if known {
		b.state.SetPleromaID(models.PostRef{Target: entry.Target, ThreadID: entry.ThreadID, PostID: entry.PostID}, status.ID)
	}
	if err := b.blobs.Delete(ctx, entry.Path); err != nil {
		logError("delete published media", err)
	}
	b.dropEntry(entry.Path)
	b.state.ClearForceMentions()
	if entry.Target != "" {
		b.state.RecomputeOldest(entry.Target)
	}

	b.record(database.Published{
		Target:   entry.Target,
		ThreadID: entry.ThreadID,
		PostID:   entry.PostID,
		StatusID: status.ID,
		Kind:     kind,
		Mentions: len(mentions),
		Media:    1,
	})
	postsPublished.WithLabelValues(kind).Inc()
	log.Printf("Published %s as status %s (%s)", entry.Path, status.ID, kind)
	return status, nil
}

func (b *Bot) dropEntry(key string) {
	b.state.RemoveMatching(func(e models.QueueEntry) bool { return e.Path == key })
	b.state.ForgetMedia(key)
}
