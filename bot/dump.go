package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"board-relay/database"
	"board-relay/models"
	"board-relay/pleroma"
	"board-relay/state"
	"board-relay/utils"
)

// Dump consolidates a thread's remaining media into one status mentioning
// everyone who reblogged it, then purges the thread. Nothing is posted when
// no files remain or nobody is left to mention. A failed publish keeps the
// files for a retry.
func (b *Bot) Dump(ctx context.Context, t models.Target, threadID string) error {
	dir := t.Directory
	keys, err := b.blobs.List(ctx, models.ThreadPrefix(dir, threadID))
	if err != nil {
		return fmt.Errorf("failed to list media of %s/%s: %w", dir, threadID, err)
	}
	mentions := b.state.MentionList(dir, threadID)

	switch {
	case len(keys) == 0:
		log.Printf("Thread %s/%s has nothing left to dump.", dir, threadID)
	case len(mentions) == 0:
		log.Printf("Discarding %d files of %s/%s, nobody to mention.", len(keys), dir, threadID)
	default:
		if err := b.publishDump(ctx, dir, threadID, keys, mentions); err != nil {
			return err
		}
	}

	b.purge(ctx, dir, threadID, keys)
	return nil
}

func (b *Bot) publishDump(ctx context.Context, dir, threadID string, keys, mentions []string) error {
	mediaIDs := make([]string, 0, len(keys))
	for _, key := range keys {
		id, err := b.uploadMedia(ctx, key)
		if err != nil {
			publishFailures.Inc()
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		mediaIDs = append(mediaIDs, id)
	}

	excerpt := strings.ReplaceAll(html.EscapeString(b.state.ThreadOp(dir, threadID)), "\n", "<br>")
	doc := b.state.Doc()
	status, err := b.api.CreateStatus(ctx, pleroma.StatusParams{
		Text:           b.compose(excerpt, mentions),
		Visibility:     doc.VisibilityListing,
		Sensitive:      doc.Sensitive,
		MediaIDs:       mediaIDs,
		IdempotencyKey: idempotencyKey("dump:" + models.ThreadPrefix(dir, threadID)),
	})
	if err != nil {
		publishFailures.Inc()
		return fmt.Errorf("failed to publish dump of %s/%s: %w", dir, threadID, err)
	}

	engaged := b.state.StronglyEngagedPosts(dir, threadID)
	b.state.AddCarriedOver(float64(engaged))

	b.record(database.Published{
		Target:   dir,
		ThreadID: threadID,
		StatusID: status.ID,
		Kind:     database.KindDump,
		Mentions: len(mentions),
		Media:    len(keys),
	})
	postsPublished.WithLabelValues(database.KindDump).Inc()
	utils.Info("bot", "dump", fmt.Sprintf("dumped %s/%s as %s: %d files, %d mentions", dir, threadID, status.ID, len(keys), len(mentions)))
	return nil
}

// purge deletes a thread's files and every piece of state about it.
func (b *Bot) purge(ctx context.Context, dir, threadID string, keys []string) {
	if err := b.blobs.DeletePrefix(ctx, models.ThreadPrefix(dir, threadID)); err != nil {
		logError("purge thread media", err)
	}
	for _, key := range keys {
		b.state.ForgetMedia(key)
	}
	for _, e := range b.state.RemoveMatching(state.ForThread(dir, threadID)) {
		b.state.ForgetMedia(e.Path)
	}
	b.state.DeleteThread(dir, threadID)
	b.state.RemovePendingDump(dir, threadID)
	b.state.RecomputeOldest(dir)
}
