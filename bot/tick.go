package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"board-relay/handlers"
	"board-relay/pleroma"
	"board-relay/state"
	"board-relay/utils"
)

func logError(operation string, err error) {
	utils.Error("bot", operation, err.Error())
}

// Tick runs one scheduler pass and returns the persisted next publish time.
func (b *Bot) Tick(ctx context.Context) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	defer func() {
		tickDuration.Observe(time.Since(start).Seconds())
	}()

	b.retryPendingDumps(ctx)
	b.drainNotifications(ctx)
	b.refresh(ctx)
	if b.state.Due(b.now()) {
		b.publishDue(ctx)
	}
	b.updateProfile(ctx)

	if err := b.state.Flush(b.store); err != nil {
		logError("persist state", err)
	}
	b.observe()
	return b.state.NextPost()
}

func (b *Bot) retryPendingDumps(ctx context.Context) {
	for _, ref := range b.state.PendingDumps() {
		t, ok := b.state.Doc().Target(ref.Target)
		if !ok {
			log.Printf("Dropping pending dump of %s/%s, target is no longer watched.", ref.Target, ref.ThreadID)
			b.state.RemovePendingDump(ref.Target, ref.ThreadID)
			continue
		}
		if err := b.Dump(ctx, t, ref.ThreadID); err != nil {
			utils.Warn("bot", "retry dump", fmt.Sprintf("thread %s/%s: %v", ref.Target, ref.ThreadID, err))
		}
	}
}

// drainNotifications applies the feed. Engagement may pull next_post in.
func (b *Bot) drainNotifications(ctx context.Context) {
	res, err := handlers.Process(ctx, b)
	if err != nil {
		b.failedTicks++
		if b.failedTicks == unhealthyAfter {
			b.setServing(false)
		}
		utils.Warn("bot", "drain notifications", err.Error())
		return
	}
	if b.failedTicks >= unhealthyAfter {
		b.setServing(true)
	}
	b.failedTicks = 0

	if res.Processed == 0 {
		return
	}
	notificationsProcessed.Add(float64(res.Processed))
	if b.state.RecomputeAfterEngagement(b.now()) {
		log.Printf("Engagement moved next post to %s", b.state.NextPost().Format("2006-01-02 15:04:05"))
	}
}

func (b *Bot) refresh(ctx context.Context) {
	res := b.poller.PollAll(ctx)
	fetchErrors.Add(float64(res.FetchErrors))
	mediaQueued.Add(float64(res.Queued))
	threadsFlagged.Add(float64(res.Flagged))
	if res.Queued > 0 || res.Dumped > 0 {
		log.Printf("Refresh queued %d files, dumped %d threads.", res.Queued, res.Dumped)
	}
}

func (b *Bot) publishDue(ctx context.Context) {
	err := b.publishNext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, state.ErrNoCandidate):
		log.Println("Publish is due but nothing is queued.")
	default:
		utils.Warn("bot", "publish", err.Error())
	}
}

// updateProfile pushes the profile fields when they changed.
func (b *Bot) updateProfile(ctx context.Context) {
	if !b.cfg.ProfileFields {
		return
	}
	dirs := make([]string, 0, len(b.state.Targets()))
	for _, t := range b.state.Targets() {
		dirs = append(dirs, "/"+t.Directory+"/")
	}
	fields := []pleroma.Field{
		{Name: "Next post", Value: b.state.NextPost().UTC().Format(time.RFC3339)},
		{Name: "Watching", Value: strings.Join(dirs, ", ")},
	}
	sig := fmt.Sprint(fields)
	if sig == b.profile {
		return
	}
	if err := b.api.UpdateProfileFields(ctx, fields); err != nil {
		utils.Warn("bot", "update profile", err.Error())
		return
	}
	b.profile = sig
}

func (b *Bot) observe() {
	queueLength.Set(float64(b.state.QueueLen()))
	nextPostTime.Set(float64(b.state.NextPost().Unix()))
	carriedOverDumps.Set(b.state.CarriedOver())
	noReacts.Set(b.state.NoReacts())
}
