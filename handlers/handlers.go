package handlers

import (
	"context"
	"fmt"
	"log"
	"sort"

	"board-relay/command"
	"board-relay/models"
	"board-relay/state"
	"board-relay/utils"
)

// Env is what the notification handlers need from the bot.
type Env interface {
	State() *state.State
	// Self is the bot's own acct.
	Self() string
	Notifications(ctx context.Context, sinceID string) ([]models.Notification, error)
	// Reply answers a mention directly.
	Reply(ctx context.Context, n models.Notification, text string) error
	// Notify sends a direct message to an account.
	Notify(ctx context.Context, acct, text string) error
	// FastTrack publishes one queued entry of a thread as a reply to a status.
	FastTrack(ctx context.Context, target, threadID, replyTo string) error
}

// HandlerFunc handles one notification kind.
type HandlerFunc func(ctx context.Context, d *Drain, n models.Notification)

var dispatch = map[models.NotificationKind]HandlerFunc{
	models.KindReblog:        handleReblog,
	models.KindFavourite:     handleFavourite,
	models.KindEmojiReaction: handleFavourite,
	models.KindMention:       handleMention,
}

// Result summarizes one drain.
type Result struct {
	Processed   int
	Orphans     int
	FastTracked int
	Commands    int
}

// Drain is one pass over the notification feed.
type Drain struct {
	env         Env
	state       *state.State
	fastTracked map[string]bool
	result      Result
}

// Process fetches notifications newer than the cursor and applies them
// oldest first. A fetch failure leaves state untouched.
func Process(ctx context.Context, env Env) (Result, error) {
	st := env.State()
	ns, err := env.Notifications(ctx, st.NotificationCursor())
	if err != nil {
		return Result{}, err
	}
	sort.Slice(ns, func(i, j int) bool {
		return state.CompareIDs(ns[i].ID, ns[j].ID) < 0
	})

	d := &Drain{env: env, state: st, fastTracked: map[string]bool{}}
	for _, n := range ns {
		if state.CompareIDs(n.ID, st.NotificationCursor()) <= 0 {
			continue
		}
		if n.Account.Acct != "" && n.Account.Acct != env.Self() {
			d.handle(ctx, n)
		}
		st.AdvanceCursor(n.ID)
	}
	d.sendNotices(ctx)
	return d.result, nil
}

func (d *Drain) handle(ctx context.Context, n models.Notification) {
	d.result.Processed++
	d.state.ResetNoReacts()

	h, ok := dispatch[n.Kind]
	if !ok {
		return
	}
	h(ctx, d, n)
}

func (d *Drain) sendNotices(ctx context.Context) {
	for _, acct := range d.state.TakeNotices() {
		if d.state.Notag(acct) {
			continue
		}
		if err := d.env.Notify(ctx, acct, command.NoticeText); err != nil {
			utils.Warn("handlers", "opt-out notice", fmt.Sprintf("failed to notify %s: %v", acct, err))
			continue
		}
		d.state.MarkNotified(acct)
		log.Printf("Sent opt-out notice to %s", acct)
	}
}
