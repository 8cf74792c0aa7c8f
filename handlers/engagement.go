package handlers

import (
	"context"
	"fmt"
	"log"

	"board-relay/models"
	"board-relay/state"
	"board-relay/utils"
)

// handleReblog records a strong endorsement. A reblog of a status the
// ledger does not know still signals appetite and raises carried_over_dumps.
func handleReblog(ctx context.Context, d *Drain, n models.Notification) {
	ref, ok := d.state.ResolvePost(n.StatusID())
	if !ok {
		d.state.AddCarriedOver(d.state.OrphanReblogBonus())
		d.result.Orphans++
		return
	}
	d.state.Record(ref, n.Account.Acct, models.Based)
	d.fastTrack(ctx, ref, n.StatusID())
}

func handleFavourite(_ context.Context, d *Drain, n models.Notification) {
	ref, ok := d.state.ResolvePost(n.StatusID())
	if !ok {
		return
	}
	d.state.Record(ref, n.Account.Acct, models.Fav)
}

// fastTrack publishes one more entry of an engaged thread right away, at
// most once per thread per drain.
func (d *Drain) fastTrack(ctx context.Context, ref models.PostRef, replyTo string) {
	key := ref.Target + "/" + ref.ThreadID
	if d.fastTracked[key] || d.state.Gated(ref.Target, ref.ThreadID) {
		return
	}
	if _, queued := d.state.Peek(state.ForThread(ref.Target, ref.ThreadID)); !queued {
		return
	}
	d.fastTracked[key] = true

	if err := d.env.FastTrack(ctx, ref.Target, ref.ThreadID, replyTo); err != nil {
		utils.Warn("handlers", "fast-track", fmt.Sprintf("thread %s: %v", key, err))
		return
	}
	d.result.FastTracked++
	log.Printf("Fast-tracked thread %s", key)
}
