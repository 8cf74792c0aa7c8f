package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// startScheduler runs a tick on the poll schedule, at next_post, and once
// right away. The history sweep runs daily.
func (b *Bot) startScheduler(ctx context.Context) error {
	log.Println("Initializing scheduler...")
	b.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := b.cron.AddFunc(b.cfg.PollSchedule, func() { b.runTick(ctx) }); err != nil {
		return fmt.Errorf("could not set up poll job: %w", err)
	}
	if _, err := b.cron.AddFunc("@daily", b.SweepHistory); err != nil {
		return fmt.Errorf("could not set up history sweep: %w", err)
	}
	b.cron.Start()
	log.Printf("Cron job scheduled with %q.", b.cfg.PollSchedule)

	go b.runTick(ctx)
	return nil
}

func (b *Bot) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	b.arm(ctx, b.Tick(ctx))
}

// arm sets the one-shot wake for next. A past next is left to the poll
// schedule.
func (b *Bot) arm(ctx context.Context, next time.Time) {
	b.timerMu.Lock()
	defer b.timerMu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	wait := next.Sub(b.now())
	if wait <= 0 {
		return
	}
	b.timer = time.AfterFunc(wait, func() { b.runTick(ctx) })
}

// stopScheduler stops the cron jobs and the wake timer.
func (b *Bot) stopScheduler() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
		log.Println("Scheduler stopped.")
	}
	b.timerMu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timerMu.Unlock()
}
