package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"board-relay/database"
	"board-relay/handlers"
	"board-relay/models"
	"board-relay/pleroma"
	"board-relay/scanner"
	"board-relay/state"
	"board-relay/storage"

	"github.com/robfig/cron/v3"
)

// unhealthyAfter is the number of consecutive failed notification drains
// after which the relay reports itself unhealthy.
const unhealthyAfter = 3

// HealthReporter receives serving status changes.
type HealthReporter interface {
	SetServing(ok bool)
}

// Bot owns the state aggregate and every collaborator that mutates it.
// All mutation happens under mu.
type Bot struct {
	mu      sync.Mutex
	cfg     *models.BotConfig
	state   *state.State
	store   state.Saver
	history *database.History
	blobs   storage.BlobStore
	api     *pleroma.Client
	poller  *scanner.Poller
	self    models.Account
	health  HealthReporter
	now     func() time.Time

	profile     string
	failedTicks int

	cron    *cron.Cron
	timerMu sync.Mutex
	timer   *time.Timer
}

type Option func(*Bot)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		b.now = now
	}
}

// WithHistory records publications and exclusions in sqlite.
func WithHistory(h *database.History) Option {
	return func(b *Bot) {
		b.history = h
	}
}

// WithHealth reports serving status to h.
func WithHealth(h HealthReporter) Option {
	return func(b *Bot) {
		b.health = h
	}
}

// New wires a bot. The bot is the poller's dump finalizer.
func New(cfg *models.BotConfig, st *state.State, store state.Saver, blobs storage.BlobStore, api *pleroma.Client, source *scanner.Client, opts ...Option) *Bot {
	b := &Bot{
		cfg:   cfg,
		state: st,
		store: store,
		blobs: blobs,
		api:   api,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	pollerOpts := []scanner.Option{
		scanner.WithMaxDimension(cfg.MaxMediaDimension),
		scanner.WithClock(func() time.Time { return b.now() }),
	}
	if b.history != nil {
		pollerOpts = append(pollerOpts, scanner.WithHistory(b.history))
	}
	b.poller = scanner.NewPoller(st, source, blobs, b, pollerOpts...)
	return b
}

// Verify checks the bearer token and remembers the bot's own account.
func (b *Bot) Verify(ctx context.Context) error {
	acct, err := b.api.VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}
	b.mu.Lock()
	b.self = acct
	b.mu.Unlock()
	b.setServing(true)
	return nil
}

func (b *Bot) setServing(ok bool) {
	if b.health != nil {
		b.health.SetServing(ok)
	}
}

// Snapshot is a consistent view of the scheduler for the admin surface.
func (b *Bot) Snapshot() state.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Snapshot(b.now())
}

// Healthy reports whether credentials were verified and recent notification
// drains succeeded.
func (b *Bot) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self.ID != "" && b.failedTicks < unhealthyAfter
}

// SweepHistory removes history rows older than the retention.
func (b *Bot) SweepHistory() {
	if b.history == nil || b.cfg.HistoryRetention <= 0 {
		return
	}
	if _, err := b.history.CleanupOldHistory(b.now().Add(-b.cfg.HistoryRetention)); err != nil {
		logError("sweep history", err)
	}
}

func (b *Bot) record(p database.Published) {
	if b.history == nil {
		return
	}
	if err := b.history.RecordPublished(p); err != nil {
		logError("record history", err)
	}
}

// The methods below implement handlers.Env; callers hold mu.

var _ handlers.Env = (*Bot)(nil)

func (b *Bot) State() *state.State {
	return b.state
}

func (b *Bot) Self() string {
	return b.self.Acct
}

func (b *Bot) Notifications(ctx context.Context, sinceID string) ([]models.Notification, error) {
	return b.api.Notifications(ctx, sinceID)
}

func (b *Bot) Reply(ctx context.Context, n models.Notification, text string) error {
	_, err := b.api.CreateStatus(ctx, pleroma.StatusParams{
		Text:        "@" + n.Account.Acct + " " + text,
		Visibility:  "direct",
		InReplyToID: n.StatusID(),
	})
	return err
}

func (b *Bot) Notify(ctx context.Context, acct, text string) error {
	_, err := b.api.CreateStatus(ctx, pleroma.StatusParams{
		Text:       "@" + acct + " " + text,
		Visibility: "direct",
	})
	return err
}
