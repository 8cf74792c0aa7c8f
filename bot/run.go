package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"board-relay/admin"
	"board-relay/database"
	relaygrpc "board-relay/grpc"
	"board-relay/models"
	"board-relay/pleroma"
	"board-relay/scanner"
	"board-relay/state"
	"board-relay/storage"
	"board-relay/utils"
)

// uploadInterval spaces media uploads to the posting API.
const uploadInterval = time.Second

// NewAPIClient builds the posting API client from config.
func NewAPIClient(cfg *models.BotConfig) *pleroma.Client {
	httpClient := utils.NewHTTPClient(cfg.HTTPTimeout, utils.WithSubsystem("pleroma"))
	return pleroma.NewClient(cfg.Instance, cfg.BearerToken, httpClient, pleroma.WithUploadInterval(uploadInterval))
}

// Start begins scheduling.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.startScheduler(ctx); err != nil {
		return err
	}
	fmt.Println("Relay is now running. Press CTRL-C to exit.")
	return nil
}

// Stop halts scheduling and flushes state.
func (b *Bot) Stop() {
	b.stopScheduler()
	b.mu.Lock()
	if err := b.state.Flush(b.store); err != nil {
		logError("persist state", err)
	}
	b.mu.Unlock()
	fmt.Println("Relay stopped gracefully.")
}

// Run is the main entry point of the daemon. It returns when interrupted
// or when startup fails; a failed credential check never schedules.
func Run(cfg *models.BotConfig) error {
	lock, err := utils.AcquireLock(cfg.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := utils.InitLogger(cfg.Admin.DiscordToken, cfg.Admin.DiscordChannel); err != nil {
		log.Printf("Discord log sink disabled: %v", err)
	}

	store := database.NewStateStore(cfg.StateFile)
	doc, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if len(doc.Targets) == 0 {
		return fmt.Errorf("state file %s lists no targets", cfg.StateFile)
	}
	st := state.New(doc)

	history, err := database.NewHistory(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	blobs, err := storage.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	source := scanner.NewClient(utils.NewHTTPClient(cfg.HTTPTimeout, utils.WithSubsystem("source")), cfg.SourceRate)
	health := relaygrpc.NewHealthServer()
	b := New(cfg, st, store, blobs, NewAPIClient(cfg), source, WithHistory(history), WithHealth(health))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	verifyCtx, verifyCancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	err = b.Verify(verifyCtx)
	verifyCancel()
	if err != nil {
		return err
	}
	utils.Info("bot", "start", fmt.Sprintf("logged in as %s, watching %d targets", b.Self(), len(st.Targets())))

	if cfg.Admin.GRPCListen != "" {
		if err := health.Serve(cfg.Admin.GRPCListen); err != nil {
			return err
		}
		defer health.Stop()
	}

	var srv *http.Server
	if cfg.Admin.Listen != "" {
		srv = &http.Server{
			Addr:              cfg.Admin.Listen,
			Handler:           admin.NewRouter(b),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("Admin server listening on %s", cfg.Admin.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				utils.Error("admin", "listen", err.Error())
			}
		}()
	}

	if err := b.Start(ctx); err != nil {
		return err
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	cancel()
	b.Stop()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}
	return nil
}
