package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/set-night/companion/internal/backend"
	"github.com/set-night/companion/internal/config"
	"github.com/set-night/companion/internal/handler"
	"github.com/set-night/companion/internal/middleware"
	"github.com/set-night/companion/internal/repository"
	"github.com/set-night/companion/internal/returnsrv"
	"github.com/set-night/companion/internal/service"
	"github.com/set-night/companion/internal/session"
	"github.com/set-night/companion/internal/telegram"
	"github.com/set-night/companion/internal/validate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the payment return server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	store, err := repository.Open(ctx, cfg.StorageDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	migrations, err := repository.Migrations(cfg.StorageDriver)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := repository.RunMigrations(cfg.MigrationURL(), migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	greeting, err := config.LoadGreeting()
	if err != nil {
		return err
	}

	// Backend
	client := backend.NewClient(cfg.BackendURL, cfg.BackendAPIKey)
	var feed session.BalanceFeed
	if cfg.BalanceStreamEnabled {
		feed = backend.NewBalanceFeed(cfg.BackendURL, cfg.BackendAPIKey)
	}

	// Filled in once the bot exists; middlewares and the default handler reach them lazily.
	var (
		manager *session.Manager
		events  *telegram.EventLogger
		h       *handler.Handler
	)

	limiter := middleware.NewChatLimiter(config.RateLimitMessages)
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(middleware.ErrorReporterFunc(func(err error, where string) {
				events.LogError(err, where)
			})),
			middleware.Logging(),
			middleware.RateLimit(limiter),
			middleware.SessionLoader(middleware.SessionOpenerFunc(
				func(ctx context.Context, chatID, userID int64) (*session.Session, session.EnterResult, error) {
					return manager.Open(ctx, chatID, userID)
				}),
				middleware.ErrorReporterFunc(func(err error, where string) {
					events.LogError(err, where)
				}),
			),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleText(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	events = telegram.NewEventLogger(b, cfg)
	manager = session.NewManager(session.ManagerDeps{
		Backend: func(userID int64) session.Backend {
			return client.ForUser(userID)
		},
		Snapshots: store,
		Notifier:  telegram.NewNotifier(b),
		Validator: validate.NewTextPolicy(),
		Feed:      feed,
		Greeting:  greeting,
		ReturnURL: cfg.ReturnURL,
	})

	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		Sessions:    manager,
		Offers:      service.NewOfferCatalog(client, config.OffersCacheTTL),
		Events:      events,
		BotUsername: me.Username,
	})
	h.Register()

	// Return server
	if cfg.SlogLevel() != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := returnsrv.New(func(ctx context.Context, token uuid.UUID) (returnsrv.Resumable, error) {
		s, err := manager.ByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return s, nil
	}, returnsrv.Options{
		BotURL:      "https://t.me/" + me.Username,
		CORSOrigins: cfg.CORSOrigins,
		Payments:    events,
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx, fmt.Sprintf(":%d", cfg.Port)); err != nil {
			slog.Error("return server stopped", "error", err)
			events.LogError(err, "return server")
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		manager.RunJanitor(ctx, config.SnapshotCleanupInterval)
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := limiter.Prune(now, config.SessionIdleTimeout); n > 0 {
					slog.Debug("rate limiters pruned", "count", n)
				}
			}
		}
	}()

	slog.Info("starting bot", "username", me.Username, "id", me.ID, "port", cfg.Port)
	b.Start(ctx)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	manager.Shutdown(shutdownCtx)
	wg.Wait()

	slog.Info("bot stopped gracefully")
	return nil
}
