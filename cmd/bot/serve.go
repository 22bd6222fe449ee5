package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"quest-bot/internal/config"
	"quest-bot/internal/database"
	ws "quest-bot/internal/delivery/websocket"
	"quest-bot/internal/handler"
	"quest-bot/internal/interfaces"
	"quest-bot/internal/messaging"
	"quest-bot/internal/service"
	sharedLogger "quest-bot/shared/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить бота",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger, err := sharedLogger.New(sharedLogger.Config{
				Level:       cfg.LogLevel,
				Encoding:    cfg.LogEncoding,
				Development: cfg.IsDevelopment(),
			})
			if err != nil {
				return fmt.Errorf("ошибка инициализации логгера: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

// storage - репозитории выбранного хранилища.
type storage struct {
	profiles     interfaces.ProfileRepository
	saves        interfaces.SaveRepository
	achievements interfaces.AchievementRepository
	close        func() error
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.DBType {
	case config.DBTypePostgres:
		if err := database.ApplyPostgresMigrations(cfg.GetDSN()); err != nil {
			return nil, err
		}
		logger.Info("Database migrations applied")
		pool, err := database.NewPgxPool(ctx, database.PoolConfig{
			DSN:             cfg.GetDSN(),
			MaxConns:        cfg.DBMaxConns,
			MaxConnIdleTime: cfg.DBIdleTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &storage{
			profiles:     database.NewPgProfileRepository(pool, logger),
			saves:        database.NewPgSaveRepository(pool, logger),
			achievements: database.NewPgAchievementRepository(pool, logger),
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("ошибка создания каталога для SQLite: %w", err)
		}
		store, err := database.OpenSQLiteStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &storage{profiles: store, saves: store, achievements: store, close: store.Close}, nil
	}
}

func setupCooldown(ctx context.Context, cfg *config.Config, logger *zap.Logger) (interfaces.Cooldown, func() error, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-memory send cooldown")
		return database.NewMemoryCooldown(cfg.SendCooldown), func() error { return nil }, nil
	}
	client, err := database.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		return nil, nil, err
	}
	return database.NewRedisCooldown(client, cfg.SendCooldown, logger), client.Close, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) (err error) {
	logger.Info("Starting quest bot", cfg.LogFields()...)

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
		logger.Info("Quest bot stopped")
	}()

	paths := contentPaths{
		ContentDir:       cfg.ContentDir,
		MessagesFile:     cfg.MessagesFile,
		AchievementsFile: cfg.AchievementsFile,
	}
	if cfg.SeedDefaultContent {
		if err := seedContent(paths, logger); err != nil {
			return err
		}
	}
	loaded, err := loadContent(paths, logger)
	if err != nil {
		return err
	}
	report := loaded.Branches.Validate()
	if !report.OK() {
		if cfg.StrictLinks {
			return fmt.Errorf("контент квеста некорректен: %w", report.Err())
		}
		logger.Warn("Quest content has problems", zap.Error(report.Err()))
	}

	store, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, store.close)

	cooldown, closeCooldown, err := setupCooldown(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeCooldown)

	// Транспорт до чата
	var (
		channel   interfaces.MessagingChannel
		rabbitCh  *messaging.RabbitMQChannel
		wsManager *ws.ChatManager
	)
	var rabbitConn *amqp.Connection
	switch cfg.ChatTransport {
	case config.TransportRabbitMQ:
		conn, err := messaging.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, logger)
		if err != nil {
			return err
		}
		rabbitConn = conn
		closers = append(closers, conn.Close)
		rabbitCh, err = messaging.NewRabbitMQChannel(conn, cfg.ChatOutboundQueue, logger)
		if err != nil {
			return err
		}
		closers = append(closers, rabbitCh.Close)
		channel = rabbitCh
	default:
		var opts []ws.Option
		if cfg.ChatTokenSecret != "" {
			opts = append(opts, ws.WithChatTokenSecret(cfg.ChatTokenSecret))
		} else {
			logger.Warn("chat_token_secret не задан: веб-чат принимает chat_id без проверки, только для разработки")
		}
		wsManager = ws.NewChatManager(cfg.CORSAllowedOrigins, logger, opts...)
		channel = wsManager
	}

	// Сервисы квеста
	messages := loaded.Messages
	menu := service.NewMenuService(channel, store.saves, store.profiles, store.achievements, loaded.Catalog, messages, logger)
	sessionStore := service.NewSessionStore(store.saves, logger)
	scheduler := service.NewDeliveryScheduler(sessionStore, channel, store.saves, store.achievements, menu, messages,
		service.SchedulerConfig{Cooldown: cfg.MessageCooldown, TypingOffset: cfg.TypingOffset}, logger)
	sessions := service.NewQuestSessionService(loaded.Branches, sessionStore, scheduler, store.saves, channel, menu, messages, logger)
	profiles := service.NewProfileCache(store.profiles, logger)
	processor := service.NewUpdateProcessor(profiles, cooldown, sessions, menu, channel, messages, logger)

	var consumer *messaging.UpdateConsumer
	if rabbitConn != nil {
		consumer = messaging.NewUpdateConsumer(rabbitConn, cfg.ChatInboundQueue, processor, logger)
	}

	// HTTP
	routerCfg := handler.RouterConfig{
		Development:    cfg.IsDevelopment(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AdminSecret:    cfg.AdminJWTSecret,
		Admin:          handler.NewAdminHandler(sessions, menu, loaded.Branches, logger),
		EnableMetrics:  true,
	}
	if wsManager != nil {
		routerCfg.WebSocket = wsManager.Handler(processor)
	}
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.NewRouter(routerCfg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	if consumer != nil {
		g.Go(func() error {
			if err := consumer.StartConsuming(gctx); err != nil {
				return err
			}
			if gctx.Err() == nil {
				return errors.New("consumer остановился без сигнала остановки")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs error
		// Сначала закрываем вход: после ShutdownAll новых сессий быть не должно.
		if consumer != nil {
			consumer.Stop()
			if err := consumer.Wait(shutdownCtx); err != nil {
				logger.Warn("Consumer did not stop in time", zap.Error(err))
			}
		}
		if wsManager != nil {
			if err := wsManager.StopAccepting(shutdownCtx); err != nil {
				logger.Warn("WebSocket updates did not drain in time", zap.Error(err))
			}
		}
		if dropped := scheduler.Stop(); dropped > 0 {
			logger.Info("Pending deliveries cancelled", zap.Int("count", dropped))
		}
		scheduler.Wait()
		if err := sessions.ShutdownAll(shutdownCtx); err != nil {
			logger.Warn("Some players were not notified about shutdown", zap.Error(err))
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
		if wsManager != nil {
			wsManager.Close()
		}
		return errs
	})

	return g.Wait()
}
