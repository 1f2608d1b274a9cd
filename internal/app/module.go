// Package app assembles the API server with fx.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vedran77/relaychat/internal/config"
	"github.com/vedran77/relaychat/internal/database"
	"github.com/vedran77/relaychat/internal/logging"
	"github.com/vedran77/relaychat/internal/repository"
	"github.com/vedran77/relaychat/internal/repository/memory"
	postgresrepo "github.com/vedran77/relaychat/internal/repository/postgres"
	"github.com/vedran77/relaychat/internal/service"
	"github.com/vedran77/relaychat/internal/storage"
	"github.com/vedran77/relaychat/internal/transport/http/handlers"
	"github.com/vedran77/relaychat/internal/transport/relay"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Store groups the repositories behind whichever backend is configured.
type Store struct {
	Users         repository.UserRepository
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
}

// Module returns the fx module for the API server.
func Module(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Module("api",
			fx.Supply(cfg),
			fx.Provide(
				provideLogger,
				provideStore,
				provideBlobStore,
				providePublisher,
				provideAuthService,
				provideUserService,
				provideConversationService,
				provideMessageService,
				provideRouter,
				NewServer,
			),
			fx.Invoke(registerLifecycle),
		),
	)
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFormat, "relaychat-api")
}

// provideStore opens the configured backend. For postgres the pool is
// connected and migrated here and closed when the app stops.
func provideStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		mem := memory.New()
		return &Store{
			Users:         mem.Users(),
			Conversations: mem.Conversations(),
			Messages:      mem.Messages(),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	result, err := database.Migrate(cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			logger.Info("database pool closed")
			return nil
		},
	})

	return &Store{
		Users:         postgresrepo.NewUserRepo(pool),
		Conversations: postgresrepo.NewConversationRepo(pool),
		Messages:      postgresrepo.NewMessageRepo(pool),
	}, nil
}

func provideBlobStore(cfg *config.Config) (*storage.LocalStore, error) {
	return storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
}

// providePublisher returns nil when RELAY_URL is empty.
func providePublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *relay.Publisher {
	if cfg.RelayURL == "" {
		logger.Info("relay publisher disabled")
		return nil
	}

	p := relay.NewPublisher(cfg.RelayURL, logger.Named("publisher"))
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go p.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return p
}

func provideAuthService(cfg *config.Config, store *Store) *service.AuthService {
	return service.NewAuthService(store.Users, cfg.JWTSecret)
}

func provideUserService(store *Store, blobs *storage.LocalStore, publisher *relay.Publisher) *service.UserService {
	svc := service.NewUserService(store.Users, store.Conversations, store.Messages, blobs)
	if publisher != nil {
		svc.SetNotifier(publisher)
	}
	return svc
}

func provideConversationService(store *Store) *service.ConversationService {
	return service.NewConversationService(store.Conversations, store.Messages, store.Users)
}

func provideMessageService(store *Store, blobs *storage.LocalStore, publisher *relay.Publisher) *service.MessageService {
	svc := service.NewMessageService(store.Messages, store.Conversations, blobs)
	if publisher != nil {
		svc.SetNotifier(publisher)
	}
	return svc
}

type routerParams struct {
	fx.In

	Config        *config.Config
	Logger        *zap.Logger
	Blobs         *storage.LocalStore
	Auth          *service.AuthService
	Users         *service.UserService
	Conversations *service.ConversationService
	Messages      *service.MessageService
}

func provideRouter(p routerParams) Handler {
	return handlers.NewRouter(handlers.RouterDeps{
		Auth:          handlers.NewAuthHandler(p.Auth, p.Logger),
		Users:         handlers.NewUserHandler(p.Users, p.Config.MaxUploadBytes, p.Logger),
		Conversations: handlers.NewConversationHandler(p.Conversations, p.Logger),
		Messages:      handlers.NewMessageHandler(p.Messages, p.Config.MaxUploadBytes, p.Logger),
		Verifier:      p.Auth,
		Uploads:       p.Blobs.Handler(),
		Log:           p.Logger,
	})
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := srv.Start(); err != nil {
				return fmt.Errorf("starting http server: %w", err)
			}
			logger.Info("api server listening",
				zap.String("addr", srv.Addr()),
				zap.String("store", cfg.Store),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := srv.Stop(ctx)
			logger.Info("api server stopped")
			return err
		},
	})
}
