package daemon

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/pigeonchat/pigeon/internal/api"
	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/cache"
	"github.com/pigeonchat/pigeon/internal/chat"
	"github.com/pigeonchat/pigeon/internal/config"
	"github.com/pigeonchat/pigeon/internal/contacts"
	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/identity"
	"github.com/pigeonchat/pigeon/internal/logging"
	"github.com/pigeonchat/pigeon/internal/messaging"
	"github.com/pigeonchat/pigeon/internal/profile"
	"github.com/pigeonchat/pigeon/internal/status"
	"github.com/pigeonchat/pigeon/internal/sticker"
	"github.com/pigeonchat/pigeon/internal/views"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	ListenAddr  string
	Store       config.StoreConfig
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideDocStore,
			provideCache,
			provideIdentity,
			provideContacts,
			provideChatEngine,
			provideCatalog,
			provideLedger,
			provideMessaging,
			provideViews,
			provideNotifier,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*profile.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := profile.AcquireLock(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideDocStore(p Params, logger *zap.Logger) (docstore.Store, error) {
	switch p.Store.Backend {
	case "memory", "":
		logger.Info("using in-memory document store")
		return docstore.NewMemStore(), nil
	case "firestore":
		var opts []option.ClientOption
		if p.Store.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(p.Store.CredentialsFile))
		}
		client, err := firestore.NewClient(context.Background(), p.Store.ProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("connecting to firestore: %w", err)
		}
		logger.Info("using firestore document store", zap.String("project", p.Store.ProjectID))
		return docstore.NewFireStore(client, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", p.Store.Backend)
	}
}

func provideCache(p Params, logger *zap.Logger) (*cache.DB, error) {
	dbPath := profile.CacheDBPath(p.ProfileName)
	db, err := cache.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(store docstore.Store, logger *zap.Logger) *identity.Service {
	return identity.NewService(store, logger)
}

func provideContacts(store docstore.Store, logger *zap.Logger) *contacts.Engine {
	return contacts.NewEngine(store, logger)
}

func provideChatEngine(store docstore.Store, logger *zap.Logger) *chat.Engine {
	return chat.NewEngine(store, logger)
}

func provideCatalog() sticker.Catalog {
	return sticker.DefaultCatalog()
}

func provideLedger(store docstore.Store, logger *zap.Logger) *sticker.Ledger {
	return sticker.NewLedger(store, logger)
}

func provideMessaging(store docstore.Store, ledger *sticker.Ledger, b *bus.Bus, logger *zap.Logger) *messaging.Engine {
	return messaging.NewEngine(store, ledger, b, logger)
}

func provideViews(store docstore.Store, db *cache.DB, chats *chat.Engine, msgs *messaging.Engine, cts *contacts.Engine, b *bus.Bus, logger *zap.Logger) *views.Manager {
	return views.NewManager(store, db, chats, msgs, cts, b, logger)
}

func provideNotifier(b *bus.Bus, logger *zap.Logger) *views.Notifier {
	return views.NewNotifier(b, logger)
}

func provideServer(p Params, logger *zap.Logger, id *identity.Service, cts *contacts.Engine, chats *chat.Engine, msgs *messaging.Engine, ledger *sticker.Ledger, catalog sticker.Catalog, vm *views.Manager, db *cache.DB, machine *status.Machine, b *bus.Bus) *api.Server {
	return api.NewServer(api.Deps{
		Addr:     p.ListenAddr,
		Logger:   logger,
		Identity: id,
		Contacts: cts,
		Chats:    chats,
		Messages: msgs,
		Ledger:   ledger,
		Catalog:  catalog,
		Views:    vm,
		Cache:    db,
		Machine:  machine,
		Bus:      b,
	})
}

func registerLifecycle(lc fx.Lifecycle, srv *api.Server, lk *profile.Lock, vm *views.Manager, notifier *views.Notifier, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			notifier.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("api server error", zap.Error(err))
				}
			}()

			_ = machine.Transition(status.SignedOut)
			logger.Info("daemon ready, awaiting sign-in")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			vm.Close()
			notifier.Stop()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
