// Package app wires the services every binary shares from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/lifeledger/internal/auth"
	"github.com/dvloznov/lifeledger/internal/backup"
	"github.com/dvloznov/lifeledger/internal/cache"
	"github.com/dvloznov/lifeledger/internal/categorizer"
	"github.com/dvloznov/lifeledger/internal/config"
	"github.com/dvloznov/lifeledger/internal/docstore"
	"github.com/dvloznov/lifeledger/internal/docstore/inmemory"
	"github.com/dvloznov/lifeledger/internal/docstore/sqlite"
	"github.com/dvloznov/lifeledger/internal/domain"
	"github.com/dvloznov/lifeledger/internal/finance"
	"github.com/dvloznov/lifeledger/internal/gcs"
	"github.com/dvloznov/lifeledger/internal/lists"
	"github.com/dvloznov/lifeledger/internal/notionsync"
	"github.com/dvloznov/lifeledger/internal/realtime"
	"github.com/dvloznov/lifeledger/internal/users"
	"github.com/dvloznov/lifeledger/internal/warehouse"
	"github.com/dvloznov/lifeledger/internal/wellness"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by integrations that are not configured.
var ErrDisabled = errors.New("integration not configured")

// App holds the wired services. Auth is nil without a JWT secret;
// Warehouse and Notion are nil when not configured.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	Docs  docstore.Store
	Cache cache.Cache

	Auth        *auth.Service
	Users       *users.Service
	Finance     *finance.Services
	Wellness    *wellness.Services
	Lists       *lists.Service
	Categorizer *categorizer.Categorizer
	Backups     *backup.Service
	Warehouse   *warehouse.Warehouse
	Notion      notionsync.NotionService

	closers []func() error
}

// Options replace integrations, mainly in tests.
type Options struct {
	Docs    docstore.Store
	Objects gcs.ObjectStore
	Model   categorizer.Model
	Notion  notionsync.NotionService
}

// New opens the store and integrations named by cfg. On error everything
// opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (a *App, err error) {
	a = &App{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if a.Docs = opts.Docs; a.Docs == nil {
		if a.Docs, err = openStore(ctx, cfg); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.Docs.Close)
	}

	a.Cache = cache.Nop{}
	if cfg.RedisURL != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Cache = r
		a.closers = append(a.closers, r.Close)
	}

	a.Finance = finance.NewServices(a.Docs, a.Cache,
		finance.WithLocale(domain.LocaleFor(cfg.Locale)),
		finance.WithCacheTTL(cfg.CacheTTL),
	)
	a.Users = users.NewService(a.Docs)
	a.Wellness = wellness.NewServices(a.Docs)
	a.Lists = lists.NewService(a.Docs, nil)

	if cfg.JWTSecret != "" {
		a.Auth, err = auth.NewService(a.Docs, cfg.JWTSecret, cfg.TokenTTL,
			auth.WithRegisterHook(a.seedCategories),
		)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	model := opts.Model
	if model == nil && cfg.GeminiModel != "" {
		gm, err := categorizer.NewGeminiModel(ctx, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("Gemini unavailable, suggesting categories from history only")
		} else {
			model = gm
		}
	}
	a.Categorizer = categorizer.New(model)

	objects := opts.Objects
	if objects == nil {
		if cfg.BackupEnabled() {
			b, err := gcs.NewBucket(ctx, cfg.GCSBucket)
			if err != nil {
				return nil, fmt.Errorf("app: %w", err)
			}
			objects = b
			a.closers = append(a.closers, b.Close)
		} else {
			log.Warn().Msg("No GCS bucket configured, backups are kept in memory")
			objects = gcs.NewMemory("local")
		}
	}
	a.Backups = backup.NewService(a.Docs, objects, nil,
		backup.WithRestoreHook(a.Finance.Summary.Invalidate),
	)

	if cfg.WarehouseEnabled() {
		w, err := warehouse.New(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Warehouse = w
		a.closers = append(a.closers, w.Close)
	}

	if a.Notion = opts.Notion; a.Notion == nil && cfg.NotionEnabled() {
		a.Notion = notionsync.NewNotionClient(cfg.NotionToken)
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch strings.ToLower(cfg.Store) {
	case config.StoreMemory:
		return inmemory.NewStore(), nil
	default:
		s, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return s, nil
	}
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) seedCategories(ctx context.Context, userID string) error {
	_, err := a.Finance.Categories.SeedDefaults(ctx, userID)
	return err
}

// UserIDs lists every registered user, sorted.
func (a *App) UserIDs(ctx context.Context) ([]string, error) {
	docs, err := a.Docs.Query(ctx, docstore.Query{Collection: domain.CollUsers})
	if err != nil {
		return nil, fmt.Errorf("UserIDs: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// ExportUser appends userID's transactions to the warehouse.
func (a *App) ExportUser(ctx context.Context, userID string) (string, error) {
	if a.Warehouse == nil {
		return "", fmt.Errorf("ExportUser: warehouse: %w", ErrDisabled)
	}
	txs, err := a.Finance.Transactions.List(ctx, userID, finance.TransactionFilter{})
	if err != nil {
		return "", fmt.Errorf("ExportUser: %w", err)
	}
	return a.Warehouse.ExportUser(ctx, userID, txs)
}

// SyncNotion mirrors userID's transactions into the Notion database.
func (a *App) SyncNotion(ctx context.Context, userID string, dryRun bool) (notionsync.Result, error) {
	if a.Notion == nil {
		return notionsync.Result{}, fmt.Errorf("SyncNotion: notion: %w", ErrDisabled)
	}
	txs, err := a.Finance.Transactions.List(ctx, userID, finance.TransactionFilter{})
	if err != nil {
		return notionsync.Result{}, fmt.Errorf("SyncNotion: %w", err)
	}
	return notionsync.SyncTransactions(ctx, a.Notion, a.Config.NotionDBID, userID, txs, dryRun)
}

// RealtimeSources maps every subscribable collection to its service feed.
func (a *App) RealtimeSources() map[string]realtime.Source {
	return map[string]realtime.Source{
		domain.CollTransactions: realtime.Typed(a.Finance.Transactions.Subscribe),
		domain.CollBills:        realtime.Typed(a.Finance.Bills.Subscribe),
		domain.CollGoals:        realtime.Typed(a.Finance.Goals.Subscribe),
		domain.CollCards:        realtime.Typed(a.Finance.Cards.Subscribe),
		domain.CollCategories:   realtime.Typed(a.Finance.Categories.Subscribe),
		domain.CollHabits:       realtime.Typed(a.Wellness.Habits.Subscribe),
		domain.CollDailyLogs:    realtime.Typed(a.Wellness.Journal.Subscribe),
		domain.CollLists:        realtime.Typed(a.Lists.Subscribe),
		domain.CollListItems:    realtime.Typed(a.Lists.SubscribeItems),
	}
}
