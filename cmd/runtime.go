package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/nextlevelbuilder/autoreply/internal/agent"
	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/internal/channels/evolution"
	"github.com/nextlevelbuilder/autoreply/internal/config"
	"github.com/nextlevelbuilder/autoreply/internal/persona"
	"github.com/nextlevelbuilder/autoreply/internal/providers"
	"github.com/nextlevelbuilder/autoreply/internal/store"
	"github.com/nextlevelbuilder/autoreply/internal/store/file"
	"github.com/nextlevelbuilder/autoreply/internal/store/pg"
	"github.com/nextlevelbuilder/autoreply/internal/upgrade"
)

// runtime is the wired set of components shared by serve and reply.
type runtime struct {
	stores   *store.Stores
	data     *file.Data // standalone only
	pipeline *agent.Pipeline
	defaults persona.Defaults
}

func (rt *runtime) Close() {
	if rt.stores != nil && rt.stores.Close != nil {
		if err := rt.stores.Close(); err != nil {
			slog.Warn("stores close failed", "error", err)
		}
	}
}

func storeConfig(cfg *config.Config) store.StoreConfig {
	return store.StoreConfig{
		PostgresDSN: cfg.Database.PostgresDSN,
		Mode:        cfg.Database.Mode,
		SeedFile:    config.ExpandHome(cfg.Database.SeedFile),
	}
}

func buildStores(ctx context.Context, cfg *config.Config, msgBus bus.EventPublisher) (*store.Stores, *file.Data, error) {
	if cfg.IsManagedMode() {
		if err := ensureSchema(cfg.Database.PostgresDSN); err != nil {
			return nil, nil, err
		}
		s, err := pg.NewPGStores(storeConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		slog.Info("stores ready", "mode", "managed")
		return s, nil, nil
	}
	if cfg.Database.Mode == "managed" {
		slog.Warn("managed mode requested but AUTOREPLY_POSTGRES_DSN is empty, falling back to standalone")
	}
	s, data, err := file.NewFileStores(ctx, storeConfig(cfg), msgBus)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("stores ready", "mode", "standalone", "seed", cfg.Database.SeedFile)
	return s, data, nil
}

// ensureSchema refuses to start managed mode on an incompatible schema. An
// outdated one is migrated inline when AUTOREPLY_AUTO_UPGRADE=true.
func ensureSchema(dsn string) error {
	db, err := pg.OpenDB(dsn)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	s, err := upgrade.CheckSchema(db)
	db.Close()
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if s.Compatible {
		slog.Info("schema.ok", "version", s.CurrentVersion)
		return nil
	}
	if s.Dirty || s.CurrentVersion > s.RequiredVersion || os.Getenv("AUTOREPLY_AUTO_UPGRADE") != "true" {
		return errors.New(upgrade.FormatError(s))
	}

	slog.Info("schema.auto_upgrade", "from", s.CurrentVersion, "to", s.RequiredVersion)
	m, err := migrate.New(migrationsSource(), dsn)
	if err != nil {
		return fmt.Errorf("auto-upgrade: %w", err)
	}
	defer m.Close()
	if err := applyUp(m, false); err != nil {
		return fmt.Errorf("auto-upgrade: %w", err)
	}
	return nil
}

func buildProvider(cfg *config.Config) providers.Provider {
	if cfg.Provider.APIKey == "" {
		slog.Warn("completion provider not configured (set AUTOREPLY_PROVIDER_API_KEY)")
		return nil
	}
	return providers.NewOpenAIProvider(cfg.Provider.Name, cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Provider.Model)
}

func buildRuntime(ctx context.Context, cfg *config.Config, msgBus bus.EventPublisher) (*runtime, error) {
	stores, data, err := buildStores(ctx, cfg, msgBus)
	if err != nil {
		return nil, fmt.Errorf("stores: %w", err)
	}

	gw := evolution.New(cfg.Delivery, evolution.NewStoreInstances(stores.Instances))
	if !gw.Configured() {
		slog.Warn("delivery gateway not configured, replies will be logged as pending_manual_send")
	}

	defaults := persona.DefaultsFromConfig(cfg)
	p := agent.NewPipeline(agent.PipelineConfig{
		Stores:          stores,
		Provider:        buildProvider(cfg),
		Gateway:         gw,
		Bus:             msgBus,
		Defaults:        defaults,
		HistoryLimit:    cfg.Reply.HistoryLimit,
		KnowledgeLimit:  cfg.Reply.KnowledgeLimit,
		KnowledgeTopK:   cfg.Reply.KnowledgeTopK,
		SnippetMaxChars: cfg.Reply.SnippetMaxChars,
	})

	return &runtime{stores: stores, data: data, pipeline: p, defaults: defaults}, nil
}
