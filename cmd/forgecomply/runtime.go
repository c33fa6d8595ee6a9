package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/forgecomply/forgecomply360/internal/config"
	"github.com/forgecomply/forgecomply360/internal/observability"
	"github.com/forgecomply/forgecomply360/internal/persistence"
)

// runtime holds what every subcommand needs: configuration, a logger and an
// open database.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *persistence.Database
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := persistence.NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, db: db}, nil
}

func (r *runtime) Close() {
	r.db.Close()
	_ = r.logger.Sync()
}
