package main

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/TiagoDeMatosDias/EDINET/internal"
	"github.com/TiagoDeMatosDias/EDINET/internal/config"
	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
	"github.com/TiagoDeMatosDias/EDINET/internal/repository"
)

// dependencies holds everything the pipeline steps need, wired once per
// invocation.
type dependencies struct {
	Config   *config.Config
	Store    repository.TableStore
	Registry *internal.FormulaRegistry
	Prices   repository.StockPriceRepository
	Log      *zap.SugaredLogger

	db *sqlx.DB
}

func initializeDependencies(configPath string) (*dependencies, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if url := os.Getenv("EDINET_DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if cfg.DatabaseURL == "" {
		return nil, domain.ConfigError{Reason: "database_url is not set and EDINET_DATABASE_URL is empty"}
	}

	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	registry, err := loadRegistry(cfg.RatioRulesPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &dependencies{
		Config:   cfg,
		Store:    repository.NewPostgresTableStore(db),
		Registry: registry,
		Prices:   repository.NewStockPriceRepository(),
		Log:      logger.New(),
		db:       db,
	}, nil
}

func loadRegistry(path string) (*internal.FormulaRegistry, error) {
	if path == "" {
		return nil, domain.ConfigError{Reason: "ratio_rules_path is not set"}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ratio rules %s: %w", path, err)
	}
	defer f.Close()
	return internal.LoadRatioRules(f, internal.KnownFields())
}

func (d *dependencies) Close() {
	if err := d.db.Close(); err != nil {
		d.Log.Warnw("failed to close db", "error", err)
	}
	d.Log.Sync()
}
