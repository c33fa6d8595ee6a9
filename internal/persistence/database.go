package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/forgecomply/forgecomply360/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Database wraps the sqlx handle together with the configured dialect.
type Database struct {
	DB     *sqlx.DB
	Driver string
}

// NewDatabase opens the configured SQL database and verifies connectivity.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Database, error) {
	if cfg.DSN == "" {
		return nil, errors.New("DB_DSN not provided")
	}

	driverName := "sqlite"
	dsn := sqliteDSN(cfg.DSN)
	if cfg.Driver == DriverPostgres {
		driverName = "pgx"
		dsn = cfg.DSN
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverPostgres {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifeSec > 0 {
			db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeSec) * time.Second)
		}
	} else {
		// sqlite serializes writers; one connection also keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("connected to database", zap.String("driver", cfg.Driver))
	return &Database{DB: db, Driver: normalizeDriver(cfg.Driver)}, nil
}

// Close releases pool resources.
func (d *Database) Close() {
	if d != nil && d.DB != nil {
		_ = d.DB.Close()
	}
}

// Ping verifies database connectivity.
func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.DB == nil {
		return errors.New("database not configured")
	}
	return d.DB.PingContext(ctx)
}

// Handle returns the underlying sqlx handle.
func (d *Database) Handle() *sqlx.DB {
	if d == nil {
		return nil
	}
	return d.DB
}

func normalizeDriver(driver string) string {
	if driver == DriverPostgres {
		return DriverPostgres
	}
	return DriverSQLite
}

func sqliteDSN(dsn string) string {
	params := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}
