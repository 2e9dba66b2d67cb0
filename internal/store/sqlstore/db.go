package sqlstore

import (
	"embed"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nulzo/gateway-analytics-api/internal/config"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var fs embed.FS

// Open connects to the database described by cfg. The SQLite schema is
// migrated on open; MySQL and PostgreSQL schemas belong to the gateway and
// are only read.
func Open(cfg config.DBConfig, logger *zap.Logger) (*Repository, error) {
	driver, err := cfg.ResolveDriver()
	if err != nil {
		return nil, err
	}

	d, dsn, err := dataSource(driver, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == config.DriverSQLite {
		// single writer; also keeps a :memory: database alive across queries
		db.SetMaxOpenConns(1)
		if err := runMigrations(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database migrations applied successfully")
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	logger.Info("Connected to analytics database",
		zap.String("driver", driver),
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)

	return newRepository(db, d), nil
}

func dataSource(driver string, cfg config.DBConfig) (dialect, string, error) {
	switch driver {
	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Database
		mc.ParseTime = true
		return mysqlDialect, mc.FormatDSN(), nil
	case config.DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:   "/" + cfg.Database,
		}
		return postgresDialect, u.String(), nil
	case config.DriverSQLite:
		if cfg.Path == "" {
			return dialect{}, "", errors.New("db.path is required for sqlite3")
		}
		return sqliteDialect, cfg.Path, nil
	default:
		return dialect{}, "", fmt.Errorf("unsupported db driver %q", driver)
	}
}

func runMigrations(db *sqlx.DB) error {
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return err
	}

	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
