package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

const pingTimeout = 5 * time.Second

// PgDatabase инкапсулирует подключение к PostgreSQL и управление миграциями.
type PgDatabase struct {
	Pool *pgxpool.Pool
	Dsn  string
	cfg  *cfg.PGDBCfg
}

func NewPgDatabase(pool *pgxpool.Pool, cfg *cfg.PGDBCfg, dsn string) *PgDatabase {
	return &PgDatabase{Pool: pool, cfg: cfg, Dsn: dsn}
}

// Connect устанавливает соединение с PostgreSQL.
func Connect(ctx context.Context, cfg *cfg.PGDBCfg) (*PgDatabase, error) {
	const op = "PgDatabase.Connect"
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, e.Wrap(op, err)
	}

	return NewPgDatabase(pool, cfg, dsn), nil
}

func (db *PgDatabase) Ping(ctx context.Context) error {
	const op = "PgDatabase.Ping"
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// Close корректно закрывает пул соединений к базе данных.
func (db *PgDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// RunMigrations применяет ожидающие миграции из cfg.MigrationsPath.
func (db *PgDatabase) RunMigrations(logger logger.Logger) error {
	const (
		op                 = "PgDatabase.RunMigrations"
		driverName         = "pgx"
		databaseDriverName = "postgres"
	)

	sqlDb, err := sql.Open(driverName, db.Dsn)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer sqlDb.Close()

	driver, err := postgres.WithInstance(sqlDb, &postgres.Config{})
	if err != nil {
		return e.Wrap(op, err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		db.cfg.MigrationsPath,
		databaseDriverName,
		driver,
	)
	if err != nil {
		return e.Wrap(op, err)
	}

	err = m.Up()
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debugf("migrations: no change")
			return nil
		}
		return e.Wrap(op, err)
	}

	logger.Infof("migrations applied successfully")
	return nil
}
