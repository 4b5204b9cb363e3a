package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/config"
	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/repository"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const (
	uniqueViolationCode = "23505"

	// Each ingestion worker holds one connection for the length of a batch transaction.
	maxOpenConns    = 20
	connMaxIdleTime = 5 * time.Minute

	// MigrationsSource is where schema migrations are read from, relative to the working directory.
	MigrationsSource = "file://migrations"
)

// psql builds statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// StartDB connects to postgres and brings the schema up to date.
func StartDB(ctx context.Context, dbConf config.DB) (*sql.DB, error) {
	db, err := open(ctx, dbConf)
	if err != nil {
		slog.Error("failed to initialize DB connection", slog.Any("err", err))
		return nil, fmt.Errorf("failed to initialize DB connection: %w", err)
	}
	if err = RunMigrations(db, MigrationsSource); err != nil {
		slog.Error("failed to run migrations", slog.Any("err", err))
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database ready", slog.String("host", dbConf.Host), slog.String("name", dbConf.Name))
	return db, nil
}

func open(ctx context.Context, conf config.DB) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		conf.Host, conf.User, conf.Password, conf.Name, conf.Port)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// RunMigrations applies every pending migration found at source.
func RunMigrations(db *sql.DB, source string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// mapUniqueViolation turns a postgres unique violation into a UniqueConstraintError.
// Errors from both the pgx and lib/pq drivers are recognized.
func mapUniqueViolation(err error) error {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == uniqueViolationCode {
		return &repository.UniqueConstraintError{Detail: pgError.Detail}
	}
	var pqError *pq.Error
	if errors.As(err, &pqError) && string(pqError.Code) == uniqueViolationCode {
		return &repository.UniqueConstraintError{Detail: pqError.Detail}
	}
	return err
}
