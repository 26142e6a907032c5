package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// poolLimits — настройки пула подключений. Значения подобраны под один
// инстанс API: пул не раздувается и переживает рестарты pgbouncer'а.
type poolLimits struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

var defaultPoolLimits = poolLimits{
	maxOpen:     25,
	maxIdle:     25,
	maxLifetime: 30 * time.Minute,
	maxIdleTime: 5 * time.Minute,
}

func (l poolLimits) apply(db *sql.DB) {
	db.SetMaxOpenConns(l.maxOpen)
	db.SetMaxIdleConns(l.maxIdle)
	db.SetConnMaxLifetime(l.maxLifetime)
	db.SetConnMaxIdleTime(l.maxIdleTime)
}

var errStoreNotInitialized = errors.New("postgres store is not initialized")

// Store держит пул подключений к PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open открывает подключение к PostgreSQL через pgx stdlib-драйвер
// и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	defaultPoolLimits.apply(db)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// DB отдаёт *sql.DB для репозиториев.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет, что база отвечает.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции; используется при автомиграции на старте.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close освобождает пул подключений.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
