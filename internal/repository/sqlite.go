package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrationsFS embed.FS

// SQLiteRepository хранит значения в файле SQLite на одном узле.
type SQLiteRepository struct {
	db *sql.DB
	watchers
}

// NewSQLiteRepository открывает базу SQLite по пути path и применяет миграции.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Одно соединение: для :memory: каждое соединение видит свою базу.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	goose.SetBaseFS(sqliteMigrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations/sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Get возвращает значение по ключу.
func (r *SQLiteRepository) Get(ctx context.Context, key Key) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE namespace = ? AND identity = ?`,
		key.Namespace, key.Identity,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Put сохраняет значение и уведомляет подписчиков процесса.
func (r *SQLiteRepository) Put(ctx context.Context, key Key, value []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kv_entries (namespace, identity, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (namespace, identity) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		key.Namespace, key.Identity, value,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	r.notify(key)
	return nil
}

// Delete удаляет значение по ключу.
func (r *SQLiteRepository) Delete(ctx context.Context, key Key) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE namespace = ? AND identity = ?`,
		key.Namespace, key.Identity,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		r.notify(key)
	}
	return nil
}

// Watch доставляет fn уведомления об изменениях, сделанных этим процессом.
func (r *SQLiteRepository) Watch(ctx context.Context, fn func(Key)) error {
	return r.watch(ctx, fn)
}

// Close закрывает базу.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
