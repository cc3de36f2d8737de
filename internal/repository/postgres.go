package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql
var postgresMigrationsFS embed.FS

// notifyChannel задаёт канал LISTEN/NOTIFY, в который публикуются изменённые ключи.
const notifyChannel = "kv_changes"

// PostgresRepository хранит значения в PostgreSQL и рассылает изменения всем экземплярам через NOTIFY.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(postgresMigrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotFound) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Get возвращает значение по ключу.
func (r *PostgresRepository) Get(ctx context.Context, key Key) ([]byte, error) {
	var value []byte
	err := r.withRetry(ctx, func() error {
		err := r.pool.QueryRow(ctx,
			`SELECT value FROM kv_entries WHERE namespace = $1 AND identity = $2`,
			key.Namespace, key.Identity,
		).Scan(&value)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Put сохраняет значение и в той же транзакции публикует ключ в канал изменений.
func (r *PostgresRepository) Put(ctx context.Context, key Key, value []byte) error {
	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO kv_entries (namespace, identity, value)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (namespace, identity) DO UPDATE
			 SET value = EXCLUDED.value, updated_at = NOW()`,
			key.Namespace, key.Identity, value,
		)
		if err != nil {
			return fmt.Errorf("upsert: %w", err)
		}

		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key.String()); err != nil {
			return fmt.Errorf("notify: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete удаляет значение по ключу.
func (r *PostgresRepository) Delete(ctx context.Context, key Key) error {
	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx,
			`DELETE FROM kv_entries WHERE namespace = $1 AND identity = $2`,
			key.Namespace, key.Identity,
		)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}

		if tag.RowsAffected() > 0 {
			if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key.String()); err != nil {
				return fmt.Errorf("notify: %w", err)
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Watch слушает канал изменений на выделенном соединении и передаёт fn каждый изменённый ключ.
// Потерянное соединение переподключается; возврат происходит только при отмене ctx.
func (r *PostgresRepository) Watch(ctx context.Context, fn func(Key)) error {
	for {
		err := r.listen(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			continue
		}

		timer := time.NewTimer(retryDelays[0])
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (r *PostgresRepository) listen(ctx context.Context, fn func(Key)) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		fn(ParseKey(n.Payload))
	}
}
