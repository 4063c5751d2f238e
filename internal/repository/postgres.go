// Package repository содержит реализацию доступа к данным в PostgreSQL.
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
	"github.com/sethvargo/go-retry"

	"github.com/waiwai-developers/waiwaichan-sub003/internal/model"
	"github.com/waiwai-developers/waiwaichan-sub003/internal/vo"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDuplicateGrant возвращается при повторном начислении за ту же пару (дающий, сообщение).
var (
	ErrDuplicateGrant = errors.New("grant already recorded for this message")
	// ErrInsufficientBalance возвращается при попытке списать больше, чем есть на балансе.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrItemNotFound возвращается, если предмет не найден или принадлежит другому пользователю.
	ErrItemNotFound = errors.New("user item not found")
	// ErrItemAlreadyUsed возвращается, если предмет уже был обменян.
	ErrItemAlreadyUsed = errors.New("user item already used")
	// ErrItemExpired возвращается, если срок действия предмета истёк.
	ErrItemExpired = errors.New("user item expired")
	// ErrCatalogItemNotFound возвращается, если предмет каталога отсутствует.
	ErrCatalogItemNotFound = errors.New("catalog item not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// База может подниматься параллельно с ботом, поэтому пингуем с бэкоффом.
	backoff := retry.WithMaxRetries(4, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
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

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраим только конфликты сериализации и дедлоки: переподключением
		// занимается сам pgxpool.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
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

// Ping проверяет доступность базы данных.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateLedgerEntry создаёт запись о начислении валюты.
// Повторная вставка по паре (дающий, сообщение) возвращает ErrDuplicateGrant.
func (r *PostgresRepository) CreateLedgerEntry(ctx context.Context, kind model.Kind, giveUserID, receiveUserID, messageID string, expiredAt time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ledger_entries (kind, give_user_id, receive_user_id, message_id, status, expired_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		string(kind), giveUserID, receiveUserID, messageID, string(model.LedgerStatusValid), expiredAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: message %s", ErrDuplicateGrant, messageID)
		}
		return 0, fmt.Errorf("create ledger entry: %w", err)
	}
	return id, nil
}

// HasLedgerEntry сообщает, было ли уже начисление за пару (дающий, сообщение).
func (r *PostgresRepository) HasLedgerEntry(ctx context.Context, kind model.Kind, giveUserID, messageID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM ledger_entries
		    WHERE kind = $1 AND give_user_id = $2 AND message_id = $3
		 )`,
		string(kind), giveUserID, messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	return exists, nil
}

// GetBalance возвращает сводку по валюте пользователя: текущий баланс считается
// по действительным непросроченным записям одним снимком чтения.
func (r *PostgresRepository) GetBalance(ctx context.Context, kind model.Kind, userID string, now time.Time) (*model.Balance, error) {
	var b model.Balance
	err := r.pool.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE status = $4 AND expired_at > $3),
		    COUNT(*) FILTER (WHERE status <> $5),
		    COUNT(*) FILTER (WHERE status = $6)
		 FROM ledger_entries
		 WHERE kind = $1 AND receive_user_id = $2`,
		string(kind), userID, now,
		string(model.LedgerStatusValid),
		string(model.LedgerStatusInvalid),
		string(model.LedgerStatusConsumed),
	).Scan(&b.Current, &b.Granted, &b.Consumed)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return &b, nil
}

// CreateDraw списывает стоимость розыгрыша и, если передан itemID, создаёт
// выпавший предмет — всё в одной транзакции. Старейшие записи списываются первыми.
// При нехватке баланса возвращает ErrInsufficientBalance без изменений состояния.
func (r *PostgresRepository) CreateDraw(ctx context.Context, kind model.Kind, userID string, cost int64, itemID *int64, expiredAt, now time.Time) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Блокируем списываемые записи, чтобы параллельные розыгрыши одного
		// пользователя не потратили одну и ту же единицу баланса.
		rows, err := tx.Query(ctx,
			`SELECT id FROM ledger_entries
			 WHERE kind = $1 AND receive_user_id = $2 AND status = $3 AND expired_at > $4
			 ORDER BY created_at, id
			 LIMIT $5
			 FOR UPDATE`,
			string(kind), userID, string(model.LedgerStatusValid), now, cost,
		)
		if err != nil {
			return fmt.Errorf("lock ledger entries: %w", err)
		}

		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan ledger entry: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		if int64(len(ids)) < cost {
			return ErrInsufficientBalance
		}

		cmdTag, err := tx.Exec(ctx,
			`UPDATE ledger_entries SET status = $2 WHERE id = ANY($1)`,
			ids, string(model.LedgerStatusConsumed),
		)
		if err != nil {
			return fmt.Errorf("consume ledger entries: %w", err)
		}
		if cmdTag.RowsAffected() != cost {
			return fmt.Errorf("consume ledger entries: affected %d of %d", cmdTag.RowsAffected(), cost)
		}

		if itemID != nil {
			_, err = tx.Exec(ctx,
				`INSERT INTO user_items (kind, user_id, item_id, status, expired_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				string(kind), userID, *itemID, string(model.UserItemStatusUnused), expiredAt,
			)
			if err != nil {
				return fmt.Errorf("insert user item: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// ExchangeUserItem переводит предмет пользователя в статус USED и возвращает
// предмет каталога. Владелец и статус проверяются под блокировкой строки,
// поэтому из двух одновременных обменов успешен ровно один.
func (r *PostgresRepository) ExchangeUserItem(ctx context.Context, kind model.Kind, userID string, userItemID int64, now time.Time) (*model.CatalogItem, error) {
	var catalog model.CatalogItem

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			itemID    int64
			status    string
			expiredAt time.Time
		)
		err = tx.QueryRow(ctx,
			`SELECT item_id, status, expired_at FROM user_items
			 WHERE kind = $1 AND id = $2 AND user_id = $3
			 FOR UPDATE`,
			string(kind), userItemID, userID,
		).Scan(&itemID, &status, &expiredAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrItemNotFound
			}
			return fmt.Errorf("select user item: %w", err)
		}

		itemStatus, err := vo.ParseItemStatus(status)
		if err != nil {
			return fmt.Errorf("parse user item status: %w", err)
		}
		if itemStatus.Equals(vo.ItemStatusUsed) {
			return ErrItemAlreadyUsed
		}
		if !expiredAt.After(now) {
			return ErrItemExpired
		}

		_, err = tx.Exec(ctx,
			`UPDATE user_items SET status = $2 WHERE id = $1`,
			userItemID, string(model.UserItemStatusUsed),
		)
		if err != nil {
			return fmt.Errorf("mark user item used: %w", err)
		}

		err = tx.QueryRow(ctx,
			`SELECT id, kind, name, description FROM catalog_items WHERE kind = $1 AND id = $2`,
			string(kind), itemID,
		).Scan(&catalog.ID, &catalog.Kind, &catalog.Name, &catalog.Description)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCatalogItemNotFound
			}
			return fmt.Errorf("select catalog item: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &catalog, nil
}

// ListUnusedItems возвращает неиспользованные непросроченные предметы пользователя,
// сгруппированные по предмету каталога, с минимальным id и ближайшим сроком.
func (r *PostgresRepository) ListUnusedItems(ctx context.Context, kind model.Kind, userID string, now time.Time) ([]model.ItemGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ui.item_id, ci.name, ci.description, COUNT(*), MIN(ui.id), MIN(ui.expired_at)
		 FROM user_items ui
		 JOIN catalog_items ci ON ci.kind = ui.kind AND ci.id = ui.item_id
		 WHERE ui.kind = $1 AND ui.user_id = $2 AND ui.status = $3 AND ui.expired_at > $4
		 GROUP BY ui.item_id, ci.name, ci.description
		 ORDER BY ui.item_id`,
		string(kind), userID, string(model.UserItemStatusUnused), now,
	)
	if err != nil {
		return nil, fmt.Errorf("select user items: %w", err)
	}
	defer rows.Close()

	var groups []model.ItemGroup
	for rows.Next() {
		var g model.ItemGroup
		if err := rows.Scan(&g.ItemID, &g.Name, &g.Description, &g.Count, &g.OldestUserItem, &g.EarliestExpiry); err != nil {
			return nil, fmt.Errorf("scan item group: %w", err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return groups, nil
}

// GetCatalogItem возвращает предмет каталога по валюте и идентификатору.
func (r *PostgresRepository) GetCatalogItem(ctx context.Context, kind model.Kind, itemID int64) (*model.CatalogItem, error) {
	var c model.CatalogItem
	err := r.pool.QueryRow(ctx,
		`SELECT id, kind, name, description FROM catalog_items WHERE kind = $1 AND id = $2`,
		string(kind), itemID,
	).Scan(&c.ID, &c.Kind, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCatalogItemNotFound
		}
		return nil, fmt.Errorf("get catalog item: %w", err)
	}
	return &c, nil
}

// CreateReminder сохраняет отложенное напоминание.
func (r *PostgresRepository) CreateReminder(ctx context.Context, userID, channelID, message string, remindAt time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, channel_id, message, remind_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		userID, channelID, message, remindAt, string(model.ReminderStatusPending),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create reminder: %w", err)
	}
	return id, nil
}

// FindDueReminders возвращает ожидающие напоминания, срок которых наступил.
func (r *PostgresRepository) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]model.Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, channel_id, message, remind_at, status, created_at
		 FROM reminders
		 WHERE status = $1 AND remind_at <= $2
		 ORDER BY remind_at
		 LIMIT $3`,
		string(model.ReminderStatusPending), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select due reminders: %w", err)
	}
	defer rows.Close()

	var res []model.Reminder
	for rows.Next() {
		var (
			rem    model.Reminder
			status string
		)
		if err := rows.Scan(&rem.ID, &rem.UserID, &rem.ChannelID, &rem.Message, &rem.RemindAt, &status, &rem.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		rem.Status = model.ReminderStatus(status)
		res = append(res, rem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkReminderSent помечает напоминание отправленным.
func (r *PostgresRepository) MarkReminderSent(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE reminders SET status = $2 WHERE id = $1`,
		id, string(model.ReminderStatusSent),
	)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}
