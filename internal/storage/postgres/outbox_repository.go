package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Статусы записи в outbox. Воркер забирает только pending; sent и failed —
// конечные состояния записи.
const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

const insertOutboxSQL = `
	INSERT INTO outbox_messages (
		id, aggregate_type, aggregate_id, event_type, payload,
		status, attempt_count, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,0,$7,$7)
`

// execer покрывает *sql.DB и *sql.Tx: запись в outbox выполняется либо
// отдельным запросом, либо внутри транзакции заказа.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertOutboxMessages пишет события в outbox через переданный executor.
// Вызов из транзакции заказа фиксирует события тем же коммитом, что и
// бизнес-запись. Сгенерированные идентификаторы проставляются в msgs.
func insertOutboxMessages(ctx context.Context, q execer, msgs []domain.OutboxMessage) error {
	now := time.Now().UTC()
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
		if _, err := q.ExecContext(ctx, insertOutboxSQL,
			msgs[i].ID, msgs[i].AggregateType, msgs[i].AggregateID,
			msgs[i].EventType, msgs[i].Payload, outboxStatusPending, now,
		); err != nil {
			return fmt.Errorf("insert outbox message %s: %w", msgs[i].EventType, err)
		}
	}
	return nil
}

type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository возвращает PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{db: store.DB()}
}

func (r *outboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	batch := []domain.OutboxMessage{msg}
	if err := insertOutboxMessages(ctx, r.db, batch); err != nil {
		return domain.OutboxMessage{}, err
	}
	return batch[0], nil
}

func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`, outboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}
	defer rows.Close()

	pending := make([]domain.OutboxMessage, 0, limit)
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.AggregateType,
			&msg.AggregateID,
			&msg.EventType,
			&msg.Payload,
		); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		pending = append(pending, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	return pending, nil
}

func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = $1
	`, outboxStatusPending).Scan(&stats.PendingCount, &oldest)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats query failed: %w", err)
	}

	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}

	return stats, nil
}

func (r *outboxRepository) MarkSent(id string) error {
	return r.finalize(id, outboxStatusSent)
}

func (r *outboxRepository) MarkFailed(id string) error {
	return r.finalize(id, outboxStatusFailed)
}

// finalize переводит запись в конечный статус и увеличивает счётчик попыток.
func (r *outboxRepository) finalize(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $2,
		    attempt_count = attempt_count + 1,
		    updated_at = $3
		WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark outbox message as %s: %w", status, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for outbox %s: %w", status, err)
	}
	if affected == 0 {
		return domain.ErrOutboxPublish
	}

	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
