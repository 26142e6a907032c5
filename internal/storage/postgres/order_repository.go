package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository возвращает PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order, events ...domain.OutboxMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, number, user_id, status, grand_total_minor, shipping_minor,
			shipping_address, payment_method, tracking_id, tracking_url,
			cancel_reason, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		order.ID, order.Number, order.UserID, string(order.Status),
		order.GrandTotalMinor, order.ShippingMinor, address,
		order.PaymentMethod, order.TrackingID, order.TrackingURL,
		order.CancelReason, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, name, unit_price_minor, tax_rate_bps,
				tax_type, image, tax_amount_minor, qty, total_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`,
			item.ID, order.ID, item.ProductID, item.Name, item.UnitPriceMinor,
			item.TaxRateBps, item.TaxType, item.Image, item.TaxAmountMinor,
			item.Qty, item.TotalMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	// События уходят в outbox тем же коммитом, что и заказ.
	if err = insertOutboxMessages(ctx, tx, events); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

const orderColumns = `
	id, number, user_id, status, grand_total_minor, shipping_minor,
	shipping_address, payment_method, tracking_id, tracking_url,
	cancel_reason, created_at, updated_at
`

func (r *orderRepository) GetByID(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getBy(ctx, "id", id)
}

func (r *orderRepository) GetByNumber(number string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getBy(ctx, "number", number)
}

func (r *orderRepository) getBy(ctx context.Context, column, value string) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE `+column+` = $1
	`, value)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order by %s: %w", column, err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) List(filter domain.ListFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT ` + orderColumns + `
		FROM orders
	`
	args := make([]any, 0, 3)
	where := ""

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = " WHERE user_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		if where == "" {
			where = " WHERE status = $" + strconv.Itoa(len(args))
		} else {
			where += " AND status = $" + strconv.Itoa(len(args))
		}
	}
	query += where + " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) TransitionStatus(id string, from, to domain.OrderStatus, update domain.StatusUpdate, events ...domain.OutboxMessage) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// CAS по текущему статусу: гонка двух переходов оставляет ровно один
	// применённым, второй получает ErrStatusConflict.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    tracking_id = CASE WHEN $2 <> '' THEN $2 ELSE tracking_id END,
		    tracking_url = CASE WHEN $3 <> '' THEN $3 ELSE tracking_url END,
		    cancel_reason = CASE WHEN $4 <> '' THEN $4 ELSE cancel_reason END,
		    updated_at = $5
		WHERE id = $6
		  AND status = $7
	`,
		string(to), update.TrackingID, update.TrackingURL, update.CancelReason,
		time.Now().UTC(), id, string(from),
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("transition order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, checkErr := r.orderExistsTx(ctx, tx, id)
		if checkErr != nil {
			err = checkErr
			return domain.Order{}, checkErr
		}
		_ = tx.Rollback()
		if !exists {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, domain.ErrStatusConflict
	}

	// События фиксируются той же транзакцией, что и смена статуса.
	if err = insertOutboxMessages(ctx, tx, events); err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit status transition: %w", err)
	}

	return r.getBy(ctx, "id", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order   domain.Order
		status  string
		address []byte
	)

	if err := row.Scan(
		&order.ID, &order.Number, &order.UserID, &status,
		&order.GrandTotalMinor, &order.ShippingMinor, &address,
		&order.PaymentMethod, &order.TrackingID, &order.TrackingURL,
		&order.CancelReason, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	if len(address) > 0 {
		if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, name, unit_price_minor, tax_rate_bps,
		       tax_type, image, tax_amount_minor, qty, total_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Name, &item.UnitPriceMinor,
			&item.TaxRateBps, &item.TaxType, &item.Image, &item.TaxAmountMinor,
			&item.Qty, &item.TotalMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
