// Package mysqlstore is a MySQL implementation of orders.Store.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

// Store keeps orders, items, history and returns in MySQL. Every mutation
// runs in a single transaction.
type Store struct {
	db *sqlx.DB
}

// New wraps an open connection pool. The DSN must set parseTime=true.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the MySQL driver.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: connect: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

type orderRow struct {
	ID                string              `db:"id"`
	UserID            string              `db:"user_id"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
	TotalAmount       decimal.Decimal     `db:"total_amount"`
	Status            string              `db:"status"`
	ShippingAddress   string              `db:"shipping_address"`
	BillingAddress    string              `db:"billing_address"`
	PaymentMethod     string              `db:"payment_method"`
	PaymentStatus     string              `db:"payment_status"`
	TrackingNumber    sql.NullString      `db:"tracking_number"`
	EstimatedDelivery sql.NullTime        `db:"estimated_delivery"`
	CancelReason      sql.NullString      `db:"cancel_reason"`
	RefundAmount      decimal.NullDecimal `db:"refund_amount"`
	RefundMethod      sql.NullString      `db:"refund_method"`
	RefundedAt        sql.NullTime        `db:"refunded_at"`
	PendingReturnID   sql.NullString      `db:"pending_return_id"`
}

type itemRow struct {
	ID          string          `db:"id"`
	OrderID     string          `db:"order_id"`
	Position    int             `db:"position"`
	ProductID   string          `db:"product_id"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Discount    decimal.Decimal `db:"discount"`
}

type historyRow struct {
	OrderID   string    `db:"order_id"`
	Status    string    `db:"status"`
	ChangedAt time.Time `db:"changed_at"`
	ChangedBy string    `db:"changed_by"`
	Note      string    `db:"note"`
}

type returnRow struct {
	ID            string              `db:"id"`
	OrderID       string              `db:"order_id"`
	UserID        string              `db:"user_id"`
	RequestDate   time.Time           `db:"request_date"`
	Reason        string              `db:"reason"`
	Status        string              `db:"status"`
	Resolution    sql.NullString      `db:"resolution"`
	RefundAmount  decimal.NullDecimal `db:"refund_amount"`
	RefundMethod  sql.NullString      `db:"refund_method"`
	ProcessedDate sql.NullTime        `db:"processed_date"`
	ProcessedBy   sql.NullString      `db:"processed_by"`
}

const orderColumns = `id, user_id, created_at, updated_at, total_amount, status, shipping_address,
	billing_address, payment_method, payment_status, tracking_number, estimated_delivery,
	cancel_reason, refund_amount, refund_method, refunded_at, pending_return_id`

const returnColumns = `id, order_id, user_id, request_date, reason, status, resolution,
	refund_amount, refund_method, processed_date, processed_by`

func (s *Store) CreateOrder(ctx context.Context, order orders.Order) error {
	return s.inTx(ctx, "create order", func(tx *sqlx.Tx) error {
		row := toOrderRow(order)
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (
			:id, :user_id, :created_at, :updated_at, :total_amount, :status, :shipping_address,
			:billing_address, :payment_method, :payment_status, :tracking_number, :estimated_delivery,
			:cancel_reason, :refund_amount, :refund_method, :refunded_at, :pending_return_id)`, row); err != nil {
			return err
		}

		items := make([]itemRow, 0, len(order.Items))
		for i, it := range order.Items {
			items = append(items, itemRow{
				ID: it.ID, OrderID: order.ID, Position: i, ProductID: it.ProductID,
				ProductName: it.ProductName, Quantity: it.Quantity, UnitPrice: it.UnitPrice, Discount: it.Discount,
			})
		}
		if len(items) > 0 {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO order_items
				(id, order_id, position, product_id, product_name, quantity, unit_price, discount)
				VALUES (:id, :order_id, :position, :product_id, :product_name, :quantity, :unit_price, :discount)`, items); err != nil {
				return err
			}
		}
		for _, h := range order.History {
			if err := insertHistory(ctx, tx, order.ID, h); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (orders.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Order{}, fmt.Errorf("%w: order %s", orders.ErrNotFound, orderID)
	}
	if err != nil {
		return orders.Order{}, &orders.PersistenceError{Op: "get order", Err: err}
	}
	list, err := s.attach(ctx, []orderRow{row})
	if err != nil {
		return orders.Order{}, err
	}
	return list[0], nil
}

func (s *Store) ListOrders(ctx context.Context, filter orders.ListFilter) ([]orders.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ?`
	args := []any{filter.UserID}
	if filter.Status != nil {
		q += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	q += ` ORDER BY created_at DESC, id DESC`

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, &orders.PersistenceError{Op: "list orders", Err: err}
	}
	return s.attach(ctx, rows)
}

// attach loads items and history for rows with one query each.
func (s *Store) attach(ctx context.Context, rows []orderRow) ([]orders.Order, error) {
	out := make([]orders.Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var items []itemRow
	q, args, err := sqlx.In(`SELECT id, order_id, position, product_id, product_name, quantity, unit_price, discount
		FROM order_items WHERE order_id IN (?) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, &orders.PersistenceError{Op: "load items", Err: err}
	}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(q), args...); err != nil {
		return nil, &orders.PersistenceError{Op: "load items", Err: err}
	}

	var history []historyRow
	q, args, err = sqlx.In(`SELECT order_id, status, changed_at, changed_by, note
		FROM order_status_history WHERE order_id IN (?) ORDER BY order_id, id`, ids)
	if err != nil {
		return nil, &orders.PersistenceError{Op: "load history", Err: err}
	}
	if err := s.db.SelectContext(ctx, &history, s.db.Rebind(q), args...); err != nil {
		return nil, &orders.PersistenceError{Op: "load history", Err: err}
	}

	itemsByOrder := map[string][]orders.OrderItem{}
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], orders.OrderItem{
			ID: it.ID, ProductID: it.ProductID, ProductName: it.ProductName,
			Quantity: it.Quantity, UnitPrice: it.UnitPrice, Discount: it.Discount,
		})
	}
	historyByOrder := map[string][]orders.HistoryEntry{}
	for _, h := range history {
		historyByOrder[h.OrderID] = append(historyByOrder[h.OrderID], orders.HistoryEntry{
			Status: orders.Status(h.Status), ChangedAt: h.ChangedAt.UTC(), ChangedBy: h.ChangedBy, Note: h.Note,
		})
	}
	for _, r := range rows {
		o := r.toOrder()
		o.Items = itemsByOrder[r.ID]
		o.History = historyByOrder[r.ID]
		out = append(out, o)
	}
	return out, nil
}

// ApplyStatusChange updates the row only while it still holds change.From.
func (s *Store) ApplyStatusChange(ctx context.Context, change orders.StatusChange) (orders.Order, error) {
	err := s.inTx(ctx, "apply status change", func(tx *sqlx.Tx) error {
		return applyChange(ctx, tx, change)
	})
	if err != nil {
		return orders.Order{}, err
	}
	return s.GetOrder(ctx, change.OrderID)
}

func applyChange(ctx context.Context, tx *sqlx.Tx, change orders.StatusChange) error {
	res, err := tx.ExecContext(ctx, `UPDATE orders SET
			status = ?, updated_at = ?,
			tracking_number = COALESCE(?, tracking_number),
			estimated_delivery = COALESCE(?, estimated_delivery),
			cancel_reason = COALESCE(?, cancel_reason),
			refund_amount = COALESCE(?, refund_amount),
			refund_method = COALESCE(?, refund_method),
			refunded_at = IF(? IS NULL, refunded_at, ?)
		WHERE id = ? AND status = ?`,
		string(change.To), change.At.UTC(),
		nullString(change.TrackingNumber),
		nullTime(change.EstimatedDelivery),
		nullString(change.CancelReason),
		nullDecimal(change.RefundAmount),
		nullString(change.RefundMethod),
		nullDecimal(change.RefundAmount), change.At.UTC(),
		change.OrderID, string(change.From),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := tx.GetContext(ctx, &exists, `SELECT 1 FROM orders WHERE id = ?`, change.OrderID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: order %s", orders.ErrNotFound, change.OrderID)
		}
		if err != nil {
			return err
		}
		return orders.ErrConflict
	}
	return insertHistory(ctx, tx, change.OrderID, change.Entry)
}

func (s *Store) UpdateFulfillment(ctx context.Context, update orders.FulfillmentUpdate) (orders.Order, error) {
	err := s.inTx(ctx, "update fulfillment", func(tx *sqlx.Tx) error {
		if err := lockOrder(ctx, tx, update.OrderID, nil); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE orders SET
				updated_at = ?,
				tracking_number = COALESCE(?, tracking_number),
				estimated_delivery = COALESCE(?, estimated_delivery)
			WHERE id = ?`,
			update.At.UTC(), nullString(update.TrackingNumber), nullTime(update.EstimatedDelivery), update.OrderID)
		return err
	})
	if err != nil {
		return orders.Order{}, err
	}
	return s.GetOrder(ctx, update.OrderID)
}

// lockOrder takes a row lock on the order and optionally returns it.
func lockOrder(ctx context.Context, tx *sqlx.Tx, orderID string, dst *orderRow) error {
	var row orderRow
	err := tx.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: order %s", orders.ErrNotFound, orderID)
	}
	if err != nil {
		return err
	}
	if dst != nil {
		*dst = row
	}
	return nil
}

func (s *Store) CreateReturn(ctx context.Context, ret orders.ReturnRequest) error {
	return s.inTx(ctx, "create return", func(tx *sqlx.Tx) error {
		var order orderRow
		if err := lockOrder(ctx, tx, ret.OrderID, &order); err != nil {
			return err
		}
		if order.PendingReturnID.Valid {
			return orders.ErrDuplicateReturnRequest
		}
		if orders.Status(order.Status) != orders.StatusDelivered {
			return orders.ErrConflict
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO return_requests (`+returnColumns+`) VALUES (
			:id, :order_id, :user_id, :request_date, :reason, :status, :resolution,
			:refund_amount, :refund_method, :processed_date, :processed_by)`, toReturnRow(ret)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE orders SET pending_return_id = ?, updated_at = ? WHERE id = ?`,
			ret.ID, ret.RequestDate.UTC(), ret.OrderID)
		return err
	})
}

func (s *Store) GetReturn(ctx context.Context, returnID string) (orders.ReturnRequest, error) {
	var row returnRow
	err := s.db.GetContext(ctx, &row, `SELECT `+returnColumns+` FROM return_requests WHERE id = ?`, returnID)
	if errors.Is(err, sql.ErrNoRows) {
		return orders.ReturnRequest{}, fmt.Errorf("%w: return %s", orders.ErrNotFound, returnID)
	}
	if err != nil {
		return orders.ReturnRequest{}, &orders.PersistenceError{Op: "get return", Err: err}
	}
	return row.toReturn(), nil
}

func (s *Store) ResolveReturn(ctx context.Context, res orders.ReturnResolution) (orders.ReturnRequest, error) {
	err := s.inTx(ctx, "resolve return", func(tx *sqlx.Tx) error {
		var ret returnRow
		err := tx.GetContext(ctx, &ret, `SELECT `+returnColumns+` FROM return_requests WHERE id = ? FOR UPDATE`, res.ReturnID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: return %s", orders.ErrNotFound, res.ReturnID)
		}
		if err != nil {
			return err
		}
		if orders.ReturnStatus(ret.Status) != orders.ReturnPending {
			return orders.ErrInvalidReturnState
		}

		var order orderRow
		if err := lockOrder(ctx, tx, res.OrderID, &order); err != nil {
			return err
		}
		if order.PendingReturnID.String != res.ReturnID {
			return orders.ErrConflict
		}
		if res.OrderChange != nil {
			if err := applyChange(ctx, tx, *res.OrderChange); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET pending_return_id = NULL WHERE id = ?`, res.OrderID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE return_requests SET
				status = ?, resolution = ?, refund_amount = ?, refund_method = ?, processed_date = ?, processed_by = ?
			WHERE id = ?`,
			string(res.Status), res.Resolution, nullDecimal(res.RefundAmount), nullString(res.RefundMethod),
			res.ProcessedDate.UTC(), res.ProcessedBy, res.ReturnID)
		return err
	})
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	return s.GetReturn(ctx, res.ReturnID)
}

// inTx runs fn in a transaction. Domain errors pass through untouched; any
// other failure is reported as a PersistenceError after rollback.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &orders.PersistenceError{Op: op, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if isDomainError(err) {
			return err
		}
		return &orders.PersistenceError{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &orders.PersistenceError{Op: op, Err: err}
	}
	return nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		orders.ErrNotFound,
		orders.ErrConflict,
		orders.ErrDuplicateReturnRequest,
		orders.ErrInvalidReturnState,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, orderID string, h orders.HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO order_status_history (order_id, status, changed_at, changed_by, note)
		VALUES (?, ?, ?, ?, ?)`, orderID, string(h.Status), h.ChangedAt.UTC(), h.ChangedBy, h.Note)
	return err
}

func toOrderRow(o orders.Order) orderRow {
	return orderRow{
		ID:                o.ID,
		UserID:            o.UserID,
		CreatedAt:         o.CreatedAt.UTC(),
		UpdatedAt:         o.UpdatedAt.UTC(),
		TotalAmount:       o.TotalAmount,
		Status:            string(o.Status),
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		PaymentMethod:     o.PaymentMethod,
		PaymentStatus:     string(o.PaymentStatus),
		TrackingNumber:    nullString(o.TrackingNumber),
		EstimatedDelivery: nullTime(o.EstimatedDelivery),
		CancelReason:      nullString(o.CancelReason),
		RefundAmount:      nullDecimal(o.RefundAmount),
		RefundMethod:      nullString(o.RefundMethod),
		RefundedAt:        nullTime(o.RefundedAt),
		PendingReturnID:   sql.NullString{String: o.PendingReturnID, Valid: o.PendingReturnID != ""},
	}
}

func (r orderRow) toOrder() orders.Order {
	return orders.Order{
		ID:                r.ID,
		UserID:            r.UserID,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
		TotalAmount:       r.TotalAmount,
		Status:            orders.Status(r.Status),
		ShippingAddress:   r.ShippingAddress,
		BillingAddress:    r.BillingAddress,
		PaymentMethod:     r.PaymentMethod,
		PaymentStatus:     orders.PaymentStatus(r.PaymentStatus),
		TrackingNumber:    stringPtr(r.TrackingNumber),
		EstimatedDelivery: timePtr(r.EstimatedDelivery),
		CancelReason:      stringPtr(r.CancelReason),
		RefundAmount:      decimalPtr(r.RefundAmount),
		RefundMethod:      stringPtr(r.RefundMethod),
		RefundedAt:        timePtr(r.RefundedAt),
		PendingReturnID:   r.PendingReturnID.String,
	}
}

func toReturnRow(r orders.ReturnRequest) returnRow {
	return returnRow{
		ID:            r.ID,
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		RequestDate:   r.RequestDate.UTC(),
		Reason:        r.Reason,
		Status:        string(r.Status),
		Resolution:    nullString(r.Resolution),
		RefundAmount:  nullDecimal(r.RefundAmount),
		RefundMethod:  nullString(r.RefundMethod),
		ProcessedDate: nullTime(r.ProcessedDate),
		ProcessedBy:   nullString(r.ProcessedBy),
	}
}

func (r returnRow) toReturn() orders.ReturnRequest {
	return orders.ReturnRequest{
		ID:            r.ID,
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		RequestDate:   r.RequestDate.UTC(),
		Reason:        r.Reason,
		Status:        orders.ReturnStatus(r.Status),
		Resolution:    stringPtr(r.Resolution),
		RefundAmount:  decimalPtr(r.RefundAmount),
		RefundMethod:  stringPtr(r.RefundMethod),
		ProcessedDate: timePtr(r.ProcessedDate),
		ProcessedBy:   stringPtr(r.ProcessedBy),
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return &d.Decimal
}
