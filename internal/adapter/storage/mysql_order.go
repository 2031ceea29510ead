package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/port"
)

const orderColumns = `id, user_id, order_number, subtotal, discount, delivery_charge, total,
	status, payment_method, payment_status, address_id, coupon_code, notes,
	razorpay_payment_id, razorpay_signature, created_at, updated_at`

// CreateOrder inserts the order and its items. A coupon, when given, is
// claimed first with a conditional increment so two checkouts can never
// push used_count past usage_limit.
func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order, couponID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if couponID != "" {
		result, err := tx.ExecContext(ctx, `
			UPDATE coupons
			SET used_count = used_count + 1, updated_at = ?
			WHERE id = ? AND is_active = TRUE
			  AND (usage_limit IS NULL OR used_count < usage_limit)`,
			order.CreatedAt.UTC(), couponID,
		)
		if err != nil {
			return fmt.Errorf("claim coupon: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return port.ErrCouponExhausted
		}
	}

	var notes sql.NullString
	if order.Notes != "" {
		notes = sql.NullString{String: order.Notes, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.OrderNumber,
		order.Subtotal, order.Discount, order.DeliveryCharge, order.Total,
		string(order.Status), string(order.PaymentMethod), string(order.PaymentStatus),
		order.AddressID, nullString(order.CouponCode), notes,
		nullString(order.RazorpayPaymentID), nullString(order.RazorpaySignature),
		order.CreatedAt.UTC(), order.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if len(order.Items) > 0 {
		placeholders := make([]string, 0, len(order.Items))
		args := make([]any, 0, len(order.Items)*7)
		for i, item := range order.Items {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, item.ID, order.ID, i, item.ProductID, item.ProductName, item.Quantity, item.Price)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, line_no, product_id, product_name, quantity, price)
			VALUES `+strings.Join(placeholders, ", "), args...)
		if err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := scanOrder(m.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := m.loadItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (m *MySQLAdapter) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := m.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (m *MySQLAdapter) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(orderIDs)), ", ")
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id IN (`+placeholders+`)
		ORDER BY order_id, line_no`, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	return items, rows.Err()
}

// UpdateOrderStatus relies on clientFoundRows=true in the DSN so that a
// matched row counts as affected even when no column value changes.
func (m *MySQLAdapter) UpdateOrderStatus(ctx context.Context, current domain.Order, update domain.StatusUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{m.now().UTC()}

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, string(*update.PaymentStatus))
	}
	if update.RazorpayPaymentID != nil {
		sets = append(sets, "razorpay_payment_id = ?")
		args = append(args, *update.RazorpayPaymentID)
	}
	if update.RazorpaySignature != nil {
		sets = append(sets, "razorpay_signature = ?")
		args = append(args, *update.RazorpaySignature)
	}
	args = append(args, current.ID, string(current.Status), string(current.PaymentStatus))

	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET `+strings.Join(sets, ", ")+`
		WHERE id = ? AND status = ? AND payment_status = ?`, args...)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrOptimisticLock
	}
	return nil
}

func (m *MySQLAdapter) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(domain.OrderStatusCancelled), m.now().UTC(), orderID,
		string(domain.OrderStatusPending), string(domain.OrderStatusConfirmed),
	)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                         domain.Order
		status, method, payment   string
		coupon, notes, payID, sig sql.NullString
	)
	err := row.Scan(&o.ID, &o.UserID, &o.OrderNumber,
		&o.Subtotal, &o.Discount, &o.DeliveryCharge, &o.Total,
		&status, &method, &payment, &o.AddressID, &coupon, &notes,
		&payID, &sig, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(payment)
	o.Notes = notes.String
	if coupon.Valid {
		o.CouponCode = &coupon.String
	}
	if payID.Valid {
		o.RazorpayPaymentID = &payID.String
	}
	if sig.Valid {
		o.RazorpaySignature = &sig.String
	}
	return &o, nil
}
