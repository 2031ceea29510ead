package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/port"
)

const mysqlDuplicateEntry = 1062

type MySQLAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db, now: time.Now}
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := scanProduct(m.db.QueryRowContext(ctx, `
		SELECT id, name, price, original_price, category, in_stock, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	query := `
		SELECT id, name, price, original_price, category, in_stock, created_at, updated_at
		FROM products`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p        domain.Product
		original decimal.NullDecimal
	)
	err := row.Scan(&p.ID, &p.Name, &p.Price, &original, &p.Category, &p.InStock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if original.Valid {
		p.OriginalPrice = &original.Decimal
	}
	return &p, nil
}

// UpsertProduct seeds or refreshes a catalog entry.
func (m *MySQLAdapter) UpsertProduct(ctx context.Context, p domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, original_price, category, in_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), price = VALUES(price), original_price = VALUES(original_price),
			category = VALUES(category), in_stock = VALUES(in_stock), updated_at = VALUES(updated_at)`,
		p.ID, p.Name, p.Price, nullDecimal(p.OriginalPrice), p.Category, p.InStock,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

const couponColumns = `id, code, discount_type, discount_value, min_order_value, max_discount,
	usage_limit, used_count, valid_from, valid_to, is_active, created_at, updated_at`

func (m *MySQLAdapter) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(m.db.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = ?`, code,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon: %w", err)
	}
	return c, nil
}

func (m *MySQLAdapter) CreateCoupon(ctx context.Context, c domain.Coupon) error {
	var usageLimit sql.NullInt64
	if c.UsageLimit != nil {
		usageLimit = sql.NullInt64{Int64: int64(*c.UsageLimit), Valid: true}
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Code, string(c.DiscountType), c.DiscountValue,
		nullDecimal(c.MinOrderValue), nullDecimal(c.MaxDiscount),
		usageLimit, c.UsedCount, c.ValidFrom.UTC(), c.ValidTo.UTC(), c.IsActive,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return port.ErrDuplicateCoupon
	}
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var (
		c           domain.Coupon
		discType    string
		minOrder    decimal.NullDecimal
		maxDiscount decimal.NullDecimal
		usageLimit  sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Code, &discType, &c.DiscountValue, &minOrder, &maxDiscount,
		&usageLimit, &c.UsedCount, &c.ValidFrom, &c.ValidTo, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.DiscountType = domain.DiscountType(discType)
	if minOrder.Valid {
		c.MinOrderValue = &minOrder.Decimal
	}
	if maxDiscount.Valid {
		c.MaxDiscount = &maxDiscount.Decimal
	}
	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		c.UsageLimit = &limit
	}
	return &c, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
