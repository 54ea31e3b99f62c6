package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
	"belanjakita/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist yet. Idempotent; safe to
// run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price_cents BIGINT NOT NULL,
			stock INT NOT NULL,
			sold_count INT NOT NULL DEFAULT 0,
			view_count INT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT true,
			min_order_qty INT NOT NULL DEFAULT 0,
			max_order_qty INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			point_balance_cents BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS coupons (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			code TEXT NOT NULL DEFAULT '',
			discount_type TEXT NOT NULL,
			discount_value BIGINT NOT NULL,
			max_discount_cents BIGINT NOT NULL DEFAULT 0,
			min_order_cents BIGINT NOT NULL DEFAULT 0,
			total_quantity INT NOT NULL,
			issued_quantity INT NOT NULL DEFAULT 0,
			per_user_limit INT NOT NULL DEFAULT 1,
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_coupons (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			coupon_id TEXT NOT NULL,
			status TEXT NOT NULL,
			used_count INT NOT NULL DEFAULT 0,
			issued_at TIMESTAMPTZ NOT NULL,
			used_at TIMESTAMPTZ,
			expired_at TIMESTAMPTZ,
			UNIQUE (user_id, coupon_id)
		)`,
		`CREATE TABLE IF NOT EXISTS points (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			used_amount_cents BIGINT NOT NULL DEFAULT 0,
			type TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NOT NULL,
			used BOOLEAN NOT NULL DEFAULT false,
			expired BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL,
			used_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_user ON points (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS point_usage_histories (
			id TEXT PRIMARY KEY,
			point_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			used_amount_cents BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			canceled_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_point_usage_order ON point_usage_histories (order_id)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			coupon_id TEXT NOT NULL DEFAULT '',
			total_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL DEFAULT 0,
			point_cents BIGINT NOT NULL DEFAULT 0,
			shipping_cents BIGINT NOT NULL DEFAULT 0,
			final_cents BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			paid_at TIMESTAMPTZ,
			canceled_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			quantity INT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			method TEXT NOT NULL,
			status TEXT NOT NULL,
			fail_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS carts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_carts_user ON carts (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ----- Products -----

const productColumns = `id, category_id, name, description, price_cents, stock, sold_count, view_count, active, min_order_qty, max_order_qty, created_at, updated_at, deleted_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	var deletedAt sql.NullTime
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.SoldCount, &p.ViewCount, &p.Active, &p.MinOrderQty, &p.MaxOrderQty, &p.CreatedAt, &p.UpdatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return &p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return scanProduct(row)
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		p.ID = xid.New("prd")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, p.ID, p.CategoryID, p.Name, p.Description, p.PriceCents, p.Stock, p.SoldCount, p.ViewCount, p.Active, p.MinOrderQty, p.MaxOrderQty, p.CreatedAt, p.UpdatedAt, nullTime(p.DeletedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := p
	return &created, nil
}

func (s *Store) SaveProduct(ctx context.Context, p domain.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = $2, name = $3, description = $4, price_cents = $5, stock = $6, sold_count = $7,
		    view_count = $8, active = $9, min_order_qty = $10, max_order_qty = $11, updated_at = $12, deleted_at = $13
		WHERE id = $1
	`, p.ID, p.CategoryID, p.Name, p.Description, p.PriceCents, p.Stock, p.SoldCount, p.ViewCount, p.Active, p.MinOrderQty, p.MaxOrderQty, p.UpdatedAt, nullTime(p.DeletedAt))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// ----- Users -----

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, point_balance_cents, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.PointBalanceCents, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.ID == "" {
		u.ID = xid.New("usr")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, point_balance_cents, created_at)
		VALUES ($1,$2,$3,$4)
	`, u.ID, u.Name, u.PointBalanceCents, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := u
	return &created, nil
}

func (s *Store) SaveUser(ctx context.Context, u domain.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = $2, point_balance_cents = $3 WHERE id = $1
	`, u.ID, u.Name, u.PointBalanceCents)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ----- Coupons -----

const couponColumns = `id, name, code, discount_type, discount_value, max_discount_cents, min_order_cents, total_quantity, issued_quantity, per_user_limit, start_at, end_at, active, created_at, updated_at`

func (s *Store) GetCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := s.db.QueryRowContext(ctx, `
		SELECT `+couponColumns+` FROM coupons WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MaxDiscountCents, &c.MinOrderCents, &c.TotalQuantity, &c.IssuedQuantity, &c.PerUserLimit, &c.StartAt, &c.EndAt, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCoupon(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	if c.ID == "" {
		c.ID = xid.New("cpn")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, c.ID, c.Name, c.Code, c.DiscountType, c.DiscountValue, c.MaxDiscountCents, c.MinOrderCents, c.TotalQuantity, c.IssuedQuantity, c.PerUserLimit, c.StartAt, c.EndAt, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := c
	return &created, nil
}

func (s *Store) SaveCoupon(ctx context.Context, c domain.Coupon) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE coupons
		SET name = $2, code = $3, discount_type = $4, discount_value = $5, max_discount_cents = $6,
		    min_order_cents = $7, total_quantity = $8, issued_quantity = $9, per_user_limit = $10,
		    start_at = $11, end_at = $12, active = $13, updated_at = $14
		WHERE id = $1
	`, c.ID, c.Name, c.Code, c.DiscountType, c.DiscountValue, c.MaxDiscountCents, c.MinOrderCents, c.TotalQuantity, c.IssuedQuantity, c.PerUserLimit, c.StartAt, c.EndAt, c.Active, c.UpdatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) GetUserCoupon(ctx context.Context, userID, couponID string) (*domain.UserCoupon, error) {
	var uc domain.UserCoupon
	var usedAt, expiredAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, coupon_id, status, used_count, issued_at, used_at, expired_at
		FROM user_coupons
		WHERE user_id = $1 AND coupon_id = $2
	`, userID, couponID).Scan(&uc.ID, &uc.UserID, &uc.CouponID, &uc.Status, &uc.UsedCount, &uc.IssuedAt, &usedAt, &expiredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if usedAt.Valid {
		uc.UsedAt = &usedAt.Time
	}
	if expiredAt.Valid {
		uc.ExpiredAt = &expiredAt.Time
	}
	return &uc, nil
}

func (s *Store) CreateUserCoupon(ctx context.Context, uc domain.UserCoupon) (*domain.UserCoupon, error) {
	if uc.ID == "" {
		uc.ID = xid.New("ucp")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_coupons (id, user_id, coupon_id, status, used_count, issued_at, used_at, expired_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, uc.ID, uc.UserID, uc.CouponID, uc.Status, uc.UsedCount, uc.IssuedAt, nullTime(uc.UsedAt), nullTime(uc.ExpiredAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := uc
	return &created, nil
}

func (s *Store) SaveUserCoupon(ctx context.Context, uc domain.UserCoupon) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_coupons
		SET status = $2, used_count = $3, used_at = $4, expired_at = $5
		WHERE id = $1
	`, uc.ID, uc.Status, uc.UsedCount, nullTime(uc.UsedAt), nullTime(uc.ExpiredAt))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ----- Point ledger -----

const pointColumns = `id, user_id, amount_cents, used_amount_cents, type, description, expires_at, used, expired, created_at, used_at`

func scanPoint(row interface{ Scan(...any) error }) (*domain.Point, error) {
	var p domain.Point
	var usedAt sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.AmountCents, &p.UsedAmountCents, &p.Type, &p.Description, &p.ExpiresAt, &p.Used, &p.Expired, &p.CreatedAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if usedAt.Valid {
		p.UsedAt = &usedAt.Time
	}
	return &p, nil
}

func (s *Store) GetPoint(ctx context.Context, id string) (*domain.Point, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pointColumns+` FROM points WHERE id = $1`, id)
	return scanPoint(row)
}

func (s *Store) CreatePoint(ctx context.Context, p domain.Point) (*domain.Point, error) {
	if p.ID == "" {
		p.ID = xid.New("pnt")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO points (`+pointColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, p.ID, p.UserID, p.AmountCents, p.UsedAmountCents, p.Type, p.Description, p.ExpiresAt, p.Used, p.Expired, p.CreatedAt, nullTime(p.UsedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := p
	return &created, nil
}

func (s *Store) SavePoint(ctx context.Context, p domain.Point) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE points
		SET used_amount_cents = $2, used = $3, expired = $4, used_at = $5
		WHERE id = $1
	`, p.ID, p.UsedAmountCents, p.Used, p.Expired, nullTime(p.UsedAt))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListPointsByUser(ctx context.Context, userID string) ([]domain.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pointColumns+`
		FROM points
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]domain.Point, 0, 16)
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}

func (s *Store) GetPointUsage(ctx context.Context, id string) (*domain.PointUsageHistory, error) {
	var h domain.PointUsageHistory
	var canceledAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, point_id, order_id, used_amount_cents, created_at, canceled_at
		FROM point_usage_histories
		WHERE id = $1
	`, id).Scan(&h.ID, &h.PointID, &h.OrderID, &h.UsedAmountCents, &h.CreatedAt, &canceledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if canceledAt.Valid {
		h.CanceledAt = &canceledAt.Time
	}
	return &h, nil
}

func (s *Store) CreatePointUsage(ctx context.Context, h domain.PointUsageHistory) (*domain.PointUsageHistory, error) {
	if h.ID == "" {
		h.ID = xid.New("puh")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO point_usage_histories (id, point_id, order_id, used_amount_cents, created_at, canceled_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, h.ID, h.PointID, h.OrderID, h.UsedAmountCents, h.CreatedAt, nullTime(h.CanceledAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := h
	return &created, nil
}

func (s *Store) SavePointUsage(ctx context.Context, h domain.PointUsageHistory) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE point_usage_histories SET canceled_at = $2 WHERE id = $1
	`, h.ID, nullTime(h.CanceledAt))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListActivePointUsageByOrder(ctx context.Context, orderID string) ([]domain.PointUsageHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, point_id, order_id, used_amount_cents, created_at, canceled_at
		FROM point_usage_histories
		WHERE order_id = $1 AND canceled_at IS NULL
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	histories := make([]domain.PointUsageHistory, 0, 4)
	for rows.Next() {
		var h domain.PointUsageHistory
		var canceledAt sql.NullTime
		if err := rows.Scan(&h.ID, &h.PointID, &h.OrderID, &h.UsedAmountCents, &h.CreatedAt, &canceledAt); err != nil {
			return nil, err
		}
		if canceledAt.Valid {
			h.CanceledAt = &canceledAt.Time
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

// ----- Orders -----

const orderColumns = `id, user_id, coupon_id, total_cents, discount_cents, point_cents, shipping_cents, final_cents, status, created_at, updated_at, paid_at, canceled_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var o domain.Order
	var paidAt, canceledAt sql.NullTime
	err := row.Scan(&o.ID, &o.UserID, &o.CouponID, &o.TotalCents, &o.DiscountCents, &o.PointCents, &o.ShippingCents, &o.FinalCents, &o.Status, &o.CreatedAt, &o.UpdatedAt, &paidAt, &canceledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if canceledAt.Valid {
		o.CanceledAt = &canceledAt.Time
	}
	return &o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (s *Store) CreateOrder(ctx context.Context, o domain.Order) (*domain.Order, error) {
	if o.ID == "" {
		o.ID = xid.New("ord")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, o.ID, o.UserID, o.CouponID, o.TotalCents, o.DiscountCents, o.PointCents, o.ShippingCents, o.FinalCents, o.Status, o.CreatedAt, o.UpdatedAt, nullTime(o.PaidAt), nullTime(o.CanceledAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := o
	return &created, nil
}

func (s *Store) SaveOrder(ctx context.Context, o domain.Order) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, updated_at = $3, paid_at = $4, canceled_at = $5
		WHERE id = $1
	`, o.ID, o.Status, o.UpdatedAt, nullTime(o.PaidAt), nullTime(o.CanceledAt))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) CreateOrderItem(ctx context.Context, i domain.OrderItem) (*domain.OrderItem, error) {
	if i.ID == "" {
		i.ID = xid.New("oit")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price_cents, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, i.ID, i.OrderID, i.ProductID, i.ProductName, i.Quantity, i.UnitPriceCents, i.Status, i.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := i
	return &created, nil
}

func (s *Store) SaveOrderItem(ctx context.Context, i domain.OrderItem) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE order_items SET status = $2 WHERE id = $1
	`, i.ID, i.Status)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price_cents, status, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var i domain.OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.ProductName, &i.Quantity, &i.UnitPriceCents, &i.Status, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 16)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// ----- Payments -----

func (s *Store) CreatePayment(ctx context.Context, p domain.Payment) (*domain.Payment, error) {
	if p.ID == "" {
		p.ID = xid.New("pay")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount_cents, method, status, fail_reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.OrderID, p.AmountCents, p.Method, p.Status, p.FailReason, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := p
	return &created, nil
}

// ----- Carts -----

func (s *Store) GetCartItem(ctx context.Context, id string) (*domain.Cart, error) {
	var c domain.Cart
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, product_id, quantity, created_at FROM carts WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &c.ProductID, &c.Quantity, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCartItem(ctx context.Context, c domain.Cart) (*domain.Cart, error) {
	if c.ID == "" {
		c.ID = xid.New("crt")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (id, user_id, product_id, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, c.ID, c.UserID, c.ProductID, c.Quantity, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := c
	return &created, nil
}

func (s *Store) SaveCartItem(ctx context.Context, c domain.Cart) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE carts SET quantity = $2 WHERE id = $1
	`, c.ID, c.Quantity)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteCartItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListCartByUser(ctx context.Context, userID string) ([]domain.Cart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, product_id, quantity, created_at
		FROM carts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	carts := make([]domain.Cart, 0, 8)
	for rows.Next() {
		var c domain.Cart
		if err := rows.Scan(&c.ID, &c.UserID, &c.ProductID, &c.Quantity, &c.CreatedAt); err != nil {
			return nil, err
		}
		carts = append(carts, c)
	}
	return carts, rows.Err()
}

// ----- API accounts -----

func (s *Store) GetAccount(ctx context.Context, username string) (*domain.UserAccount, error) {
	var a domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role, user_id, active, created_at FROM accounts WHERE username = $1
	`, username).Scan(&a.Username, &a.Password, &a.Role, &a.UserID, &a.Active, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (username, password, role, user_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, a.Username, a.Password, a.Role, a.UserID, a.Active, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
