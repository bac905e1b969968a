// Package postgres implements store.Repository on PostgreSQL through the pgx
// stdlib driver. Multi-step bill operations run in a single transaction with
// their guards expressed in the UPDATE's WHERE clause, so concurrent registers
// cannot oversell stock, overspend points or overuse a coupon.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"supermart/backend/internal/billing"
	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
	"supermart/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	barcode TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	price_cents BIGINT NOT NULL,
	quantity INTEGER NOT NULL,
	reorder_level INTEGER NOT NULL DEFAULT 10,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	mobile TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL DEFAULT 0,
	total_purchases_cents BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS bills (
	id TEXT PRIMARY KEY,
	bill_number TEXT NOT NULL UNIQUE,
	customer_id TEXT NOT NULL DEFAULT '',
	subtotal_cents BIGINT NOT NULL,
	discount_cents BIGINT NOT NULL,
	tax_cents BIGINT NOT NULL,
	total_cents BIGINT NOT NULL,
	payment_mode TEXT NOT NULL,
	status TEXT NOT NULL,
	coupon_code TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS bill_items (
	id TEXT PRIMARY KEY,
	bill_id TEXT NOT NULL REFERENCES bills(id),
	product_id TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL,
	unit_price_cents BIGINT NOT NULL,
	discount_cents BIGINT NOT NULL DEFAULT 0,
	total_cents BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS coupons (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	discount_type TEXT NOT NULL,
	discount_value DOUBLE PRECISION NOT NULL,
	min_purchase_cents BIGINT NOT NULL DEFAULT 0,
	max_uses INTEGER,
	current_uses INTEGER NOT NULL DEFAULT 0,
	valid_from TIMESTAMPTZ NOT NULL,
	valid_till TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS offers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	offer_type TEXT NOT NULL,
	product_id TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	discount_value DOUBLE PRECISION NOT NULL,
	min_quantity INTEGER NOT NULL DEFAULT 1,
	valid_from TIMESTAMPTZ NOT NULL,
	valid_till TIMESTAMPTZ NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS payments (
	id TEXT PRIMARY KEY,
	bill_id TEXT NOT NULL REFERENCES bills(id),
	payment_mode TEXT NOT NULL,
	amount_cents BIGINT NOT NULL,
	reference_number TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS inventory_logs (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	quantity_change INTEGER NOT NULL,
	reason TEXT NOT NULL,
	bill_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bills_created_at ON bills(created_at);
CREATE INDEX IF NOT EXISTS idx_bill_items_bill ON bill_items(bill_id);
CREATE INDEX IF NOT EXISTS idx_inventory_logs_product ON inventory_logs(product_id);
`

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const productCols = `id, barcode, name, category, price_cents, quantity, reorder_level, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.Category, &p.PriceCents, &p.Quantity, &p.ReorderLevel, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// --- products ---

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Barcode, p.Name, p.Category, p.PriceCents, p.Quantity, p.ReorderLevel, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", store.ErrDuplicateKey, p.Barcode)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productCols+` FROM products WHERE barcode = $1`, barcode))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", store.ErrNotFound, barcode)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product by barcode: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, f store.ProductFilter) (store.ProductPage, error) {
	where := []string{"TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, fmt.Sprintf("(name ILIKE %s OR barcode = %s)", arg("%"+q+"%"), arg(q)))
	}
	if f.Category != "" {
		where = append(where, fmt.Sprintf("category ILIKE %s", arg(f.Category)))
	}
	if f.LowStock {
		where = append(where, "quantity <= reorder_level")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return store.ProductPage{}, fmt.Errorf("count products: %w", err)
	}

	page, perPage := normalizePage(f.Page, f.PerPage)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productCols+` FROM products WHERE `+cond+
			fmt.Sprintf(` ORDER BY name LIMIT %s OFFSET %s`, arg(perPage), arg((page-1)*perPage)),
		args...)
	if err != nil {
		return store.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return store.ProductPage{}, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return store.ProductPage{
		Products:    products,
		Total:       total,
		Pages:       totalPages(total, perPage),
		CurrentPage: page,
	}, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	set := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Category != nil {
		add("category", *req.Category)
	}
	if req.PriceCents != nil {
		add("price_cents", *req.PriceCents)
	}
	if req.Quantity != nil {
		add("quantity", *req.Quantity)
	}
	if req.ReorderLevel != nil {
		add("reorder_level", *req.ReorderLevel)
	}
	args = append(args, id)

	p, err := scanProduct(s.db.QueryRowContext(ctx,
		`UPDATE products SET `+strings.Join(set, ", ")+
			fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args))+productCols,
		args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, change int, reason string) (domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Product{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	p, err := scanProduct(tx.QueryRowContext(ctx, `
		UPDATE products SET quantity = quantity + $1, updated_at = $2
		WHERE id = $3 AND quantity + $1 >= 0
		RETURNING `+productCols,
		change, now, id))
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err == nil && !exists {
			return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		return domain.Product{}, fmt.Errorf("%w: change %d would go negative", store.ErrInsufficientStock, change)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("adjust stock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_logs (id, product_id, quantity_change, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), id, change, reason, now); err != nil {
		return domain.Product{}, fmt.Errorf("log stock change: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM products WHERE category != '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- customers ---

const customerCols = `id, mobile, name, email, points, total_purchases_cents, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Mobile, &c.Name, &c.Email, &c.Points, &c.TotalPurchasesCents, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, mobile, name, email, points, total_purchases_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $6)`,
		c.ID, c.Mobile, c.Name, c.Email, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Customer{}, fmt.Errorf("%w: mobile %s", store.ErrDuplicateKey, c.Mobile)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return c, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *Store) GetCustomerByMobile(ctx context.Context, mobile string) (domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE mobile = $1`, mobile))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("%w: mobile %s", store.ErrNotFound, mobile)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer by mobile: %w", err)
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	q := strings.TrimSpace(search)
	var rows *sql.Rows
	var err error
	if q == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+customerCols+` FROM customers ORDER BY name`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+customerCols+` FROM customers WHERE name ILIKE $1 OR mobile LIKE $1 ORDER BY name`,
			"%"+q+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	set := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	if req.Name != nil {
		args = append(args, *req.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if req.Email != nil {
		args = append(args, *req.Email)
		set = append(set, fmt.Sprintf("email = $%d", len(args)))
	}
	args = append(args, id)

	c, err := scanCustomer(s.db.QueryRowContext(ctx,
		`UPDATE customers SET `+strings.Join(set, ", ")+
			fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args))+customerCols,
		args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

func (s *Store) AddPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `
		UPDATE customers SET points = points + $1, updated_at = $2
		WHERE id = $3
		RETURNING `+customerCols,
		points, time.Now().UTC(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("add points: %w", err)
	}
	return c, nil
}

func (s *Store) RedeemPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	// The balance guard sits in the WHERE clause so concurrent redeems
	// cannot both spend the same points.
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `
		UPDATE customers SET points = points - $1, updated_at = $2
		WHERE id = $3 AND points >= $1
		RETURNING `+customerCols,
		points, time.Now().UTC(), id))
	if errors.Is(err, sql.ErrNoRows) {
		if _, gerr := s.GetCustomer(ctx, id); gerr != nil {
			return domain.Customer{}, gerr
		}
		return domain.Customer{}, fmt.Errorf("%w: want %d", store.ErrInsufficientPoints, points)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("redeem points: %w", err)
	}
	return c, nil
}

func (s *Store) PurchaseHistory(ctx context.Context, id string) (domain.PurchaseHistory, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return domain.PurchaseHistory{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.bill_number, b.total_cents, b.created_at,
		       (SELECT COUNT(*) FROM bill_items WHERE bill_id = b.id)
		FROM bills b
		WHERE b.customer_id = $1
		ORDER BY b.created_at DESC`, id)
	if err != nil {
		return domain.PurchaseHistory{}, fmt.Errorf("purchase history: %w", err)
	}
	defer rows.Close()

	var records []domain.PurchaseRecord
	for rows.Next() {
		var r domain.PurchaseRecord
		if err := rows.Scan(&r.BillID, &r.BillNumber, &r.TotalCents, &r.CreatedAt, &r.ItemsCount); err != nil {
			return domain.PurchaseHistory{}, fmt.Errorf("scan purchase: %w", err)
		}
		records = append(records, r)
	}
	return domain.PurchaseHistory{Customer: c, Purchases: records}, rows.Err()
}

// --- bills ---

const billCols = `id, bill_number, customer_id, subtotal_cents, discount_cents, tax_cents, total_cents, payment_mode, status, coupon_code, created_at, updated_at`
const billItemCols = `id, bill_id, product_id, product_name, quantity, unit_price_cents, discount_cents, total_cents`

func scanBill(row interface{ Scan(...any) error }) (domain.Bill, error) {
	var b domain.Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.CustomerID, &b.SubtotalCents, &b.DiscountCents,
		&b.TaxCents, &b.TotalCents, &b.PaymentMode, &b.Status, &b.CouponCode, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func billItems(ctx context.Context, q querier, billID string) ([]domain.BillItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+billItemCols+` FROM bill_items WHERE bill_id = $1`, billID)
	if err != nil {
		return nil, fmt.Errorf("bill items: %w", err)
	}
	defer rows.Close()

	var out []domain.BillItem
	for rows.Next() {
		var it domain.BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.UnitPriceCents, &it.DiscountCents, &it.TotalCents); err != nil {
			return nil, fmt.Errorf("scan bill item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func getBill(ctx context.Context, q querier, by, val string) (domain.Bill, error) {
	b, err := scanBill(q.QueryRowContext(ctx, `SELECT `+billCols+` FROM bills WHERE `+by+` = $1`, val))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, val)
	}
	if err != nil {
		return domain.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	b.Items, err = billItems(ctx, q, b.ID)
	return b, err
}

func (s *Store) CreateBill(ctx context.Context, draft store.BillDraft) (domain.Bill, error) {
	if len(draft.Items) == 0 {
		return domain.Bill{}, fmt.Errorf("%w: bill needs at least one item", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Bill{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if draft.CustomerID != "" {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, draft.CustomerID).Scan(&exists); err != nil {
			return domain.Bill{}, fmt.Errorf("check customer: %w", err)
		}
		if !exists {
			return domain.Bill{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, draft.CustomerID)
		}
	}

	// Lock the product rows up front; validation and the later decrement
	// see the same quantities.
	lines := make([]billing.Line, 0, len(draft.Items))
	for _, it := range draft.Items {
		if it.Quantity <= 0 {
			return domain.Bill{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
		}
		p, err := scanProduct(tx.QueryRowContext(ctx,
			`SELECT `+productCols+` FROM products WHERE id = $1 FOR UPDATE`, it.ProductID))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bill{}, fmt.Errorf("%w: product %s", store.ErrNotFound, it.ProductID)
		}
		if err != nil {
			return domain.Bill{}, fmt.Errorf("read product: %w", err)
		}
		if p.Quantity < it.Quantity {
			return domain.Bill{}, fmt.Errorf("%w: %s has %d, need %d", store.ErrInsufficientStock, p.Name, p.Quantity, it.Quantity)
		}
		lines = append(lines, billing.Line{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
			DiscountCents:  it.DiscountCents,
		})
	}

	var subtotal int64
	for _, l := range lines {
		subtotal += l.TotalCents()
	}

	var couponCents int64
	if draft.CouponCode != "" {
		var c domain.Coupon
		err := tx.QueryRowContext(ctx, `
			SELECT id, code, discount_type, discount_value, min_purchase_cents, max_uses, current_uses, valid_from, valid_till, active, created_at
			FROM coupons WHERE code = $1 FOR UPDATE`, draft.CouponCode).
			Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinPurchaseCents,
				&c.MaxUses, &c.CurrentUses, &c.ValidFrom, &c.ValidTill, &c.Active, &c.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bill{}, billing.ErrCouponNotFound
		}
		if err != nil {
			return domain.Bill{}, fmt.Errorf("read coupon: %w", err)
		}
		couponCents, err = billing.EvaluateCoupon(c, subtotal, now)
		if err != nil {
			return domain.Bill{}, err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE coupons SET current_uses = current_uses + 1
			WHERE code = $1 AND (max_uses IS NULL OR current_uses < max_uses)`,
			draft.CouponCode)
		if err != nil {
			return domain.Bill{}, fmt.Errorf("bump coupon uses: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Bill{}, billing.ErrCouponExhausted
		}
	}

	totals := billing.ComputeTotals(lines, draft.DiscountCents, couponCents)

	status := domain.BillStatusCompleted
	if draft.Hold {
		status = domain.BillStatusHold
	}

	bill := domain.Bill{
		ID:            uuid.NewString(),
		BillNumber:    xid.BillNumber(now),
		CustomerID:    draft.CustomerID,
		SubtotalCents: totals.SubtotalCents,
		DiscountCents: totals.DiscountCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
		PaymentMode:   draft.PaymentMode,
		Status:        status,
		CouponCode:    draft.CouponCode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bills (`+billCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		bill.ID, bill.BillNumber, bill.CustomerID, bill.SubtotalCents, bill.DiscountCents,
		bill.TaxCents, bill.TotalCents, bill.PaymentMode, bill.Status, bill.CouponCode,
		bill.CreatedAt, bill.UpdatedAt); err != nil {
		return domain.Bill{}, fmt.Errorf("insert bill: %w", err)
	}

	for _, l := range lines {
		item := domain.BillItem{
			ID:             uuid.NewString(),
			BillID:         bill.ID,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			DiscountCents:  l.DiscountCents,
			TotalCents:     l.TotalCents(),
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bill_items (`+billItemCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, item.BillID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPriceCents, item.DiscountCents, item.TotalCents); err != nil {
			return domain.Bill{}, fmt.Errorf("insert bill item: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity - $1, updated_at = $2
			WHERE id = $3 AND quantity >= $1`,
			l.Quantity, now, l.ProductID)
		if err != nil {
			return domain.Bill{}, fmt.Errorf("deduct stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Bill{}, fmt.Errorf("%w: %s", store.ErrInsufficientStock, l.ProductName)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_logs (id, product_id, quantity_change, reason, bill_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), l.ProductID, -l.Quantity, domain.StockReasonSale, bill.ID, now); err != nil {
			return domain.Bill{}, fmt.Errorf("log sale: %w", err)
		}
		bill.Items = append(bill.Items, item)
	}

	if bill.CustomerID != "" && status == domain.BillStatusCompleted {
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers SET total_purchases_cents = total_purchases_cents + $1, updated_at = $2
			WHERE id = $3`,
			bill.TotalCents, now, bill.CustomerID); err != nil {
			return domain.Bill{}, fmt.Errorf("bump customer total: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Bill{}, err
	}
	return bill, nil
}

func (s *Store) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	return getBill(ctx, s.db, "id", id)
}

func (s *Store) GetBillByNumber(ctx context.Context, number string) (domain.Bill, error) {
	return getBill(ctx, s.db, "bill_number", number)
}

func (s *Store) ListBills(ctx context.Context, f store.BillFilter) (store.BillPage, error) {
	where := []string{"TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = "+arg(f.CustomerID))
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "created_at >= "+arg(f.DateFrom.UTC()))
	}
	if !f.DateTo.IsZero() {
		where = append(where, "created_at < "+arg(f.DateTo.UTC()))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bills WHERE `+cond, args...).Scan(&total); err != nil {
		return store.BillPage{}, fmt.Errorf("count bills: %w", err)
	}

	page, perPage := normalizePage(f.Page, f.PerPage)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+billCols+` FROM bills WHERE `+cond+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT %s OFFSET %s`, arg(perPage), arg((page-1)*perPage)),
		args...)
	if err != nil {
		return store.BillPage{}, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return store.BillPage{}, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return store.BillPage{}, err
	}
	for i := range bills {
		bills[i].Items, err = billItems(ctx, s.db, bills[i].ID)
		if err != nil {
			return store.BillPage{}, err
		}
	}
	return store.BillPage{
		Bills:       bills,
		Total:       total,
		Pages:       totalPages(total, perPage),
		CurrentPage: page,
	}, nil
}

func (s *Store) HoldBill(ctx context.Context, id string) (domain.Bill, error) {
	return s.transition(ctx, id, domain.BillStatusHold, domain.BillStatusCompleted)
}

func (s *Store) ResumeBill(ctx context.Context, id string) (domain.Bill, error) {
	return s.transition(ctx, id, domain.BillStatusCompleted, domain.BillStatusHold)
}

func (s *Store) transition(ctx context.Context, id, target, from string) (domain.Bill, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bills SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		target, time.Now().UTC(), id, from)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("transition bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		b, err := s.GetBill(ctx, id)
		if err != nil {
			return domain.Bill{}, err
		}
		return domain.Bill{}, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, b.Status, target)
	}
	return s.GetBill(ctx, id)
}

func (s *Store) ReturnBill(ctx context.Context, id string) (domain.Bill, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Bill{}, err
	}
	defer tx.Rollback()

	b, err := getBill(ctx, tx, "id", id)
	if err != nil {
		return domain.Bill{}, err
	}

	now := time.Now().UTC()
	// The status guard in the WHERE clause makes double returns race-safe.
	res, err := tx.ExecContext(ctx,
		`UPDATE bills SET status = $1, updated_at = $2 WHERE id = $3 AND status != $1`,
		domain.BillStatusReturned, now, id)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("mark returned: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Bill{}, fmt.Errorf("%w: bill already returned", store.ErrInvalidTransition)
	}

	for _, it := range b.Items {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity + $1, updated_at = $2 WHERE id = $3`,
			it.Quantity, now, it.ProductID); err != nil {
			return domain.Bill{}, fmt.Errorf("restock: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_logs (id, product_id, quantity_change, reason, bill_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), it.ProductID, it.Quantity, domain.StockReasonReturn, b.ID, now); err != nil {
			return domain.Bill{}, fmt.Errorf("log return: %w", err)
		}
	}

	b.Status = domain.BillStatusReturned
	b.UpdatedAt = now
	if err := tx.Commit(); err != nil {
		return domain.Bill{}, err
	}
	return b, nil
}

func (s *Store) DuplicateBill(ctx context.Context, id string) (domain.Bill, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Bill{}, err
	}
	defer tx.Rollback()

	orig, err := getBill(ctx, tx, "id", id)
	if err != nil {
		return domain.Bill{}, err
	}

	now := time.Now().UTC()
	dup := orig
	dup.ID = uuid.NewString()
	dup.BillNumber = xid.DuplicateNumber(orig.BillNumber)
	dup.Status = domain.BillStatusCompleted
	dup.CreatedAt = now
	dup.UpdatedAt = now
	dup.Items = nil

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bills (`+billCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		dup.ID, dup.BillNumber, dup.CustomerID, dup.SubtotalCents, dup.DiscountCents,
		dup.TaxCents, dup.TotalCents, dup.PaymentMode, dup.Status, dup.CouponCode,
		dup.CreatedAt, dup.UpdatedAt); err != nil {
		return domain.Bill{}, fmt.Errorf("insert duplicate bill: %w", err)
	}
	for _, it := range orig.Items {
		it.ID = uuid.NewString()
		it.BillID = dup.ID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bill_items (`+billItemCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, it.BillID, it.ProductID, it.ProductName, it.Quantity,
			it.UnitPriceCents, it.DiscountCents, it.TotalCents); err != nil {
			return domain.Bill{}, fmt.Errorf("insert duplicate item: %w", err)
		}
		dup.Items = append(dup.Items, it)
	}

	if err := tx.Commit(); err != nil {
		return domain.Bill{}, err
	}
	return dup, nil
}

func (s *Store) RecordPayment(ctx context.Context, billID string, req domain.PaymentRequest) (domain.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Payment{}, err
	}
	defer tx.Rollback()

	var total int64
	err = tx.QueryRowContext(ctx, `SELECT total_cents FROM bills WHERE id = $1`, billID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, billID)
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("read bill: %w", err)
	}

	now := time.Now().UTC()
	pay := domain.Payment{
		ID:              uuid.NewString(),
		BillID:          billID,
		PaymentMode:     req.PaymentMode,
		AmountCents:     total,
		ReferenceNumber: req.ReferenceNumber,
		Status:          domain.PaymentStatusSuccess,
		CreatedAt:       now,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, bill_id, payment_mode, amount_cents, reference_number, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pay.ID, pay.BillID, pay.PaymentMode, pay.AmountCents, pay.ReferenceNumber, pay.Status, pay.CreatedAt); err != nil {
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bills SET payment_mode = $1, updated_at = $2 WHERE id = $3`,
		req.PaymentMode, now, billID); err != nil {
		return domain.Payment{}, fmt.Errorf("update bill payment mode: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Payment{}, err
	}
	return pay, nil
}

func (s *Store) ListPayments(ctx context.Context, billID string) ([]domain.Payment, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bills WHERE id = $1)`, billID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check bill: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: bill %s", store.ErrNotFound, billID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_id, payment_mode, amount_cents, reference_number, status, created_at
		FROM payments WHERE bill_id = $1 ORDER BY created_at`, billID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.PaymentMode, &p.AmountCents, &p.ReferenceNumber, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- coupons and offers ---

const couponCols = `id, code, discount_type, discount_value, min_purchase_cents, max_uses, current_uses, valid_from, valid_till, active, created_at`

func scanCoupon(row interface{ Scan(...any) error }) (domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinPurchaseCents,
		&c.MaxUses, &c.CurrentUses, &c.ValidFrom, &c.ValidTill, &c.Active, &c.CreatedAt)
	return c, err
}

func (s *Store) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	c.ID = uuid.NewString()
	c.CurrentUses = 0
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons (`+couponCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)`,
		c.ID, c.Code, c.DiscountType, c.DiscountValue, c.MinPurchaseCents, c.MaxUses,
		c.ValidFrom.UTC(), c.ValidTill.UTC(), c.Active, c.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Coupon{}, fmt.Errorf("%w: coupon code %s", store.ErrDuplicateKey, c.Code)
	}
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("insert coupon: %w", err)
	}
	return c, nil
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error) {
	c, err := scanCoupon(s.db.QueryRowContext(ctx, `SELECT `+couponCols+` FROM coupons WHERE code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coupon{}, fmt.Errorf("%w: coupon %s", store.ErrNotFound, code)
	}
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func (s *Store) ListCoupons(ctx context.Context, activeOnly bool) ([]domain.Coupon, error) {
	q := `SELECT ` + couponCols + ` FROM coupons ORDER BY code`
	if activeOnly {
		q = `SELECT ` + couponCols + ` FROM coupons WHERE active ORDER BY code`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var out []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCoupon(ctx context.Context, id string, req domain.CouponUpdateRequest) (domain.Coupon, error) {
	set := []string{}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.DiscountValue != nil {
		add("discount_value", *req.DiscountValue)
	}
	if req.MinPurchaseCents != nil {
		add("min_purchase_cents", *req.MinPurchaseCents)
	}
	if req.MaxUses != nil {
		add("max_uses", *req.MaxUses)
	}
	if req.Active != nil {
		add("active", *req.Active)
	}
	if len(set) == 0 {
		set = append(set, "id = id")
	}
	args = append(args, id)

	c, err := scanCoupon(s.db.QueryRowContext(ctx,
		`UPDATE coupons SET `+strings.Join(set, ", ")+
			fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args))+couponCols,
		args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coupon{}, fmt.Errorf("%w: coupon %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("update coupon: %w", err)
	}
	return c, nil
}

func (s *Store) DeactivateCoupon(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE coupons SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: coupon %s", store.ErrNotFound, id)
	}
	return nil
}

const offerCols = `id, name, offer_type, product_id, category, discount_value, min_quantity, valid_from, valid_till, active, created_at`

func scanOffer(row interface{ Scan(...any) error }) (domain.Offer, error) {
	var o domain.Offer
	err := row.Scan(&o.ID, &o.Name, &o.OfferType, &o.ProductID, &o.Category,
		&o.DiscountValue, &o.MinQuantity, &o.ValidFrom, &o.ValidTill, &o.Active, &o.CreatedAt)
	return o, err
}

func (s *Store) CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offers (`+offerCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.Name, o.OfferType, o.ProductID, o.Category, o.DiscountValue, o.MinQuantity,
		o.ValidFrom.UTC(), o.ValidTill.UTC(), o.Active, o.CreatedAt)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("insert offer: %w", err)
	}
	return o, nil
}

func (s *Store) GetOffer(ctx context.Context, id string) (domain.Offer, error) {
	o, err := scanOffer(s.db.QueryRowContext(ctx,
		`SELECT `+offerCols+` FROM offers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Offer{}, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (s *Store) ListOffers(ctx context.Context, activeOnly bool) ([]domain.Offer, error) {
	q := `SELECT ` + offerCols + ` FROM offers ORDER BY name`
	if activeOnly {
		q = `SELECT ` + offerCols + ` FROM offers WHERE active ORDER BY name`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var out []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOffer(ctx context.Context, id string, req domain.OfferUpdateRequest) (domain.Offer, error) {
	set := []string{}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.DiscountValue != nil {
		add("discount_value", *req.DiscountValue)
	}
	if req.MinQuantity != nil {
		add("min_quantity", *req.MinQuantity)
	}
	if req.Active != nil {
		add("active", *req.Active)
	}
	if len(set) == 0 {
		set = append(set, "id = id")
	}
	args = append(args, id)

	o, err := scanOffer(s.db.QueryRowContext(ctx,
		`UPDATE offers SET `+strings.Join(set, ", ")+
			fmt.Sprintf(` WHERE id = $%d RETURNING `, len(args))+offerCols,
		args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Offer{}, fmt.Errorf("update offer: %w", err)
	}
	return o, nil
}

func (s *Store) DeactivateOffer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE offers SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate offer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	return nil
}

// --- reporting ---

func (s *Store) ListInventoryLogs(ctx context.Context, productID string, limit int) ([]domain.InventoryLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if productID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, product_id, quantity_change, reason, bill_id, created_at
			FROM inventory_logs ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, product_id, quantity_change, reason, bill_id, created_at
			FROM inventory_logs WHERE product_id = $1 ORDER BY created_at DESC LIMIT $2`, productID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryLog
	for rows.Next() {
		var l domain.InventoryLog
		if err := rows.Scan(&l.ID, &l.ProductID, &l.QuantityChange, &l.Reason, &l.BillID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	sum := domain.DailySummary{Date: start.Format("2006-01-02")}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0), COALESCE(SUM(discount_cents), 0),
		       COALESCE((SELECT COUNT(*) FROM bill_items WHERE bill_id IN
		           (SELECT id FROM bills WHERE status = $1 AND created_at >= $2 AND created_at < $3)), 0)
		FROM bills WHERE status = $1 AND created_at >= $2 AND created_at < $3`,
		domain.BillStatusCompleted, start, end).
		Scan(&sum.TotalBills, &sum.TotalSalesCents, &sum.TotalDiscountCents, &sum.TotalItems)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("daily summary: %w", err)
	}
	if sum.TotalBills > 0 {
		sum.AverageBillCents = sum.TotalSalesCents / int64(sum.TotalBills)
	}
	return sum, nil
}

func (s *Store) DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	start := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var stats domain.DashboardStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM bills WHERE status = $1 AND created_at >= $2 AND created_at < $3`,
		domain.BillStatusCompleted, start, end).
		Scan(&stats.Today.Transactions, &stats.Today.SalesCents)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("today stats: %w", err)
	}
	if stats.Today.Transactions > 0 {
		stats.Today.AverageBillCents = stats.Today.SalesCents / int64(stats.Today.Transactions)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&stats.TotalProducts); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count products: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&stats.TotalCustomers); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count customers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bi.product_name, SUM(bi.quantity) AS qty
		FROM bill_items bi
		JOIN bills b ON b.id = bi.bill_id
		WHERE b.status = $1
		GROUP BY bi.product_name
		ORDER BY qty DESC, bi.product_name
		LIMIT 5`, domain.BillStatusCompleted)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tp domain.TopProduct
		if err := rows.Scan(&tp.Name, &tp.Quantity); err != nil {
			return domain.DashboardStats{}, fmt.Errorf("scan top product: %w", err)
		}
		stats.TopProducts = append(stats.TopProducts, tp)
	}
	return stats, rows.Err()
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}
	return page, perPage
}

func totalPages(total, perPage int) int {
	if total == 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
