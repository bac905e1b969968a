// Package sqlite implements store.Repository on a local SQLite file via sqlx
// and the modernc driver. This is the default durable backend for a single
// register: one process, one file, transactions give us the atomic bill ops.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"supermart/backend/internal/billing"
	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
	"supermart/backend/internal/xid"
)

type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	barcode TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	price_cents INTEGER NOT NULL,
	quantity INTEGER NOT NULL,
	reorder_level INTEGER NOT NULL DEFAULT 10,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS customers (
	id TEXT PRIMARY KEY,
	mobile TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	points INTEGER NOT NULL DEFAULT 0,
	total_purchases_cents INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS bills (
	id TEXT PRIMARY KEY,
	bill_number TEXT NOT NULL UNIQUE,
	customer_id TEXT NOT NULL DEFAULT '',
	subtotal_cents INTEGER NOT NULL,
	discount_cents INTEGER NOT NULL,
	tax_cents INTEGER NOT NULL,
	total_cents INTEGER NOT NULL,
	payment_mode TEXT NOT NULL,
	status TEXT NOT NULL,
	coupon_code TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS bill_items (
	id TEXT PRIMARY KEY,
	bill_id TEXT NOT NULL REFERENCES bills(id),
	product_id TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL,
	unit_price_cents INTEGER NOT NULL,
	discount_cents INTEGER NOT NULL DEFAULT 0,
	total_cents INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS coupons (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	discount_type TEXT NOT NULL,
	discount_value REAL NOT NULL,
	min_purchase_cents INTEGER NOT NULL DEFAULT 0,
	max_uses INTEGER,
	current_uses INTEGER NOT NULL DEFAULT 0,
	valid_from DATETIME NOT NULL,
	valid_till DATETIME NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS offers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	offer_type TEXT NOT NULL,
	product_id TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	discount_value REAL NOT NULL,
	min_quantity INTEGER NOT NULL DEFAULT 1,
	valid_from DATETIME NOT NULL,
	valid_till DATETIME NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS payments (
	id TEXT PRIMARY KEY,
	bill_id TEXT NOT NULL REFERENCES bills(id),
	payment_mode TEXT NOT NULL,
	amount_cents INTEGER NOT NULL,
	reference_number TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS inventory_logs (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL,
	quantity_change INTEGER NOT NULL,
	reason TEXT NOT NULL,
	bill_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bills_created_at ON bills(created_at);
CREATE INDEX IF NOT EXISTS idx_bill_items_bill ON bill_items(bill_id);
CREATE INDEX IF NOT EXISTS idx_inventory_logs_product ON inventory_logs(product_id);
`

func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY out of the bill path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	s := &Store{db: db}
	if err := s.seedIfEmpty(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) seedIfEmpty() error {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	seed := []domain.Product{
		{Barcode: "1001", Name: "Milk", Category: "Dairy", PriceCents: 5000, Quantity: 100},
		{Barcode: "1002", Name: "Bread", Category: "Bakery", PriceCents: 3000, Quantity: 80},
		{Barcode: "1003", Name: "Butter", Category: "Dairy", PriceCents: 15000, Quantity: 50},
		{Barcode: "1004", Name: "Rice", Category: "Grains", PriceCents: 6000, Quantity: 200},
		{Barcode: "1005", Name: "Chicken", Category: "Meat", PriceCents: 25000, Quantity: 30},
		{Barcode: "1006", Name: "Eggs", Category: "Dairy", PriceCents: 8000, Quantity: 100},
		{Barcode: "1007", Name: "Vegetables Mix", Category: "Vegetables", PriceCents: 4000, Quantity: 150},
		{Barcode: "1008", Name: "Apple", Category: "Fruits", PriceCents: 10000, Quantity: 50},
		{Barcode: "1009", Name: "Banana", Category: "Fruits", PriceCents: 3000, Quantity: 200},
		{Barcode: "1010", Name: "Salt", Category: "Spices", PriceCents: 2000, Quantity: 100},
	}
	for _, p := range seed {
		if _, err := tx.Exec(`
			INSERT INTO products (id, barcode, name, category, price_cents, quantity, reorder_level, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 10, ?, ?)`,
			uuid.NewString(), p.Barcode, p.Name, p.Category, p.PriceCents, p.Quantity, now, now); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Barcode, err)
		}
	}

	customers := []domain.Customer{
		{Mobile: "9876543210", Name: "John Doe", Email: "john@example.com"},
		{Mobile: "9876543211", Name: "Jane Smith", Email: "jane@example.com"},
		{Mobile: "9876543212", Name: "Ram Kumar", Email: "ram@example.com"},
	}
	for _, c := range customers {
		if _, err := tx.Exec(`
			INSERT INTO customers (id, mobile, name, email, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), c.Mobile, c.Name, c.Email, now, now); err != nil {
			return fmt.Errorf("seed customer %s: %w", c.Mobile, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO coupons (id, code, discount_type, discount_value, min_purchase_cents, max_uses, valid_from, valid_till, active, created_at)
		VALUES (?, 'SAVE10', 'percentage', 10, 50000, 100, ?, ?, 1, ?)`,
		uuid.NewString(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		now); err != nil {
		return fmt.Errorf("seed coupon: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO offers (id, name, offer_type, discount_value, min_quantity, valid_from, valid_till, active, created_at)
		VALUES (?, 'Buy 2 Get 1 Free - Bread', 'bogo', 50, 2, ?, ?, 1, ?)`,
		uuid.NewString(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		now); err != nil {
		return fmt.Errorf("seed offer: %w", err)
	}

	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- products ---

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, barcode, name, category, price_cents, quantity, reorder_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
	var p domain.Product
	err := s.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	var p domain.Product
	err := s.db.GetContext(ctx, &p, `SELECT * FROM products WHERE barcode = ?`, barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", store.ErrNotFound, barcode)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product by barcode: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, f store.ProductFilter) (store.ProductPage, error) {
	where := []string{"1=1"}
	var args []any
	if q := strings.TrimSpace(f.Search); q != "" {
		where = append(where, "(name LIKE ? COLLATE NOCASE OR barcode = ?)")
		args = append(args, "%"+q+"%", q)
	}
	if f.Category != "" {
		where = append(where, "category = ? COLLATE NOCASE")
		args = append(args, f.Category)
	}
	if f.LowStock {
		where = append(where, "quantity <= reorder_level")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products WHERE `+cond, args...); err != nil {
		return store.ProductPage{}, fmt.Errorf("count products: %w", err)
	}

	page, perPage := normalizePage(f.Page, f.PerPage)
	var products []domain.Product
	err := s.db.SelectContext(ctx, &products,
		`SELECT * FROM products WHERE `+cond+` ORDER BY name LIMIT ? OFFSET ?`,
		append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return store.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	return store.ProductPage{
		Products:    products,
		Total:       total,
		Pages:       totalPages(total, perPage),
		CurrentPage: page,
	}, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if req.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Category != nil {
		set = append(set, "category = ?")
		args = append(args, *req.Category)
	}
	if req.PriceCents != nil {
		set = append(set, "price_cents = ?")
		args = append(args, *req.PriceCents)
	}
	if req.Quantity != nil {
		set = append(set, "quantity = ?")
		args = append(args, *req.Quantity)
	}
	if req.ReorderLevel != nil {
		set = append(set, "reorder_level = ?")
		args = append(args, *req.ReorderLevel)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET `+strings.Join(set, ", ")+` WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return s.GetProduct(ctx, id)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, change int, reason string) (domain.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Product{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE products SET quantity = quantity + ?, updated_at = ?
		WHERE id = ? AND quantity + ? >= 0`,
		change, now, id, change)
	if err != nil {
		return domain.Product{}, fmt.Errorf("adjust stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM products WHERE id = ?`, id); err == nil && exists == 0 {
			return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
		}
		return domain.Product{}, fmt.Errorf("%w: change %d would go negative", store.ErrInsufficientStock, change)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_logs (id, product_id, quantity_change, reason, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), id, change, reason, now); err != nil {
		return domain.Product{}, fmt.Errorf("log stock change: %w", err)
	}

	var p domain.Product
	if err := tx.GetContext(ctx, &p, `SELECT * FROM products WHERE id = ?`, id); err != nil {
		return domain.Product{}, fmt.Errorf("reread product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.db.SelectContext(ctx, &out,
		`SELECT DISTINCT category FROM products WHERE category != '' ORDER BY category`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// --- customers ---

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, mobile, name, email, points, total_purchases_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
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
	var c domain.Customer
	err := s.db.GetContext(ctx, &c, `SELECT * FROM customers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (s *Store) GetCustomerByMobile(ctx context.Context, mobile string) (domain.Customer, error) {
	var c domain.Customer
	err := s.db.GetContext(ctx, &c, `SELECT * FROM customers WHERE mobile = ?`, mobile)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, fmt.Errorf("%w: mobile %s", store.ErrNotFound, mobile)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer by mobile: %w", err)
	}
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	var out []domain.Customer
	q := strings.TrimSpace(search)
	var err error
	if q == "" {
		err = s.db.SelectContext(ctx, &out, `SELECT * FROM customers ORDER BY name`)
	} else {
		err = s.db.SelectContext(ctx, &out,
			`SELECT * FROM customers WHERE name LIKE ? COLLATE NOCASE OR mobile LIKE ? ORDER BY name`,
			"%"+q+"%", "%"+q+"%")
	}
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if req.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Email != nil {
		set = append(set, "email = ?")
		args = append(args, *req.Email)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET `+strings.Join(set, ", ")+` WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	return s.GetCustomer(ctx, id)
}

func (s *Store) AddPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET points = points + ?, updated_at = ? WHERE id = ?`,
		points, time.Now().UTC(), id)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("add points: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	return s.GetCustomer(ctx, id)
}

func (s *Store) RedeemPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	// Balance guard lives in the WHERE clause, so two concurrent redeems
	// cannot both spend the same points.
	res, err := s.db.ExecContext(ctx,
		`UPDATE customers SET points = points - ?, updated_at = ? WHERE id = ? AND points >= ?`,
		points, time.Now().UTC(), id, points)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("redeem points: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetCustomer(ctx, id); err != nil {
			return domain.Customer{}, err
		}
		return domain.Customer{}, fmt.Errorf("%w: want %d", store.ErrInsufficientPoints, points)
	}
	return s.GetCustomer(ctx, id)
}

func (s *Store) PurchaseHistory(ctx context.Context, id string) (domain.PurchaseHistory, error) {
	c, err := s.GetCustomer(ctx, id)
	if err != nil {
		return domain.PurchaseHistory{}, err
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT b.id, b.bill_number, b.total_cents, b.created_at,
		       (SELECT COUNT(*) FROM bill_items WHERE bill_id = b.id) AS items_count
		FROM bills b
		WHERE b.customer_id = ?
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

func (s *Store) CreateBill(ctx context.Context, draft store.BillDraft) (domain.Bill, error) {
	if len(draft.Items) == 0 {
		return domain.Bill{}, fmt.Errorf("%w: bill needs at least one item", store.ErrValidation)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Bill{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if draft.CustomerID != "" {
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM customers WHERE id = ?`, draft.CustomerID); err != nil {
			return domain.Bill{}, fmt.Errorf("check customer: %w", err)
		}
		if n == 0 {
			return domain.Bill{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, draft.CustomerID)
		}
	}

	lines := make([]billing.Line, 0, len(draft.Items))
	for _, it := range draft.Items {
		if it.Quantity <= 0 {
			return domain.Bill{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
		}
		var p domain.Product
		err := tx.GetContext(ctx, &p, `SELECT * FROM products WHERE id = ?`, it.ProductID)
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
		err := tx.GetContext(ctx, &c, `SELECT * FROM coupons WHERE code = ?`, draft.CouponCode)
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
		// Re-check the cap in the UPDATE itself; a concurrent bill may
		// have consumed the last use.
		res, err := tx.ExecContext(ctx, `
			UPDATE coupons SET current_uses = current_uses + 1
			WHERE code = ? AND (max_uses IS NULL OR current_uses < max_uses)`,
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
		INSERT INTO bills (id, bill_number, customer_id, subtotal_cents, discount_cents, tax_cents, total_cents, payment_mode, status, coupon_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
			INSERT INTO bill_items (id, bill_id, product_id, product_name, quantity, unit_price_cents, discount_cents, total_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.BillID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPriceCents, item.DiscountCents, item.TotalCents); err != nil {
			return domain.Bill{}, fmt.Errorf("insert bill item: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity - ?, updated_at = ?
			WHERE id = ? AND quantity >= ?`,
			l.Quantity, now, l.ProductID, l.Quantity)
		if err != nil {
			return domain.Bill{}, fmt.Errorf("deduct stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Bill{}, fmt.Errorf("%w: %s", store.ErrInsufficientStock, l.ProductName)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_logs (id, product_id, quantity_change, reason, bill_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), l.ProductID, -l.Quantity, domain.StockReasonSale, bill.ID, now); err != nil {
			return domain.Bill{}, fmt.Errorf("log sale: %w", err)
		}
		bill.Items = append(bill.Items, item)
	}

	if bill.CustomerID != "" && status == domain.BillStatusCompleted {
		if _, err := tx.ExecContext(ctx, `
			UPDATE customers SET total_purchases_cents = total_purchases_cents + ?, updated_at = ?
			WHERE id = ?`,
			bill.TotalCents, now, bill.CustomerID); err != nil {
			return domain.Bill{}, fmt.Errorf("bump customer total: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Bill{}, err
	}
	return bill, nil
}

func (s *Store) getBill(ctx context.Context, q sqlx.QueryerContext, by, val string) (domain.Bill, error) {
	var b domain.Bill
	err := sqlx.GetContext(ctx, q, &b, `SELECT * FROM bills WHERE `+by+` = ?`, val)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, val)
	}
	if err != nil {
		return domain.Bill{}, fmt.Errorf("get bill: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, &b.Items, `SELECT * FROM bill_items WHERE bill_id = ?`, b.ID); err != nil {
		return domain.Bill{}, fmt.Errorf("get bill items: %w", err)
	}
	return b, nil
}

func (s *Store) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	return s.getBill(ctx, s.db, "id", id)
}

func (s *Store) GetBillByNumber(ctx context.Context, number string) (domain.Bill, error) {
	return s.getBill(ctx, s.db, "bill_number", number)
}

func (s *Store) ListBills(ctx context.Context, f store.BillFilter) (store.BillPage, error) {
	where := []string{"1=1"}
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if !f.DateFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.DateFrom.UTC())
	}
	if !f.DateTo.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, f.DateTo.UTC())
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM bills WHERE `+cond, args...); err != nil {
		return store.BillPage{}, fmt.Errorf("count bills: %w", err)
	}

	page, perPage := normalizePage(f.Page, f.PerPage)
	var bills []domain.Bill
	err := s.db.SelectContext(ctx, &bills,
		`SELECT * FROM bills WHERE `+cond+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return store.BillPage{}, fmt.Errorf("list bills: %w", err)
	}
	for i := range bills {
		if err := s.db.SelectContext(ctx, &bills[i].Items,
			`SELECT * FROM bill_items WHERE bill_id = ?`, bills[i].ID); err != nil {
			return store.BillPage{}, fmt.Errorf("list bill items: %w", err)
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
		`UPDATE bills SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
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
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Bill{}, err
	}
	defer tx.Rollback()

	b, err := s.getBill(ctx, tx, "id", id)
	if err != nil {
		return domain.Bill{}, err
	}
	if b.Status == domain.BillStatusReturned {
		return domain.Bill{}, fmt.Errorf("%w: bill already returned", store.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	for _, it := range b.Items {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity + ?, updated_at = ? WHERE id = ?`,
			it.Quantity, now, it.ProductID); err != nil {
			return domain.Bill{}, fmt.Errorf("restock: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_logs (id, product_id, quantity_change, reason, bill_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), it.ProductID, it.Quantity, domain.StockReasonReturn, b.ID, now); err != nil {
			return domain.Bill{}, fmt.Errorf("log return: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bills SET status = ?, updated_at = ? WHERE id = ?`,
		domain.BillStatusReturned, now, id); err != nil {
		return domain.Bill{}, fmt.Errorf("mark returned: %w", err)
	}

	b.Status = domain.BillStatusReturned
	b.UpdatedAt = now
	if err := tx.Commit(); err != nil {
		return domain.Bill{}, err
	}
	return b, nil
}

func (s *Store) DuplicateBill(ctx context.Context, id string) (domain.Bill, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Bill{}, err
	}
	defer tx.Rollback()

	orig, err := s.getBill(ctx, tx, "id", id)
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
		INSERT INTO bills (id, bill_number, customer_id, subtotal_cents, discount_cents, tax_cents, total_cents, payment_mode, status, coupon_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dup.ID, dup.BillNumber, dup.CustomerID, dup.SubtotalCents, dup.DiscountCents,
		dup.TaxCents, dup.TotalCents, dup.PaymentMode, dup.Status, dup.CouponCode,
		dup.CreatedAt, dup.UpdatedAt); err != nil {
		return domain.Bill{}, fmt.Errorf("insert duplicate bill: %w", err)
	}
	for _, it := range orig.Items {
		it.ID = uuid.NewString()
		it.BillID = dup.ID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bill_items (id, bill_id, product_id, product_name, quantity, unit_price_cents, discount_cents, total_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
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
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Payment{}, err
	}
	defer tx.Rollback()

	var total int64
	err = tx.GetContext(ctx, &total, `SELECT total_cents FROM bills WHERE id = ?`, billID)
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
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pay.ID, pay.BillID, pay.PaymentMode, pay.AmountCents, pay.ReferenceNumber, pay.Status, pay.CreatedAt); err != nil {
		return domain.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bills SET payment_mode = ?, updated_at = ? WHERE id = ?`,
		req.PaymentMode, now, billID); err != nil {
		return domain.Payment{}, fmt.Errorf("update bill payment mode: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Payment{}, err
	}
	return pay, nil
}

func (s *Store) ListPayments(ctx context.Context, billID string) ([]domain.Payment, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bills WHERE id = ?`, billID); err != nil {
		return nil, fmt.Errorf("check bill: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: bill %s", store.ErrNotFound, billID)
	}
	var out []domain.Payment
	if err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM payments WHERE bill_id = ? ORDER BY created_at`, billID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

// --- coupons and offers ---

func (s *Store) CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error) {
	c.ID = uuid.NewString()
	c.CurrentUses = 0
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_purchase_cents, max_uses, current_uses, valid_from, valid_till, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
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
	var c domain.Coupon
	err := s.db.GetContext(ctx, &c, `SELECT * FROM coupons WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coupon{}, fmt.Errorf("%w: coupon %s", store.ErrNotFound, code)
	}
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func (s *Store) ListCoupons(ctx context.Context, activeOnly bool) ([]domain.Coupon, error) {
	q := `SELECT * FROM coupons ORDER BY code`
	if activeOnly {
		q = `SELECT * FROM coupons WHERE active = 1 ORDER BY code`
	}
	var out []domain.Coupon
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateCoupon(ctx context.Context, id string, req domain.CouponUpdateRequest) (domain.Coupon, error) {
	set := []string{"id = id"}
	var args []any
	if req.DiscountValue != nil {
		set = append(set, "discount_value = ?")
		args = append(args, *req.DiscountValue)
	}
	if req.MinPurchaseCents != nil {
		set = append(set, "min_purchase_cents = ?")
		args = append(args, *req.MinPurchaseCents)
	}
	if req.MaxUses != nil {
		set = append(set, "max_uses = ?")
		args = append(args, *req.MaxUses)
	}
	if req.Active != nil {
		set = append(set, "active = ?")
		args = append(args, *req.Active)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE coupons SET `+strings.Join(set, ", ")+` WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return domain.Coupon{}, fmt.Errorf("update coupon: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Coupon{}, fmt.Errorf("%w: coupon %s", store.ErrNotFound, id)
	}
	var c domain.Coupon
	if err := s.db.GetContext(ctx, &c, `SELECT * FROM coupons WHERE id = ?`, id); err != nil {
		return domain.Coupon{}, fmt.Errorf("reread coupon: %w", err)
	}
	return c, nil
}

func (s *Store) DeactivateCoupon(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE coupons SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate coupon: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: coupon %s", store.ErrNotFound, id)
	}
	return nil
}

func (s *Store) CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offers (id, name, offer_type, product_id, category, discount_value, min_quantity, valid_from, valid_till, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.OfferType, o.ProductID, o.Category, o.DiscountValue, o.MinQuantity,
		o.ValidFrom.UTC(), o.ValidTill.UTC(), o.Active, o.CreatedAt)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("insert offer: %w", err)
	}
	return o, nil
}

func (s *Store) GetOffer(ctx context.Context, id string) (domain.Offer, error) {
	var o domain.Offer
	err := s.db.GetContext(ctx, &o, `SELECT * FROM offers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	if err != nil {
		return domain.Offer{}, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (s *Store) ListOffers(ctx context.Context, activeOnly bool) ([]domain.Offer, error) {
	q := `SELECT * FROM offers ORDER BY name`
	if activeOnly {
		q = `SELECT * FROM offers WHERE active = 1 ORDER BY name`
	}
	var out []domain.Offer
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateOffer(ctx context.Context, id string, req domain.OfferUpdateRequest) (domain.Offer, error) {
	set := []string{"id = id"}
	var args []any
	if req.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *req.Name)
	}
	if req.DiscountValue != nil {
		set = append(set, "discount_value = ?")
		args = append(args, *req.DiscountValue)
	}
	if req.MinQuantity != nil {
		set = append(set, "min_quantity = ?")
		args = append(args, *req.MinQuantity)
	}
	if req.Active != nil {
		set = append(set, "active = ?")
		args = append(args, *req.Active)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE offers SET `+strings.Join(set, ", ")+` WHERE id = ?`,
		append(args, id)...)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("update offer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Offer{}, fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	var o domain.Offer
	if err := s.db.GetContext(ctx, &o, `SELECT * FROM offers WHERE id = ?`, id); err != nil {
		return domain.Offer{}, fmt.Errorf("reread offer: %w", err)
	}
	return o, nil
}

func (s *Store) DeactivateOffer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE offers SET active = 0 WHERE id = ?`, id)
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
	var out []domain.InventoryLog
	var err error
	if productID == "" {
		err = s.db.SelectContext(ctx, &out,
			`SELECT * FROM inventory_logs ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		err = s.db.SelectContext(ctx, &out,
			`SELECT * FROM inventory_logs WHERE product_id = ? ORDER BY created_at DESC LIMIT ?`, productID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	return out, nil
}

func (s *Store) DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	sum := domain.DailySummary{Date: start.Format("2006-01-02")}
	row := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0), COALESCE(SUM(discount_cents), 0),
		       COALESCE((SELECT COUNT(*) FROM bill_items WHERE bill_id IN
		           (SELECT id FROM bills WHERE status = ? AND created_at >= ? AND created_at < ?)), 0)
		FROM bills WHERE status = ? AND created_at >= ? AND created_at < ?`,
		domain.BillStatusCompleted, start, end,
		domain.BillStatusCompleted, start, end)
	if err := row.Scan(&sum.TotalBills, &sum.TotalSalesCents, &sum.TotalDiscountCents, &sum.TotalItems); err != nil {
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
	row := s.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM bills WHERE status = ? AND created_at >= ? AND created_at < ?`,
		domain.BillStatusCompleted, start, end)
	if err := row.Scan(&stats.Today.Transactions, &stats.Today.SalesCents); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("today stats: %w", err)
	}
	if stats.Today.Transactions > 0 {
		stats.Today.AverageBillCents = stats.Today.SalesCents / int64(stats.Today.Transactions)
	}

	if err := s.db.GetContext(ctx, &stats.TotalProducts, `SELECT COUNT(*) FROM products`); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count products: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalCustomers, `SELECT COUNT(*) FROM customers`); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count customers: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT bi.product_name, SUM(bi.quantity) AS qty
		FROM bill_items bi
		JOIN bills b ON b.id = bi.bill_id
		WHERE b.status = ?
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
