// Package postgres is the production Repository backed by PostgreSQL through
// database/sql and the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"smartstore/pos/internal/domain"
	"smartstore/pos/internal/store"
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

const productColumns = `id, COALESCE(barcode, ''), name, buy_price_cents, sell_price_cents, quantity, category, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &p.BuyPriceCents, &p.SellPriceCents, &p.Quantity, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY name
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
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE barcode = $1
	`, barcode)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SearchProducts(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Product{}, nil
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE barcode = $1 OR name ILIKE '%' || $1 || '%'
		ORDER BY
			CASE
				WHEN barcode = $1 THEN 1
				WHEN LOWER(name) = LOWER($1) THEN 2
				WHEN name ILIKE $1 || '%' THEN 3
				ELSE 4
			END,
			name
		LIMIT $2
	`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) BarcodeSuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT barcode
		FROM products
		WHERE barcode LIKE $1 || '%'
		ORDER BY barcode
		LIMIT $2
	`, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]string, 0, limit)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SellPriceCents < 0 || product.BuyPriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.Category == "" {
		product.Category = domain.DefaultCategory
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO products (barcode, name, buy_price_cents, sell_price_cents, quantity, category, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
		RETURNING `+productColumns+`
	`, nullIfEmpty(product.Barcode), product.Name, product.BuyPriceCents, product.SellPriceCents, product.Quantity, product.Category)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrInvalidInput, product.Barcode)
		}
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.SellPriceCents < 0 || product.BuyPriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.Category == "" {
		product.Category = domain.DefaultCategory
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET barcode = $2, name = $3, buy_price_cents = $4, sell_price_cents = $5, quantity = $6, category = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, product.ID, nullIfEmpty(product.Barcode), product.Name, product.BuyPriceCents, product.SellPriceCents, product.Quantity, product.Category)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrInvalidInput, product.Barcode)
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DecrementStock is a single conditional update; the WHERE clause guarantees
// stock never goes negative even under concurrent writers.
func (s *Store) DecrementStock(ctx context.Context, id int64, qty int) error {
	if qty < 1 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
	`, id, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.GetProduct(ctx, id); errors.Is(getErr, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (s *Store) ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE quantity <= $1
		ORDER BY quantity, name
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) NextTicketNumber(ctx context.Context) (string, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT%06d", n), nil
}

// CommitSale runs the entire checkout write set in one serializable
// transaction: conditional per-line stock decrements plus the ticket insert.
// Any failed decrement or a duplicate ticket number rolls everything back.
func (s *Store) CommitSale(ctx context.Context, ticket domain.Ticket, decrements []domain.StockDecrement) (*domain.Ticket, error) {
	if ticket.TicketNumber == "" || len(ticket.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range decrements {
		if d.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity - $2, updated_at = now()
			WHERE id = $1 AND quantity >= $2
		`, d.ProductID, d.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var name string
			nameErr := tx.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1`, d.ProductID).Scan(&name)
			if errors.Is(nameErr, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, d.ProductID)
			}
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, name)
		}
	}

	itemsJSON, err := json.Marshal(ticket.Items)
	if err != nil {
		return nil, err
	}
	if ticket.Date.IsZero() {
		ticket.Date = time.Now().UTC()
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusCompleted
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO tickets (
			ticket_number, date, total_price_cents, subtotal_cents, tax_cents, discount_cents,
			payment_method, payment_cents, change_cents, customer_name, items, status, cashier_id
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, ticket.TicketNumber, ticket.Date, ticket.TotalPriceCents, ticket.SubtotalCents, ticket.TaxCents,
		ticket.DiscountCents, ticket.PaymentMethod, ticket.PaymentCents, ticket.ChangeCents,
		ticket.CustomerName, itemsJSON, ticket.Status, ticket.CashierID).Scan(&ticket.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrTicketNumberCollision
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	saved := ticket
	return &saved, nil
}

const ticketColumns = `id, ticket_number, date, total_price_cents, subtotal_cents, tax_cents, discount_cents,
	payment_method, payment_cents, change_cents, customer_name, items, status, cashier_id`

func scanTicket(row interface{ Scan(...any) error }) (domain.Ticket, error) {
	var t domain.Ticket
	var itemsJSON []byte
	err := row.Scan(&t.ID, &t.TicketNumber, &t.Date, &t.TotalPriceCents, &t.SubtotalCents, &t.TaxCents,
		&t.DiscountCents, &t.PaymentMethod, &t.PaymentCents, &t.ChangeCents, &t.CustomerName,
		&itemsJSON, &t.Status, &t.CashierID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &t.Items); err != nil {
			return domain.Ticket{}, fmt.Errorf("decode ticket %s items: %w", t.TicketNumber, err)
		}
	}
	t.Date = t.Date.UTC()
	return t, nil
}

func (s *Store) GetTicketByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE ticket_number = $1
	`, ticketNumber)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTickets(ctx context.Context, from time.Time, to time.Time) ([]domain.Ticket, error) {
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE date >= $1 AND date < $2
		ORDER BY date DESC, ticket_number DESC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0, 64)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) VoidTicket(ctx context.Context, ticketNumber string) (*domain.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE tickets
		SET status = $2
		WHERE ticket_number = $1 AND status = $3
		RETURNING `+ticketColumns+`
	`, ticketNumber, domain.TicketStatusVoided, domain.TicketStatusCompleted)
	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := s.GetTicketByNumber(ctx, ticketNumber); getErr != nil {
				return nil, getErr
			}
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) DeleteTicket(ctx context.Context, ticketNumber string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE ticket_number = $1`, ticketNumber)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetDailyReport(ctx context.Context, day time.Time) (domain.DailyReport, error) {
	from := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	report := domain.DailyReport{
		Date:        from.Format("2006-01-02"),
		ByPayment:   make([]domain.PaymentBreakdown, 0, 2),
		TopProducts: make([]domain.ProductSalesCount, 0, 5),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_price_cents), 0), COALESCE(SUM(tax_cents), 0),
			COALESCE(SUM(discount_cents), 0), COUNT(*)
		FROM tickets
		WHERE date >= $1 AND date < $2 AND status != $3
	`, from, to, domain.TicketStatusVoided).Scan(
		&report.TotalSalesCents, &report.TotalTaxCents, &report.TotalDiscountCents, &report.Transactions)
	if err != nil {
		return domain.DailyReport{}, err
	}

	payRows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_price_cents), 0)
		FROM tickets
		WHERE date >= $1 AND date < $2 AND status != $3
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to, domain.TicketStatusVoided)
	if err != nil {
		return domain.DailyReport{}, err
	}
	defer payRows.Close()
	for payRows.Next() {
		var entry domain.PaymentBreakdown
		if err := payRows.Scan(&entry.PaymentMethod, &entry.Transactions, &entry.TotalCents); err != nil {
			return domain.DailyReport{}, err
		}
		report.ByPayment = append(report.ByPayment, entry)
	}
	if err := payRows.Err(); err != nil {
		return domain.DailyReport{}, err
	}

	// The items column is a JSON array snapshot; unpack it server-side so the
	// top-products ranking reflects exactly what was sold, not current catalog.
	itemRows, err := s.db.QueryContext(ctx, `
		SELECT line->>'name',
			COALESCE(SUM((line->>'quantity')::bigint), 0),
			COALESCE(SUM((line->>'total')::bigint), 0)
		FROM tickets, jsonb_array_elements(items::jsonb) AS line
		WHERE date >= $1 AND date < $2 AND status != $3
		GROUP BY line->>'name'
		ORDER BY 2 DESC, 1
		LIMIT 5
	`, from, to, domain.TicketStatusVoided)
	if err != nil {
		return domain.DailyReport{}, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var entry domain.ProductSalesCount
		if err := itemRows.Scan(&entry.Name, &entry.Quantity, &entry.TotalCents); err != nil {
			return domain.DailyReport{}, err
		}
		report.TopProducts = append(report.TopProducts, entry)
	}
	if err := itemRows.Err(); err != nil {
		return domain.DailyReport{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM((line->>'quantity')::bigint), 0)
		FROM tickets, jsonb_array_elements(items::jsonb) AS line
		WHERE date >= $1 AND date < $2 AND status != $3
	`, from, to, domain.TicketStatusVoided).Scan(&report.ItemsSold)
	if err != nil {
		return domain.DailyReport{}, err
	}

	return report, nil
}

func (s *Store) SaveDailyReport(ctx context.Context, report domain.DailyReport) error {
	if report.Date == "" {
		return store.ErrInvalidInput
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_reports (date, report, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (date) DO UPDATE SET report = EXCLUDED.report, created_at = now()
	`, report.Date, payload)
	return err
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), total_purchases_cents, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.TotalPurchaseCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, email, address, total_purchases_cents, created_at)
		VALUES ($1,$2,$3,$4,0,now())
		RETURNING id, created_at
	`, customer.Name, customer.Phone, customer.Email, customer.Address).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: customer %s already exists", store.ErrInvalidInput, customer.Name)
		}
		return nil, err
	}
	customer.CreatedAt = customer.CreatedAt.UTC()
	created := customer
	return &created, nil
}

func (s *Store) AddCustomerPurchase(ctx context.Context, name string, amountCents int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET total_purchases_cents = total_purchases_cents + $2
		WHERE LOWER(name) = LOWER($1)
	`, strings.TrimSpace(name), amountCents)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(domain.Settings, 8)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Store) PutSetting(ctx context.Context, key string, value string) error {
	if strings.TrimSpace(key) == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, role, COALESCE(full_name, ''), COALESCE(email, ''), created_at, last_login
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.ID, &user.Username, &user.Password, &user.Role, &user.FullName, &user.Email, &user.CreatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		user.LastLogin = &t
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, COALESCE(full_name, ''), COALESCE(email, ''), created_at, last_login
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		var lastLogin sql.NullTime
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.FullName, &user.Email, &user.CreatedAt, &lastLogin); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			t := lastLogin.Time.UTC()
			user.LastLogin = &t
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return nil, store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "cashier"
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password, role, full_name, email, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
		RETURNING id, created_at
	`, user.Username, user.Password, user.Role, user.FullName, user.Email).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username %s already taken", store.ErrInvalidInput, user.Username)
		}
		return nil, err
	}
	created := user
	return &created, nil
}

func (s *Store) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login = $2 WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username)), at.UTC())
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
