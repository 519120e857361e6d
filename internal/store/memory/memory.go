// Package memory is the in-process Repository used for dev mode and tests.
// It mirrors the transactional guarantees of the postgres implementation
// under a single mutex.
package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartstore/pos/internal/domain"
	"smartstore/pos/internal/store"
)

type Store struct {
	mu                sync.RWMutex
	products          map[int64]domain.Product
	productsByBarcode map[string]int64
	tickets           map[string]*domain.Ticket
	ticketOrder       []string
	customers         map[int64]domain.Customer
	customersByName   map[string]int64
	settings          map[string]string
	usersByUsername   map[string]domain.UserAccount
	dailyReports      map[string]domain.DailyReport

	nextProductID  int64
	nextCustomerID int64
	nextTicketID   int64
	nextUserID     int64
	ticketCounter  int64
}

// seedUsers builds the initial accounts for dev/demo mode. Credentials come
// from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; hardcoded dev defaults
// are used with a warning when unset. Production runs against PostgreSQL.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	id := int64(0)
	for _, u := range []struct {
		username string
		password string
		role     string
		fullName string
	}{
		{"admin", adminPwd, "admin", "Store Administrator"},
		{"cashier", cashierPwd, "cashier", "Front Cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		id++
		users[u.username] = domain.UserAccount{
			ID:        id,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			FullName:  u.fullName,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: 1, Barcode: "6130000000015", Name: "Eau Minerale 1.5L", BuyPriceCents: 2000, SellPriceCents: 3500, Quantity: 120, Category: "Beverage"},
		{ID: 2, Barcode: "6130000000022", Name: "Lait UHT 1L", BuyPriceCents: 9000, SellPriceCents: 12000, Quantity: 60, Category: "Dairy"},
		{ID: 3, Barcode: "6130000000039", Name: "Pain de Mie", BuyPriceCents: 12000, SellPriceCents: 16000, Quantity: 25, Category: "Bakery"},
		{ID: 4, Barcode: "6130000000046", Name: "Cafe Moulu 250g", BuyPriceCents: 32000, SellPriceCents: 45000, Quantity: 40, Category: "Grocery"},
		{ID: 5, Barcode: "6130000000053", Name: "Sucre 1kg", BuyPriceCents: 9500, SellPriceCents: 13000, Quantity: 80, Category: "Grocery"},
		{ID: 6, Barcode: "6130000000060", Name: "Huile 1L", BuyPriceCents: 52000, SellPriceCents: 65000, Quantity: 30, Category: "Grocery"},
		{ID: 7, Barcode: "6130000000077", Name: "The Vert 100g", BuyPriceCents: 18000, SellPriceCents: 25000, Quantity: 50, Category: "Beverage"},
		{ID: 8, Barcode: "6130000000084", Name: "Biscuits Chocolat", BuyPriceCents: 6000, SellPriceCents: 9000, Quantity: 90, Category: "Snack"},
		{ID: 9, Barcode: "6130000000091", Name: "Savon de Toilette", BuyPriceCents: 4500, SellPriceCents: 7000, Quantity: 70, Category: "Household"},
		{ID: 10, Barcode: "6130000000107", Name: "Jus d'Orange 1L", BuyPriceCents: 11000, SellPriceCents: 15000, Quantity: 8, Category: "Beverage"},
	}

	productMap := make(map[int64]domain.Product, len(products))
	byBarcode := make(map[string]int64, len(products))
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
		byBarcode[p.Barcode] = p.ID
	}

	settings := map[string]string{
		domain.SettingStoreName:         "Smart Store",
		domain.SettingStoreAddress:      "12 Rue Didouche Mourad, Alger",
		domain.SettingStorePhone:        "+213 21 00 00 00",
		domain.SettingStoreEmail:        "contact@smartstore.example",
		domain.SettingCurrency:          domain.DefaultCurrency,
		domain.SettingTaxRate:           fmt.Sprintf("%d", domain.DefaultTaxRatePercent),
		domain.SettingReceiptFooter:     "Merci de votre visite!",
		domain.SettingLowStockThreshold: fmt.Sprintf("%d", domain.DefaultLowStockThreshold),
	}

	return &Store{
		products:          productMap,
		productsByBarcode: byBarcode,
		tickets:           make(map[string]*domain.Ticket),
		customers:         make(map[int64]domain.Customer),
		customersByName:   make(map[string]int64),
		settings:          settings,
		usersByUsername:   seedUsers(),
		dailyReports:      make(map[string]domain.DailyReport),
		nextProductID:     int64(len(products)),
		nextUserID:        2,
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyP := p
	return &copyP, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productsByBarcode[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := s.products[id]
	return &p, nil
}

func (s *Store) SearchProducts(_ context.Context, term string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 10
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.Product{}, nil
	}
	lower := strings.ToLower(term)

	type ranked struct {
		product domain.Product
		rank    int
	}
	matches := make([]ranked, 0, limit)
	for _, p := range s.products {
		nameLower := strings.ToLower(p.Name)
		rank := 0
		switch {
		case p.Barcode != "" && strings.EqualFold(p.Barcode, term):
			rank = 1
		case nameLower == lower:
			rank = 2
		case strings.HasPrefix(nameLower, lower):
			rank = 3
		case strings.Contains(nameLower, lower):
			rank = 4
		default:
			continue
		}
		matches = append(matches, ranked{product: p, rank: rank})
	}

	slices.SortFunc(matches, func(a, b ranked) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return cmpString(a.product.Name, b.product.Name)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	result := make([]domain.Product, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.product)
	}
	return result, nil
}

func (s *Store) BarcodeSuggestions(_ context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 10
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}

	codes := make([]string, 0, limit)
	for code := range s.productsByBarcode {
		if strings.HasPrefix(code, prefix) {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	if len(codes) > limit {
		codes = codes[:limit]
	}
	return codes, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.SellPriceCents < 0 || product.BuyPriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.Barcode != "" {
		if _, exists := s.productsByBarcode[product.Barcode]; exists {
			return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrInvalidInput, product.Barcode)
		}
	}
	if product.Category == "" {
		product.Category = domain.DefaultCategory
	}

	s.nextProductID++
	now := time.Now().UTC()
	product.ID = s.nextProductID
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	if product.Barcode != "" {
		s.productsByBarcode[product.Barcode] = product.ID
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.SellPriceCents < 0 || product.BuyPriceCents < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.Barcode != "" && product.Barcode != existing.Barcode {
		if _, exists := s.productsByBarcode[product.Barcode]; exists {
			return nil, fmt.Errorf("%w: barcode %s already in use", store.ErrInvalidInput, product.Barcode)
		}
	}
	if product.Category == "" {
		product.Category = domain.DefaultCategory
	}

	if existing.Barcode != "" {
		delete(s.productsByBarcode, existing.Barcode)
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	if product.Barcode != "" {
		s.productsByBarcode[product.Barcode] = product.ID
	}
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	if p.Barcode != "" {
		delete(s.productsByBarcode, p.Barcode)
	}
	return nil
}

func (s *Store) DecrementStock(_ context.Context, id int64, qty int) error {
	if qty < 1 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Quantity < qty {
		return fmt.Errorf("%w: %s", store.ErrInsufficientStock, p.Name)
	}
	p.Quantity -= qty
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return nil
}

func (s *Store) ListLowStock(_ context.Context, threshold int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if p.Quantity <= threshold {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		if a.Quantity != b.Quantity {
			return a.Quantity - b.Quantity
		}
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) NextTicketNumber(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticketCounter++
	return fmt.Sprintf("TKT%06d", s.ticketCounter), nil
}

// CommitSale validates every decrement, then applies ticket insert and stock
// decrements together under the write lock. Nothing is persisted on error.
func (s *Store) CommitSale(_ context.Context, ticket domain.Ticket, decrements []domain.StockDecrement) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.TicketNumber == "" || len(ticket.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.tickets[ticket.TicketNumber]; exists {
		return nil, store.ErrTicketNumberCollision
	}

	for _, d := range decrements {
		p, ok := s.products[d.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", store.ErrNotFound, d.ProductID)
		}
		if d.Quantity < 1 {
			return nil, store.ErrInvalidInput
		}
		if p.Quantity < d.Quantity {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, p.Name)
		}
	}

	now := time.Now().UTC()
	for _, d := range decrements {
		p := s.products[d.ProductID]
		p.Quantity -= d.Quantity
		p.UpdatedAt = now
		s.products[d.ProductID] = p
	}

	s.nextTicketID++
	ticket.ID = s.nextTicketID
	if ticket.Date.IsZero() {
		ticket.Date = now
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusCompleted
	}

	saved := cloneTicket(&ticket)
	s.tickets[ticket.TicketNumber] = saved
	s.ticketOrder = append(s.ticketOrder, ticket.TicketNumber)

	return cloneTicket(saved), nil
}

func (s *Store) GetTicketByNumber(_ context.Context, ticketNumber string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[ticketNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (s *Store) ListTickets(_ context.Context, from time.Time, to time.Time) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Ticket, 0, 32)
	for _, number := range s.ticketOrder {
		t, ok := s.tickets[number]
		if !ok {
			continue
		}
		if !from.IsZero() && t.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !t.Date.Before(to) {
			continue
		}
		result = append(result, *cloneTicket(t))
	}
	slices.SortFunc(result, func(a, b domain.Ticket) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.TicketNumber, a.TicketNumber)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) VoidTicket(_ context.Context, ticketNumber string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketNumber]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status != domain.TicketStatusCompleted {
		return nil, store.ErrInvalidInput
	}
	t.Status = domain.TicketStatusVoided
	return cloneTicket(t), nil
}

func (s *Store) DeleteTicket(_ context.Context, ticketNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[ticketNumber]; !ok {
		return store.ErrNotFound
	}
	delete(s.tickets, ticketNumber)
	for i, number := range s.ticketOrder {
		if number == ticketNumber {
			s.ticketOrder = append(s.ticketOrder[:i], s.ticketOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) GetDailyReport(_ context.Context, day time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	report := domain.DailyReport{
		Date:        from.Format("2006-01-02"),
		ByPayment:   make([]domain.PaymentBreakdown, 0, 2),
		TopProducts: make([]domain.ProductSalesCount, 0, 5),
	}
	byPayment := map[string]*domain.PaymentBreakdown{}
	byProduct := map[string]*domain.ProductSalesCount{}

	for _, t := range s.tickets {
		if t.Date.Before(from) || !t.Date.Before(to) {
			continue
		}
		if t.Status == domain.TicketStatusVoided {
			continue
		}

		report.Transactions++
		report.TotalSalesCents += t.TotalPriceCents
		report.TotalTaxCents += t.TaxCents
		report.TotalDiscountCents += t.DiscountCents

		payment := byPayment[t.PaymentMethod]
		if payment == nil {
			payment = &domain.PaymentBreakdown{PaymentMethod: t.PaymentMethod}
			byPayment[t.PaymentMethod] = payment
		}
		payment.Transactions++
		payment.TotalCents += t.TotalPriceCents

		for _, line := range t.Items {
			report.ItemsSold += int64(line.Quantity)
			prod := byProduct[line.Name]
			if prod == nil {
				prod = &domain.ProductSalesCount{Name: line.Name}
				byProduct[line.Name] = prod
			}
			prod.Quantity += int64(line.Quantity)
			prod.TotalCents += line.TotalCents
		}
	}

	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	slices.SortFunc(report.ByPayment, func(a, b domain.PaymentBreakdown) int {
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})

	for _, entry := range byProduct {
		report.TopProducts = append(report.TopProducts, *entry)
	}
	slices.SortFunc(report.TopProducts, func(a, b domain.ProductSalesCount) int {
		if a.Quantity != b.Quantity {
			if a.Quantity > b.Quantity {
				return -1
			}
			return 1
		}
		return cmpString(a.Name, b.Name)
	})
	if len(report.TopProducts) > 5 {
		report.TopProducts = report.TopProducts[:5]
	}

	return report, nil
}

func (s *Store) SaveDailyReport(_ context.Context, report domain.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.Date == "" {
		return store.ErrInvalidInput
	}
	s.dailyReports[report.Date] = report
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.customersByName[strings.ToLower(customer.Name)]; exists {
		return nil, fmt.Errorf("%w: customer %s already exists", store.ErrInvalidInput, customer.Name)
	}

	s.nextCustomerID++
	customer.ID = s.nextCustomerID
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	s.customersByName[strings.ToLower(customer.Name)] = customer.ID
	created := customer
	return &created, nil
}

func (s *Store) AddCustomerPurchase(_ context.Context, name string, amountCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.customersByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return store.ErrNotFound
	}
	c := s.customers[id]
	c.TotalPurchaseCents += amountCents
	s.customers[id] = c
	return nil
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(domain.Settings, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) PutSetting(_ context.Context, key string, value string) error {
	if strings.TrimSpace(key) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return nil, fmt.Errorf("%w: username %s already taken", store.ErrInvalidInput, user.Username)
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.nextUserID++
	user.ID = s.nextUserID
	s.usersByUsername[user.Username] = user
	created := user
	return &created, nil
}

func (s *Store) TouchLastLogin(_ context.Context, username string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	at = at.UTC()
	user.LastLogin = &at
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneTicket(src *domain.Ticket) *domain.Ticket {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.TicketLine, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}
