// Package sale is the transaction core: it assembles carts, computes totals,
// and turns a paid cart into an immutable ticket through one atomic commit.
package sale

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"smartstore/pos/internal/barcode"
	"smartstore/pos/internal/cache"
	"smartstore/pos/internal/cart"
	"smartstore/pos/internal/domain"
	"smartstore/pos/internal/store"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInvalidBarcode      = errors.New("invalid barcode")
)

const settingsCacheKey = "pos:settings"

const settingsCacheTTL = 30 * time.Second

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo  store.Repository
	cache cache.SettingsCache
}

func New(repo store.Repository, settingsCache cache.SettingsCache) *Service {
	if settingsCache == nil {
		settingsCache = cache.NoopSettingsCache{}
	}
	return &Service{repo: repo, cache: settingsCache}
}

// Settings returns the store configuration, served from cache when warm.
// A cache failure falls back to the repository and is logged, never fatal.
func (s *Service) Settings(ctx context.Context) (domain.Settings, error) {
	if cached, ok, err := s.cache.Get(ctx, settingsCacheKey); err != nil {
		log.Printf("[sale] WARN: settings cache read failed: %v", err)
	} else if ok && cached != nil {
		return *cached, nil
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, settingsCacheKey, &settings, settingsCacheTTL); err != nil {
		log.Printf("[sale] WARN: settings cache write failed: %v", err)
	}
	return settings, nil
}

func (s *Service) UpdateSetting(ctx context.Context, key string, value string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	if err := s.repo.PutSetting(ctx, key, value); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, settingsCacheKey); err != nil {
		log.Printf("[sale] WARN: settings cache invalidate failed: %v", err)
	}
	return nil
}

// TaxRatePercent reads the configured rate, falling back to the default when
// the setting is missing or malformed.
func (s *Service) TaxRatePercent(ctx context.Context) float64 {
	settings, err := s.Settings(ctx)
	if err != nil {
		log.Printf("[sale] WARN: settings unavailable, using default tax rate: %v", err)
		return domain.DefaultTaxRatePercent
	}
	raw, ok := settings[domain.SettingTaxRate]
	if !ok {
		return domain.DefaultTaxRatePercent
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || rate < 0 || rate > 100 {
		log.Printf("[sale] WARN: invalid tax_rate setting %q, using default", raw)
		return domain.DefaultTaxRatePercent
	}
	return rate
}

func (s *Service) LowStockThreshold(ctx context.Context) int {
	settings, err := s.Settings(ctx)
	if err != nil {
		return domain.DefaultLowStockThreshold
	}
	raw, ok := settings[domain.SettingLowStockThreshold]
	if !ok {
		return domain.DefaultLowStockThreshold
	}
	threshold, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || threshold < 0 {
		return domain.DefaultLowStockThreshold
	}
	return threshold
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.SellPriceCents < 0 || req.BuyPriceCents < 0 || req.Quantity < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	code := ""
	if strings.TrimSpace(req.Barcode) != "" {
		code = barcode.Clean(req.Barcode)
		if !barcode.IsValid(code) || !barcode.ValidateChecksum(code) {
			return domain.Product{}, fmt.Errorf("%w: %s", ErrInvalidBarcode, req.Barcode)
		}
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Barcode:        code,
		Name:           req.Name,
		BuyPriceCents:  req.BuyPriceCents,
		SellPriceCents: req.SellPriceCents,
		Quantity:       req.Quantity,
		Category:       req.Category,
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Barcode != nil {
		code := ""
		if strings.TrimSpace(*req.Barcode) != "" {
			code = barcode.Clean(*req.Barcode)
			if !barcode.IsValid(code) || !barcode.ValidateChecksum(code) {
				return domain.Product{}, fmt.Errorf("%w: %s", ErrInvalidBarcode, *req.Barcode)
			}
		}
		updated.Barcode = code
	}
	if req.BuyPriceCents != nil {
		if *req.BuyPriceCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.BuyPriceCents = *req.BuyPriceCents
	}
	if req.SellPriceCents != nil {
		if *req.SellPriceCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.SellPriceCents = *req.SellPriceCents
	}
	if req.Quantity != nil {
		updated.Quantity = *req.Quantity
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return s.repo.DeleteProduct(ctx, id)
}

// Search runs the ranked catalog search used by the register's search box.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.repo.SearchProducts(ctx, term, limit)
}

func (s *Service) BarcodeSuggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.repo.BarcodeSuggestions(ctx, prefix, limit)
}

// LookupBarcode resolves raw scanner or keyboard input to a product. Manual
// entry and the hardware scanner share this exact path.
func (s *Service) LookupBarcode(ctx context.Context, raw string) (domain.Product, error) {
	code := barcode.Clean(raw)
	if !barcode.IsValid(code) {
		return domain.Product{}, fmt.Errorf("%w: %q", ErrInvalidBarcode, raw)
	}
	p, err := s.repo.GetProductByBarcode(ctx, code)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

// AddByBarcode looks up the code and stages one unit (or qty) on the cart.
func (s *Service) AddByBarcode(ctx context.Context, c *cart.Cart, raw string, qty int) (domain.Product, error) {
	if qty < 1 {
		qty = 1
	}
	product, err := s.LookupBarcode(ctx, raw)
	if err != nil {
		return domain.Product{}, err
	}
	if err := c.AddLine(product, qty); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// BuildCart assembles a cart from checkout line requests. Every line goes
// through AddLine so availability rules match interactive use.
func (s *Service) BuildCart(ctx context.Context, req domain.CheckoutRequest) (*cart.Cart, error) {
	c := cart.New()
	for _, line := range req.Lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}

		var product domain.Product
		switch {
		case line.ProductID > 0:
			p, err := s.repo.GetProduct(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			product = *p
		case strings.TrimSpace(line.Barcode) != "":
			p, err := s.LookupBarcode(ctx, line.Barcode)
			if err != nil {
				return nil, err
			}
			product = p
		default:
			return nil, fmt.Errorf("%w: line needs product_id or barcode", store.ErrInvalidInput)
		}

		if err := c.AddLine(product, qty); err != nil {
			return nil, err
		}
	}

	c.SetCustomer(strings.TrimSpace(req.CustomerName))
	if err := c.SetDiscount(req.DiscountCents); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return c, nil
}

// Checkout turns a cart into a persisted ticket. Totals are recomputed here
// from the cart's snapshots; payment must cover the total; the ticket insert
// and every stock decrement land in one repository transaction. On any error
// the cart is left untouched so the cashier can correct and retry. A ticket
// number collision is retried once with a fresh number.
func (s *Service) Checkout(ctx context.Context, c *cart.Cart, paymentCents int64, paymentMethod string, cashierID int64) (domain.Ticket, error) {
	if c == nil || c.IsEmpty() {
		return domain.Ticket{}, ErrEmptyCart
	}
	if paymentMethod == "" {
		paymentMethod = domain.PaymentMethodCash
	}

	totals := c.Totals(s.TaxRatePercent(ctx))
	if paymentCents < totals.TotalCents {
		return domain.Ticket{}, fmt.Errorf("%w: need %d, got %d", ErrInsufficientPayment, totals.TotalCents, paymentCents)
	}

	ticket := domain.Ticket{
		Date:            time.Now().UTC(),
		TotalPriceCents: totals.TotalCents,
		SubtotalCents:   totals.SubtotalCents,
		TaxCents:        totals.TaxCents,
		DiscountCents:   totals.DiscountCents,
		PaymentMethod:   paymentMethod,
		PaymentCents:    paymentCents,
		ChangeCents:     paymentCents - totals.TotalCents,
		CustomerName:    c.CustomerName(),
		Items:           c.TicketLines(),
		Status:          domain.TicketStatusCompleted,
		CashierID:       cashierID,
	}
	decrements := c.Decrements()

	var saved *domain.Ticket
	for attempt := 0; attempt < 2; attempt++ {
		number, err := s.repo.NextTicketNumber(ctx)
		if err != nil {
			return domain.Ticket{}, fmt.Errorf("allocate ticket number: %w", err)
		}
		ticket.TicketNumber = number

		saved, err = s.repo.CommitSale(ctx, ticket, decrements)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrTicketNumberCollision) && attempt == 0 {
			log.Printf("[sale] WARN: ticket number %s collided, retrying with a fresh number", number)
			continue
		}
		return domain.Ticket{}, err
	}

	if saved.CustomerName != domain.WalkInCustomer {
		if err := s.repo.AddCustomerPurchase(ctx, saved.CustomerName, saved.TotalPriceCents); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("[sale] WARN: failed to update customer purchases for %q: %v", saved.CustomerName, err)
		}
	}

	return *saved, nil
}

// CheckoutRequest is the one-shot API path: build the cart, commit it.
func (s *Service) CheckoutRequest(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if len(req.Lines) == 0 {
		return domain.CheckoutResponse{}, ErrEmptyCart
	}

	c, err := s.BuildCart(ctx, req)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	cashierID := int64(0)
	if actor, ok := ActorFromContext(ctx); ok {
		cashierID = actor.UserID
	}

	ticket, err := s.Checkout(ctx, c, req.PaymentCents, req.PaymentMethod, cashierID)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	c.Clear()

	return domain.CheckoutResponse{Ticket: ticket, ChangeCents: ticket.ChangeCents}, nil
}

func (s *Service) GetTicket(ctx context.Context, ticketNumber string) (domain.Ticket, error) {
	t, err := s.repo.GetTicketByNumber(ctx, ticketNumber)
	if err != nil {
		return domain.Ticket{}, err
	}
	return *t, nil
}

// ListTickets returns tickets for a date range; an empty date string means
// the current day.
func (s *Service) ListTickets(ctx context.Context, date string) ([]domain.Ticket, error) {
	from, to, err := dayBounds(date)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTickets(ctx, from, to)
}

func (s *Service) VoidTicket(ctx context.Context, ticketNumber string) (domain.Ticket, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Ticket{}, fmt.Errorf("admin role required")
	}
	t, err := s.repo.VoidTicket(ctx, ticketNumber)
	if err != nil {
		return domain.Ticket{}, err
	}
	return *t, nil
}

func (s *Service) DeleteTicket(ctx context.Context, ticketNumber string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return s.repo.DeleteTicket(ctx, ticketNumber)
}

// LowStockAlerts flags products at or below the configured threshold.
// Informational only; it never blocks a sale.
func (s *Service) LowStockAlerts(ctx context.Context) ([]domain.LowStockAlert, error) {
	threshold := s.LowStockThreshold(ctx)
	products, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, err
	}
	alerts := make([]domain.LowStockAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, domain.LowStockAlert{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  p.Quantity,
			Threshold: threshold,
		})
	}
	return alerts, nil
}

func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	day, err := parseDay(date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	return s.repo.GetDailyReport(ctx, day)
}

// CloseDay aggregates the day's tickets and persists the snapshot.
func (s *Service) CloseDay(ctx context.Context, date string) (domain.DailyReport, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.DailyReport{}, fmt.Errorf("admin role required")
	}

	report, err := s.DailyReport(ctx, date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	if err := s.repo.SaveDailyReport(ctx, report); err != nil {
		return domain.DailyReport{}, err
	}
	return report, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

// CreateCashier registers a new cashier account. Only admins may call it;
// the password is bcrypt-hashed before it ever reaches the repository.
func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.CashierUser{}, fmt.Errorf("admin role required")
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || len(req.Password) < 6 {
		return domain.CashierUser{}, fmt.Errorf("%w: username and a password of at least 6 characters are required", store.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username: req.Username,
		Password: string(hash),
		Role:     "cashier",
		FullName: strings.TrimSpace(req.FullName),
	})
	if err != nil {
		return domain.CashierUser{}, err
	}

	return domain.CashierUser{
		ID:        created.ID,
		Username:  created.Username,
		Role:      created.Role,
		FullName:  created.FullName,
		CreatedAt: created.CreatedAt,
	}, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CashierUser, 0, len(users))
	for _, u := range users {
		out = append(out, domain.CashierUser{
			ID:        u.ID,
			Username:  u.Username,
			Role:      u.Role,
			FullName:  u.FullName,
			CreatedAt: u.CreatedAt,
		})
	}
	return out, nil
}

func dayBounds(date string) (time.Time, time.Time, error) {
	day, err := parseDay(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour), nil
}

func parseDay(date string) (time.Time, error) {
	if strings.TrimSpace(date) == "" {
		return time.Now().UTC(), nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", store.ErrInvalidInput, date)
	}
	return day.UTC(), nil
}
