package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartstore/pos/internal/domain"
	"smartstore/pos/internal/store"
)

func testTicket(number string) domain.Ticket {
	return domain.Ticket{
		TicketNumber:    number,
		TotalPriceCents: 4165,
		SubtotalCents:   3500,
		TaxCents:        665,
		PaymentMethod:   domain.PaymentMethodCash,
		PaymentCents:    5000,
		ChangeCents:     835,
		CustomerName:    domain.WalkInCustomer,
		Items: []domain.TicketLine{
			{Name: "Eau Minerale 1.5L", Quantity: 1, PriceCents: 3500, TotalCents: 3500},
		},
		Status: domain.TicketStatusCompleted,
	}
}

func TestCommitSaleDecrementsStock(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	saved, err := s.CommitSale(ctx, testTicket("TKT000001"), []domain.StockDecrement{{ProductID: 1, Quantity: 1}})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if saved.ID == 0 {
		t.Fatalf("expected assigned ticket id")
	}

	p, err := s.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Quantity != 119 {
		t.Fatalf("expected stock 119, got %d", p.Quantity)
	}
}

func TestCommitSaleIsAllOrNothing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	// Product 10 holds only 8 units; the whole commit must fail and product 1
	// must keep its stock.
	_, err := s.CommitSale(ctx, testTicket("TKT000001"), []domain.StockDecrement{
		{ProductID: 1, Quantity: 2},
		{ProductID: 10, Quantity: 9},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	p, err := s.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Quantity != 120 {
		t.Fatalf("failed commit must not decrement anything, got %d", p.Quantity)
	}
	if _, err := s.GetTicketByNumber(ctx, "TKT000001"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("failed commit must not persist the ticket, got %v", err)
	}
}

func TestCommitSaleDetectsNumberCollision(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CommitSale(ctx, testTicket("TKT000001"), []domain.StockDecrement{{ProductID: 1, Quantity: 1}}); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	_, err := s.CommitSale(ctx, testTicket("TKT000001"), []domain.StockDecrement{{ProductID: 1, Quantity: 1}})
	if !errors.Is(err, store.ErrTicketNumberCollision) {
		t.Fatalf("expected ErrTicketNumberCollision, got %v", err)
	}

	p, _ := s.GetProduct(ctx, 1)
	if p.Quantity != 119 {
		t.Fatalf("collision must not decrement again, got %d", p.Quantity)
	}
}

func TestNextTicketNumberSequence(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	first, err := s.NextTicketNumber(ctx)
	if err != nil {
		t.Fatalf("first number: %v", err)
	}
	second, err := s.NextTicketNumber(ctx)
	if err != nil {
		t.Fatalf("second number: %v", err)
	}
	if first != "TKT000001" || second != "TKT000002" {
		t.Fatalf("expected TKT000001/TKT000002, got %q/%q", first, second)
	}
}

func TestSearchRanksBarcodeThenNameMatches(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	byCode, err := s.SearchProducts(ctx, "6130000000022", 10)
	if err != nil {
		t.Fatalf("search by code: %v", err)
	}
	if len(byCode) == 0 || byCode[0].ID != 2 {
		t.Fatalf("expected exact barcode match first, got %+v", byCode)
	}

	if _, err := s.CreateProduct(ctx, domain.Product{Name: "Sucre", SellPriceCents: 100}); err != nil {
		t.Fatalf("create: %v", err)
	}
	ranked, err := s.SearchProducts(ctx, "sucre", 10)
	if err != nil {
		t.Fatalf("search by name: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(ranked))
	}
	if ranked[0].Name != "Sucre" || ranked[1].Name != "Sucre 1kg" {
		t.Fatalf("expected exact name before prefix match, got %q then %q", ranked[0].Name, ranked[1].Name)
	}

	substr, err := s.SearchProducts(ctx, "vert", 10)
	if err != nil {
		t.Fatalf("substring search: %v", err)
	}
	if len(substr) != 1 || substr[0].Name != "The Vert 100g" {
		t.Fatalf("expected substring match, got %+v", substr)
	}

	empty, err := s.SearchProducts(ctx, "   ", 10)
	if err != nil {
		t.Fatalf("empty search: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("blank term must match nothing, got %d", len(empty))
	}
}

func TestBarcodeSuggestions(t *testing.T) {
	s := NewSeeded()

	codes, err := s.BarcodeSuggestions(context.Background(), "6130000000", 3)
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(codes) != 3 {
		t.Fatalf("expected the limit of 3 suggestions, got %v", codes)
	}
	if codes[0] != "6130000000015" || codes[1] != "6130000000022" || codes[2] != "6130000000039" {
		t.Fatalf("expected sorted codes, got %v", codes)
	}

	none, err := s.BarcodeSuggestions(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("blank prefix: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("blank prefix must return nothing, got %v", none)
	}
}

func TestListLowStockSortsByQuantity(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CreateProduct(ctx, domain.Product{Name: "Allumettes", SellPriceCents: 500, Quantity: 3}); err != nil {
		t.Fatalf("create: %v", err)
	}

	low, err := s.ListLowStock(ctx, 10)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 2 {
		t.Fatalf("expected 2 low-stock products, got %d", len(low))
	}
	if low[0].Name != "Allumettes" || low[1].Name != "Jus d'Orange 1L" {
		t.Fatalf("expected quantity ascending order, got %q then %q", low[0].Name, low[1].Name)
	}
}

func TestVoidTicketOnlyOnce(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CommitSale(ctx, testTicket("TKT000001"), []domain.StockDecrement{{ProductID: 1, Quantity: 1}}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	voided, err := s.VoidTicket(ctx, "TKT000001")
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.Status != domain.TicketStatusVoided {
		t.Fatalf("expected Voided, got %q", voided.Status)
	}

	if _, err := s.VoidTicket(ctx, "TKT000001"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on second void, got %v", err)
	}
	if _, err := s.VoidTicket(ctx, "TKT999999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTicketRemovesFromListing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CommitSale(ctx, testTicket("TKT000001"), []domain.StockDecrement{{ProductID: 1, Quantity: 1}}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.DeleteTicket(ctx, "TKT000001"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tickets, err := s.ListTickets(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(tickets))
	}
	if err := s.DeleteTicket(ctx, "TKT000001"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateProductRejectsDuplicateBarcode(t *testing.T) {
	s := NewSeeded()

	_, err := s.CreateProduct(context.Background(), domain.Product{
		Name:           "Clone",
		SellPriceCents: 100,
		Barcode:        "6130000000015",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetDailyReportSkipsVoidedTickets(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CommitSale(ctx, testTicket("TKT000001"), []domain.StockDecrement{{ProductID: 1, Quantity: 1}}); err != nil {
		t.Fatalf("commit 1: %v", err)
	}
	if _, err := s.CommitSale(ctx, testTicket("TKT000002"), []domain.StockDecrement{{ProductID: 1, Quantity: 1}}); err != nil {
		t.Fatalf("commit 2: %v", err)
	}
	if _, err := s.VoidTicket(ctx, "TKT000002"); err != nil {
		t.Fatalf("void: %v", err)
	}

	report, err := s.GetDailyReport(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Transactions != 1 {
		t.Fatalf("expected 1 counted transaction, got %d", report.Transactions)
	}
	if report.TotalSalesCents != 4165 || report.TotalTaxCents != 665 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if len(report.ByPayment) != 1 || report.ByPayment[0].PaymentMethod != domain.PaymentMethodCash {
		t.Fatalf("unexpected payment breakdown: %+v", report.ByPayment)
	}
	if len(report.TopProducts) != 1 || report.TopProducts[0].Quantity != 1 {
		t.Fatalf("unexpected top products: %+v", report.TopProducts)
	}
}

func TestUserAccounts(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	admin, err := s.GetUserByUsername(ctx, "  Admin ")
	if err != nil {
		t.Fatalf("get admin: %v", err)
	}
	if admin.Role != "admin" || admin.ID != 1 {
		t.Fatalf("unexpected admin account: %+v", admin)
	}

	if _, err := s.CreateUser(ctx, domain.UserAccount{Username: "admin", Password: "x"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate username, got %v", err)
	}

	created, err := s.CreateUser(ctx, domain.UserAccount{Username: "Karim", Password: "hash"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Username != "karim" || created.Role != "cashier" || created.ID != 3 {
		t.Fatalf("unexpected created user: %+v", created)
	}

	at := time.Now().UTC()
	if err := s.TouchLastLogin(ctx, "karim", at); err != nil {
		t.Fatalf("touch last login: %v", err)
	}
	user, err := s.GetUserByUsername(ctx, "karim")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(at) {
		t.Fatalf("expected last login %v, got %v", at, user.LastLogin)
	}
}
