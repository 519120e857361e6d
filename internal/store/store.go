package store

import (
	"context"
	"errors"
	"time"

	"smartstore/pos/internal/domain"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrOutOfStock            = errors.New("out of stock")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrTicketNumberCollision = errors.New("ticket number collision")
	ErrInvalidInput          = errors.New("invalid input")
)

// Repository is the persistence boundary for the catalog, ticket, customer,
// settings and user tables. The checkout core never issues ad hoc queries;
// everything it needs is expressed here.
type Repository interface {
	// Catalog.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	// SearchProducts ranks results: exact barcode match first, exact name
	// match second, name prefix third, substring last, then by name.
	SearchProducts(ctx context.Context, term string, limit int) ([]domain.Product, error)
	BarcodeSuggestions(ctx context.Context, prefix string, limit int) ([]string, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	// DecrementStock applies a single conditional update (decrement only if
	// current stock >= qty) and returns ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, id int64, qty int) error
	ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error)

	// Tickets.
	NextTicketNumber(ctx context.Context) (string, error)
	// CommitSale persists the ticket and applies every stock decrement in one
	// transaction. Either all effects land or none do. A duplicate ticket
	// number surfaces as ErrTicketNumberCollision with nothing persisted; a
	// line that no longer has sufficient stock surfaces as
	// ErrInsufficientStock wrapped with the product name.
	CommitSale(ctx context.Context, ticket domain.Ticket, decrements []domain.StockDecrement) (*domain.Ticket, error)
	GetTicketByNumber(ctx context.Context, ticketNumber string) (*domain.Ticket, error)
	ListTickets(ctx context.Context, from time.Time, to time.Time) ([]domain.Ticket, error)
	VoidTicket(ctx context.Context, ticketNumber string) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, ticketNumber string) error

	// Reporting.
	GetDailyReport(ctx context.Context, day time.Time) (domain.DailyReport, error)
	SaveDailyReport(ctx context.Context, report domain.DailyReport) error

	// Customers.
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	AddCustomerPurchase(ctx context.Context, name string, amountCents int64) error

	// Settings.
	GetSettings(ctx context.Context) (domain.Settings, error)
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key string, value string) error

	// Users.
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	TouchLastLogin(ctx context.Context, username string, at time.Time) error
}
