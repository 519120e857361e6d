package domain

import "time"

// Product is the single mutable source of truth for current price and stock.
type Product struct {
	ID             int64     `json:"id"`
	Barcode        string    `json:"barcode,omitempty"`
	Name           string    `json:"name"`
	BuyPriceCents  int64     `json:"buy_price_cents"`
	SellPriceCents int64     `json:"sell_price_cents"`
	Quantity       int       `json:"quantity"`
	Category       string    `json:"category"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Sellable reports whether the product can be added to a cart at all.
// Legacy rows with negative stock count as out of stock.
func (p Product) Sellable() bool {
	return p.Quantity > 0
}

type ProductCreateRequest struct {
	Barcode        string `json:"barcode"`
	Name           string `json:"name"`
	BuyPriceCents  int64  `json:"buy_price_cents"`
	SellPriceCents int64  `json:"sell_price_cents"`
	Quantity       int    `json:"quantity"`
	Category       string `json:"category"`
}

type ProductUpdateRequest struct {
	Barcode        *string `json:"barcode,omitempty"`
	Name           *string `json:"name,omitempty"`
	BuyPriceCents  *int64  `json:"buy_price_cents,omitempty"`
	SellPriceCents *int64  `json:"sell_price_cents,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
	Category       *string `json:"category,omitempty"`
}

type Customer struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone,omitempty"`
	Email              string    `json:"email,omitempty"`
	Address            string    `json:"address,omitempty"`
	TotalPurchaseCents int64     `json:"total_purchases_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// TicketLine is one line of a ticket's immutable item snapshot. The JSON
// field names (name/quantity/price/total) are the durable format reporting
// tools read from the tickets.items column; do not rename them.
type TicketLine struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price"`
	TotalCents int64  `json:"total"`
}

// Ticket is the immutable record of one completed sale. Items are a
// denormalized snapshot so historical tickets survive catalog edits.
type Ticket struct {
	ID              int64        `json:"id"`
	TicketNumber    string       `json:"ticket_number"`
	Date            time.Time    `json:"date"`
	TotalPriceCents int64        `json:"total_price_cents"`
	SubtotalCents   int64        `json:"subtotal_cents"`
	TaxCents        int64        `json:"tax_cents"`
	DiscountCents   int64        `json:"discount_cents"`
	PaymentMethod   string       `json:"payment_method"`
	PaymentCents    int64        `json:"payment_cents"`
	ChangeCents     int64        `json:"change_cents"`
	CustomerName    string       `json:"customer_name"`
	Items           []TicketLine `json:"items"`
	Status          string       `json:"status"`
	CashierID       int64        `json:"cashier_id"`
}

const (
	TicketStatusCompleted = "Completed"
	TicketStatusVoided    = "Voided"
)

const (
	PaymentMethodCash = "Cash"
	PaymentMethodCard = "Card"
)

// WalkInCustomer is the sentinel customer name for anonymous sales.
const WalkInCustomer = "Walk-in Customer"

const DefaultCategory = "General"

// Totals is the derived money breakdown of a cart.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// StockDecrement is one conditional stock adjustment applied at commit time.
type StockDecrement struct {
	ProductID int64
	Quantity  int
}

type CheckoutLineRequest struct {
	ProductID int64  `json:"product_id,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	Quantity  int    `json:"quantity"`
}

type CheckoutRequest struct {
	Lines         []CheckoutLineRequest `json:"lines"`
	CustomerName  string                `json:"customer_name"`
	DiscountCents int64                 `json:"discount_cents"`
	PaymentCents  int64                 `json:"payment_cents"`
	PaymentMethod string                `json:"payment_method"`
}

type CheckoutResponse struct {
	Ticket      Ticket `json:"ticket"`
	ChangeCents int64  `json:"change_cents"`
}

// Settings is the flat key->string store configuration map.
type Settings map[string]string

const (
	SettingStoreName         = "store_name"
	SettingStoreAddress      = "store_address"
	SettingStorePhone        = "store_phone"
	SettingStoreEmail        = "store_email"
	SettingCurrency          = "currency"
	SettingTaxRate           = "tax_rate"
	SettingReceiptFooter     = "receipt_footer"
	SettingLowStockThreshold = "low_stock_threshold"
)

const (
	DefaultTaxRatePercent    = 19
	DefaultLowStockThreshold = 10
	DefaultCurrency          = "DA"
)

// UserAccount is the persistence model for login credentials.
type UserAccount struct {
	ID        int64
	Username  string
	Password  string
	Role      string
	FullName  string
	Email     string
	CreatedAt time.Time
	LastLogin *time.Time
}

type Actor struct {
	UserID   int64
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type CashierUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyReport aggregates completed tickets for one calendar day.
type DailyReport struct {
	Date               string              `json:"date"`
	TotalSalesCents    int64               `json:"total_sales_cents"`
	TotalTaxCents      int64               `json:"total_tax_cents"`
	TotalDiscountCents int64               `json:"total_discount_cents"`
	Transactions       int64               `json:"transactions"`
	ItemsSold          int64               `json:"items_sold"`
	ByPayment          []PaymentBreakdown  `json:"by_payment"`
	TopProducts        []ProductSalesCount `json:"top_products"`
}

type PaymentBreakdown struct {
	PaymentMethod string `json:"payment_method"`
	Transactions  int64  `json:"transactions"`
	TotalCents    int64  `json:"total_cents"`
}

type ProductSalesCount struct {
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	TotalCents int64  `json:"total_cents"`
}

// LowStockAlert flags a product at or below the configured threshold.
// Informational only; it never blocks a sale.
type LowStockAlert struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}
