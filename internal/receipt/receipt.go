// Package receipt renders tickets for display and for ESC/POS thermal
// printers. Amounts are stored as integer cents; decimal handles the
// two-place display conversion.
package receipt

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"smartstore/pos/internal/domain"
)

const lineWidth = 32

// Rendered carries both the plain-text preview and the raw printer bytes.
type Rendered struct {
	TicketNumber string `json:"ticket_number"`
	PreviewText  string `json:"preview_text"`
	EscposBase64 string `json:"escpos_base64"`
	FileName     string `json:"file_name"`
}

// FormatAmount converts cents to a two-decimal string with the currency
// code, e.g. 3500 -> "35.00 DA".
func FormatAmount(cents int64, currency string) string {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	amount := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
	return amount.StringFixed(2) + " " + currency
}

// Render builds the receipt for a ticket using the store settings for the
// header, footer and currency.
func Render(ticket domain.Ticket, settings domain.Settings) Rendered {
	currency := settings[domain.SettingCurrency]

	lines := make([]string, 0, 24+len(ticket.Items)*2)
	if name := settings[domain.SettingStoreName]; name != "" {
		lines = append(lines, center(name))
	}
	if addr := settings[domain.SettingStoreAddress]; addr != "" {
		lines = append(lines, center(addr))
	}
	if phone := settings[domain.SettingStorePhone]; phone != "" {
		lines = append(lines, center(phone))
	}
	lines = append(lines,
		strings.Repeat("=", lineWidth),
		"Ticket: "+ticket.TicketNumber,
		"Date:   "+ticket.Date.Format("2006-01-02 15:04:05"),
		"Client: "+ticket.CustomerName,
		strings.Repeat("-", lineWidth),
	)

	for _, item := range ticket.Items {
		lines = append(lines, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		lines = append(lines, rightAlign(FormatAmount(item.TotalCents, currency)))
	}

	lines = append(lines, strings.Repeat("-", lineWidth))
	lines = append(lines, moneyLine("Subtotal", ticket.SubtotalCents, currency))
	if ticket.DiscountCents > 0 {
		lines = append(lines, moneyLine("Discount", -ticket.DiscountCents, currency))
	}
	lines = append(lines,
		moneyLine("Tax", ticket.TaxCents, currency),
		moneyLine("TOTAL", ticket.TotalPriceCents, currency),
		moneyLine("Paid", ticket.PaymentCents, currency),
		moneyLine("Change", ticket.ChangeCents, currency),
		strings.Repeat("=", lineWidth),
	)
	if footer := settings[domain.SettingReceiptFooter]; footer != "" {
		lines = append(lines, center(footer))
	}
	lines = append(lines, "")

	// ESC/POS: initialize, body, partial cut.
	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return Rendered{
		TicketNumber: ticket.TicketNumber,
		PreviewText:  strings.Join(lines, "\n"),
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		FileName:     fmt.Sprintf("receipt-%s.bin", ticket.TicketNumber),
	}
}

func moneyLine(label string, cents int64, currency string) string {
	amount := FormatAmount(cents, currency)
	pad := lineWidth - len(label) - len(amount)
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + amount
}

func rightAlign(s string) string {
	if len(s) >= lineWidth {
		return s
	}
	return strings.Repeat(" ", lineWidth-len(s)) + s
}

func center(s string) string {
	if len(s) >= lineWidth {
		return s
	}
	pad := (lineWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
