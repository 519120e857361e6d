package receipt

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"smartstore/pos/internal/domain"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		cents    int64
		currency string
		want     string
	}{
		{3500, "DA", "35.00 DA"},
		{595, "DA", "5.95 DA"},
		{5, "DA", "0.05 DA"},
		{0, "DA", "0.00 DA"},
		{-250, "DA", "-2.50 DA"},
		{100, "", "1.00 DA"},
		{100, "EUR", "1.00 EUR"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.cents, tc.currency); got != tc.want {
			t.Errorf("FormatAmount(%d, %q) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		TicketNumber:    "TKT000042",
		Date:            time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		TotalPriceCents: 595,
		SubtotalCents:   500,
		TaxCents:        95,
		PaymentMethod:   domain.PaymentMethodCash,
		PaymentCents:    1000,
		ChangeCents:     405,
		CustomerName:    domain.WalkInCustomer,
		Items: []domain.TicketLine{
			{Name: "Stylo Bleu", Quantity: 2, PriceCents: 250, TotalCents: 500},
		},
		Status: domain.TicketStatusCompleted,
	}
}

func sampleSettings() domain.Settings {
	return domain.Settings{
		domain.SettingStoreName:     "Smart Store",
		domain.SettingCurrency:      "DA",
		domain.SettingReceiptFooter: "Merci de votre visite!",
	}
}

func TestRenderPreview(t *testing.T) {
	rendered := Render(sampleTicket(), sampleSettings())

	if rendered.TicketNumber != "TKT000042" {
		t.Fatalf("unexpected ticket number %q", rendered.TicketNumber)
	}
	if rendered.FileName != "receipt-TKT000042.bin" {
		t.Fatalf("unexpected file name %q", rendered.FileName)
	}

	preview := rendered.PreviewText
	for _, want := range []string{
		"Smart Store",
		"Ticket: TKT000042",
		"Date:   2026-03-14 15:09:26",
		"Client: " + domain.WalkInCustomer,
		"Stylo Bleu x2",
		"5.95 DA",
		"4.05 DA",
		"Merci de votre visite!",
	} {
		if !strings.Contains(preview, want) {
			t.Errorf("preview missing %q:\n%s", want, preview)
		}
	}
	if strings.Contains(preview, "Discount") {
		t.Errorf("zero discount must not print a discount line:\n%s", preview)
	}
}

func TestRenderShowsNegativeDiscount(t *testing.T) {
	ticket := sampleTicket()
	ticket.DiscountCents = 100

	preview := Render(ticket, sampleSettings()).PreviewText
	if !strings.Contains(preview, "-1.00 DA") {
		t.Fatalf("expected discount shown as negative amount:\n%s", preview)
	}
}

func TestRenderEscposFraming(t *testing.T) {
	rendered := Render(sampleTicket(), sampleSettings())

	raw, err := base64.StdEncoding.DecodeString(rendered.EscposBase64)
	if err != nil {
		t.Fatalf("decode escpos payload: %v", err)
	}
	if len(raw) < 6 {
		t.Fatalf("payload too short: %d bytes", len(raw))
	}
	if raw[0] != 0x1b || raw[1] != 0x40 {
		t.Fatalf("expected ESC @ initialize, got % x", raw[:2])
	}
	tail := raw[len(raw)-4:]
	if tail[0] != 0x1d || tail[1] != 0x56 || tail[2] != 0x41 {
		t.Fatalf("expected partial cut trailer, got % x", tail)
	}
}
