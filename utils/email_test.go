package utils

import (
	"context"
	"strings"
	"testing"

	"ecommerce-backend/config"
	"ecommerce-backend/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestOrderConfirmationEmail(t *testing.T) {
	order := &models.Order{
		ID:          uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000000"),
		TotalAmount: decimal.NewFromInt(800),
		Payment:     models.PaymentDetails{GatewayPaymentID: "pay_1"},
		Products: []models.OrderItem{
			{Name: "Kettle", Quantity: 1, Price: decimal.NewFromInt(500)},
			{Name: "<Toaster>", Quantity: 1, Price: decimal.NewFromInt(300)},
		},
	}
	buyer := &models.User{Name: "Asha Rao", Email: "asha@example.com"}

	subject, body := OrderConfirmationEmail(buyer, order)
	if subject != "Order Confirmed - 3F2A9C1E" {
		t.Errorf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Hi Asha,", "₹800.00", "₹500.00", "&lt;Toaster&gt;", "pay_1"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestSendWithoutSMTP(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{}, zerolog.Nop())
	if err := m.Send(context.Background(), "a@example.com", "hi", "<p>hi</p>"); err == nil {
		t.Fatal("expected error when SMTP is not configured")
	}
}

func TestFirstName(t *testing.T) {
	if got := firstName("  "); got != "there" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := firstName("Ravi Kumar"); got != "Ravi" {
		t.Errorf("expected Ravi, got %q", got)
	}
}
