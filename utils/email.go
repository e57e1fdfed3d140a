package utils

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"ecommerce-backend/config"
	"ecommerce-backend/models"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// SMTPMailer sends transactional e-mail through an SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
	log zerolog.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, log zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log.With().Str("component", "mailer").Logger()}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.cfg.Enabled() {
		return fmt.Errorf("SMTP not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	switch m.cfg.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}
	return opts
}

// SendOrderConfirmation mails the buyer a summary of a completed order.
func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, buyer *models.User, order *models.Order) error {
	subject, body := OrderConfirmationEmail(buyer, order)
	return m.Send(ctx, buyer.Email, subject, body)
}

func OrderConfirmationEmail(buyer *models.User, order *models.Order) (string, string) {
	ref := strings.ToUpper(order.ID.String()[:8])
	subject := fmt.Sprintf("Order Confirmed - %s", ref)

	var rows strings.Builder
	for _, item := range order.Products {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%d</td><td>₹%s</td></tr>\n",
			html.EscapeString(item.Name), item.Quantity, models.LineTotal(item.Price, item.Quantity).StringFixed(2))
	}

	body := fmt.Sprintf(`<h2>Order Confirmed!</h2>
<p>Hi %s,</p>
<p>Your order <strong>%s</strong> has been placed successfully.</p>
<table>
<tr><th>Item</th><th>Qty</th><th>Amount</th></tr>
%s</table>
<p>Order total: <strong>₹%s</strong></p>
<p>Payment reference: %s</p>`,
		html.EscapeString(firstName(buyer.Name)), ref, rows.String(),
		order.TotalAmount.StringFixed(2), html.EscapeString(order.Payment.GatewayPaymentID))
	return subject, body
}

func firstName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "there"
	}
	return parts[0]
}
