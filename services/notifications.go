package services

import (
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wanjiru/duka-backend/config"
	"github.com/wanjiru/duka-backend/models"
)

// Dispatcher is the collaborator the order workflow calls after commit.
// Implementations are best-effort: they never return an error to the
// caller, and a delivery failure must not affect the order.
type Dispatcher interface {
	OrderPlaced(order *models.Order)
}

// Notifier sends an SMS to the customer and an email to the shop admin
// for every placed order. Failures are logged and swallowed.
type Notifier struct {
	cfg    *config.Config
	log    *zap.Logger
	client *http.Client
}

func NewNotifier(cfg *config.Config, log *zap.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// OrderPlaced expects the order's Customer and Lines (with Product) to
// be loaded.
func (n *Notifier) OrderPlaced(order *models.Order) {
	if order.Customer.Phone != nil {
		msg := fmt.Sprintf("Hi %s, your order %s has been placed. Total: %s",
			order.Customer.FirstName, order.Code, order.Total.StringFixed(2))
		if err := n.sendSMS(*order.Customer.Phone, msg); err != nil {
			n.log.Warn("order SMS failed",
				zap.String("order_code", order.Code),
				zap.Error(err))
		}
	}

	if err := n.sendOrderEmail(order); err != nil {
		n.log.Warn("order email failed",
			zap.String("order_code", order.Code),
			zap.Error(err))
	}
}

// sendSMS posts to the Africa's Talking messaging endpoint.
func (n *Notifier) sendSMS(phone, message string) error {
	data := url.Values{}
	data.Set("username", n.cfg.ATUsername)
	data.Set("to", phone)
	data.Set("message", message)

	req, err := http.NewRequest(http.MethodPost, n.cfg.ATSMSUrl, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("apiKey", n.cfg.ATApiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(body))
	}
	n.log.Debug("sms gateway response", zap.String("body", string(body)))
	return nil
}

func (n *Notifier) sendOrderEmail(order *models.Order) error {
	if n.cfg.AdminEmail == "" || n.cfg.SMTPUser == "" {
		return fmt.Errorf("smtp not configured")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Order %s placed by %s %s (%s)\n",
		order.Code, order.Customer.FirstName, order.Customer.LastName, order.Customer.Email)
	fmt.Fprintf(&b, "Items:\n")
	for _, line := range order.Lines {
		fmt.Fprintf(&b, " - %s x %d @ %s\n", line.Product.Name, line.Quantity, line.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", order.Total.StringFixed(2))

	msg := "From: " + n.cfg.SMTPUser + "\n" +
		"To: " + n.cfg.AdminEmail + "\n" +
		"Subject: New order " + order.Code + " placed\n\n" +
		b.String()

	addr := n.cfg.SMTPHost + ":" + n.cfg.SMTPPort
	authn := smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)
	return smtp.SendMail(addr, authn, n.cfg.SMTPUser, []string{n.cfg.AdminEmail}, []byte(msg))
}
