// Package email delivers transactional mail. The provider is chosen by
// configuration: smtp sends through gomail, demo logs the message and
// sends nothing, which keeps development setups working without a mail
// account. Sends run on a worker pool and never block the caller.
package email

import (
	"bytes"
	"text/template"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/talkincode/eazybuy/config"
	"github.com/talkincode/eazybuy/internal/domain"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Message is one outbound mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message synchronously.
type Sender interface {
	Send(m *Message) error
}

// SmtpSender delivers through an SMTP relay.
type SmtpSender struct {
	cfg config.SmtpConfig
}

func (s *SmtpSender) Send(m *Message) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return dialer.DialAndSend(msg)
}

// DemoSender logs the message instead of sending it.
type DemoSender struct{}

func (s *DemoSender) Send(m *Message) error {
	zap.L().Info("demo mode email",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("body", m.Body))
	return nil
}

// Service renders templates and dispatches messages on a worker pool.
type Service struct {
	sender Sender
	pool   *ants.Pool
}

func NewService(cfg config.SmtpConfig) (*Service, error) {
	pool, err := ants.NewPool(8, ants.WithNonblocking(false))
	if err != nil {
		return nil, errors.Wrap(err, "email worker pool")
	}
	var sender Sender
	switch cfg.Provider {
	case "smtp":
		sender = &SmtpSender{cfg: cfg}
	default:
		sender = &DemoSender{}
	}
	return &Service{sender: sender, pool: pool}, nil
}

// NewServiceWithSender is used by tests to observe deliveries.
func NewServiceWithSender(sender Sender) (*Service, error) {
	pool, err := ants.NewPool(2)
	if err != nil {
		return nil, err
	}
	return &Service{sender: sender, pool: pool}, nil
}

func (s *Service) Close() {
	s.pool.Release()
}

// dispatch queues m for delivery; failures are logged, never returned,
// so a broken relay cannot block checkout.
func (s *Service) dispatch(m *Message) {
	err := s.pool.Submit(func() {
		if err := s.sender.Send(m); err != nil {
			zap.L().Error("email send failed",
				zap.String("to", m.To),
				zap.String("subject", m.Subject),
				zap.Error(err))
		}
	})
	if err != nil {
		zap.L().Error("email dispatch failed", zap.Error(err))
	}
}

var orderConfirmationTmpl = template.Must(template.New("order").Parse(
	`Hi {{.Name}},

Thanks for your order {{.OrderNo}}!

{{range .Items}}  {{.Quantity}} x {{.Name}} - ${{printf "%.2f" .Price}}
{{end}}
Subtotal:  ${{printf "%.2f" .Subtotal}}
Discount: -${{printf "%.2f" .DiscountTotal}}
Shipping:  ${{printf "%.2f" .Shipping}}
Tax:       ${{printf "%.2f" .Tax}}
Total:     ${{printf "%.2f" .Total}}

We'll let you know when it ships.
`))

// SendOrderConfirmation queues the order receipt.
func (s *Service) SendOrderConfirmation(order *domain.Order, name string) {
	var buf bytes.Buffer
	err := orderConfirmationTmpl.Execute(&buf, struct {
		Name string
		*domain.Order
	}{Name: name, Order: order})
	if err != nil {
		zap.L().Error("failed to render order confirmation", zap.Error(err))
		return
	}
	s.dispatch(&Message{
		To:      order.Email,
		Subject: "Your order " + order.OrderNo,
		Body:    buf.String(),
	})
}

var passwordResetTmpl = template.Must(template.New("reset").Parse(
	`Hi {{.Name}},

We received a request to reset your password. Use the token below within
the next hour:

    {{.Token}}

If you didn't request this, you can safely ignore this email.
`))

// SendPasswordReset queues a password reset token mail.
func (s *Service) SendPasswordReset(to, name, token string) {
	var buf bytes.Buffer
	if err := passwordResetTmpl.Execute(&buf, struct{ Name, Token string }{name, token}); err != nil {
		zap.L().Error("failed to render password reset", zap.Error(err))
		return
	}
	s.dispatch(&Message{To: to, Subject: "Reset your password", Body: buf.String()})
}

var verificationTmpl = template.Must(template.New("verify").Parse(
	`Hi {{.Name}},

Welcome! Confirm your email address with the token below:

    {{.Token}}
`))

// SendVerification queues an address verification mail.
func (s *Service) SendVerification(to, name, token string) {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, struct{ Name, Token string }{name, token}); err != nil {
		zap.L().Error("failed to render verification", zap.Error(err))
		return
	}
	s.dispatch(&Message{To: to, Subject: "Verify your email", Body: buf.String()})
}
