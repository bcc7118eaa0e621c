package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"copytrade-subscription/internal/config"
	"copytrade-subscription/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*SMTPMailer)(nil)

// SMTPMailer sends lifecycle notifications over plain SMTP with STARTTLS
// handled by the server negotiation in net/smtp. With no host configured it
// logs the message instead of sending, so dev environments need no relay.
type SMTPMailer struct {
	cfg  *config.SMTPConfig
	tpl  *template.Template
	log  *zerolog.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg *config.SMTPConfig, logger *zerolog.Logger) *SMTPMailer {
	compLog := logger.With().Str("component", "SMTPMailer").Logger()
	return &SMTPMailer{
		cfg:  cfg,
		tpl:  template.Must(template.New("mail").Parse(mailTemplate)),
		log:  &compLog,
		send: smtp.SendMail,
	}
}

type mailData struct {
	Title   string
	Lines   []string
	AppName string
	Year    int
}

const mailTemplate = `<!doctype html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family:Arial,sans-serif;color:#1e293b;">
  <div style="max-width:600px;margin:0 auto;padding:24px;">
    <h2>{{.Title}}</h2>
    {{range .Lines}}<p>{{.}}</p>{{end}}
    <p style="color:#94a3b8;font-size:12px;">&copy; {{.Year}} {{.AppName}}</p>
  </div>
</body>
</html>`

func (m *SMTPMailer) SendPaymentCompleted(ctx context.Context, to, strategyName string, amount float64) error {
	return m.deliver(ctx, to, "Payment approved", []string{
		fmt.Sprintf("Your payment of %.2f USDT for %s has been approved.", amount, strategyName),
		"Copy trading will be activated on your broker account shortly.",
	})
}

func (m *SMTPMailer) SendPaymentRejected(ctx context.Context, to, strategyName, reason string) error {
	return m.deliver(ctx, to, "Payment rejected", []string{
		fmt.Sprintf("Your payment for %s was rejected.", strategyName),
		"Reason: " + reason,
		"You can start a new checkout at any time.",
	})
}

func (m *SMTPMailer) SendRenewalReminder(ctx context.Context, to, strategyName string, expiresAt time.Time) error {
	return m.deliver(ctx, to, "Subscription expiring soon", []string{
		fmt.Sprintf("Your subscription to %s expires on %s.", strategyName, expiresAt.Format("02 Jan 2006")),
		"Renew now to keep copy trading active.",
	})
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject string, lines []string) error {
	if m.cfg.Host == "" {
		m.log.Info().Str("to", to).Str("subject", subject).Msg("mail relay not configured, skipping send")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := m.tpl.Execute(&body, mailData{
		Title:   subject,
		Lines:   lines,
		AppName: m.cfg.FromName,
		Year:    time.Now().Year(),
	}); err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
