package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"time"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain/model"
	"funnel-billing/internal/domain/ports/adapter"
	"funnel-billing/internal/infra/i18n"
)

const dateLayout = "January 2, 2006"

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

var _ adapter.Mailer = (*SMTPMailer)(nil)

// SMTPMailer renders HTML emails and sends each one once over SMTP.
type SMTPMailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	appURL string
	tr     *i18n.Translator
	tmpl   *template.Template
	send   sendFunc
}

// NewSMTPMailer uses the embedded English copy when tr is nil.
func NewSMTPMailer(cfg *config.MailConfig, tr *i18n.Translator) (*SMTPMailer, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, errors.New("mail host is empty")
	}
	if cfg.From == "" {
		return nil, errors.New("mail sender is empty")
	}
	if tr == nil {
		var err error
		if tr, err = i18n.NewTranslator(i18n.LocalesFS, i18n.DefaultLang); err != nil {
			return nil, err
		}
	}
	tmpl, err := parseTemplates(tr)
	if err != nil {
		return nil, err
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:   auth,
		from:   cfg.From,
		appURL: strings.TrimRight(cfg.AppURL, "/"),
		tr:     tr,
		tmpl:   tmpl,
		send:   smtp.SendMail,
	}, nil
}

func (m *SMTPMailer) SendPasswordSetup(ctx context.Context, acct *model.Account, setup adapter.PasswordSetup) error {
	link := m.appURL + "/set-password?token=" + url.QueryEscape(setup.Token)
	return m.deliver(ctx, acct.Email, tmplSetup, map[string]any{
		"Name":      displayName(acct),
		"Email":     acct.Email,
		"Link":      link,
		"ExpiresAt": setup.ExpiresAt.UTC().Format(dateLayout),
	})
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, acct *model.Account, tempPassword string) error {
	return m.deliver(ctx, acct.Email, tmplWelcome, map[string]any{
		"Name":     displayName(acct),
		"Email":    acct.Email,
		"Plan":     string(acct.Plan),
		"AppURL":   m.appURL,
		"Password": tempPassword,
	})
}

func (m *SMTPMailer) SendSubscriptionConfirmation(ctx context.Context, acct *model.Account, sub *model.Subscription) error {
	var end string
	if sub.EndDate != nil {
		end = sub.EndDate.UTC().Format(dateLayout)
	}
	return m.deliver(ctx, acct.Email, tmplConfirm, map[string]any{
		"Name":    displayName(acct),
		"Item":    sub.ItemType,
		"EndDate": end,
	})
}

func (m *SMTPMailer) SendAffiliateCongratulations(ctx context.Context, referrer *model.Account, payment *model.Payment) error {
	var release string
	if payment.CommissionReleaseAt != nil {
		release = payment.CommissionReleaseAt.UTC().Format(dateLayout)
	}
	return m.deliver(ctx, referrer.Email, tmplCommission, map[string]any{
		"Name":       displayName(referrer),
		"Commission": payment.CommissionAmount.StringFixed(2),
		"Currency":   strings.ToUpper(payment.Currency),
		"ReleaseAt":  release,
	})
}

func (m *SMTPMailer) deliver(ctx context.Context, to, name string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	subject := m.tr.T("mail." + name + ".subject")
	raw := buildMIME(m.from, to, subject, body.Bytes(), time.Now())
	if err := m.send(m.addr, m.auth, m.from, []string{to}, raw); err != nil {
		return fmt.Errorf("smtp send %s: %w", name, err)
	}
	return nil
}

func buildMIME(from, to, subject string, html []byte, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.Write(html)
	return b.Bytes()
}

func displayName(a *model.Account) string {
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return a.Username
}
