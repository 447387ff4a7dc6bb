package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/crm-service/internal/config"
)

// Message is one outbound e-mail.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a gomail message.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	sender Sender
	from   string
}

// NewSMTPMailer returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return NewMailer(gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword), cfg.EmailFrom)
}

// NewMailer wraps an arbitrary sender.
func NewMailer(sender Sender, from string) *SMTPMailer {
	return &SMTPMailer{sender: sender, from: from}
}

// Send delivers msg. The context is only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)
	if err := m.sender.DialAndSend(gm); err != nil {
		return fmt.Errorf("send smtp mail to %s: %w", msg.To, err)
	}
	return nil
}

// EscalationData fills the case escalation template.
type EscalationData struct {
	RecipientName string
	CaseNumber    string
	Subject       string
	Trigger       string
	SLADueDate    time.Time
}

var escalationTemplate = template.Must(template.New("escalation").Parse(`<p>Hello {{.RecipientName}},</p>
<p>Case <strong>{{.CaseNumber}}</strong> ({{.Subject}}) was escalated{{if eq .Trigger "sla"}} because its SLA deadline of {{.SLADueDate.UTC.Format "2006-01-02 15:04 MST"}} passed{{end}}.</p>
<p>Please review it as soon as possible.</p>`))

// EscalationMessage renders the escalation notice for one recipient.
func EscalationMessage(to string, data EscalationData) (Message, error) {
	var body bytes.Buffer
	if err := escalationTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render escalation mail: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Case %s escalated", data.CaseNumber),
		HTML:    body.String(),
	}, nil
}
