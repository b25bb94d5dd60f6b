package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/toolrelay/toolrelay/internal/result"
)

// Email is one outbound transactional message.
type Email struct {
	From       string
	To         []string
	Subject    string
	Body       string
	TemplateID string
}

// EmailReceipt is what the provider reported after accepting a message.
type EmailReceipt struct {
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status"`
}

func isHTML(body string) bool {
	return strings.Contains(body, "<") && strings.Contains(body, ">")
}

// ─── SendGrid ─────────────────────────────────────────────────────────────────

type SendGrid struct {
	key  string
	host string
}

func NewSendGrid(key string, opts ...Option) *SendGrid {
	o := buildOptions("https://api.sendgrid.com", opts)
	return &SendGrid{key: key, host: o.baseURL}
}

func (s *SendGrid) Send(ctx context.Context, e Email) (*EmailReceipt, error) {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", e.From))
	m.Subject = e.Subject

	p := mail.NewPersonalization()
	for _, to := range e.To {
		p.AddTos(mail.NewEmail("", to))
	}
	m.AddPersonalizations(p)

	contentType := "text/plain"
	if isHTML(e.Body) {
		contentType = "text/html"
	}
	m.AddContent(mail.NewContent(contentType, e.Body))
	if e.TemplateID != "" {
		m.SetTemplateID(e.TemplateID)
	}

	req := sendgrid.GetRequest(s.key, "/v3/mail/send", s.host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, result.ProviderFailure("sendgrid", resp.StatusCode,
			fmt.Sprintf("sendgrid returned %d: %s", resp.StatusCode, errorText([]byte(resp.Body))))
	}

	out := &EmailReceipt{Status: "queued"}
	for k, v := range resp.Headers {
		if strings.EqualFold(k, "X-Message-Id") && len(v) > 0 {
			out.MessageID = v[0]
		}
	}
	return out, nil
}

// ─── Mailgun ──────────────────────────────────────────────────────────────────

type Mailgun struct {
	mg *mailgun.MailgunImpl
}

// NewMailgun sends from domain. apiBase selects the region, e.g.
// mailgun.APIBaseEU; empty keeps the US default.
func NewMailgun(domain, key, apiBase string, opts ...Option) *Mailgun {
	mg := mailgun.NewMailgun(domain, key)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	o := buildOptions(apiBase, opts)
	mg.SetClient(o.httpClient)
	return &Mailgun{mg: mg}
}

func (m *Mailgun) Send(ctx context.Context, e Email) (*EmailReceipt, error) {
	text := e.Body
	html := isHTML(e.Body)
	if html {
		text = ""
	}
	msg := m.mg.NewMessage(e.From, e.Subject, text, e.To...)
	if html {
		msg.SetHtml(e.Body)
	}
	if e.TemplateID != "" {
		msg.SetTemplate(e.TemplateID)
	}

	status, id, err := m.mg.Send(ctx, msg)
	if err != nil {
		var uerr *mailgun.UnexpectedResponseError
		if errors.As(err, &uerr) {
			return nil, result.ProviderFailure("mailgun", uerr.Actual,
				fmt.Sprintf("mailgun returned %d: %s", uerr.Actual, errorText(uerr.Data)))
		}
		return nil, fmt.Errorf("mailgun: %w", err)
	}
	return &EmailReceipt{MessageID: id, Status: status}, nil
}
