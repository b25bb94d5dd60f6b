package tools

import (
	"context"
	"time"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/security"
	"github.com/toolrelay/toolrelay/internal/service"
)

type Searcher interface {
	Search(ctx context.Context, q service.SearchQuery) (*service.SearchResults, error)
}

type CRM interface {
	CreateContact(ctx context.Context, props map[string]any) (*service.CRMRecord, error)
	UpdateContact(ctx context.Context, id string, props map[string]any) (*service.CRMRecord, error)
	GetContact(ctx context.Context, id, email string) (*service.CRMRecord, error)
	CreateDeal(ctx context.Context, props map[string]any) (*service.CRMRecord, error)
	GetDeals(ctx context.Context, limit int) ([]service.CRMRecord, error)
	SearchContacts(ctx context.Context, email string, limit int) ([]service.CRMRecord, error)
	AssociateContactDeal(ctx context.Context, contactID, dealID string) error
}

type Enricher interface {
	EnrichPerson(ctx context.Context, email string) (*service.Person, error)
	EnrichCompany(ctx context.Context, domain string) (*service.Company, error)
}

type Calendar interface {
	CreateEvent(ctx context.Context, in service.EventInput) (*service.Event, error)
	ListEvents(ctx context.Context, timeMin, timeMax string, max int) ([]service.Event, error)
	UpdateEvent(ctx context.Context, id string, in service.EventInput) (*service.Event, error)
	FreeBusy(ctx context.Context, timeMin, timeMax string) ([]service.BusySlot, error)
}

type Messenger interface {
	SendSMS(ctx context.Context, to, from, body string) (*service.MessageReceipt, error)
	SendWhatsApp(ctx context.Context, to, from, body string) (*service.MessageReceipt, error)
	Call(ctx context.Context, to, from, twimlURL string) (*service.MessageReceipt, error)
}

type Mailer interface {
	Send(ctx context.Context, e service.Email) (*service.EmailReceipt, error)
}

type Payments interface {
	CreatePayment(ctx context.Context, in service.PaymentInput) (*service.Payment, error)
	CreateSubscription(ctx context.Context, customer, price string) (*service.Subscription, error)
	CreateInvoice(ctx context.Context, customer, description string, autoAdvance bool) (*service.Invoice, error)
	GetCustomer(ctx context.Context, id string) (*service.Customer, error)
	ListTransactions(ctx context.Context, customer string, limit int) ([]service.Transaction, error)
}

type DocStore interface {
	Create(ctx context.Context, in service.DocumentInput) (*service.Document, error)
	Read(ctx context.Context, id string) (*service.Document, error)
	Update(ctx context.Context, id string, in service.DocumentInput) (*service.Document, error)
	Search(ctx context.Context, query string, limit int) ([]service.Document, error)
	List(ctx context.Context, limit int) ([]service.Document, error)
}

type Poster interface {
	Post(ctx context.Context, content string, mediaURLs []string) (*service.PostReceipt, error)
}

// Deps carries every configured provider. A nil field or a missing map
// entry means the provider is not configured.
type Deps struct {
	SerpAPI      Searcher
	CustomSearch Searcher

	Databases    map[string]service.SQLDatabase
	SQLValidator *security.SQLValidator
	Masker       *security.DataMasker
	MaxRows      int

	CRMs      map[string]CRM
	Enrichers map[string]Enricher
	Calendars map[string]Calendar

	Twilio         Messenger
	TwilioPhone    string
	TwilioWhatsApp string

	Mailers  map[string]Mailer
	Payments Payments
	Docs     map[string]DocStore
	Posters  map[string]Poster

	Scheduler *Scheduler
	Audit     *security.AuditLogger
	Now       func() time.Time
}

// All returns the ten business tools in their advertised order.
func All(d Deps) []Tool {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return []Tool{
		WebSearchTool(d.SerpAPI, d.CustomSearch, now),
		DatabaseQueryTool(d.Databases, DatabaseOptions{
			Validator: d.SQLValidator,
			Masker:    d.Masker,
			MaxRows:   d.MaxRows,
			Audit:     d.Audit,
		}),
		CRMTool(d.CRMs),
		EnrichDataTool(d.Enrichers),
		CalendarTool(d.Calendars),
		TwilioTool(d.Twilio, d.TwilioPhone, d.TwilioWhatsApp),
		SendEmailTool(d.Mailers),
		StripeTool(d.Payments),
		DocsTool(d.Docs),
		SocialPostTool(d.Posters, d.Scheduler, now),
	}
}

// providers is the set of interchangeable backends behind one tool, with the
// credential keys each one needs.
type providers[T any] struct {
	order []string
	keys  map[string][]string
	impl  map[string]T
}

// gate fails when no backend at all is configured.
func (p providers[T]) gate() error {
	if len(p.impl) > 0 {
		return nil
	}
	groups := make([][]string, len(p.order))
	for i, name := range p.order {
		groups[i] = p.keys[name]
	}
	return result.NotConfiguredAny(groups...)
}

func (p providers[T]) get(name string) (T, error) {
	v, ok := p.impl[name]
	if !ok {
		var zero T
		return zero, result.NotConfigured(p.keys[name]...).With("provider", name)
	}
	return v, nil
}
