package tools_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/toolrelay/toolrelay/internal/service"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// counter is shared by every stub so a test can assert that no provider
// was reached at all.
type counter struct{ n atomic.Int64 }

func (c *counter) hit()        { c.n.Add(1) }
func (c *counter) Load() int64 { return c.n.Load() }

type searchStub struct {
	c   *counter
	res *service.SearchResults
	err error
}

func (s *searchStub) Search(context.Context, service.SearchQuery) (*service.SearchResults, error) {
	s.c.hit()
	return s.res, s.err
}

type dbStub struct {
	c       *counter
	res     *service.QueryResult
	err     error
	lastSQL string
}

func (d *dbStub) Query(_ context.Context, stmt string, _ []any, _ int) (*service.QueryResult, error) {
	d.c.hit()
	d.lastSQL = stmt
	return d.res, d.err
}
func (d *dbStub) TestConnection(context.Context) error { return nil }
func (d *dbStub) Close() error                         { return nil }

type crmStub struct {
	c          *counter
	associated [2]string
}

func (s *crmStub) rec(id string, props map[string]any) *service.CRMRecord {
	s.c.hit()
	return &service.CRMRecord{ID: id, Properties: props}
}
func (s *crmStub) CreateContact(_ context.Context, p map[string]any) (*service.CRMRecord, error) {
	return s.rec("c1", p), nil
}
func (s *crmStub) UpdateContact(_ context.Context, id string, p map[string]any) (*service.CRMRecord, error) {
	return s.rec(id, p), nil
}
func (s *crmStub) GetContact(_ context.Context, id, email string) (*service.CRMRecord, error) {
	return s.rec("c1", map[string]any{"email": email}), nil
}
func (s *crmStub) CreateDeal(_ context.Context, p map[string]any) (*service.CRMRecord, error) {
	return s.rec("d1", p), nil
}
func (s *crmStub) GetDeals(context.Context, int) ([]service.CRMRecord, error) {
	s.c.hit()
	return nil, nil
}
func (s *crmStub) SearchContacts(context.Context, string, int) ([]service.CRMRecord, error) {
	s.c.hit()
	return nil, nil
}
func (s *crmStub) AssociateContactDeal(_ context.Context, c, d string) error {
	s.c.hit()
	s.associated = [2]string{c, d}
	return nil
}

type enrichStub struct {
	c      *counter
	person *service.Person
}

func (s *enrichStub) EnrichPerson(context.Context, string) (*service.Person, error) {
	s.c.hit()
	return s.person, nil
}
func (s *enrichStub) EnrichCompany(_ context.Context, domain string) (*service.Company, error) {
	s.c.hit()
	return &service.Company{Domain: domain}, nil
}

type calendarStub struct{ c *counter }

func (s *calendarStub) CreateEvent(_ context.Context, in service.EventInput) (*service.Event, error) {
	s.c.hit()
	return &service.Event{ID: "e1", Summary: in.Summary}, nil
}
func (s *calendarStub) ListEvents(context.Context, string, string, int) ([]service.Event, error) {
	s.c.hit()
	return nil, nil
}
func (s *calendarStub) UpdateEvent(_ context.Context, id string, _ service.EventInput) (*service.Event, error) {
	s.c.hit()
	return &service.Event{ID: id}, nil
}
func (s *calendarStub) FreeBusy(context.Context, string, string) ([]service.BusySlot, error) {
	s.c.hit()
	return []service.BusySlot{{Start: "a", End: "b"}}, nil
}

type messengerStub struct{ c *counter }

func (s *messengerStub) receipt(ch, to, from string) *service.MessageReceipt {
	s.c.hit()
	return &service.MessageReceipt{SID: "SM1", Status: "queued", Channel: ch, To: to, From: from}
}
func (s *messengerStub) SendSMS(_ context.Context, to, from, _ string) (*service.MessageReceipt, error) {
	return s.receipt("sms", to, from), nil
}
func (s *messengerStub) SendWhatsApp(_ context.Context, to, from, _ string) (*service.MessageReceipt, error) {
	return s.receipt("whatsapp", to, from), nil
}
func (s *messengerStub) Call(_ context.Context, to, from, _ string) (*service.MessageReceipt, error) {
	return s.receipt("voice", to, from), nil
}

type mailerStub struct {
	c    *counter
	last service.Email
}

func (s *mailerStub) Send(_ context.Context, e service.Email) (*service.EmailReceipt, error) {
	s.c.hit()
	s.last = e
	return &service.EmailReceipt{MessageID: "m1", Status: "accepted"}, nil
}

type paymentsStub struct{ c *counter }

func (s *paymentsStub) CreatePayment(_ context.Context, in service.PaymentInput) (*service.Payment, error) {
	s.c.hit()
	return &service.Payment{ID: "pi_1", Amount: in.Amount, Currency: in.Currency}, nil
}
func (s *paymentsStub) CreateSubscription(_ context.Context, cus, _ string) (*service.Subscription, error) {
	s.c.hit()
	return &service.Subscription{ID: "sub_1", Customer: cus}, nil
}
func (s *paymentsStub) CreateInvoice(_ context.Context, cus, _ string, _ bool) (*service.Invoice, error) {
	s.c.hit()
	return &service.Invoice{ID: "in_1", Customer: cus}, nil
}
func (s *paymentsStub) GetCustomer(_ context.Context, id string) (*service.Customer, error) {
	s.c.hit()
	return &service.Customer{ID: id}, nil
}
func (s *paymentsStub) ListTransactions(context.Context, string, int) ([]service.Transaction, error) {
	s.c.hit()
	return nil, nil
}

type docStub struct{ c *counter }

func (s *docStub) Create(_ context.Context, in service.DocumentInput) (*service.Document, error) {
	s.c.hit()
	return &service.Document{ID: "doc1", Title: in.Title}, nil
}
func (s *docStub) Read(_ context.Context, id string) (*service.Document, error) {
	s.c.hit()
	return &service.Document{ID: id}, nil
}
func (s *docStub) Update(_ context.Context, id string, _ service.DocumentInput) (*service.Document, error) {
	s.c.hit()
	return &service.Document{ID: id}, nil
}
func (s *docStub) Search(context.Context, string, int) ([]service.Document, error) {
	s.c.hit()
	return nil, nil
}
func (s *docStub) List(context.Context, int) ([]service.Document, error) {
	s.c.hit()
	return nil, nil
}

type posterStub struct {
	c        *counter
	platform string
	posted   chan string
}

func (s *posterStub) Post(_ context.Context, content string, _ []string) (*service.PostReceipt, error) {
	s.c.hit()
	if s.posted != nil {
		s.posted <- content
	}
	return &service.PostReceipt{ID: "p1", Platform: s.platform}, nil
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fullDeps configures every provider with a stub sharing c.
func fullDeps(c *counter) tools.Deps {
	return tools.Deps{
		SerpAPI:      &searchStub{c: c, res: &service.SearchResults{Provider: "serpapi"}},
		CustomSearch: &searchStub{c: c, res: &service.SearchResults{Provider: "google_custom_search"}},
		Databases: map[string]service.SQLDatabase{
			"default":  &dbStub{c: c, res: &service.QueryResult{}},
			"bigquery": &dbStub{c: c, res: &service.QueryResult{}},
		},
		CRMs:      map[string]tools.CRM{"hubspot": &crmStub{c: c}, "salesforce": &crmStub{c: c}},
		Enrichers: map[string]tools.Enricher{"clearbit": &enrichStub{c: c}, "people_data_labs": &enrichStub{c: c}},
		Calendars: map[string]tools.Calendar{"google": &calendarStub{c: c}, "outlook": &calendarStub{c: c}},
		Twilio:    &messengerStub{c: c}, TwilioPhone: "+15550000", TwilioWhatsApp: "+15550001",
		Mailers:   map[string]tools.Mailer{"sendgrid": &mailerStub{c: c}, "mailgun": &mailerStub{c: c}},
		Payments:  &paymentsStub{c: c},
		Docs: map[string]tools.DocStore{
			"notion": &docStub{c: c}, "google_drive": &docStub{c: c}, "elasticsearch": &docStub{c: c},
		},
		Posters: map[string]tools.Poster{
			"linkedin": &posterStub{c: c, platform: "linkedin"},
			"twitter":  &posterStub{c: c, platform: "twitter"},
		},
		Now: func() time.Time { return fixedNow },
	}
}

func newDispatcher(d tools.Deps, opts ...tools.Option) *tools.Dispatcher {
	return tools.NewDispatcher(tools.NewRegistry(tools.All(d)...), opts...)
}
