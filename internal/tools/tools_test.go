package tools_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/security"
	"github.com/toolrelay/toolrelay/internal/service"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// validCalls holds one minimal successful call per tool.
var validCalls = map[string]map[string]any{
	"web_search":           {"query": "acme"},
	"database_query":       {"query": "SELECT 1"},
	"crm_operation":        {"crm": "hubspot", "operation": "get_deals", "data": map[string]any{}},
	"enrich_data":          {"provider": "clearbit", "type": "company", "identifier": "acme.com"},
	"calendar_operation":   {"provider": "google", "action": "get_events"},
	"twilio_communication": {"channel": "sms", "to": "+15551234", "message": "hi"},
	"send_email":           {"to": "a@acme.test", "from": "ops@acme.test", "subject": "s", "body": "b"},
	"stripe_operation":     {"operation": "list_transactions", "data": map[string]any{}},
	"docs_operation":       {"provider": "notion", "action": "list", "data": map[string]any{}},
	"social_media_post":    {"platform": "twitter", "content": "hello"},
}

func without(m map[string]any, key string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func TestEveryToolHasAValidCall(t *testing.T) {
	reg := tools.NewRegistry(tools.All(tools.Deps{})...)
	for _, name := range reg.Names() {
		if _, ok := validCalls[name]; !ok {
			t.Errorf("no valid call for %s", name)
		}
	}
}

func TestValidCallsSucceed(t *testing.T) {
	for name, input := range validCalls {
		t.Run(name, func(t *testing.T) {
			c := &counter{}
			res := newDispatcher(fullDeps(c)).Call(context.Background(), name, input)
			if !res.OK() {
				t.Fatalf("envelope = %v", res.Envelope())
			}
			if c.Load() == 0 {
				t.Error("no provider was called")
			}
		})
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	reg := tools.NewRegistry(tools.All(tools.Deps{})...)
	for _, desc := range reg.List() {
		for _, field := range desc.InputSchema.Required {
			t.Run(desc.Name+"/"+field, func(t *testing.T) {
				c := &counter{}
				res := newDispatcher(fullDeps(c)).Call(context.Background(), desc.Name, without(validCalls[desc.Name], field))
				if res.OK() || res.Err().Kind != result.KindInvalidArgument {
					t.Fatalf("envelope = %v", res.Envelope())
				}
				if c.Load() != 0 {
					t.Errorf("provider called %d times", c.Load())
				}
			})
		}
	}
}

func TestUnconfiguredToolsReportKeys(t *testing.T) {
	tests := []struct {
		tool string
		key  string
	}{
		{"database_query", "DATABASE_URL"},
		{"crm_operation", "HUBSPOT_PRIVATE_APP_ACCESS_TOKEN"},
		{"enrich_data", "CLEARBIT_KEY"},
		{"calendar_operation", "GOOGLE_CALENDAR_CREDENTIALS"},
		{"twilio_communication", "TWILIO_ACCOUNT_SID"},
		{"send_email", "SENDGRID_KEY"},
		{"stripe_operation", "STRIPE_KEY"},
		{"docs_operation", "NOTION_KEY"},
		{"social_media_post", "TWITTER_BEARER_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			res := newDispatcher(tools.Deps{}).Call(context.Background(), tt.tool, validCalls[tt.tool])
			if res.OK() || res.Err().Kind != result.KindNotConfigured {
				t.Fatalf("envelope = %v", res.Envelope())
			}
			if !strings.Contains(res.Err().Message, tt.key) {
				t.Errorf("message %q does not name %s", res.Err().Message, tt.key)
			}
		})
	}
}

func TestSelectedProviderNotConfigured(t *testing.T) {
	c := &counter{}
	d := fullDeps(c)
	delete(d.CRMs, "salesforce")

	res := newDispatcher(d).Call(context.Background(), "crm_operation", map[string]any{
		"crm": "salesforce", "operation": "get_deals", "data": map[string]any{},
	})
	if res.OK() || res.Err().Kind != result.KindNotConfigured {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	if want := "not configured: set SALESFORCE_TOKEN and SALESFORCE_DOMAIN"; res.Err().Message != want {
		t.Errorf("message = %q", res.Err().Message)
	}
}

func TestSelectorCheckedBeforeProvider(t *testing.T) {
	d := fullDeps(&counter{})
	delete(d.CRMs, "salesforce")
	res := newDispatcher(d).Call(context.Background(), "crm_operation", map[string]any{
		"crm": "pipedrive", "operation": "get_deals", "data": map[string]any{},
	})
	if res.OK() || res.Err().Kind != result.KindInvalidArgument {
		t.Fatalf("envelope = %v", res.Envelope())
	}
}

func TestCRMGetContactNeedsIDOrEmail(t *testing.T) {
	c := &counter{}
	res := newDispatcher(fullDeps(c)).Call(context.Background(), "crm_operation", map[string]any{
		"crm": "hubspot", "operation": "get_contact", "data": map[string]any{},
	})
	if res.OK() || res.Err().Kind != result.KindInvalidArgument {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	msg := res.Err().Message
	if !strings.Contains(msg, "id") || !strings.Contains(msg, "email") {
		t.Errorf("message %q should name id and email", msg)
	}
	if c.Load() != 0 {
		t.Errorf("provider called %d times", c.Load())
	}
}

func TestCRMCreateDealAssociatesContact(t *testing.T) {
	c := &counter{}
	d := fullDeps(c)
	hub := d.CRMs["hubspot"].(*crmStub)

	res := newDispatcher(d).Call(context.Background(), "crm_operation", map[string]any{
		"crm": "hubspot", "operation": "create_deal",
		"data": map[string]any{"dealname": "Renewal", "amount": 1500, "contact_id": "c9"},
	})
	if !res.OK() {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	if hub.associated != [2]string{"c9", "d1"} {
		t.Errorf("associated = %v", hub.associated)
	}
	deal := res.Payload()["deal"].(*service.CRMRecord)
	if _, leaked := deal.Properties["contact_id"]; leaked {
		t.Error("contact_id should not be sent as a deal property")
	}
}

func TestEnrichNotFound(t *testing.T) {
	d := fullDeps(&counter{})
	res := newDispatcher(d).Call(context.Background(), "enrich_data", map[string]any{
		"provider": "people_data_labs", "type": "person", "identifier": "nobody@acme.test",
	})
	if !res.OK() || res.Payload()["found"] != false {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	if _, ok := res.Payload()["data"]; ok {
		t.Error("data should be absent when not found")
	}
}

func TestEnrichCompanyNormalizesDomain(t *testing.T) {
	res := newDispatcher(fullDeps(&counter{})).Call(context.Background(), "enrich_data", map[string]any{
		"provider": "clearbit", "type": "company", "identifier": "https://www.Acme.com/about",
	})
	co := res.Payload()["data"].(*service.Company)
	if co.Domain != "acme.com" {
		t.Errorf("domain = %q", co.Domain)
	}
}

func TestDatabaseQueryRejectsWrites(t *testing.T) {
	c := &counter{}
	res := newDispatcher(fullDeps(c)).Call(context.Background(), "database_query", map[string]any{
		"query": "DROP TABLE users",
	})
	if res.OK() || res.Err().Kind != result.KindInvalidArgument {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	if c.Load() != 0 {
		t.Error("query reached the database")
	}
}

func TestDatabaseQueryKeepsRowsBehindCTE(t *testing.T) {
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "crm.db")
	rw, err := service.OpenDatabase(ctx, url, false)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer rw.Close()
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
		`INSERT INTO users (name) VALUES ('ada'), ('bob'), ('cy')`,
	} {
		if _, err := rw.Query(ctx, stmt, nil, 10); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	ro, err := service.OpenDatabase(ctx, url, true)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer ro.Close()

	tests := []struct {
		name      string
		validator *security.SQLValidator
		wantKind  result.Kind
	}{
		{"validator", security.NewSQLValidator(false), result.KindInvalidArgument},
		{"database", security.NewSQLValidator(true), result.KindProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := fullDeps(&counter{})
			d.Databases["default"] = ro
			d.SQLValidator = tt.validator

			res := newDispatcher(d).Call(ctx, "database_query", map[string]any{
				"query": "WITH x AS (SELECT 1) DELETE FROM users",
			})
			if res.OK() || res.Err().Kind != tt.wantKind {
				t.Fatalf("envelope = %v", res.Envelope())
			}

			count, err := rw.Query(ctx, `SELECT COUNT(*) AS n FROM users`, nil, 10)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if n := count.Rows[0]["n"]; n != int64(3) {
				t.Errorf("rows left = %v, want 3", n)
			}
		})
	}
}

func TestDatabaseQueryMasksRows(t *testing.T) {
	c := &counter{}
	d := fullDeps(c)
	d.Masker = security.NewDataMasker(nil)
	d.Databases["default"] = &dbStub{c: c, res: &service.QueryResult{
		Columns: []string{"id", "email"},
		Rows:    []map[string]any{{"id": 1, "email": "john.doe@example.com"}},
	}}

	res := newDispatcher(d).Call(context.Background(), "database_query", map[string]any{"query": "SELECT id, email FROM users"})
	if !res.OK() {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	rows := res.Payload()["rows"].([]map[string]any)
	if rows[0]["email"] == "john.doe@example.com" {
		t.Error("email was not masked")
	}
	if res.Payload()["row_count"] != 1 {
		t.Errorf("row_count = %v", res.Payload()["row_count"])
	}
}

func TestDatabaseBigQueryNotConfigured(t *testing.T) {
	d := fullDeps(&counter{})
	delete(d.Databases, "bigquery")
	res := newDispatcher(d).Call(context.Background(), "database_query", map[string]any{
		"query": "SELECT 1", "database": "bigquery",
	})
	if res.OK() || res.Err().Kind != result.KindNotConfigured || !strings.Contains(res.Err().Message, "GCP_PROJECT_ID") {
		t.Fatalf("envelope = %v", res.Envelope())
	}
}

func TestCalendarCheckAvailability(t *testing.T) {
	tests := []struct {
		name   string
		data   map[string]any
		wantOK bool
	}{
		{"window", map[string]any{"time_min": "2025-03-03T09:00:00Z", "time_max": "2025-03-03T17:00:00Z"}, true},
		{"missing bound", map[string]any{"time_min": "2025-03-03T09:00:00Z"}, false},
		{"inverted", map[string]any{"time_min": "2025-03-03T17:00:00Z", "time_max": "2025-03-03T09:00:00Z"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newDispatcher(fullDeps(&counter{})).Call(context.Background(), "calendar_operation", map[string]any{
				"provider": "outlook", "action": "check_availability", "data": tt.data,
			})
			if res.OK() != tt.wantOK {
				t.Fatalf("envelope = %v", res.Envelope())
			}
			if tt.wantOK && res.Payload()["available"] != false {
				t.Errorf("available = %v", res.Payload()["available"])
			}
		})
	}
}

func TestCalendarCreateEventValidatesTimes(t *testing.T) {
	res := newDispatcher(fullDeps(&counter{})).Call(context.Background(), "calendar_operation", map[string]any{
		"provider": "google", "action": "create_event",
		"data": map[string]any{"summary": "Demo", "start": "next tuesday", "end": "2025-03-04"},
	})
	if res.OK() || res.Err().Context["argument"] != "start" {
		t.Fatalf("envelope = %v", res.Envelope())
	}
}

func TestTwilioChannels(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]any
		wantOK   bool
		wantFrom string
	}{
		{"sms default from", map[string]any{"channel": "sms", "to": "+1555", "message": "hi"}, true, "+15550000"},
		{"whatsapp default from", map[string]any{"channel": "whatsapp", "to": "+1555", "message": "hi"}, true, "+15550001"},
		{"voice", map[string]any{"channel": "voice", "to": "+1555", "url": "https://acme.test/twiml"}, true, "+15550000"},
		{"voice needs url", map[string]any{"channel": "voice", "to": "+1555"}, false, ""},
		{"voice rejects non-http url", map[string]any{"channel": "voice", "to": "+1555", "url": "ftp://x"}, false, ""},
		{"sms needs message", map[string]any{"channel": "sms", "to": "+1555"}, false, ""},
		{"explicit from", map[string]any{"channel": "sms", "to": "+1555", "from": "+1999", "message": "hi"}, true, "+1999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newDispatcher(fullDeps(&counter{})).Call(context.Background(), "twilio_communication", tt.input)
			if res.OK() != tt.wantOK {
				t.Fatalf("envelope = %v", res.Envelope())
			}
			if tt.wantOK && res.Payload()["from"] != tt.wantFrom {
				t.Errorf("from = %v, want %s", res.Payload()["from"], tt.wantFrom)
			}
		})
	}
}

func TestSendEmailAcceptsRecipientList(t *testing.T) {
	d := fullDeps(&counter{})
	mg := d.Mailers["mailgun"].(*mailerStub)
	res := newDispatcher(d).Call(context.Background(), "send_email", map[string]any{
		"provider": "mailgun",
		"to":       []any{"a@acme.test", "b@acme.test"},
		"from":     "ops@acme.test", "subject": "Hello", "body": "<p>hi</p>",
	})
	if !res.OK() || res.Payload()["recipients"] != 2 {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	if len(mg.last.To) != 2 {
		t.Errorf("to = %v", mg.last.To)
	}
}

func TestSendEmailDefaultsToConfiguredProvider(t *testing.T) {
	d := fullDeps(&counter{})
	delete(d.Mailers, "sendgrid")
	res := newDispatcher(d).Call(context.Background(), "send_email", validCalls["send_email"])
	if !res.OK() || res.Payload()["provider"] != "mailgun" {
		t.Fatalf("envelope = %v", res.Envelope())
	}

	tool, _ := tools.NewRegistry(tools.All(d)...).Lookup("send_email")
	if def := tool.InputSchema.Properties["provider"].Default; def != nil {
		t.Errorf("provider default = %s, want none since it depends on configuration", def)
	}
}

func TestStripeCreatePayment(t *testing.T) {
	tests := []struct {
		name   string
		data   map[string]any
		wantOK bool
	}{
		{"ok", map[string]any{"amount": 2500, "currency": "EUR"}, true},
		{"fractional amount", map[string]any{"amount": 25.5}, false},
		{"zero amount", map[string]any{"amount": 0}, false},
		{"missing amount", map[string]any{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newDispatcher(fullDeps(&counter{})).Call(context.Background(), "stripe_operation", map[string]any{
				"operation": "create_payment", "data": tt.data,
			})
			if res.OK() != tt.wantOK {
				t.Fatalf("envelope = %v", res.Envelope())
			}
			if tt.wantOK {
				p := res.Payload()["payment"].(*service.Payment)
				if p.Currency != "eur" {
					t.Errorf("currency = %q", p.Currency)
				}
			}
		})
	}
}

func TestDocsUpdateNeedsAField(t *testing.T) {
	c := &counter{}
	res := newDispatcher(fullDeps(c)).Call(context.Background(), "docs_operation", map[string]any{
		"provider": "elasticsearch", "action": "update", "data": map[string]any{"id": "doc1"},
	})
	if res.OK() || res.Err().Kind != result.KindInvalidArgument || c.Load() != 0 {
		t.Fatalf("envelope = %v, calls = %d", res.Envelope(), c.Load())
	}
}

func TestSocialPost(t *testing.T) {
	future := fixedNow.Add(time.Hour).Format(time.RFC3339)
	past := fixedNow.Add(-time.Hour).Format(time.RFC3339)

	tests := []struct {
		name      string
		input     map[string]any
		wantOK    bool
		wantCalls int64
		wantKey   string
	}{
		{"publish now", map[string]any{"platform": "linkedin", "content": "We are hiring"}, true, 1, "post_id"},
		{"dry run", map[string]any{"platform": "twitter", "content": "hi", "dry_run": true}, true, 0, "preview"},
		{"scheduled", map[string]any{"platform": "twitter", "content": "later", "schedule_time": future}, true, 0, "schedule_id"},
		{"past schedule", map[string]any{"platform": "twitter", "content": "x", "schedule_time": past}, false, 0, ""},
		{"bad schedule", map[string]any{"platform": "twitter", "content": "x", "schedule_time": "tomorrow"}, false, 0, ""},
		{"tweet too long", map[string]any{"platform": "twitter", "content": strings.Repeat("a", 281)}, false, 0, ""},
		{"bad media url", map[string]any{"platform": "linkedin", "content": "x", "media_urls": []any{"not a url"}}, false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &counter{}
			d := fullDeps(c)
			d.Scheduler = tools.NewScheduler(0)
			defer d.Scheduler.Stop()

			res := newDispatcher(d).Call(context.Background(), "social_media_post", tt.input)
			if res.OK() != tt.wantOK {
				t.Fatalf("envelope = %v", res.Envelope())
			}
			if c.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", c.Load(), tt.wantCalls)
			}
			if tt.wantKey != "" {
				if _, ok := res.Payload()[tt.wantKey]; !ok {
					t.Errorf("payload missing %s: %v", tt.wantKey, res.Payload())
				}
			}
		})
	}
}

func TestSchemaIsAdvisory(t *testing.T) {
	// num_results is declared as an integer in 1..100; the handler clamps
	// rather than rejecting out-of-range values.
	res := newDispatcher(fullDeps(&counter{})).Call(context.Background(), "web_search", map[string]any{
		"query": "acme", "num_results": 500, "unexpected": true,
	})
	if !res.OK() {
		t.Fatalf("envelope = %v", res.Envelope())
	}
}
