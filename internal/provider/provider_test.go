package provider_test

import (
	"context"
	"strings"
	"testing"

	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/provider"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/tools"
)

func binding(t *testing.T, r *provider.Registry, name string) provider.Binding {
	t.Helper()
	for _, b := range r.Bindings() {
		if b.Name == name {
			return b
		}
	}
	t.Fatalf("no binding %q", name)
	return provider.Binding{}
}

func TestBuildEmptyConfig(t *testing.T) {
	r := provider.Build(context.Background(), &config.Config{})
	defer r.Close()

	for _, b := range r.Bindings() {
		if b.Configured || b.Error != "" {
			t.Errorf("%s: configured=%v error=%q", b.Name, b.Configured, b.Error)
		}
		if len(b.ConfigKeys) == 0 || len(b.Tools) == 0 {
			t.Errorf("%s: missing keys or tools", b.Name)
		}
	}
	if names := r.ConfiguredNames(); len(names) != 0 {
		t.Errorf("configured = %v", names)
	}

	d := tools.NewDispatcher(tools.NewRegistry(tools.All(r.Deps())...))
	for _, name := range d.Registry().Names() {
		res := d.Call(context.Background(), name, map[string]any{})
		if res.OK() || res.Err().Kind != result.KindNotConfigured {
			t.Errorf("%s: envelope = %v", name, res.Envelope())
		}
	}
}

func TestBuildHTTPProviders(t *testing.T) {
	cfg := &config.Config{
		SerpAPIKey:          "serp",
		HubSpotToken:        "hs",
		ClearbitKey:         "cb",
		OutlookAccessToken:  "ol",
		OutlookUser:         "me",
		TwilioAccountSID:    "AC1",
		TwilioAuthToken:     "tok",
		SendGridKey:         "sg",
		StripeKey:           "sk_test",
		NotionKey:           "secret_n",
		TwitterBearerToken:  "tw",
		SalesforceToken:     "sf",
		SalesforceDomain:    "",
		LinkedInAccessToken: "li",
	}
	r := provider.Build(context.Background(), cfg)
	defer r.Close()

	want := []string{"clearbit", "hubspot", "notion", "outlook", "sendgrid", "serpapi", "stripe", "twilio", "twitter"}
	if got := strings.Join(r.ConfiguredNames(), ","); got != strings.Join(want, ",") {
		t.Errorf("configured = %s", got)
	}

	tests := []struct {
		name       string
		configured bool
	}{
		{"salesforce", false},
		{"linkedin", false},
		{"mailgun", false},
		{"hubspot", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if b := binding(t, r, tt.name); b.Configured != tt.configured {
				t.Errorf("configured = %v", b.Configured)
			}
		})
	}

	d := r.Deps()
	if d.SerpAPI == nil || d.CustomSearch != nil {
		t.Error("only serpapi should be bound for web_search")
	}
	if _, ok := d.CRMs["salesforce"]; ok {
		t.Error("salesforce bound without a domain")
	}
}

func TestBuildKeepsConstructorError(t *testing.T) {
	r := provider.Build(context.Background(), &config.Config{DatabaseURL: "mysql://root@localhost/app"})
	defer r.Close()

	b := binding(t, r, "database")
	if b.Configured || !strings.Contains(b.Error, "unsupported database scheme") {
		t.Errorf("binding = %+v", b)
	}
	if _, ok := r.Deps().Databases["default"]; ok {
		t.Error("failed database should not be bound")
	}
}

func TestBuildSQLiteDatabase(t *testing.T) {
	r := provider.Build(context.Background(), &config.Config{DatabaseURL: "sqlite://:memory:"})
	defer r.Close()

	if _, ok := r.Checkers()["database"]; !ok {
		t.Fatal("database should be probeable")
	}
	d := tools.NewDispatcher(tools.NewRegistry(tools.All(r.Deps())...))
	res := d.Call(context.Background(), "database_query", map[string]any{"query": "SELECT 1 AS one"})
	if !res.OK() {
		t.Fatalf("envelope = %v", res.Envelope())
	}
	if res.Payload()["row_count"] != 1 {
		t.Errorf("row_count = %v", res.Payload()["row_count"])
	}
}
