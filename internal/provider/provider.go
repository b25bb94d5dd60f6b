// Package provider builds every external adapter once at startup from the
// loaded configuration and records, per provider, whether it is usable.
package provider

import (
	"context"
	"errors"
	"io"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/security"
	"github.com/toolrelay/toolrelay/internal/service"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// Binding describes one provider. It is built once and never changes.
type Binding struct {
	Name       string   `json:"name"`
	Tools      []string `json:"tools"`
	ConfigKeys []string `json:"config_keys"`
	Configured bool     `json:"configured"`
	Error      string   `json:"error,omitempty"`
}

// Checker is implemented by adapters that can verify connectivity.
type Checker interface {
	TestConnection(ctx context.Context) error
}

// Registry owns the adapters built from one configuration.
type Registry struct {
	bindings []Binding
	deps     tools.Deps
	checkers map[string]Checker
	closers  []io.Closer
}

// Build constructs every provider whose credentials are present. A
// constructor failure leaves the provider unconfigured with the error kept on
// its binding; Build itself never fails.
func Build(ctx context.Context, cfg *config.Config) *Registry {
	r := &Registry{checkers: make(map[string]Checker)}
	timeout := service.WithTimeout(cfg.ProviderTimeout())

	d := tools.Deps{
		Databases:      make(map[string]service.SQLDatabase),
		SQLValidator:   security.NewSQLValidator(cfg.DatabaseAllowWrites),
		MaxRows:        cfg.DatabaseMaxRows,
		CRMs:           make(map[string]tools.CRM),
		Enrichers:      make(map[string]tools.Enricher),
		Calendars:      make(map[string]tools.Calendar),
		TwilioPhone:    cfg.TwilioPhoneNumber,
		TwilioWhatsApp: cfg.TwilioWhatsAppNumber,
		Mailers:        make(map[string]tools.Mailer),
		Docs:           make(map[string]tools.DocStore),
		Posters:        make(map[string]tools.Poster),
		Scheduler:      tools.NewScheduler(cfg.ProviderTimeout()),
		Audit:          security.NewAuditLogger(cfg.EnableAuditLogging),
	}
	if cfg.EnableDataMasking {
		d.Masker = security.NewDataMasker(cfg.SensitiveColumns)
	}

	// ─── web_search ─────────────────────────────────────────────────────────────
	r.add(Binding{Name: "serpapi", Tools: []string{"web_search"}, ConfigKeys: []string{config.EnvSerpAPIKey}},
		set(cfg.SerpAPIKey), func() error {
			d.SerpAPI = service.NewSerpAPI(cfg.SerpAPIKey, timeout)
			return nil
		})
	r.add(Binding{Name: "google_custom_search", Tools: []string{"web_search"},
		ConfigKeys: []string{config.EnvGoogleSearchKey, config.EnvGoogleSearchCX}},
		set(cfg.GoogleCustomSearchKey, cfg.GoogleCustomSearchCX), func() error {
			cs, err := service.NewCustomSearch(ctx, cfg.GoogleCustomSearchKey, cfg.GoogleCustomSearchCX)
			if err != nil {
				return err
			}
			d.CustomSearch = cs
			return nil
		})

	// ─── database_query ─────────────────────────────────────────────────────────
	r.add(Binding{Name: "database", Tools: []string{"database_query"}, ConfigKeys: []string{config.EnvDatabaseURL}},
		set(cfg.DatabaseURL), func() error {
			db, err := service.OpenDatabase(ctx, cfg.DatabaseURL, !cfg.DatabaseAllowWrites)
			if err != nil {
				return err
			}
			d.Databases["default"] = db
			r.checkers["database"] = db
			r.closers = append(r.closers, db)
			return nil
		})
	r.add(Binding{Name: "bigquery", Tools: []string{"database_query"}, ConfigKeys: []string{config.EnvGCPProjectID}},
		set(cfg.GCPProjectID), func() error {
			bq, err := service.NewBigQuery(ctx, cfg.GCPProjectID, cfg.GoogleApplicationCredentials,
				cfg.BigQueryLocation, security.NewCostTracker(cfg.MaxQueryBytesProcessed), !cfg.DatabaseAllowWrites)
			if err != nil {
				return err
			}
			d.Databases["bigquery"] = bq
			r.checkers["bigquery"] = bq
			r.closers = append(r.closers, bq)
			return nil
		})

	// ─── crm_operation ──────────────────────────────────────────────────────────
	r.add(Binding{Name: "hubspot", Tools: []string{"crm_operation"}, ConfigKeys: []string{config.EnvHubSpotToken}},
		set(cfg.HubSpotToken), func() error {
			d.CRMs["hubspot"] = service.NewHubSpot(cfg.HubSpotToken, timeout)
			return nil
		})
	r.add(Binding{Name: "salesforce", Tools: []string{"crm_operation"},
		ConfigKeys: []string{config.EnvSalesforceToken, config.EnvSalesforceDomain}},
		set(cfg.SalesforceToken, cfg.SalesforceDomain), func() error {
			d.CRMs["salesforce"] = service.NewSalesforce(cfg.SalesforceToken, cfg.SalesforceDomain, timeout)
			return nil
		})

	// ─── enrich_data ────────────────────────────────────────────────────────────
	r.add(Binding{Name: "clearbit", Tools: []string{"enrich_data"}, ConfigKeys: []string{config.EnvClearbitKey}},
		set(cfg.ClearbitKey), func() error {
			d.Enrichers["clearbit"] = service.NewClearbit(cfg.ClearbitKey, timeout)
			return nil
		})
	r.add(Binding{Name: "people_data_labs", Tools: []string{"enrich_data"}, ConfigKeys: []string{config.EnvPeopleDataLabsKey}},
		set(cfg.PeopleDataLabsKey), func() error {
			d.Enrichers["people_data_labs"] = service.NewPeopleDataLabs(cfg.PeopleDataLabsKey, timeout)
			return nil
		})

	// ─── calendar_operation ─────────────────────────────────────────────────────
	r.add(Binding{Name: "google_calendar", Tools: []string{"calendar_operation"}, ConfigKeys: []string{config.EnvGoogleCalendarCreds}},
		set(cfg.GoogleCalendarCredentials), func() error {
			gc, err := service.NewGoogleCalendar(ctx, cfg.GoogleCalendarCredentials, cfg.GoogleCalendarID)
			if err != nil {
				return err
			}
			d.Calendars["google"] = gc
			return nil
		})
	r.add(Binding{Name: "outlook", Tools: []string{"calendar_operation"}, ConfigKeys: []string{config.EnvOutlookAccessToken}},
		set(cfg.OutlookAccessToken), func() error {
			d.Calendars["outlook"] = service.NewOutlook(cfg.OutlookAccessToken, cfg.OutlookUser, timeout)
			return nil
		})

	// ─── twilio_communication ───────────────────────────────────────────────────
	r.add(Binding{Name: "twilio", Tools: []string{"twilio_communication"},
		ConfigKeys: []string{config.EnvTwilioAccountSID, config.EnvTwilioAuthToken}},
		set(cfg.TwilioAccountSID, cfg.TwilioAuthToken), func() error {
			d.Twilio = service.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, timeout)
			return nil
		})

	// ─── send_email ─────────────────────────────────────────────────────────────
	r.add(Binding{Name: "sendgrid", Tools: []string{"send_email"}, ConfigKeys: []string{config.EnvSendGridKey}},
		set(cfg.SendGridKey), func() error {
			d.Mailers["sendgrid"] = service.NewSendGrid(cfg.SendGridKey, timeout)
			return nil
		})
	r.add(Binding{Name: "mailgun", Tools: []string{"send_email"}, ConfigKeys: []string{config.EnvMailgunKey, config.EnvMailgunDomain}},
		set(cfg.MailgunKey, cfg.MailgunDomain), func() error {
			d.Mailers["mailgun"] = service.NewMailgun(cfg.MailgunDomain, cfg.MailgunKey, cfg.MailgunAPIBase, timeout)
			return nil
		})

	// ─── stripe_operation ───────────────────────────────────────────────────────
	r.add(Binding{Name: "stripe", Tools: []string{"stripe_operation"}, ConfigKeys: []string{config.EnvStripeKey}},
		set(cfg.StripeKey), func() error {
			d.Payments = service.NewStripe(cfg.StripeKey, timeout)
			return nil
		})

	// ─── docs_operation ─────────────────────────────────────────────────────────
	r.add(Binding{Name: "notion", Tools: []string{"docs_operation"}, ConfigKeys: []string{config.EnvNotionKey}},
		set(cfg.NotionKey), func() error {
			d.Docs["notion"] = service.NewNotion(cfg.NotionKey, cfg.NotionParentPageID, timeout)
			return nil
		})
	r.add(Binding{Name: "google_drive", Tools: []string{"docs_operation"}, ConfigKeys: []string{config.EnvGoogleDriveCreds}},
		cfg.GoogleDriveCredentials != "" || cfg.GoogleDriveKey != "", func() error {
			gd, err := service.NewGoogleDrive(ctx, cfg.GoogleDriveCredentials, cfg.GoogleDriveKey)
			if err != nil {
				return err
			}
			d.Docs["google_drive"] = gd
			return nil
		})
	r.add(Binding{Name: "elasticsearch", Tools: []string{"docs_operation"}, ConfigKeys: []string{config.EnvElasticsearchEnabled}},
		cfg.ElasticsearchEnabled, func() error {
			es, err := service.NewElasticsearch(service.ElasticsearchConfig{
				Scheme:          cfg.ElasticsearchScheme,
				Host:            cfg.ElasticsearchHost,
				Port:            cfg.ElasticsearchPort,
				User:            cfg.ElasticsearchUser,
				Password:        cfg.ElasticsearchPassword,
				VerifyCerts:     cfg.ElasticsearchVerifyCerts,
				MaxRetries:      cfg.ElasticsearchMaxRetries,
				Index:           cfg.ElasticsearchDocsIndex,
				AllowedPatterns: cfg.ESAllowedPatterns,
			})
			if err != nil {
				return err
			}
			d.Docs["elasticsearch"] = es
			r.checkers["elasticsearch"] = es
			return nil
		})

	// ─── social_media_post ──────────────────────────────────────────────────────
	r.add(Binding{Name: "linkedin", Tools: []string{"social_media_post"},
		ConfigKeys: []string{config.EnvLinkedInAccessToken, config.EnvLinkedInAuthorURN}},
		set(cfg.LinkedInAccessToken, cfg.LinkedInAuthorURN), func() error {
			d.Posters["linkedin"] = service.NewLinkedIn(cfg.LinkedInAccessToken, cfg.LinkedInAuthorURN, timeout)
			return nil
		})
	r.add(Binding{Name: "twitter", Tools: []string{"social_media_post"}, ConfigKeys: []string{config.EnvTwitterBearerToken}},
		set(cfg.TwitterBearerToken), func() error {
			d.Posters["twitter"] = service.NewTwitter(cfg.TwitterBearerToken, timeout)
			return nil
		})

	r.deps = d
	return r
}

// add records b, running build when the provider's credentials are present.
func (r *Registry) add(b Binding, present bool, build func() error) {
	if present {
		if err := build(); err != nil {
			b.Error = err.Error()
			log.Warn().Err(err).Str("provider", b.Name).Msg("provider unavailable")
		} else {
			b.Configured = true
		}
	}
	r.bindings = append(r.bindings, b)
}

func set(vals ...string) bool {
	for _, v := range vals {
		if v == "" {
			return false
		}
	}
	return true
}

// Bindings returns every provider in registration order.
func (r *Registry) Bindings() []Binding {
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Deps returns the adapters for tool construction.
func (r *Registry) Deps() tools.Deps {
	return r.deps
}

// Checkers returns the providers that support a connectivity probe.
func (r *Registry) Checkers() map[string]Checker {
	out := make(map[string]Checker, len(r.checkers))
	for k, v := range r.checkers {
		out[k] = v
	}
	return out
}

// ConfiguredNames lists configured providers, sorted.
func (r *Registry) ConfiguredNames() []string {
	var names []string
	for _, b := range r.bindings {
		if b.Configured {
			names = append(names, b.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Close stops the post scheduler and releases database connections.
func (r *Registry) Close() error {
	if r.deps.Scheduler != nil {
		r.deps.Scheduler.Stop()
	}
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
