package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Environment string `json:"environment" yaml:"environment"`
	LogLevel    string `json:"log_level" yaml:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header" yaml:"api_key_header"`
	APIKeys      []string `json:"api_keys" yaml:"api_keys"`
	EnableAuth   bool     `json:"enable_auth" yaml:"enable_auth"`

	// Rate Limiting
	RateLimitEnabled  bool `json:"rate_limit_enabled" yaml:"rate_limit_enabled"`
	RateLimitRequests int  `json:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitPeriod   int  `json:"rate_limit_period" yaml:"rate_limit_period"` // seconds

	// Outbound calls
	ProviderTimeoutSeconds int `json:"provider_timeout_seconds" yaml:"provider_timeout_seconds"`

	// Observability
	HealthProbeSchedule string `json:"health_probe_schedule" yaml:"health_probe_schedule"`
	OTLPEndpoint        string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName         string `json:"service_name" yaml:"service_name"`

	// Search
	SerpAPIKey            string `json:"serpapi_key" yaml:"serpapi_key"`
	GoogleCustomSearchKey string `json:"google_custom_search_key" yaml:"google_custom_search_key"`
	GoogleCustomSearchCX  string `json:"google_custom_search_cx" yaml:"google_custom_search_cx"`

	// Database
	DatabaseURL         string `json:"database_url" yaml:"database_url"`
	DatabaseAllowWrites bool   `json:"database_allow_writes" yaml:"database_allow_writes"`
	DatabaseMaxRows     int    `json:"database_max_rows" yaml:"database_max_rows"`

	// BigQuery
	GCPProjectID                 string `json:"gcp_project_id" yaml:"gcp_project_id"`
	GoogleApplicationCredentials string `json:"google_application_credentials" yaml:"google_application_credentials"`
	BigQueryLocation             string `json:"bigquery_location" yaml:"bigquery_location"`
	MaxQueryBytesProcessed       int64  `json:"max_query_bytes_processed" yaml:"max_query_bytes_processed"`

	// Data protection
	EnableDataMasking  bool     `json:"enable_data_masking" yaml:"enable_data_masking"`
	SensitiveColumns   []string `json:"sensitive_columns" yaml:"sensitive_columns"`
	EnableAuditLogging bool     `json:"enable_audit_logging" yaml:"enable_audit_logging"`
	PIIKeywords        []string `json:"pii_keywords" yaml:"pii_keywords"`

	// CRM
	HubSpotToken     string `json:"hubspot_token" yaml:"hubspot_token"`
	SalesforceToken  string `json:"salesforce_token" yaml:"salesforce_token"`
	SalesforceDomain string `json:"salesforce_domain" yaml:"salesforce_domain"`

	// Enrichment
	ClearbitKey       string `json:"clearbit_key" yaml:"clearbit_key"`
	PeopleDataLabsKey string `json:"people_data_labs_key" yaml:"people_data_labs_key"`

	// Calendar
	GoogleCalendarCredentials string `json:"google_calendar_credentials" yaml:"google_calendar_credentials"`
	GoogleCalendarID          string `json:"google_calendar_id" yaml:"google_calendar_id"`
	OutlookAccessToken        string `json:"outlook_access_token" yaml:"outlook_access_token"`
	OutlookUser               string `json:"outlook_user" yaml:"outlook_user"`

	// Twilio
	TwilioAccountSID     string `json:"twilio_account_sid" yaml:"twilio_account_sid"`
	TwilioAuthToken      string `json:"twilio_auth_token" yaml:"twilio_auth_token"`
	TwilioPhoneNumber    string `json:"twilio_phone_number" yaml:"twilio_phone_number"`
	TwilioWhatsAppNumber string `json:"twilio_whatsapp_number" yaml:"twilio_whatsapp_number"`

	// Email
	SendGridKey    string `json:"sendgrid_key" yaml:"sendgrid_key"`
	MailgunKey     string `json:"mailgun_key" yaml:"mailgun_key"`
	MailgunDomain  string `json:"mailgun_domain" yaml:"mailgun_domain"`
	MailgunAPIBase string `json:"mailgun_api_base" yaml:"mailgun_api_base"`

	// Payments
	StripeKey string `json:"stripe_key" yaml:"stripe_key"`

	// Docs
	NotionKey              string `json:"notion_key" yaml:"notion_key"`
	NotionParentPageID     string `json:"notion_parent_page_id" yaml:"notion_parent_page_id"`
	GoogleDriveKey         string `json:"google_drive_key" yaml:"google_drive_key"`
	GoogleDriveCredentials string `json:"google_drive_credentials" yaml:"google_drive_credentials"`

	// Elasticsearch
	ElasticsearchEnabled     bool     `json:"elasticsearch_enabled" yaml:"elasticsearch_enabled"`
	ElasticsearchHost        string   `json:"elasticsearch_host" yaml:"elasticsearch_host"`
	ElasticsearchPort        int      `json:"elasticsearch_port" yaml:"elasticsearch_port"`
	ElasticsearchScheme      string   `json:"elasticsearch_scheme" yaml:"elasticsearch_scheme"`
	ElasticsearchUser        string   `json:"elasticsearch_user" yaml:"elasticsearch_user"`
	ElasticsearchPassword    string   `json:"elasticsearch_password" yaml:"elasticsearch_password"`
	ElasticsearchVerifyCerts bool     `json:"elasticsearch_verify_certs" yaml:"elasticsearch_verify_certs"`
	ElasticsearchMaxRetries  int      `json:"elasticsearch_max_retries" yaml:"elasticsearch_max_retries"`
	ElasticsearchDocsIndex   string   `json:"elasticsearch_docs_index" yaml:"elasticsearch_docs_index"`
	ESAllowedPatterns        []string `json:"es_allowed_patterns" yaml:"es_allowed_patterns"`

	// Social
	LinkedInAccessToken string `json:"linkedin_access_token" yaml:"linkedin_access_token"`
	LinkedInAuthorURN   string `json:"linkedin_author_urn" yaml:"linkedin_author_urn"`
	TwitterBearerToken  string `json:"twitter_bearer_token" yaml:"twitter_bearer_token"`

	// AI / LLM
	AnthropicAPIKey    string `json:"anthropic_api_key" yaml:"anthropic_api_key"`
	AnthropicBaseURL   string `json:"anthropic_base_url" yaml:"anthropic_base_url"`
	AnthropicModel     string `json:"anthropic_model" yaml:"anthropic_model"`
	AgentTimeout       int    `json:"agent_timeout" yaml:"agent_timeout"` // seconds
	AgentMaxIterations int    `json:"agent_max_iterations" yaml:"agent_max_iterations"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:                     DefaultHost,
		Port:                     DefaultPort,
		Environment:              DefaultEnvironment,
		LogLevel:                 DefaultLogLevel,
		CORSOrigins:              DefaultCORSOrigins,
		APIKeyHeader:             "X-API-Key",
		RateLimitEnabled:         true,
		RateLimitRequests:        DefaultRateLimitRequests,
		RateLimitPeriod:          DefaultRateLimitPeriod,
		ProviderTimeoutSeconds:   int(DefaultProviderTimeout / time.Second),
		HealthProbeSchedule:      DefaultHealthProbeSchedule,
		ServiceName:              DefaultServiceName,
		DatabaseMaxRows:          DefaultDatabaseMaxRows,
		BigQueryLocation:         DefaultBigQueryLocation,
		MaxQueryBytesProcessed:   DefaultMaxQueryBytesProcessed,
		EnableDataMasking:        true,
		SensitiveColumns:         DefaultSensitiveColumns,
		EnableAuditLogging:       true,
		PIIKeywords:              DefaultPIIKeywords,
		GoogleCalendarID:         DefaultGoogleCalendarID,
		OutlookUser:              DefaultOutlookUser,
		ElasticsearchPort:        DefaultElasticsearchPort,
		ElasticsearchScheme:      DefaultElasticsearchScheme,
		ElasticsearchVerifyCerts: true,
		ElasticsearchMaxRetries:  DefaultElasticsearchMaxRetries,
		ElasticsearchDocsIndex:   DefaultElasticsearchDocsIndex,
		AnthropicModel:           DefaultAnthropicModel,
		AgentTimeout:             DefaultAgentTimeout,
		AgentMaxIterations:       DefaultAgentMaxIterations,
	}

	// Config file: JSON, or YAML by extension
	if path := getEnv(EnvConfigFile, ""); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Host, "TOOLRELAY_HOST")
	setInt(&cfg.Port, "TOOLRELAY_PORT")
	setInt(&cfg.Port, "PORT")
	setString(&cfg.Environment, "TOOLRELAY_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogLevel, "MCP_LOG_LEVEL")
	setList(&cfg.CORSOrigins, "CORS_ORIGINS")

	setBool(&cfg.EnableAuth, "ENABLE_AUTH")
	setList(&cfg.APIKeys, "TOOLRELAY_API_KEYS")
	// AUTH_TOKEN is the single shared token form of API keys
	if v := getEnv("AUTH_TOKEN", ""); v != "" {
		cfg.APIKeys = append(cfg.APIKeys, v)
	}
	setBool(&cfg.RateLimitEnabled, "RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimitRequests, "RATE_LIMIT_REQUESTS")
	setInt(&cfg.RateLimitPeriod, "RATE_LIMIT_PERIOD")
	setInt(&cfg.ProviderTimeoutSeconds, "PROVIDER_TIMEOUT_SECONDS")

	setString(&cfg.HealthProbeSchedule, "HEALTH_PROBE_SCHEDULE")
	setString(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.ServiceName, "OTEL_SERVICE_NAME")

	setString(&cfg.SerpAPIKey, EnvSerpAPIKey)
	setString(&cfg.GoogleCustomSearchKey, EnvGoogleSearchKey)
	setString(&cfg.GoogleCustomSearchCX, EnvGoogleSearchCX)

	setString(&cfg.DatabaseURL, EnvDatabaseURL)
	setBool(&cfg.DatabaseAllowWrites, "DATABASE_ALLOW_WRITES")
	setInt(&cfg.DatabaseMaxRows, "DATABASE_MAX_ROWS")

	setString(&cfg.GCPProjectID, EnvGCPProjectID)
	setString(&cfg.GoogleApplicationCredentials, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&cfg.BigQueryLocation, "BIGQUERY_LOCATION")
	if v := getEnv("MAX_QUERY_BYTES_PROCESSED", ""); v != "" {
		if b, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxQueryBytesProcessed = b
		}
	}

	setBool(&cfg.EnableDataMasking, "ENABLE_DATA_MASKING")
	setBool(&cfg.EnableAuditLogging, "ENABLE_AUDIT_LOGGING")

	setString(&cfg.HubSpotToken, EnvHubSpotToken)
	setString(&cfg.SalesforceToken, EnvSalesforceToken)
	setString(&cfg.SalesforceDomain, EnvSalesforceDomain)

	setString(&cfg.ClearbitKey, EnvClearbitKey)
	setString(&cfg.PeopleDataLabsKey, EnvPeopleDataLabsKey)

	setString(&cfg.GoogleCalendarCredentials, EnvGoogleCalendarCreds)
	setString(&cfg.GoogleCalendarID, "GOOGLE_CALENDAR_ID")
	setString(&cfg.OutlookAccessToken, EnvOutlookAccessToken)
	setString(&cfg.OutlookUser, "OUTLOOK_USER")

	setString(&cfg.TwilioAccountSID, EnvTwilioAccountSID)
	setString(&cfg.TwilioAuthToken, EnvTwilioAuthToken)
	setString(&cfg.TwilioPhoneNumber, EnvTwilioPhoneNumber)
	setString(&cfg.TwilioWhatsAppNumber, EnvTwilioWhatsAppNumber)

	setString(&cfg.SendGridKey, EnvSendGridKey)
	setString(&cfg.MailgunKey, EnvMailgunKey)
	setString(&cfg.MailgunDomain, EnvMailgunDomain)
	setString(&cfg.MailgunAPIBase, "MAILGUN_API_BASE")

	setString(&cfg.StripeKey, EnvStripeKey)

	setString(&cfg.NotionKey, EnvNotionKey)
	setString(&cfg.NotionParentPageID, "NOTION_PARENT_PAGE_ID")
	setString(&cfg.GoogleDriveKey, EnvGoogleDriveKey)
	setString(&cfg.GoogleDriveCredentials, EnvGoogleDriveCreds)

	setBool(&cfg.ElasticsearchEnabled, EnvElasticsearchEnabled)
	setString(&cfg.ElasticsearchHost, "ELASTICSEARCH_HOST")
	setInt(&cfg.ElasticsearchPort, "ELASTICSEARCH_PORT")
	setString(&cfg.ElasticsearchScheme, "ELASTICSEARCH_SCHEME")
	setString(&cfg.ElasticsearchUser, "ELASTICSEARCH_USER")
	setString(&cfg.ElasticsearchPassword, "ELASTICSEARCH_PASSWORD")
	setBool(&cfg.ElasticsearchVerifyCerts, "ELASTICSEARCH_VERIFY_CERTS")
	setString(&cfg.ElasticsearchDocsIndex, "ELASTICSEARCH_DOCS_INDEX")
	setList(&cfg.ESAllowedPatterns, "ES_ALLOWED_PATTERNS")

	setString(&cfg.LinkedInAccessToken, EnvLinkedInAccessToken)
	setString(&cfg.LinkedInAuthorURN, EnvLinkedInAuthorURN)
	setString(&cfg.TwitterBearerToken, EnvTwitterBearerToken)

	setString(&cfg.AnthropicAPIKey, EnvAnthropicAPIKey)
	setString(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	setString(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
	setInt(&cfg.AgentTimeout, "AGENT_TIMEOUT")
	setInt(&cfg.AgentMaxIterations, "AGENT_MAX_ITERATIONS")
}

// ProviderTimeout is the per-request deadline for outbound provider calls.
func (c *Config) ProviderTimeout() time.Duration {
	if c.ProviderTimeoutSeconds <= 0 {
		return DefaultProviderTimeout
	}
	return time.Duration(c.ProviderTimeoutSeconds) * time.Second
}

// Secrets lists every credential value so failure messages can be scrubbed.
func (c *Config) Secrets() []string {
	secrets := []string{
		c.SerpAPIKey, c.GoogleCustomSearchKey,
		c.DatabaseURL,
		c.HubSpotToken, c.SalesforceToken,
		c.ClearbitKey, c.PeopleDataLabsKey,
		c.OutlookAccessToken,
		c.TwilioAuthToken,
		c.SendGridKey, c.MailgunKey,
		c.StripeKey,
		c.NotionKey, c.GoogleDriveKey,
		c.ElasticsearchPassword,
		c.LinkedInAccessToken, c.TwitterBearerToken,
		c.AnthropicAPIKey,
	}
	return append(secrets, c.APIKeys...)
}

// ConfiguredTools reports, per tool name, whether at least one provider able
// to serve it has its credentials set.
func (c *Config) ConfiguredTools() map[string]bool {
	has := func(vals ...string) bool {
		for _, v := range vals {
			if v == "" {
				return false
			}
		}
		return true
	}
	return map[string]bool{
		"web_search":           has(c.SerpAPIKey) || has(c.GoogleCustomSearchKey, c.GoogleCustomSearchCX),
		"database_query":       has(c.DatabaseURL) || has(c.GCPProjectID),
		"crm_operation":        has(c.HubSpotToken) || has(c.SalesforceToken, c.SalesforceDomain),
		"enrich_data":          has(c.ClearbitKey) || has(c.PeopleDataLabsKey),
		"calendar_operation":   has(c.GoogleCalendarCredentials) || has(c.OutlookAccessToken),
		"twilio_communication": has(c.TwilioAccountSID, c.TwilioAuthToken),
		"send_email":           has(c.SendGridKey) || has(c.MailgunKey, c.MailgunDomain),
		"stripe_operation":     has(c.StripeKey),
		"docs_operation":       has(c.NotionKey) || c.GoogleDriveKey != "" || c.GoogleDriveCredentials != "" || c.ElasticsearchEnabled,
		"social_media_post":    has(c.LinkedInAccessToken, c.LinkedInAuthorURN) || has(c.TwitterBearerToken),
	}
}

func setString(dst *string, key string) {
	if v := getEnv(key, ""); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := getEnv(key, ""); v != "" {
		v = strings.ToLower(v)
		*dst = v == "true" || v == "1" || v == "yes"
	}
}

func setList(dst *[]string, key string) {
	if v := getEnv(key, ""); v != "" {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
