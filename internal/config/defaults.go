package config

import "time"

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 5000
	DefaultEnvironment = "development"
	DefaultLogLevel    = "info"

	DefaultRateLimitRequests = 100
	DefaultRateLimitPeriod   = 60 // seconds

	DefaultProviderTimeout = 30 * time.Second

	DefaultHealthProbeSchedule = "@every 5m"

	DefaultDatabaseMaxRows = 1000
	DefaultQueryTimeout    = 30 // seconds
	DefaultMaxQueryTimeout = 300

	DefaultBigQueryLocation       = "US"
	DefaultMaxQueryBytesProcessed = 10_000_000_000 // 10GB

	DefaultElasticsearchPort       = 9200
	DefaultElasticsearchScheme     = "http"
	DefaultElasticsearchMaxRetries = 3
	DefaultElasticsearchDocsIndex  = "toolrelay-docs"

	DefaultGoogleCalendarID = "primary"
	DefaultOutlookUser      = "me"

	DefaultAgentTimeout       = 120 // seconds
	DefaultAgentMaxIterations = 10
	DefaultAnthropicModel     = "claude-sonnet-4-5"

	DefaultServiceName = "toolrelay"
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

var DefaultSensitiveColumns = []string{
	"email", "phone", "ssn", "social_security_number",
	"credit_card", "password", "secret", "token",
	"api_key", "access_key", "private_key",
}

var DefaultPIIKeywords = []string{
	"password", "ssn", "social security", "credit card number",
	"bank account", "private key", "access token", "api key",
}
