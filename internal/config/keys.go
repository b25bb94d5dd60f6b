package config

// Environment variable names. Tools quote these in not_configured failures
// so operators know exactly what to set.
const (
	EnvConfigFile = "TOOLRELAY_CONFIG"

	EnvSerpAPIKey           = "SERPAPI_KEY"
	EnvGoogleSearchKey      = "GOOGLE_CUSTOM_SEARCH_KEY"
	EnvGoogleSearchCX       = "GOOGLE_CUSTOM_SEARCH_CX"
	EnvDatabaseURL          = "DATABASE_URL"
	EnvGCPProjectID         = "GCP_PROJECT_ID"
	EnvHubSpotToken         = "HUBSPOT_PRIVATE_APP_ACCESS_TOKEN"
	EnvSalesforceToken      = "SALESFORCE_TOKEN"
	EnvSalesforceDomain     = "SALESFORCE_DOMAIN"
	EnvClearbitKey          = "CLEARBIT_KEY"
	EnvPeopleDataLabsKey    = "PEOPLE_DATA_LABS_KEY"
	EnvGoogleCalendarCreds  = "GOOGLE_CALENDAR_CREDENTIALS"
	EnvOutlookAccessToken   = "OUTLOOK_ACCESS_TOKEN"
	EnvTwilioAccountSID     = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken      = "TWILIO_AUTH_TOKEN"
	EnvTwilioPhoneNumber    = "TWILIO_PHONE_NUMBER"
	EnvTwilioWhatsAppNumber = "TWILIO_WHATSAPP_NUMBER"
	EnvSendGridKey          = "SENDGRID_KEY"
	EnvMailgunKey           = "MAILGUN_KEY"
	EnvMailgunDomain        = "MAILGUN_DOMAIN"
	EnvStripeKey            = "STRIPE_KEY"
	EnvNotionKey            = "NOTION_KEY"
	EnvGoogleDriveKey       = "GOOGLE_DRIVE_KEY"
	EnvGoogleDriveCreds     = "GOOGLE_DRIVE_CREDENTIALS"
	EnvElasticsearchEnabled = "ELASTICSEARCH_ENABLED"
	EnvLinkedInAccessToken  = "LINKEDIN_ACCESS_TOKEN"
	EnvLinkedInAuthorURN    = "LINKEDIN_AUTHOR_URN"
	EnvTwitterBearerToken   = "TWITTER_BEARER_TOKEN"
	EnvAnthropicAPIKey      = "ANTHROPIC_API_KEY"
)
