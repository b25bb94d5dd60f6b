package agent

import (
	"sort"
	"strings"
)

var toolKeywords = map[string][]string{
	"web_search": {
		"search", "google", "look up", "find online", "news", "web", "article", "latest",
	},
	"database_query": {
		"sql", "query", "table", "database", "rows", "report", "count", "average",
		"sum", "group by", "revenue", "orders", "bigquery", "analytics",
	},
	"crm_operation": {
		"crm", "hubspot", "salesforce", "contact", "deal", "lead", "pipeline", "opportunity",
	},
	"enrich_data": {
		"enrich", "clearbit", "people data", "company info", "firmographic", "who is", "profile",
	},
	"calendar_operation": {
		"calendar", "meeting", "schedule a", "book", "event", "availability", "free slot", "outlook",
	},
	"twilio_communication": {
		"sms", "text message", "whatsapp", "call", "phone", "twilio",
	},
	"send_email": {
		"email", "e-mail", "mail", "sendgrid", "mailgun", "newsletter", "inbox",
	},
	"stripe_operation": {
		"stripe", "payment", "invoice", "subscription", "charge", "refund", "customer billing", "transaction",
	},
	"docs_operation": {
		"doc", "document", "notion", "drive", "page", "knowledge base", "wiki", "notes",
	},
	"social_media_post": {
		"post", "tweet", "twitter", "linkedin", "social", "announce", "publish",
	},
}

// RoutingResult lists the tools a prompt most likely needs.
type RoutingResult struct {
	Tools     []string
	Scores    map[string]int
	Reasoning string
}

// ToolRouter narrows the tools offered to the model by keyword matching.
type ToolRouter struct{}

func NewToolRouter() *ToolRouter {
	return &ToolRouter{}
}

// Route scores prompt against every tool in available and returns those with
// at least one keyword hit, best first. With no hits it returns available
// unchanged.
func (r *ToolRouter) Route(prompt string, available []string) RoutingResult {
	lower := strings.ToLower(prompt)

	scores := make(map[string]int)
	for _, name := range available {
		for _, kw := range toolKeywords[name] {
			if strings.Contains(lower, kw) {
				scores[name]++
			}
		}
	}

	if len(scores) == 0 {
		return RoutingResult{
			Tools:     append([]string(nil), available...),
			Scores:    scores,
			Reasoning: "no strong keywords, offering every available tool",
		}
	}

	matched := make([]string, 0, len(scores))
	for name := range scores {
		matched = append(matched, name)
	}
	order := make(map[string]int, len(available))
	for i, name := range available {
		order[name] = i
	}
	sort.Slice(matched, func(i, j int) bool {
		if scores[matched[i]] != scores[matched[j]] {
			return scores[matched[i]] > scores[matched[j]]
		}
		return order[matched[i]] < order[matched[j]]
	})

	return RoutingResult{
		Tools:     matched,
		Scores:    scores,
		Reasoning: "prompt mentions " + strings.Join(matched, ", "),
	}
}
