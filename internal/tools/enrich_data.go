package tools

import (
	"context"
	"net/mail"
	"strings"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
)

var enrichProviders = providers[Enricher]{
	order: []string{"clearbit", "people_data_labs"},
	keys: map[string][]string{
		"clearbit":         {config.EnvClearbitKey},
		"people_data_labs": {config.EnvPeopleDataLabsKey},
	},
}

// EnrichDataTool looks up a person by email or a company by domain.
func EnrichDataTool(enrichers map[string]Enricher) Tool {
	p := enrichProviders
	p.impl = enrichers

	return Tool{
		Name:        "enrich_data",
		Description: "Enrich a contact (by email) or a company (by domain) with public profile data from Clearbit or People Data Labs.",
		InputSchema: object([]string{"provider", "type", "identifier"}, props{
			"provider":   enumProp("Enrichment provider", "", p.order...),
			"type":       enumProp("What to enrich", "", "person", "company"),
			"identifier": stringProp("Email address for a person, domain for a company"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if err := p.gate(); err != nil {
				return nil, err
			}
			provider, err := args.RequireOneOf(input, "provider", p.order...)
			if err != nil {
				return nil, err
			}
			kind, err := args.RequireOneOf(input, "type", "person", "company")
			if err != nil {
				return nil, err
			}
			enricher, err := p.get(provider)
			if err != nil {
				return nil, err
			}
			identifier, err := args.RequireString(input, "identifier")
			if err != nil {
				return nil, err
			}

			out := map[string]any{"provider": provider, "type": kind, "identifier": identifier}
			var (
				data  any
				found bool
			)
			switch kind {
			case "person":
				if _, err := mail.ParseAddress(identifier); err != nil {
					return nil, result.InvalidArgument("identifier must be an email address for type person").
						With("argument", "identifier")
				}
				person, err := enricher.EnrichPerson(ctx, identifier)
				if err != nil {
					return nil, err
				}
				data, found = person, person != nil
			case "company":
				company, err := enricher.EnrichCompany(ctx, normalizeDomain(identifier))
				if err != nil {
					return nil, err
				}
				data, found = company, company != nil
			}

			out["found"] = found
			if found {
				out["data"] = data
			}
			return out, nil
		},
	}
}

// normalizeDomain strips a scheme, path and leading www. so a pasted URL
// works as a company identifier.
func normalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}
