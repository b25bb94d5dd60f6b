package tools

import (
	"context"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
)

var crmProviders = providers[CRM]{
	order: []string{"hubspot", "salesforce"},
	keys: map[string][]string{
		"hubspot":    {config.EnvHubSpotToken},
		"salesforce": {config.EnvSalesforceToken, config.EnvSalesforceDomain},
	},
}

var crmOperations = []string{
	"create_contact", "update_contact", "get_contact",
	"create_deal", "get_deals",
	"search_contacts", "associate_contact_deal",
}

// CRMTool reads and writes contacts and deals in HubSpot or Salesforce.
func CRMTool(crms map[string]CRM) Tool {
	p := crmProviders
	p.impl = crms

	return Tool{
		Name:        "crm_operation",
		Description: "Create, update and look up contacts and deals in HubSpot or Salesforce.",
		InputSchema: object([]string{"crm", "operation", "data"}, props{
			"crm":       enumProp("CRM system", "", p.order...),
			"operation": enumProp("Operation to perform", "", crmOperations...),
			"data": objectProp("Operation data. Contacts take email, firstname, lastname, phone; " +
				"deals take dealname, amount, dealstage, closedate and optional contact_id; " +
				"get_contact takes id or email; update_contact takes id and properties; " +
				"associate_contact_deal takes contact_id and deal_id; get_deals and search_contacts take limit"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if err := p.gate(); err != nil {
				return nil, err
			}
			crmName, err := args.RequireOneOf(input, "crm", p.order...)
			if err != nil {
				return nil, err
			}
			operation, err := args.RequireOneOf(input, "operation", crmOperations...)
			if err != nil {
				return nil, err
			}
			crm, err := p.get(crmName)
			if err != nil {
				return nil, err
			}
			data, err := args.RequireMap(input, "data")
			if err != nil {
				return nil, err
			}

			out, err := runCRM(ctx, crm, operation, data)
			if err != nil {
				return nil, err
			}
			out["crm"] = crmName
			out["operation"] = operation
			return out, nil
		},
	}
}

func runCRM(ctx context.Context, crm CRM, operation string, data map[string]any) (map[string]any, error) {
	switch operation {
	case "create_contact":
		props, err := recordProps(data, "email")
		if err != nil {
			return nil, err
		}
		rec, err := crm.CreateContact(ctx, props)
		if err != nil {
			return nil, err
		}
		return map[string]any{"contact": rec}, nil

	case "update_contact":
		id, err := args.RequireString(data, "id")
		if err != nil {
			return nil, err
		}
		props, err := recordProps(data, "")
		if err != nil {
			return nil, err
		}
		delete(props, "id")
		if len(props) == 0 {
			return nil, result.InvalidArgument("properties to update are required").With("argument", "properties")
		}
		rec, err := crm.UpdateContact(ctx, id, props)
		if err != nil {
			return nil, err
		}
		return map[string]any{"contact": rec}, nil

	case "get_contact":
		id, err := args.String(data, "id", "")
		if err != nil {
			return nil, err
		}
		email, err := args.String(data, "email", "")
		if err != nil {
			return nil, err
		}
		if id == "" && email == "" {
			return nil, result.InvalidArgument("id or email is required").With("argument", "id, email")
		}
		rec, err := crm.GetContact(ctx, id, email)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return map[string]any{"found": false}, nil
		}
		return map[string]any{"found": true, "contact": rec}, nil

	case "create_deal":
		props, err := recordProps(data, "dealname")
		if err != nil {
			return nil, err
		}
		contactID, err := args.String(data, "contact_id", "")
		if err != nil {
			return nil, err
		}
		delete(props, "contact_id")
		rec, err := crm.CreateDeal(ctx, props)
		if err != nil {
			return nil, err
		}
		out := map[string]any{"deal": rec}
		if contactID != "" {
			if err := crm.AssociateContactDeal(ctx, contactID, rec.ID); err != nil {
				return nil, err
			}
			out["associated_contact_id"] = contactID
		}
		return out, nil

	case "get_deals":
		limit, err := args.IntInRange(data, "limit", 10, 1, 100)
		if err != nil {
			return nil, err
		}
		deals, err := crm.GetDeals(ctx, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"deals": nonNil(deals), "count": len(deals)}, nil

	case "search_contacts":
		email, err := args.RequireString(data, "email")
		if err != nil {
			return nil, err
		}
		limit, err := args.IntInRange(data, "limit", 10, 1, 100)
		if err != nil {
			return nil, err
		}
		contacts, err := crm.SearchContacts(ctx, email, limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"contacts": nonNil(contacts), "count": len(contacts)}, nil

	case "associate_contact_deal":
		contactID, err := args.RequireString(data, "contact_id")
		if err != nil {
			return nil, err
		}
		dealID, err := args.RequireString(data, "deal_id")
		if err != nil {
			return nil, err
		}
		if err := crm.AssociateContactDeal(ctx, contactID, dealID); err != nil {
			return nil, err
		}
		return map[string]any{"contact_id": contactID, "deal_id": dealID, "associated": true}, nil
	}
	return nil, result.InvalidArgument("unsupported operation %q", operation).With("argument", "operation")
}

// recordProps takes the record fields from data.properties when present, or
// from data itself. required, when set, must be among them.
func recordProps(data map[string]any, required string) (map[string]any, error) {
	src := data
	if nested, err := args.OptionalMap(data, "properties"); err != nil {
		return nil, err
	} else if len(nested) > 0 {
		src = nested
	}
	props := make(map[string]any, len(src))
	for k, v := range src {
		if k == "properties" || v == nil {
			continue
		}
		props[k] = v
	}
	if required != "" {
		if _, err := args.RequireString(props, required); err != nil {
			return nil, err
		}
	}
	return props, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
