package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const salesforceAPIVersion = "v59.0"

// Salesforce opportunities need a stage and close date on creation.
const (
	salesforceDefaultStage    = "Prospecting"
	salesforceDefaultCloseDay = 30 * 24 * time.Hour
)

var salesforceContactFields = map[string]string{
	"email":     "Email",
	"firstname": "FirstName",
	"lastname":  "LastName",
	"phone":     "Phone",
	"title":     "Title",
}

var salesforceDealFields = map[string]string{
	"dealname":  "Name",
	"amount":    "Amount",
	"dealstage": "StageName",
	"closedate": "CloseDate",
}

// Salesforce uses the REST sObject and SOQL query endpoints with a
// pre-issued access token.
type Salesforce struct {
	rest *restClient
}

// SalesforceInstanceURL turns SALESFORCE_DOMAIN ("acme.my.salesforce.com"
// or a full URL) into the REST API root.
func SalesforceInstanceURL(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + "/services/data/" + salesforceAPIVersion
}

func NewSalesforce(token, domain string, opts ...Option) *Salesforce {
	o := buildOptions(SalesforceInstanceURL(domain), opts)
	return &Salesforce{rest: newRESTClient("salesforce", o, bearer(token))}
}

type sfCreateResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

type sfQueryResponse struct {
	TotalSize int              `json:"totalSize"`
	Records   []map[string]any `json:"records"`
}

func sfRecord(raw map[string]any) CRMRecord {
	props := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "attributes" || k == "Id" {
			continue
		}
		props[k] = v
	}
	rec := CRMRecord{ID: str(raw, "Id"), Properties: props}
	rec.CreatedAt = str(raw, "CreatedDate")
	rec.UpdatedAt = str(raw, "LastModifiedDate")
	return rec
}

// sfFields maps lowercase generic names onto sObject fields. Keys already in
// sObject form (leading capital) pass through unchanged.
func sfFields(in map[string]any, mapping map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if f, ok := mapping[strings.ToLower(k)]; ok {
			out[f] = v
			continue
		}
		if k != "" && k[0] >= 'A' && k[0] <= 'Z' {
			out[k] = v
		}
	}
	return out
}

func soqlQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

func (s *Salesforce) create(ctx context.Context, object string, fields map[string]any) (*CRMRecord, error) {
	var resp sfCreateResponse
	if _, err := s.rest.do(ctx, http.MethodPost, "/sobjects/"+object, nil, fields, &resp); err != nil {
		return nil, err
	}
	return &CRMRecord{ID: resp.ID, Properties: fields}, nil
}

func (s *Salesforce) query(ctx context.Context, soql string) ([]CRMRecord, error) {
	var resp sfQueryResponse
	if _, err := s.rest.do(ctx, http.MethodGet, "/query", url.Values{"q": {soql}}, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]CRMRecord, 0, len(resp.Records))
	for _, r := range resp.Records {
		out = append(out, sfRecord(r))
	}
	return out, nil
}

func (s *Salesforce) CreateContact(ctx context.Context, props map[string]any) (*CRMRecord, error) {
	return s.create(ctx, "Contact", sfFields(props, salesforceContactFields))
}

func (s *Salesforce) UpdateContact(ctx context.Context, id string, props map[string]any) (*CRMRecord, error) {
	fields := sfFields(props, salesforceContactFields)
	if _, err := s.rest.do(ctx, http.MethodPatch, "/sobjects/Contact/"+url.PathEscape(id), nil, fields, nil); err != nil {
		return nil, err
	}
	return &CRMRecord{ID: id, Properties: fields}, nil
}

func (s *Salesforce) GetContact(ctx context.Context, id, email string) (*CRMRecord, error) {
	if id != "" {
		var raw map[string]any
		q := url.Values{"fields": {"Id,FirstName,LastName,Email,Phone,Title,CreatedDate,LastModifiedDate"}}
		if _, err := s.rest.do(ctx, http.MethodGet, "/sobjects/Contact/"+url.PathEscape(id), q, nil, &raw); err != nil {
			return nil, err
		}
		rec := sfRecord(raw)
		return &rec, nil
	}

	recs, err := s.query(ctx, "SELECT Id, FirstName, LastName, Email, Phone, Title, CreatedDate, LastModifiedDate "+
		"FROM Contact WHERE Email = "+soqlQuote(email)+" LIMIT 1")
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *Salesforce) CreateDeal(ctx context.Context, props map[string]any) (*CRMRecord, error) {
	fields := sfFields(props, salesforceDealFields)
	if _, ok := fields["StageName"]; !ok {
		fields["StageName"] = salesforceDefaultStage
	}
	if _, ok := fields["CloseDate"]; !ok {
		fields["CloseDate"] = time.Now().Add(salesforceDefaultCloseDay).Format("2006-01-02")
	}
	return s.create(ctx, "Opportunity", fields)
}

func (s *Salesforce) GetDeals(ctx context.Context, limit int) ([]CRMRecord, error) {
	return s.query(ctx, fmt.Sprintf("SELECT Id, Name, Amount, StageName, CloseDate, CreatedDate "+
		"FROM Opportunity ORDER BY CreatedDate DESC LIMIT %d", limit))
}

func (s *Salesforce) SearchContacts(ctx context.Context, email string, limit int) ([]CRMRecord, error) {
	return s.query(ctx, fmt.Sprintf("SELECT Id, FirstName, LastName, Email, Phone FROM Contact "+
		"WHERE Email = %s LIMIT %d", soqlQuote(email), limit))
}

func (s *Salesforce) AssociateContactDeal(ctx context.Context, contactID, dealID string) error {
	_, err := s.create(ctx, "OpportunityContactRole", map[string]any{
		"ContactId":     contactID,
		"OpportunityId": dealID,
	})
	return err
}
