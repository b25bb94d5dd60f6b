package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CRMRecord is a contact or deal as returned by any CRM adapter.
type CRMRecord struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	CreatedAt  string         `json:"created_at,omitempty"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
}

var (
	hubspotContactProps = []string{"email", "firstname", "lastname", "phone", "company", "lifecyclestage"}
	hubspotDealProps    = []string{"dealname", "amount", "dealstage", "pipeline", "closedate"}
)

const (
	hubspotDefaultPipeline  = "default"
	hubspotDefaultDealStage = "appointmentscheduled"
)

// HubSpot talks to the CRM v3 objects API with a private app token.
type HubSpot struct {
	rest *restClient
}

func NewHubSpot(token string, opts ...Option) *HubSpot {
	o := buildOptions("https://api.hubapi.com", opts)
	return &HubSpot{rest: newRESTClient("hubspot", o, bearer(token))}
}

type hubspotObject struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	CreatedAt  string         `json:"createdAt"`
	UpdatedAt  string         `json:"updatedAt"`
}

func (o hubspotObject) record() CRMRecord {
	props := o.Properties
	if props == nil {
		props = map[string]any{}
	}
	// hubspot echoes these as properties too
	delete(props, "hs_object_id")
	delete(props, "createdate")
	delete(props, "lastmodifieddate")
	return CRMRecord{ID: o.ID, Properties: props, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt}
}

type hubspotList struct {
	Results []hubspotObject `json:"results"`
}

func (l hubspotList) records() []CRMRecord {
	out := make([]CRMRecord, 0, len(l.Results))
	for _, o := range l.Results {
		out = append(out, o.record())
	}
	return out
}

func (h *HubSpot) CreateContact(ctx context.Context, props map[string]any) (*CRMRecord, error) {
	var obj hubspotObject
	body := map[string]any{"properties": hubspotProps(props)}
	if _, err := h.rest.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", nil, body, &obj); err != nil {
		return nil, err
	}
	rec := obj.record()
	return &rec, nil
}

func (h *HubSpot) UpdateContact(ctx context.Context, id string, props map[string]any) (*CRMRecord, error) {
	var obj hubspotObject
	body := map[string]any{"properties": hubspotProps(props)}
	if _, err := h.rest.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+url.PathEscape(id), nil, body, &obj); err != nil {
		return nil, err
	}
	rec := obj.record()
	return &rec, nil
}

// GetContact looks a contact up by id, or by email when id is empty.
func (h *HubSpot) GetContact(ctx context.Context, id, email string) (*CRMRecord, error) {
	q := url.Values{"properties": {strings.Join(hubspotContactProps, ",")}}
	key := id
	if key == "" {
		key = email
		q.Set("idProperty", "email")
	}
	var obj hubspotObject
	if _, err := h.rest.do(ctx, http.MethodGet, "/crm/v3/objects/contacts/"+url.PathEscape(key), q, nil, &obj); err != nil {
		return nil, err
	}
	rec := obj.record()
	return &rec, nil
}

func (h *HubSpot) CreateDeal(ctx context.Context, props map[string]any) (*CRMRecord, error) {
	p := hubspotProps(props)
	if p["pipeline"] == "" {
		p["pipeline"] = hubspotDefaultPipeline
	}
	if p["dealstage"] == "" {
		p["dealstage"] = hubspotDefaultDealStage
	}
	var obj hubspotObject
	if _, err := h.rest.do(ctx, http.MethodPost, "/crm/v3/objects/deals", nil, map[string]any{"properties": p}, &obj); err != nil {
		return nil, err
	}
	rec := obj.record()
	return &rec, nil
}

func (h *HubSpot) GetDeals(ctx context.Context, limit int) ([]CRMRecord, error) {
	q := url.Values{
		"limit":      {strconv.Itoa(limit)},
		"properties": {strings.Join(hubspotDealProps, ",")},
	}
	var list hubspotList
	if _, err := h.rest.do(ctx, http.MethodGet, "/crm/v3/objects/deals", q, nil, &list); err != nil {
		return nil, err
	}
	return list.records(), nil
}

func (h *HubSpot) SearchContacts(ctx context.Context, email string, limit int) ([]CRMRecord, error) {
	body := map[string]any{
		"filterGroups": []any{map[string]any{
			"filters": []any{map[string]any{
				"propertyName": "email",
				"operator":     "EQ",
				"value":        email,
			}},
		}},
		"properties": hubspotContactProps,
		"limit":      limit,
	}
	var list hubspotList
	if _, err := h.rest.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", nil, body, &list); err != nil {
		return nil, err
	}
	return list.records(), nil
}

func (h *HubSpot) AssociateContactDeal(ctx context.Context, contactID, dealID string) error {
	path := fmt.Sprintf("/crm/v4/objects/contacts/%s/associations/default/deals/%s",
		url.PathEscape(contactID), url.PathEscape(dealID))
	_, err := h.rest.do(ctx, http.MethodPut, path, nil, nil, nil)
	return err
}

// hubspotProps stringifies property values; the API rejects numbers.
func hubspotProps(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
