package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

func TestHubSpotGetContactByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v3/objects/contacts/ada@acme.test" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("idProperty") != "email" {
			t.Errorf("idProperty = %q", r.URL.Query().Get("idProperty"))
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hs-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"id": "101", "properties": {"email": "ada@acme.test", "hs_object_id": "101"}, "createdAt": "2024-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	h := service.NewHubSpot("hs-token", service.WithBaseURL(srv.URL))
	rec, err := h.GetContact(context.Background(), "", "ada@acme.test")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if rec.ID != "101" || rec.Properties["email"] != "ada@acme.test" {
		t.Errorf("rec = %+v", rec)
	}
	if _, ok := rec.Properties["hs_object_id"]; ok {
		t.Error("hs_object_id should be stripped")
	}
}

func TestHubSpotCreateDealDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Properties map[string]string `json:"properties"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Properties["pipeline"] != "default" || body.Properties["dealstage"] != "appointmentscheduled" {
			t.Errorf("properties = %v", body.Properties)
		}
		if body.Properties["amount"] != "1500" {
			t.Errorf("amount = %q, want stringified number", body.Properties["amount"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "9", "properties": {"dealname": "Renewal"}}`))
	}))
	defer srv.Close()

	h := service.NewHubSpot("t", service.WithBaseURL(srv.URL))
	rec, err := h.CreateDeal(context.Background(), map[string]any{"dealname": "Renewal", "amount": float64(1500)})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if rec.ID != "9" {
		t.Errorf("id = %q", rec.ID)
	}
}

func TestHubSpotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status": "error", "message": "resource not found"}`))
	}))
	defer srv.Close()

	h := service.NewHubSpot("t", service.WithBaseURL(srv.URL))
	_, err := h.GetContact(context.Background(), "404", "")
	e, _ := result.As(err)
	if e == nil || e.Kind != result.KindProviderError || !strings.Contains(e.Message, "resource not found") {
		t.Errorf("err = %v", err)
	}
}

func TestSalesforceGetContactByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); !strings.Contains(q, `Email = 'o\'brien@acme.test'`) {
			t.Errorf("soql = %s", q)
		}
		w.Write([]byte(`{"totalSize": 1, "records": [{"attributes": {"type": "Contact"}, "Id": "003X", "Email": "o'brien@acme.test"}]}`))
	}))
	defer srv.Close()

	s := service.NewSalesforce("sf-token", "acme.my.salesforce.com", service.WithBaseURL(srv.URL))
	rec, err := s.GetContact(context.Background(), "", "o'brien@acme.test")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if rec == nil || rec.ID != "003X" {
		t.Fatalf("rec = %+v", rec)
	}
	if _, ok := rec.Properties["attributes"]; ok {
		t.Error("attributes should be stripped")
	}
}

func TestSalesforceCreateDealDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sobjects/Opportunity" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["Name"] != "Renewal" || body["StageName"] != "Prospecting" || body["CloseDate"] == nil {
			t.Errorf("body = %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "006X", "success": true, "errors": []}`))
	}))
	defer srv.Close()

	s := service.NewSalesforce("t", "acme", service.WithBaseURL(srv.URL))
	rec, err := s.CreateDeal(context.Background(), map[string]any{"dealname": "Renewal"})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if rec.ID != "006X" {
		t.Errorf("id = %q", rec.ID)
	}
}

func TestSalesforceInstanceURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acme.my.salesforce.com", "https://acme.my.salesforce.com/services/data/v59.0"},
		{"https://acme.my.salesforce.com/", "https://acme.my.salesforce.com/services/data/v59.0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := service.SalesforceInstanceURL(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
