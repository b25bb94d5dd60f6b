package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/toolrelay/toolrelay/internal/service"
)

func TestClearbitPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/people/find" || r.URL.Query().Get("email") != "ada@acme.test" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{
			"name": {"fullName": "Ada Lovelace"},
			"email": "ada@acme.test",
			"employment": {"name": "Acme", "title": "CTO"},
			"twitter": {"handle": "ada"}
		}`))
	}))
	defer srv.Close()

	c := service.NewClearbit("cb-key", service.WithBaseURL(srv.URL))
	p, err := c.EnrichPerson(context.Background(), "ada@acme.test")
	if err != nil {
		t.Fatalf("EnrichPerson: %v", err)
	}
	if p == nil || p.FullName != "Ada Lovelace" || p.Company != "Acme" || p.Twitter != "@ada" {
		t.Errorf("person = %+v", p)
	}
}

func TestEnrichNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"type": "not_found", "message": "No matching records"}}`))
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		enricher interface {
			EnrichCompany(context.Context, string) (*service.Company, error)
		}
	}{
		{"clearbit", service.NewClearbit("k", service.WithBaseURL(srv.URL))},
		{"people_data_labs", service.NewPeopleDataLabs("k", service.WithBaseURL(srv.URL))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co, err := tt.enricher.EnrichCompany(context.Background(), "nowhere.test")
			if err != nil || co != nil {
				t.Errorf("got %+v, %v; want nil, nil", co, err)
			}
		})
	}
}

func TestPeopleDataLabsCompany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "pdl-key" {
			t.Errorf("X-Api-Key = %q", r.Header.Get("X-Api-Key"))
		}
		if r.URL.Query().Get("website") != "acme.test" {
			t.Errorf("website = %q", r.URL.Query().Get("website"))
		}
		w.Write([]byte(`{"status": 200, "name": "acme", "website": "acme.test", "employee_count": 120, "location": {"name": "berlin, germany"}}`))
	}))
	defer srv.Close()

	p := service.NewPeopleDataLabs("pdl-key", service.WithBaseURL(srv.URL))
	co, err := p.EnrichCompany(context.Background(), "acme.test")
	if err != nil {
		t.Fatalf("EnrichCompany: %v", err)
	}
	if co.Employees != 120 || co.Location != "berlin, germany" {
		t.Errorf("company = %+v", co)
	}
}
