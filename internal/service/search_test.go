package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
	"google.golang.org/api/option"
)

func TestSerpAPISearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "acme corp" || q.Get("tbm") != "nws" || q.Get("api_key") != "serp-key" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{
			"search_information": {"total_results": 42},
			"news_results": [
				{"position": 1, "title": "Acme wins", "link": "https://news/1", "snippet": "s1", "source": "Wire", "date": "1 day ago"},
				{"position": 2, "title": "Acme grows", "link": "https://news/2", "snippet": "s2"}
			]
		}`))
	}))
	defer srv.Close()

	s := service.NewSerpAPI("serp-key", service.WithBaseURL(srv.URL))
	res, err := s.Search(context.Background(), service.SearchQuery{Query: "acme corp", Num: 1, Type: "news"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalResults != 42 || len(res.Items) != 1 {
		t.Fatalf("got total=%d items=%d", res.TotalResults, len(res.Items))
	}
	if res.Items[0].Source != "Wire" || res.Items[0].Title != "Acme wins" {
		t.Errorf("item = %+v", res.Items[0])
	}
}

func TestSerpAPINoResultsIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	s := service.NewSerpAPI("k", service.WithBaseURL(srv.URL))
	res, err := s.Search(context.Background(), service.SearchQuery{Query: "zzzz", Num: 10, Type: "web"})
	if err != nil {
		t.Fatalf("empty result should be success, got %v", err)
	}
	if res.Items == nil || len(res.Items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", res.Items)
	}
}

func TestSerpAPIInvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`))
	}))
	defer srv.Close()

	s := service.NewSerpAPI("bad", service.WithBaseURL(srv.URL))
	_, err := s.Search(context.Background(), service.SearchQuery{Query: "x", Num: 10})
	if result.StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401 provider error", err)
	}
}

func TestCustomSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("cx") != "engine-1" || q.Get("num") != "10" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"searchInformation": {"totalResults": "1200"},
			"items": [{"title": "Acme", "link": "https://acme.test", "snippet": "home", "displayLink": "acme.test"}]
		}`))
	}))
	defer srv.Close()

	s, err := service.NewCustomSearch(context.Background(), "cse-key", "engine-1", option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewCustomSearch: %v", err)
	}
	res, err := s.Search(context.Background(), service.SearchQuery{Query: "acme", Num: 50, Type: "web"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.TotalResults != 1200 || len(res.Items) != 1 || res.Items[0].Position != 1 {
		t.Errorf("res = %+v", res)
	}
}

func TestCustomSearchForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid"}}`))
	}))
	defer srv.Close()

	s, err := service.NewCustomSearch(context.Background(), "bad", "cx", option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewCustomSearch: %v", err)
	}
	_, err = s.Search(context.Background(), service.SearchQuery{Query: "acme", Num: 5})
	if result.StatusCode(err) != http.StatusForbidden {
		t.Errorf("err = %v, want 403 provider error", err)
	}
}

func TestSerpAPITransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	down := srv.URL
	srv.Close()

	s := service.NewSerpAPI("serp-secret", service.WithBaseURL(down))
	_, err := s.Search(context.Background(), service.SearchQuery{Query: "acme corp", Num: 10, Type: "web"})
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if strings.Contains(err.Error(), "serp-secret") || strings.Contains(err.Error(), "api_key") {
		t.Errorf("error leaks the query string: %v", err)
	}
	if !strings.Contains(err.Error(), "/search.json") {
		t.Errorf("error does not name the path: %v", err)
	}
}
