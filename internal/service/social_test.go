package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/toolrelay/toolrelay/internal/service"
)

func TestTweetLength(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain", "hello", 5},
		{"short url", "see http://a.b", 4 + 23},
		{"long url", "read https://example.com/" + strings.Repeat("x", 100), 5 + 23},
		{"runes", "héllo", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.TweetLength(tt.text); got != tt.want {
				t.Errorf("TweetLength = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTwitterPostAppendsMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "launch day https://img.test/1.png" {
			t.Errorf("text = %q", body["text"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data": {"id": "1800", "text": "launch day"}}`))
	}))
	defer srv.Close()

	tw := service.NewTwitter("user-token", service.WithBaseURL(srv.URL))
	rc, err := tw.Post(context.Background(), "launch day", []string{"https://img.test/1.png"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if rc.ID != "1800" || rc.Platform != "twitter" {
		t.Errorf("receipt = %+v", rc)
	}
}

func TestLinkedInPostReadsRestliID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
			t.Errorf("missing restli header")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["author"] != "urn:li:person:abc" {
			t.Errorf("author = %v", body["author"])
		}
		w.Header().Set("X-RestLi-Id", "urn:li:share:99")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	li := service.NewLinkedIn("li-token", "urn:li:person:abc", service.WithBaseURL(srv.URL))
	rc, err := li.Post(context.Background(), "hello network", nil)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if rc.ID != "urn:li:share:99" {
		t.Errorf("id = %q", rc.ID)
	}
}
