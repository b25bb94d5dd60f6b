package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/toolrelay/toolrelay/internal/service"
	"google.golang.org/api/option"
)

func TestGoogleCalendarCreateEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["summary"] != "Demo" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "evt1", "summary": "Demo", "status": "confirmed",
			"htmlLink": "https://calendar.google.com/evt1",
			"start": {"dateTime": "2025-03-01T10:00:00Z"},
			"end": {"dateTime": "2025-03-01T10:30:00Z"},
			"attendees": [{"email": "bob@acme.test"}]
		}`))
	}))
	defer srv.Close()

	cal, err := service.NewGoogleCalendar(context.Background(), "", "primary",
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewGoogleCalendar: %v", err)
	}
	ev, err := cal.CreateEvent(context.Background(), service.EventInput{
		Summary:   "Demo",
		Start:     "2025-03-01T10:00:00Z",
		End:       "2025-03-01T10:30:00Z",
		Attendees: []string{"bob@acme.test"},
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev.ID != "evt1" || ev.Start != "2025-03-01T10:00:00Z" || len(ev.Attendees) != 1 {
		t.Errorf("event = %+v", ev)
	}
}

func TestOutlookFreeBusySkipsFree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/ada@acme.test/calendarView" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"value": [
			{"id": "1", "subject": "Standup", "showAs": "busy",
			 "start": {"dateTime": "2025-03-01T09:00:00.0000000", "timeZone": "UTC"},
			 "end": {"dateTime": "2025-03-01T09:15:00.0000000", "timeZone": "UTC"}},
			{"id": "2", "subject": "Focus", "showAs": "free",
			 "start": {"dateTime": "2025-03-01T10:00:00.0000000", "timeZone": "UTC"},
			 "end": {"dateTime": "2025-03-01T12:00:00.0000000", "timeZone": "UTC"}}
		]}`))
	}))
	defer srv.Close()

	o := service.NewOutlook("tok", "ada@acme.test", service.WithBaseURL(srv.URL))
	slots, err := o.FreeBusy(context.Background(), "2025-03-01T00:00:00Z", "2025-03-02T00:00:00Z")
	if err != nil {
		t.Fatalf("FreeBusy: %v", err)
	}
	if len(slots) != 1 || slots[0].Start != "2025-03-01T09:00:00Z" {
		t.Errorf("slots = %+v", slots)
	}
}

func TestOutlookCreateEventConvertsTimes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/events" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Start struct {
				DateTime string `json:"dateTime"`
				TimeZone string `json:"timeZone"`
			} `json:"start"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Start.DateTime != "2025-03-01T08:00:00" || body.Start.TimeZone != "UTC" {
			t.Errorf("start = %+v", body.Start)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "AAMk", "subject": "Call"}`))
	}))
	defer srv.Close()

	o := service.NewOutlook("tok", "me", service.WithBaseURL(srv.URL))
	ev, err := o.CreateEvent(context.Background(), service.EventInput{
		Summary: "Call",
		Start:   "2025-03-01T10:00:00+02:00",
		End:     "2025-03-01T10:30:00+02:00",
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if ev.ID != "AAMk" {
		t.Errorf("id = %q", ev.ID)
	}
}
