package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is a calendar entry in either provider.
type Event struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Status      string   `json:"status,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// EventInput carries the fields to set on create or update. Empty fields are
// left untouched on update.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       string
	End         string
	TimeZone    string
	Attendees   []string
}

// BusySlot is an interval in which the calendar owner is unavailable.
type BusySlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ─── Google Calendar ──────────────────────────────────────────────────────────

type GoogleCalendar struct {
	svc        *calendar.Service
	calendarID string
}

// NewGoogleCalendar authenticates with a service-account credentials file.
func NewGoogleCalendar(ctx context.Context, credentialsFile, calendarID string, extra ...option.ClientOption) (*GoogleCalendar, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile), option.WithScopes(calendar.CalendarScope))
	}
	opts = append(opts, extra...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar.NewService: %w", err)
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID}, nil
}

func googleEventTime(ts, tz string) *calendar.EventDateTime {
	if ts == "" {
		return nil
	}
	// date-only values make all-day events
	if len(ts) == len("2006-01-02") {
		return &calendar.EventDateTime{Date: ts}
	}
	return &calendar.EventDateTime{DateTime: ts, TimeZone: tz}
}

func (in EventInput) googleEvent() *calendar.Event {
	ev := &calendar.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       googleEventTime(in.Start, in.TimeZone),
		End:         googleEventTime(in.End, in.TimeZone),
	}
	for _, a := range in.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: a})
	}
	return ev
}

func fromGoogleEvent(ev *calendar.Event) Event {
	out := Event{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Status:      ev.Status,
		Link:        ev.HtmlLink,
	}
	if ev.Start != nil {
		out.Start = ev.Start.DateTime
		if out.Start == "" {
			out.Start = ev.Start.Date
		}
	}
	if ev.End != nil {
		out.End = ev.End.DateTime
		if out.End == "" {
			out.End = ev.End.Date
		}
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	return out
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	ev, err := g.svc.Events.Insert(g.calendarID, in.googleEvent()).Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_calendar", err)
	}
	out := fromGoogleEvent(ev)
	return &out, nil
}

func (g *GoogleCalendar) ListEvents(ctx context.Context, timeMin, timeMax string, max int) ([]Event, error) {
	call := g.svc.Events.List(g.calendarID).SingleEvents(true).OrderBy("startTime").MaxResults(int64(max))
	if timeMin != "" {
		call = call.TimeMin(timeMin)
	}
	if timeMax != "" {
		call = call.TimeMax(timeMax)
	}
	evs, err := call.Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_calendar", err)
	}
	out := make([]Event, 0, len(evs.Items))
	for _, ev := range evs.Items {
		out = append(out, fromGoogleEvent(ev))
	}
	return out, nil
}

func (g *GoogleCalendar) UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error) {
	ev, err := g.svc.Events.Patch(g.calendarID, id, in.googleEvent()).Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_calendar", err)
	}
	out := fromGoogleEvent(ev)
	return &out, nil
}

func (g *GoogleCalendar) FreeBusy(ctx context.Context, timeMin, timeMax string) ([]BusySlot, error) {
	resp, err := g.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: timeMin,
		TimeMax: timeMax,
		Items:   []*calendar.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_calendar", err)
	}
	slots := []BusySlot{}
	if cal, ok := resp.Calendars[g.calendarID]; ok {
		for _, p := range cal.Busy {
			slots = append(slots, BusySlot{Start: p.Start, End: p.End})
		}
	}
	return slots, nil
}

// ─── Outlook (Microsoft Graph) ────────────────────────────────────────────────

// Outlook talks to Microsoft Graph with a pre-issued access token.
type Outlook struct {
	rest *restClient
	user string
}

func NewOutlook(token, user string, opts ...Option) *Outlook {
	o := buildOptions("https://graph.microsoft.com/v1.0", opts)
	return &Outlook{rest: newRESTClient("outlook", o, bearer(token)), user: user}
}

func (o *Outlook) root() string {
	if o.user == "" || o.user == "me" {
		return "/me"
	}
	return "/users/" + url.PathEscape(o.user)
}

type graphTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID      string `json:"id,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    *struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body,omitempty"`
	BodyPreview string     `json:"bodyPreview,omitempty"`
	Start       *graphTime `json:"start,omitempty"`
	End         *graphTime `json:"end,omitempty"`
	Location    *struct {
		DisplayName string `json:"displayName"`
	} `json:"location,omitempty"`
	Attendees []graphAttendee `json:"attendees,omitempty"`
	ShowAs    string          `json:"showAs,omitempty"`
	WebLink   string          `json:"webLink,omitempty"`
}

type graphAttendee struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
	Type string `json:"type"`
}

// toGraphTime converts RFC 3339 into Graph's zone-less dateTime in UTC.
// Values that do not parse pass through with the given zone.
func toGraphTime(ts, tz string) *graphTime {
	if ts == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return &graphTime{DateTime: t.UTC().Format("2006-01-02T15:04:05"), TimeZone: "UTC"}
	}
	if tz == "" {
		tz = "UTC"
	}
	return &graphTime{DateTime: ts, TimeZone: tz}
}

func fromGraphTime(g *graphTime) string {
	if g == nil {
		return ""
	}
	if strings.EqualFold(g.TimeZone, "UTC") {
		// graph pads to seven fractional digits
		dt, _, _ := strings.Cut(g.DateTime, ".")
		return dt + "Z"
	}
	return g.DateTime
}

func (in EventInput) graphEvent() graphEvent {
	ev := graphEvent{
		Subject: in.Summary,
		Start:   toGraphTime(in.Start, in.TimeZone),
		End:     toGraphTime(in.End, in.TimeZone),
	}
	if in.Description != "" {
		ev.Body = &struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		}{"HTML", in.Description}
	}
	if in.Location != "" {
		ev.Location = &struct {
			DisplayName string `json:"displayName"`
		}{in.Location}
	}
	for _, a := range in.Attendees {
		var att graphAttendee
		att.EmailAddress.Address = a
		att.Type = "required"
		ev.Attendees = append(ev.Attendees, att)
	}
	return ev
}

func (ev graphEvent) event() Event {
	out := Event{
		ID:          ev.ID,
		Summary:     ev.Subject,
		Description: ev.BodyPreview,
		Start:       fromGraphTime(ev.Start),
		End:         fromGraphTime(ev.End),
		Status:      ev.ShowAs,
		Link:        ev.WebLink,
	}
	if ev.Location != nil {
		out.Location = ev.Location.DisplayName
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, a.EmailAddress.Address)
	}
	return out
}

func (o *Outlook) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	var ev graphEvent
	if _, err := o.rest.do(ctx, http.MethodPost, o.root()+"/events", nil, in.graphEvent(), &ev); err != nil {
		return nil, err
	}
	out := ev.event()
	return &out, nil
}

func (o *Outlook) ListEvents(ctx context.Context, timeMin, timeMax string, max int) ([]Event, error) {
	if timeMin == "" {
		timeMin = time.Now().UTC().Format(time.RFC3339)
	}
	if timeMax == "" {
		timeMax = time.Now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339)
	}
	q := url.Values{
		"startDateTime": {timeMin},
		"endDateTime":   {timeMax},
		"$top":          {strconv.Itoa(max)},
		"$orderby":      {"start/dateTime"},
	}
	var resp struct {
		Value []graphEvent `json:"value"`
	}
	if _, err := o.rest.do(ctx, http.MethodGet, o.root()+"/calendarView", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(resp.Value))
	for _, ev := range resp.Value {
		out = append(out, ev.event())
	}
	return out, nil
}

func (o *Outlook) UpdateEvent(ctx context.Context, id string, in EventInput) (*Event, error) {
	var ev graphEvent
	if _, err := o.rest.do(ctx, http.MethodPatch, o.root()+"/events/"+url.PathEscape(id), nil, in.graphEvent(), &ev); err != nil {
		return nil, err
	}
	out := ev.event()
	return &out, nil
}

// FreeBusy reads the calendar view and keeps every entry not shown as free.
func (o *Outlook) FreeBusy(ctx context.Context, timeMin, timeMax string) ([]BusySlot, error) {
	evs, err := o.ListEvents(ctx, timeMin, timeMax, 100)
	if err != nil {
		return nil, err
	}
	slots := []BusySlot{}
	for _, ev := range evs {
		if strings.EqualFold(ev.Status, "free") {
			continue
		}
		slots = append(slots, BusySlot{Start: ev.Start, End: ev.End})
	}
	return slots, nil
}
