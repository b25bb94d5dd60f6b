package tools

import (
	"context"
	"time"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

var calendarProviders = providers[Calendar]{
	order: []string{"google", "outlook"},
	keys: map[string][]string{
		"google":  {config.EnvGoogleCalendarCreds},
		"outlook": {config.EnvOutlookAccessToken},
	},
}

var calendarActions = []string{"create_event", "get_events", "update_event", "check_availability"}

const defaultEventWindow = 7 * 24 * time.Hour

// CalendarTool manages events in Google Calendar or Outlook.
func CalendarTool(calendars map[string]Calendar) Tool {
	p := calendarProviders
	p.impl = calendars

	return Tool{
		Name:        "calendar_operation",
		Description: "Create, list and update calendar events and check availability in Google Calendar or Outlook.",
		InputSchema: object([]string{"provider", "action"}, props{
			"provider": enumProp("Calendar provider", "", p.order...),
			"action":   enumProp("Action to perform", "", calendarActions...),
			"data": objectProp("Action data. create_event takes summary, start, end (RFC 3339 or YYYY-MM-DD), " +
				"description, location, timezone, attendees; update_event takes event_id and the fields to change; " +
				"get_events and check_availability take time_min and time_max; get_events takes max_results"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if err := p.gate(); err != nil {
				return nil, err
			}
			provider, err := args.RequireOneOf(input, "provider", p.order...)
			if err != nil {
				return nil, err
			}
			action, err := args.RequireOneOf(input, "action", calendarActions...)
			if err != nil {
				return nil, err
			}
			cal, err := p.get(provider)
			if err != nil {
				return nil, err
			}
			data, err := args.OptionalMap(input, "data")
			if err != nil {
				return nil, err
			}

			out, err := runCalendar(ctx, cal, action, data)
			if err != nil {
				return nil, err
			}
			out["provider"] = provider
			out["action"] = action
			return out, nil
		},
	}
}

func runCalendar(ctx context.Context, cal Calendar, action string, data map[string]any) (map[string]any, error) {
	switch action {
	case "create_event":
		in, err := eventInput(data)
		if err != nil {
			return nil, err
		}
		if in.Summary == "" {
			return nil, result.InvalidArgument("summary is required").With("argument", "summary")
		}
		if in.Start == "" || in.End == "" {
			return nil, result.InvalidArgument("start and end are required").With("argument", "start, end")
		}
		ev, err := cal.CreateEvent(ctx, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"event": ev}, nil

	case "get_events":
		timeMin, timeMax, err := timeWindow(data, false)
		if err != nil {
			return nil, err
		}
		maxResults, err := args.IntInRange(data, "max_results", 10, 1, 250)
		if err != nil {
			return nil, err
		}
		events, err := cal.ListEvents(ctx, timeMin, timeMax, maxResults)
		if err != nil {
			return nil, err
		}
		return map[string]any{"events": nonNil(events), "count": len(events), "time_min": timeMin, "time_max": timeMax}, nil

	case "update_event":
		id, err := args.RequireString(data, "event_id")
		if err != nil {
			return nil, err
		}
		in, err := eventInput(data)
		if err != nil {
			return nil, err
		}
		if in.Summary == "" && in.Description == "" && in.Location == "" && in.Start == "" && in.End == "" && in.Attendees == nil {
			return nil, result.InvalidArgument("at least one field to update is required")
		}
		ev, err := cal.UpdateEvent(ctx, id, in)
		if err != nil {
			return nil, err
		}
		return map[string]any{"event": ev}, nil

	case "check_availability":
		timeMin, timeMax, err := timeWindow(data, true)
		if err != nil {
			return nil, err
		}
		busy, err := cal.FreeBusy(ctx, timeMin, timeMax)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"time_min":  timeMin,
			"time_max":  timeMax,
			"busy":      nonNil(busy),
			"available": len(busy) == 0,
		}, nil
	}
	return nil, result.InvalidArgument("unsupported action %q", action).With("argument", "action")
}

func eventInput(data map[string]any) (service.EventInput, error) {
	var in service.EventInput
	var err error
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"summary", &in.Summary},
		{"description", &in.Description},
		{"location", &in.Location},
		{"start", &in.Start},
		{"end", &in.End},
		{"timezone", &in.TimeZone},
	} {
		if *f.dst, err = args.String(data, f.key, ""); err != nil {
			return in, err
		}
	}
	for _, key := range []string{"start", "end"} {
		v, _ := args.String(data, key, "")
		if v != "" && !validEventTime(v) {
			return in, result.InvalidArgument("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date, got %q", key, v).
				With("argument", key)
		}
	}
	if in.Attendees, err = args.StringList(data, "attendees"); err != nil {
		return in, err
	}
	return in, nil
}

func validEventTime(s string) bool {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// timeWindow reads time_min and time_max. When optional, a missing bound
// defaults to now and now plus a week.
func timeWindow(data map[string]any, required bool) (string, string, error) {
	get := args.String
	if required {
		get = func(m map[string]any, key, _ string) (string, error) { return args.RequireString(m, key) }
	}
	now := time.Now().UTC()
	timeMin, err := get(data, "time_min", now.Format(time.RFC3339))
	if err != nil {
		return "", "", err
	}
	timeMax, err := get(data, "time_max", now.Add(defaultEventWindow).Format(time.RFC3339))
	if err != nil {
		return "", "", err
	}

	lo, err := time.Parse(time.RFC3339, timeMin)
	if err != nil {
		return "", "", result.InvalidArgument("time_min must be an RFC 3339 timestamp").With("argument", "time_min")
	}
	hi, err := time.Parse(time.RFC3339, timeMax)
	if err != nil {
		return "", "", result.InvalidArgument("time_max must be an RFC 3339 timestamp").With("argument", "time_max")
	}
	if !hi.After(lo) {
		return "", "", result.InvalidArgument("time_max must be after time_min").With("argument", "time_max")
	}
	return timeMin, timeMax, nil
}
