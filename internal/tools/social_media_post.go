package tools

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

// maxLinkedInLength is the commentary limit of a LinkedIn share.
const maxLinkedInLength = 3000

var socialProviders = providers[Poster]{
	order: []string{"linkedin", "twitter"},
	keys: map[string][]string{
		"linkedin": {config.EnvLinkedInAccessToken, config.EnvLinkedInAuthorURN},
		"twitter":  {config.EnvTwitterBearerToken},
	},
}

// SocialPostTool publishes to LinkedIn or X, now or at a scheduled time.
func SocialPostTool(posters map[string]Poster, sched *Scheduler, now func() time.Time) Tool {
	p := socialProviders
	p.impl = posters
	if sched == nil {
		sched = NewScheduler(0)
	}

	return Tool{
		Name:        "social_media_post",
		Description: "Publish a post to LinkedIn or X (Twitter), immediately or at a future time. dry_run previews without posting.",
		InputSchema: object([]string{"platform", "content"}, props{
			"platform":      enumProp("Social platform", "", p.order...),
			"content":       stringProp("Post text"),
			"media_urls":    stringListProp("Links to attach"),
			"schedule_time": {Type: "string", Format: "date-time", Description: "RFC 3339 time to publish at; must be in the future"},
			"dry_run":       boolProp("Validate and preview without posting", false),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if err := p.gate(); err != nil {
				return nil, err
			}
			platform, err := args.RequireOneOf(input, "platform", p.order...)
			if err != nil {
				return nil, err
			}
			poster, err := p.get(platform)
			if err != nil {
				return nil, err
			}

			content, err := args.RequireString(input, "content")
			if err != nil {
				return nil, err
			}
			media, err := args.StringList(input, "media_urls")
			if err != nil {
				return nil, err
			}
			for _, m := range media {
				if u, err := url.Parse(m); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return nil, result.InvalidArgument("media_urls entry %q is not an http(s) URL", m).With("argument", "media_urls")
				}
			}
			length, limit := postLength(platform, content, media)
			if length > limit {
				return nil, result.InvalidArgument("content is %d characters, %s allows %d", length, platform, limit).
					With("argument", "content")
			}
			scheduleAt, err := args.String(input, "schedule_time", "")
			if err != nil {
				return nil, err
			}
			var at time.Time
			if scheduleAt != "" {
				if at, err = time.Parse(time.RFC3339, scheduleAt); err != nil {
					return nil, result.InvalidArgument("schedule_time must be an RFC 3339 timestamp").With("argument", "schedule_time")
				}
				if !at.After(now()) {
					return nil, result.InvalidArgument("schedule_time %s is in the past", scheduleAt).With("argument", "schedule_time")
				}
			}
			dryRun, err := args.Bool(input, "dry_run", false)
			if err != nil {
				return nil, err
			}

			out := map[string]any{"platform": platform, "length": length}
			if dryRun {
				out["dry_run"] = true
				out["preview"] = map[string]any{"content": content, "media_urls": nonNil(media)}
				if !at.IsZero() {
					out["scheduled_for"] = at.UTC().Format(time.RFC3339)
				}
				return out, nil
			}

			publish := func(ctx context.Context) (*service.PostReceipt, error) {
				return poster.Post(ctx, content, media)
			}
			if !at.IsZero() {
				sp, err := sched.Schedule(ScheduledPost{Platform: platform, Content: content, MediaURLs: media, At: at}, publish)
				if err != nil {
					return nil, err
				}
				out["scheduled"] = true
				out["schedule_id"] = sp.ID
				out["scheduled_for"] = at.UTC().Format(time.RFC3339)
				return out, nil
			}

			rc, err := publish(ctx)
			if err != nil {
				return nil, err
			}
			out["post_id"] = rc.ID
			if rc.URL != "" {
				out["url"] = rc.URL
			}
			return out, nil
		},
	}
}

// postLength returns the weighted length of the post and the platform limit.
func postLength(platform, content string, media []string) (int, int) {
	if platform == "twitter" {
		text := strings.Join(append([]string{content}, media...), " ")
		return service.TweetLength(text), service.MaxTweetLength
	}
	return utf8.RuneCountInString(content), maxLinkedInLength
}
