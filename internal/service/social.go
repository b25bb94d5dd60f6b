package service

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTweetLength is the weighted length limit of a single post on X.
const MaxTweetLength = 280

// tcoLength is the fixed weight of any URL after t.co shortening.
const tcoLength = 23

var urlPattern = regexp.MustCompile(`https?://\S+`)

// TweetLength counts text the way X does for the limit: every URL weighs
// the same as a shortened t.co link.
func TweetLength(text string) int {
	n := utf8.RuneCountInString(text)
	for _, u := range urlPattern.FindAllString(text, -1) {
		n += tcoLength - utf8.RuneCountInString(u)
	}
	return n
}

// PostReceipt identifies a published post.
type PostReceipt struct {
	ID       string `json:"post_id"`
	URL      string `json:"url,omitempty"`
	Platform string `json:"platform"`
}

// ─── LinkedIn ─────────────────────────────────────────────────────────────────

type LinkedIn struct {
	rest   *restClient
	author string
}

// NewLinkedIn posts as author, a person or organization URN.
func NewLinkedIn(token, author string, opts ...Option) *LinkedIn {
	h := bearer(token)
	h.Set("X-Restli-Protocol-Version", "2.0.0")
	o := buildOptions("https://api.linkedin.com/v2", opts)
	return &LinkedIn{rest: newRESTClient("linkedin", o, h), author: author}
}

func (l *LinkedIn) Post(ctx context.Context, content string, mediaURLs []string) (*PostReceipt, error) {
	share := map[string]any{
		"shareCommentary":    map[string]any{"text": content},
		"shareMediaCategory": "NONE",
	}
	if len(mediaURLs) > 0 {
		media := make([]any, 0, len(mediaURLs))
		for _, u := range mediaURLs {
			media = append(media, map[string]any{"status": "READY", "originalUrl": u})
		}
		share["shareMediaCategory"] = "ARTICLE"
		share["media"] = media
	}
	body := map[string]any{
		"author":          l.author,
		"lifecycleState":  "PUBLISHED",
		"specificContent": map[string]any{"com.linkedin.ugc.ShareContent": share},
		"visibility":      map[string]any{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var resp struct {
		ID string `json:"id"`
	}
	hdr, err := l.rest.do(ctx, http.MethodPost, "/ugcPosts", nil, body, &resp)
	if err != nil {
		return nil, err
	}
	id := hdr.Get("X-RestLi-Id")
	if id == "" {
		id = resp.ID
	}
	return &PostReceipt{ID: id, URL: "https://www.linkedin.com/feed/update/" + id, Platform: "linkedin"}, nil
}

// ─── X / Twitter ──────────────────────────────────────────────────────────────

type Twitter struct {
	rest *restClient
}

// NewTwitter needs a user-context OAuth 2.0 token; app-only tokens cannot post.
func NewTwitter(token string, opts ...Option) *Twitter {
	o := buildOptions("https://api.twitter.com", opts)
	return &Twitter{rest: newRESTClient("twitter", o, bearer(token))}
}

// Post publishes text. Media URLs are appended as links since media upload
// is a separate v1.1 flow.
func (t *Twitter) Post(ctx context.Context, content string, mediaURLs []string) (*PostReceipt, error) {
	text := strings.TrimSpace(strings.Join(append([]string{content}, mediaURLs...), " "))
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if _, err := t.rest.do(ctx, http.MethodPost, "/2/tweets", nil, map[string]any{"text": text}, &resp); err != nil {
		return nil, err
	}
	return &PostReceipt{
		ID:       resp.Data.ID,
		URL:      "https://x.com/i/web/status/" + resp.Data.ID,
		Platform: "twitter",
	}, nil
}
