package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/toolrelay/toolrelay/internal/result"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// SearchQuery is a normalized web search request.
type SearchQuery struct {
	Query string
	Num   int
	Type  string // web | news | images
}

// SearchItem is one normalized hit.
type SearchItem struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Snippet   string `json:"snippet,omitempty"`
	Source    string `json:"source,omitempty"`
	Date      string `json:"date,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// SearchResults is what every search backend returns.
type SearchResults struct {
	Provider     string       `json:"provider"`
	TotalResults int64        `json:"total_results"`
	Items        []SearchItem `json:"results"`
}

// ─── SerpAPI ──────────────────────────────────────────────────────────────────

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	rest *restClient
	key  string
}

func NewSerpAPI(key string, opts ...Option) *SerpAPI {
	o := buildOptions("https://serpapi.com", opts)
	return &SerpAPI{rest: newRESTClient("serpapi", o, nil), key: key}
}

type serpResponse struct {
	Error             string `json:"error"`
	SearchInformation struct {
		TotalResults int64 `json:"total_results"`
	} `json:"search_information"`
	OrganicResults []serpItem `json:"organic_results"`
	NewsResults    []serpItem `json:"news_results"`
	ImagesResults  []serpItem `json:"images_results"`
}

type serpItem struct {
	Position  int    `json:"position"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Snippet   string `json:"snippet"`
	Source    string `json:"source"`
	Date      string `json:"date"`
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

func (s *SerpAPI) Search(ctx context.Context, q SearchQuery) (*SearchResults, error) {
	params := url.Values{
		"engine":  {"google"},
		"q":       {q.Query},
		"api_key": {s.key},
		"num":     {strconv.Itoa(q.Num)},
	}
	switch q.Type {
	case "news":
		params.Set("tbm", "nws")
	case "images":
		params.Set("tbm", "isch")
	}

	var resp serpResponse
	if _, err := s.rest.do(ctx, http.MethodGet, "/search.json", params, nil, &resp); err != nil {
		return nil, err
	}

	var raw []serpItem
	switch q.Type {
	case "news":
		raw = resp.NewsResults
	case "images":
		raw = resp.ImagesResults
	default:
		raw = resp.OrganicResults
	}

	// SerpAPI answers 200 with an error string both for real failures and
	// for searches that matched nothing.
	if resp.Error != "" && len(raw) == 0 && !strings.Contains(resp.Error, "hasn't returned any results") {
		return nil, result.ProviderFailure("serpapi", http.StatusOK, "serpapi: "+resp.Error)
	}

	out := &SearchResults{Provider: "serpapi", TotalResults: resp.SearchInformation.TotalResults, Items: []SearchItem{}}
	for i, it := range raw {
		if i >= q.Num {
			break
		}
		item := SearchItem{
			Position: it.Position,
			Title:    it.Title,
			Link:     it.Link,
			Snippet:  it.Snippet,
			Source:   it.Source,
			Date:     it.Date,
		}
		if q.Type == "images" {
			if it.Original != "" {
				item.Link = it.Original
			}
			item.Thumbnail = it.Thumbnail
		}
		if item.Position == 0 {
			item.Position = i + 1
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// ─── Google Custom Search ─────────────────────────────────────────────────────

// CustomSearch queries the Google Programmable Search JSON API.
type CustomSearch struct {
	svc *customsearch.Service
	cx  string
}

// customSearchMaxNum is the API's per-request ceiling.
const customSearchMaxNum = 10

func NewCustomSearch(ctx context.Context, key, cx string, extra ...option.ClientOption) (*CustomSearch, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(key)}, extra...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("customsearch.NewService: %w", err)
	}
	return &CustomSearch{svc: svc, cx: cx}, nil
}

func (s *CustomSearch) Search(ctx context.Context, q SearchQuery) (*SearchResults, error) {
	num := min(q.Num, customSearchMaxNum)
	call := s.svc.Cse.List().Cx(s.cx).Q(q.Query).Num(int64(num)).Context(ctx)
	switch q.Type {
	case "images":
		call = call.SearchType("image")
	case "news":
		// no news vertical in the JSON API; bias toward recent pages
		call = call.Sort("date")
	}

	res, err := call.Do()
	if err != nil {
		return nil, googleError("google_custom_search", err)
	}

	out := &SearchResults{Provider: "google_custom_search", Items: []SearchItem{}}
	if res.SearchInformation != nil {
		out.TotalResults, _ = strconv.ParseInt(res.SearchInformation.TotalResults, 10, 64)
	}
	for i, it := range res.Items {
		item := SearchItem{
			Position: i + 1,
			Title:    it.Title,
			Link:     it.Link,
			Snippet:  it.Snippet,
			Source:   it.DisplayLink,
		}
		if it.Image != nil {
			item.Thumbnail = it.Image.ThumbnailLink
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// googleError converts a googleapi error into a provider failure and passes
// anything else (transport errors) through untouched.
func googleError(provider string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return result.ProviderFailure(provider, gerr.Code, fmt.Sprintf("%s returned %d: %s", provider, gerr.Code, msg))
	}
	return fmt.Errorf("%s: %w", provider, err)
}
