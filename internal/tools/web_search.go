package tools

import (
	"context"
	"time"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/service"
)

var (
	serpKeys   = []string{config.EnvSerpAPIKey}
	googleKeys = []string{config.EnvGoogleSearchKey, config.EnvGoogleSearchCX}
)

// WebSearchTool searches the web through SerpAPI, falling back to Google
// Custom Search when SerpAPI is unavailable or rejects its key.
func WebSearchTool(serp, google Searcher, now func() time.Time) Tool {
	return Tool{
		Name:        "web_search",
		Description: "Search the web for current information. Returns titles, links and snippets for the top results.",
		InputSchema: object([]string{"query"}, props{
			"query":       stringProp("Search query"),
			"num_results": intProp("Number of results to return", 10, 1, 100),
			"search_type": enumProp("Kind of results", "web", "web", "news", "images"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			chain := Chain[*service.SearchResults]{
				Label:   "search",
				Advance: AdvanceOnAuthOrException,
				Candidates: []Candidate[*service.SearchResults]{
					{Name: "serpapi", ConfigKeys: serpKeys, Configured: serp != nil},
					{Name: "google_custom_search", ConfigKeys: googleKeys, Configured: google != nil},
				},
			}
			if !chain.AnyConfigured() {
				return nil, chain.NotConfigured()
			}

			query, err := args.RequireString(input, "query")
			if err != nil {
				return nil, err
			}
			num, err := args.IntInRange(input, "num_results", 10, 1, 100)
			if err != nil {
				return nil, err
			}
			searchType, err := args.OneOf(input, "search_type", "web", "web", "news", "images")
			if err != nil {
				return nil, err
			}

			q := service.SearchQuery{Query: query, Num: num, Type: searchType}
			chain.Candidates[0].Run = func(ctx context.Context) (*service.SearchResults, error) { return serp.Search(ctx, q) }
			chain.Candidates[1].Run = func(ctx context.Context) (*service.SearchResults, error) { return google.Search(ctx, q) }

			res, _, err := chain.Run(ctx)
			if err != nil {
				return nil, err
			}

			items := res.Items
			if items == nil {
				items = []service.SearchItem{}
			}
			return map[string]any{
				"query":   query,
				"results": items,
				"metadata": map[string]any{
					"total_results": res.TotalResults,
					"search_type":   searchType,
					"provider":      res.Provider,
					"timestamp":     now().UTC().Format(time.RFC3339),
				},
			}, nil
		},
	}
}
