package tools

import (
	"context"

	"github.com/toolrelay/toolrelay/internal/args"
	"github.com/toolrelay/toolrelay/internal/config"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/service"
)

var docsProviders = providers[DocStore]{
	order: []string{"notion", "google_drive", "elasticsearch"},
	keys: map[string][]string{
		"notion":        {config.EnvNotionKey},
		"google_drive":  {config.EnvGoogleDriveCreds},
		"elasticsearch": {config.EnvElasticsearchEnabled},
	},
}

var docsActions = []string{"create", "read", "update", "search", "list"}

// DocsTool manages documents in Notion, Google Drive or an Elasticsearch
// knowledge-base index.
func DocsTool(stores map[string]DocStore) Tool {
	p := docsProviders
	p.impl = stores

	return Tool{
		Name:        "docs_operation",
		Description: "Create, read, update, search and list documents in Notion, Google Drive or the Elasticsearch knowledge base.",
		InputSchema: object([]string{"provider", "action", "data"}, props{
			"provider": enumProp("Document store", "", p.order...),
			"action":   enumProp("Action to perform", "", docsActions...),
			"data": objectProp("Action data. create takes title, content, parent_id; read takes id; " +
				"update takes id, title, content; search takes query and limit; list takes limit"),
		}),
		Execute: func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if err := p.gate(); err != nil {
				return nil, err
			}
			provider, err := args.RequireOneOf(input, "provider", p.order...)
			if err != nil {
				return nil, err
			}
			action, err := args.RequireOneOf(input, "action", docsActions...)
			if err != nil {
				return nil, err
			}
			store, err := p.get(provider)
			if err != nil {
				return nil, err
			}
			data, err := args.RequireMap(input, "data")
			if err != nil {
				return nil, err
			}

			out, err := runDocs(ctx, store, action, data)
			if err != nil {
				return nil, err
			}
			out["provider"] = provider
			out["action"] = action
			return out, nil
		},
	}
}

func runDocs(ctx context.Context, store DocStore, action string, data map[string]any) (map[string]any, error) {
	switch action {
	case "create":
		title, err := args.RequireString(data, "title")
		if err != nil {
			return nil, err
		}
		content, err := args.String(data, "content", "")
		if err != nil {
			return nil, err
		}
		parent, err := args.String(data, "parent_id", "")
		if err != nil {
			return nil, err
		}
		doc, err := store.Create(ctx, service.DocumentInput{Title: title, Content: content, Parent: parent})
		if err != nil {
			return nil, err
		}
		return map[string]any{"document": doc}, nil

	case "read":
		id, err := args.RequireString(data, "id")
		if err != nil {
			return nil, err
		}
		doc, err := store.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"document": doc}, nil

	case "update":
		id, err := args.RequireString(data, "id")
		if err != nil {
			return nil, err
		}
		title, err := args.String(data, "title", "")
		if err != nil {
			return nil, err
		}
		content, err := args.String(data, "content", "")
		if err != nil {
			return nil, err
		}
		if title == "" && content == "" {
			return nil, result.InvalidArgument("title or content is required").With("argument", "title, content")
		}
		doc, err := store.Update(ctx, id, service.DocumentInput{Title: title, Content: content})
		if err != nil {
			return nil, err
		}
		return map[string]any{"document": doc}, nil

	case "search", "list":
		limit, err := args.IntInRange(data, "limit", 10, 1, 100)
		if err != nil {
			return nil, err
		}
		var docs []service.Document
		if action == "search" {
			query, err := args.RequireString(data, "query")
			if err != nil {
				return nil, err
			}
			docs, err = store.Search(ctx, query, limit)
			if err != nil {
				return nil, err
			}
		} else {
			docs, err = store.List(ctx, limit)
			if err != nil {
				return nil, err
			}
		}
		return map[string]any{"documents": nonNil(docs), "count": len(docs)}, nil
	}
	return nil, result.InvalidArgument("unsupported action %q", action).With("argument", "action")
}
