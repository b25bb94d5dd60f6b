package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/toolrelay/toolrelay/internal/result"
)

// Document is a page or file in any docs provider.
type Document struct {
	ID        string   `json:"id"`
	Title     string   `json:"title,omitempty"`
	Content   string   `json:"content,omitempty"`
	URL       string   `json:"url,omitempty"`
	MimeType  string   `json:"mime_type,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}

// DocumentInput sets a document's title and body. Parent is the Notion page
// or Drive folder to create under.
type DocumentInput struct {
	Title   string
	Content string
	Parent  string
}

const (
	notionVersion    = "2022-06-28"
	notionMaxRichTxt = 2000
)

// Notion reads and writes pages through the public REST API.
type Notion struct {
	rest          *restClient
	defaultParent string
}

func NewNotion(key, defaultParent string, opts ...Option) *Notion {
	h := bearer(key)
	h.Set("Notion-Version", notionVersion)
	o := buildOptions("https://api.notion.com/v1", opts)
	return &Notion{rest: newRESTClient("notion", o, h), defaultParent: defaultParent}
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
}

type notionPage struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	LastEditedTime string `json:"last_edited_time"`
	Properties     map[string]struct {
		Type  string           `json:"type"`
		Title []notionRichText `json:"title"`
	} `json:"properties"`
}

func (p notionPage) document() Document {
	d := Document{ID: p.ID, URL: p.URL, UpdatedAt: p.LastEditedTime}
	for _, prop := range p.Properties {
		if prop.Type != "title" {
			continue
		}
		var sb strings.Builder
		for _, t := range prop.Title {
			sb.WriteString(t.PlainText)
		}
		d.Title = sb.String()
	}
	return d
}

func notionText(s string) []any {
	return []any{map[string]any{"type": "text", "text": map[string]any{"content": s}}}
}

// notionParagraphs splits content into paragraph blocks, one per line, with
// long lines chunked to the rich-text limit.
func notionParagraphs(content string) []any {
	var blocks []any
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r := []rune(line)
		for len(r) > 0 {
			n := min(len(r), notionMaxRichTxt)
			blocks = append(blocks, map[string]any{
				"object":    "block",
				"type":      "paragraph",
				"paragraph": map[string]any{"rich_text": notionText(string(r[:n]))},
			})
			r = r[n:]
		}
	}
	return blocks
}

func (n *Notion) Create(ctx context.Context, in DocumentInput) (*Document, error) {
	parent := in.Parent
	if parent == "" {
		parent = n.defaultParent
	}
	if parent == "" {
		return nil, result.InvalidArgument("parent_id is required for notion pages (or set NOTION_PARENT_PAGE_ID)").
			With("argument", "parent_id")
	}
	body := map[string]any{
		"parent": map[string]any{"page_id": parent},
		"properties": map[string]any{
			"title": map[string]any{"title": notionText(in.Title)},
		},
	}
	if blocks := notionParagraphs(in.Content); len(blocks) > 0 {
		body["children"] = blocks
	}

	var page notionPage
	if _, err := n.rest.do(ctx, http.MethodPost, "/pages", nil, body, &page); err != nil {
		return nil, err
	}
	d := page.document()
	if d.Title == "" {
		d.Title = in.Title
	}
	return &d, nil
}

func (n *Notion) Read(ctx context.Context, id string) (*Document, error) {
	var page notionPage
	if _, err := n.rest.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(id), nil, nil, &page); err != nil {
		return nil, err
	}

	var children struct {
		Results []map[string]any `json:"results"`
	}
	q := url.Values{"page_size": {"100"}}
	if _, err := n.rest.do(ctx, http.MethodGet, "/blocks/"+url.PathEscape(id)+"/children", q, nil, &children); err != nil {
		return nil, err
	}

	var lines []string
	for _, b := range children.Results {
		typ := str(b, "type")
		inner, _ := b[typ].(map[string]any)
		rt, _ := inner["rich_text"].([]any)
		var sb strings.Builder
		for _, t := range rt {
			if tm, ok := t.(map[string]any); ok {
				sb.WriteString(str(tm, "plain_text"))
			}
		}
		if sb.Len() > 0 {
			lines = append(lines, sb.String())
		}
	}

	d := page.document()
	d.Content = strings.Join(lines, "\n")
	return &d, nil
}

// Update renames the page and appends content; Notion has no "replace body".
func (n *Notion) Update(ctx context.Context, id string, in DocumentInput) (*Document, error) {
	var page notionPage
	if in.Title != "" {
		body := map[string]any{"properties": map[string]any{
			"title": map[string]any{"title": notionText(in.Title)},
		}}
		if _, err := n.rest.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(id), nil, body, &page); err != nil {
			return nil, err
		}
	}
	if blocks := notionParagraphs(in.Content); len(blocks) > 0 {
		body := map[string]any{"children": blocks}
		if _, err := n.rest.do(ctx, http.MethodPatch, "/blocks/"+url.PathEscape(id)+"/children", nil, body, nil); err != nil {
			return nil, err
		}
	}
	d := page.document()
	d.ID = id
	return &d, nil
}

func (n *Notion) search(ctx context.Context, query string, limit int) ([]Document, error) {
	body := map[string]any{
		"page_size": limit,
		"filter":    map[string]any{"property": "object", "value": "page"},
		"sort":      map[string]any{"direction": "descending", "timestamp": "last_edited_time"},
	}
	if query != "" {
		body["query"] = query
	}
	var resp struct {
		Results []notionPage `json:"results"`
	}
	if _, err := n.rest.do(ctx, http.MethodPost, "/search", nil, body, &resp); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(resp.Results))
	for _, p := range resp.Results {
		out = append(out, p.document())
	}
	return out, nil
}

func (n *Notion) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	return n.search(ctx, query, limit)
}

func (n *Notion) List(ctx context.Context, limit int) ([]Document, error) {
	return n.search(ctx, "", limit)
}
