package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/toolrelay/toolrelay/internal/result"
)

// ElasticsearchConfig holds connection settings for the knowledge-base cluster.
type ElasticsearchConfig struct {
	Scheme          string
	Host            string
	Port            int
	User            string
	Password        string
	VerifyCerts     bool
	MaxRetries      int
	Index           string
	AllowedPatterns []string
	Transport       http.RoundTripper
}

// Elasticsearch stores docs as {title, content, created_at, updated_at}
// documents in a single index.
type Elasticsearch struct {
	client          *elasticsearch.Client
	index           string
	allowedPatterns []string
}

func NewElasticsearch(cfg ElasticsearchConfig) (*Elasticsearch, error) {
	addr := fmt.Sprintf("%s://%s:%d", cfg.Scheme, cfg.Host, cfg.Port)

	esCfg := elasticsearch.Config{
		Addresses:  []string{addr},
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.Transport,
	}
	if cfg.User != "" {
		esCfg.Username = cfg.User
		esCfg.Password = cfg.Password
	}
	if !cfg.VerifyCerts && esCfg.Transport == nil {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - user explicitly disabled cert verification
			},
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	s := &Elasticsearch{client: client, index: cfg.Index, allowedPatterns: cfg.AllowedPatterns}
	if !s.IsIndexAllowed(cfg.Index) {
		return nil, fmt.Errorf("index %q is not in ES_ALLOWED_PATTERNS", cfg.Index)
	}
	return s, nil
}

// IsIndexAllowed returns true if the index matches any of the allowed patterns.
// If no patterns are configured, all indices are allowed.
func (s *Elasticsearch) IsIndexAllowed(index string) bool {
	if len(s.allowedPatterns) == 0 {
		return true
	}
	for _, pattern := range s.allowedPatterns {
		matched, err := filepath.Match(pattern, index)
		if err == nil && matched {
			return true
		}
		prefix := strings.TrimSuffix(pattern, "*")
		if prefix != pattern && strings.HasPrefix(index, prefix) {
			return true
		}
	}
	return false
}

// TestConnection pings the cluster
func (s *Elasticsearch) TestConnection(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}

type esDoc struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type esHit struct {
	ID     string   `json:"_id"`
	Score  *float64 `json:"_score"`
	Found  bool     `json:"found"`
	Source esDoc    `json:"_source"`
}

func (h esHit) document() Document {
	return Document{ID: h.ID, Title: h.Source.Title, Content: h.Source.Content, UpdatedAt: h.Source.UpdatedAt, Score: h.Score}
}

func (s *Elasticsearch) Create(ctx context.Context, in DocumentInput) (*Document, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	doc := esDoc{Title: in.Title, Content: in.Content, CreatedAt: now, UpdatedAt: now}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	id := uuid.NewString()
	res, err := s.client.Index(s.index, bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(id),
		s.client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: index: %w", err)
	}
	defer res.Body.Close()
	if err := decodeBody(res, nil); err != nil {
		return nil, err
	}
	return &Document{ID: id, Title: in.Title, Content: in.Content, UpdatedAt: now}, nil
}

func (s *Elasticsearch) Read(ctx context.Context, id string) (*Document, error) {
	res, err := s.client.Get(s.index, id, s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: get: %w", err)
	}
	defer res.Body.Close()

	var hit esHit
	if err := decodeBody(res, &hit); err != nil {
		return nil, err
	}
	d := hit.document()
	return &d, nil
}

func (s *Elasticsearch) Update(ctx context.Context, id string, in DocumentInput) (*Document, error) {
	partial := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339)}
	if in.Title != "" {
		partial["title"] = in.Title
	}
	if in.Content != "" {
		partial["content"] = in.Content
	}
	body, err := json.Marshal(map[string]any{"doc": partial})
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}

	res, err := s.client.Update(s.index, id, bytes.NewReader(body),
		s.client.Update.WithContext(ctx),
		s.client.Update.WithRefresh("wait_for"),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: update: %w", err)
	}
	defer res.Body.Close()
	if err := decodeBody(res, nil); err != nil {
		return nil, err
	}
	return s.Read(ctx, id)
}

func (s *Elasticsearch) search(ctx context.Context, query map[string]any, sort []string, limit int) ([]Document, error) {
	body := map[string]any{"size": limit, "query": query}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(bodyBytes)),
	}
	if len(sort) > 0 {
		opts = append(opts, s.client.Search.WithSort(sort...))
	}
	res, err := s.client.Search(opts...)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()

	var raw struct {
		Hits struct {
			Hits []esHit `json:"hits"`
		} `json:"hits"`
	}
	if err := decodeBody(res, &raw); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(raw.Hits.Hits))
	for _, h := range raw.Hits.Hits {
		out = append(out, h.document())
	}
	return out, nil
}

func (s *Elasticsearch) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	return s.search(ctx, map[string]any{
		"multi_match": map[string]any{
			"query":  query,
			"fields": []string{"title^2", "content"},
		},
	}, nil, limit)
}

func (s *Elasticsearch) List(ctx context.Context, limit int) ([]Document, error) {
	return s.search(ctx, map[string]any{"match_all": map[string]any{}}, []string{"updated_at:desc"}, limit)
}

// decodeBody turns an error status into a provider failure and otherwise
// decodes the body into out (when non-nil).
func decodeBody(res *esapi.Response, out any) error {
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("elasticsearch: read response: %w", err)
	}
	if res.IsError() {
		msg := errorText(raw)
		var e struct {
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error.Reason != "" {
			msg = e.Error.Type + ": " + e.Error.Reason
		}
		return result.ProviderFailure("elasticsearch", res.StatusCode,
			"elasticsearch error ["+strconv.Itoa(res.StatusCode)+"]: "+msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("elasticsearch: decode response: %w", err)
	}
	return nil
}
