package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sensiboost/config"
	"sensiboost/logging"
	"sensiboost/models"
)

// Searcher returns up to limit snippets for query. Implementations never
// fail: an unconfigured provider or a failed call yields an empty result.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) []models.Snippet
}

type DisabledSearch struct{}

func (DisabledSearch) Search(context.Context, string, int) []models.Snippet { return nil }

// cseMaxResults is the per-request ceiling of the Custom Search JSON API.
const cseMaxResults = 10

// GoogleSearch queries the Google Custom Search JSON API.
type GoogleSearch struct {
	apiKey   string
	engineID string
	baseURL  string
	timeout  time.Duration
	client   *http.Client
	log      *zap.Logger
}

func NewGoogleSearch(cfg config.Search, client *http.Client, log *zap.Logger) *GoogleSearch {
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &GoogleSearch{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		baseURL:  cfg.BaseURL,
		timeout:  timeout,
		client:   client,
		log:      logging.OrNop(log),
	}
}

// NewSearcher picks the Google implementation when credentials are present.
func NewSearcher(cfg *config.Config, log *zap.Logger) Searcher {
	if !cfg.SearchEnabled() {
		logging.OrNop(log).Info("search.disabled")
		return DisabledSearch{}
	}
	return NewGoogleSearch(cfg.Search, nil, log)
}

type cseResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		HTMLSnippet string `json:"htmlSnippet"`
	} `json:"items"`
}

func (g *GoogleSearch) Search(ctx context.Context, query string, limit int) []models.Snippet {
	if limit <= 0 || query == "" {
		return nil
	}
	if limit > cseMaxResults {
		limit = cseMaxResults
	}

	items, err := g.fetch(ctx, query, limit)
	if err != nil {
		g.log.Warn("search.failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	g.log.Debug("search.ok", zap.String("query", query), zap.Int("hits", len(items)))
	return items
}

func (g *GoogleSearch) fetch(ctx context.Context, query string, limit int) ([]models.Snippet, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search status %d: %s", resp.StatusCode, body)
	}

	var decoded cseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]models.Snippet, 0, len(decoded.Items))
	for _, it := range decoded.Items {
		desc := it.Snippet
		if desc == "" {
			desc = it.HTMLSnippet
		}
		out = append(out, models.Snippet{Title: it.Title, Link: it.Link, Description: desc})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
