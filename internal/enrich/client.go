// Package enrich fetches short external context summaries for an incident
// query. Enrichment is best effort: failures degrade to a fixed placeholder
// and never fail the overall analysis.
package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opsvista/incident-analyzer/internal/cache"
	"github.com/opsvista/incident-analyzer/internal/utils"
)

// Unavailable is the placeholder used when external context cannot be fetched.
const Unavailable = "External context unavailable."

// Summary is one search result snippet.
type Summary struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher abstracts the search provider.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Summary, error)
}

// HTTPClient queries a search API over HTTP, caching responses by query.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
}

// NewHTTPClient constructs an enrichment client. cacheProvider may be nil.
func NewHTTPClient(endpoint, apiKey string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *HTTPClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
	}
}

// Search returns up to limit summaries for the query.
func (c *HTTPClient) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("enrichment endpoint not configured")
	}
	if limit <= 0 {
		limit = 3
	}

	key := cacheKey(query, limit)
	if data, err := c.cache.Get(ctx, key); err == nil {
		var cached []Summary
		if json.Unmarshal(data, &cached) == nil {
			return cached, nil
		}
	}

	endpoint := c.endpoint + "/search?q=" + url.QueryEscape(query) + "&limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError(utils.OpEnrichSearch, "transport failure", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError(utils.OpEnrichSearch, "unexpected status "+resp.Status, nil)
	}

	var payload struct {
		Results []Summary `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode enrichment response: %w", err)
	}

	results := payload.Results
	if len(results) > limit {
		results = results[:limit]
	}

	if data, err := json.Marshal(results); err == nil {
		_ = c.cache.Set(ctx, key, data, c.cacheTTL)
	}

	return results, nil
}

// FormatContext renders summaries into the prompt-ready enrichment text.
func FormatContext(summaries []Summary) string {
	if len(summaries) == 0 {
		return Unavailable
	}
	var b strings.Builder
	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(s.Title))
		if snippet := strings.TrimSpace(s.Snippet); snippet != "" {
			b.WriteString(": ")
			b.WriteString(snippet)
		}
		if s.URL != "" {
			b.WriteString(" (")
			b.WriteString(s.URL)
			b.WriteString(")")
		}
	}
	return b.String()
}

func cacheKey(query string, limit int) string {
	sum := sha256.Sum256([]byte(query))
	return "enrich:" + hex.EncodeToString(sum[:8]) + ":" + strconv.Itoa(limit)
}
