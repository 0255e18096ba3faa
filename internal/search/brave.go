package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

const (
	braveEndpoint = "https://api.search.brave.com/res/v1/web/search"
	braveEnvKey   = "BRAVE_API_KEY"
)

// BraveProvider implements the Brave Search API.
type BraveProvider struct{ apiKey string }

func NewBraveProvider() *BraveProvider {
	return &BraveProvider{apiKey: os.Getenv(braveEnvKey)}
}

func (p *BraveProvider) Name() ProviderName   { return ProviderBrave }
func (p *BraveProvider) DisplayName() string  { return "Brave Search" }
func (p *BraveProvider) RequiresAPIKey() bool { return true }
func (p *BraveProvider) IsAvailable() bool    { return p.apiKey != "" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (p *BraveProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("%s is not set", braveEnvKey)
	}
	numResults := opts.NumResults
	if numResults <= 0 {
		numResults = 10
	}

	u, err := url.Parse(braveEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", numResults))
	u.RawQuery = q.Encode()

	client := &http.Client{Timeout: timeoutOrDefault(opts)}
	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed braveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	out := make([]Result, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		if !matchesDomainFilter(r.URL, opts.AllowedDomains, opts.BlockedDomains) {
			continue
		}
		out = append(out, Result{Title: r.Title, URL: r.URL, Snippet: truncateSnippet(r.Description, 200)})
	}
	return out, nil
}
