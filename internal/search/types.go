// Package search implements pluggable web-search backends for the
// "web-search" builtin tool (SPEC_FULL.md §B domain stack, §6
// representative tool set). Grounded on the teacher's
// internal/provider/search package: a Provider interface with an
// always-available no-key default (Exa) and API-key-gated
// alternatives (Brave, Serper), selected by name or by availability.
package search

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ProviderName identifies a search backend.
type ProviderName string

const (
	ProviderExa    ProviderName = "exa"
	ProviderSerper ProviderName = "serper"
	ProviderBrave  ProviderName = "brave"
)

// Result is a single search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Options configures one Search call.
type Options struct {
	NumResults     int
	AllowedDomains []string
	BlockedDomains []string
	Timeout        time.Duration
}

// DefaultOptions returns the baseline tuning most callers want.
func DefaultOptions() Options {
	return Options{NumResults: 10, Timeout: 30 * time.Second}
}

// Provider is one web-search backend.
type Provider interface {
	Name() ProviderName
	DisplayName() string
	RequiresAPIKey() bool
	IsAvailable() bool
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

func truncateSnippet(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}

func timeoutOrDefault(opts Options) time.Duration {
	if opts.Timeout <= 0 {
		return 30 * time.Second
	}
	return opts.Timeout
}

// matchesDomainFilter applies allow/block domain lists client-side,
// since not every backend supports them natively.
func matchesDomainFilter(urlStr string, allowedDomains, blockedDomains []string) bool {
	if len(allowedDomains) == 0 && len(blockedDomains) == 0 {
		return true
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return true
	}
	host := strings.ToLower(parsed.Host)

	for _, blocked := range blockedDomains {
		blocked = strings.ToLower(blocked)
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return false
		}
	}
	if len(allowedDomains) > 0 {
		for _, allowed := range allowedDomains {
			allowed = strings.ToLower(allowed)
			if host == allowed || strings.HasSuffix(host, "."+allowed) {
				return true
			}
		}
		return false
	}
	return true
}

// CreateProvider builds a provider by name, defaulting to Exa for an
// unrecognized or empty name. The result is wrapped with a per-backend
// rate limiter so repeated tool calls against the same external search
// API stay under its request budget.
func CreateProvider(name ProviderName) Provider {
	switch name {
	case ProviderSerper:
		return rateLimited(NewSerperProvider())
	case ProviderBrave:
		return rateLimited(NewBraveProvider())
	default:
		return rateLimited(NewExaProvider())
	}
}

// DefaultProvider is the Exa backend, the only one that needs no API
// key, so it is always usable out of the box.
func DefaultProvider() Provider { return rateLimited(NewExaProvider()) }

// providerRateLimits caps sustained request rate per backend: generous
// enough not to throttle normal tool use, tight enough to avoid
// tripping a free-tier quota when an agent loops searches back to
// back. Each backend keeps its own bucket, shared across every
// provider instance for that name since CreateProvider is called
// fresh on every tool invocation.
var providerRateLimits = map[ProviderName]rate.Limit{
	ProviderExa:    rate.Every(time.Second),
	ProviderBrave:  rate.Every(time.Second),
	ProviderSerper: rate.Every(time.Second),
}

var (
	limiterMu sync.Mutex
	limiters  = map[ProviderName]*rate.Limiter{}
)

func limiterFor(name ProviderName) *rate.Limiter {
	limiterMu.Lock()
	defer limiterMu.Unlock()
	if l, ok := limiters[name]; ok {
		return l
	}
	limit, ok := providerRateLimits[name]
	if !ok {
		limit = rate.Every(time.Second)
	}
	l := rate.NewLimiter(limit, 3)
	limiters[name] = l
	return l
}

// rateLimitedProvider gates Search behind a token-bucket limiter
// before delegating, so a Tool Orchestrator fan-out of several
// concurrent web-search calls can't burst past the backend's own rate
// limit.
type rateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

func rateLimited(p Provider) Provider {
	return &rateLimitedProvider{Provider: p, limiter: limiterFor(p.Name())}
}

func (p *rateLimitedProvider) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.Search(ctx, query, opts)
}
