// Package search resolves "the likely official web presence of organization
// X" across an ordered list of external search backends, tracking quota
// exhaustion per provider and degrading to a knowledge-base lookup and
// finally deterministic domain guessing.
package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// Provider is one configured search backend. QuotaExhausted flips true at
// most once per run; ResetQuota exists for long-lived processes.
type Provider struct {
	Name           string
	Key            string
	Priority       int // lower = tried first
	Enabled        bool
	QuotaExhausted bool
	// QuotaSignals are provider-specific error substrings that mean the
	// free tier is spent, on top of the generic indicators every provider
	// shares.
	QuotaSignals []string
	// Endpoint is the API base URL, a field so tests can point a provider
	// at a local server.
	Endpoint string

	search func(c *whttp.Client, p *Provider, query string) (string, error)
}

// Search runs one query through this provider and returns a plausible
// foundation URL or "".
func (p *Provider) Search(c *whttp.Client, query string) (string, error) {
	if p.search == nil {
		return "", nil
	}
	return p.search(c, p, query)
}

// QuotaError marks an error as a quota/permission exhaustion signal for the
// provider that produced it.
type QuotaError struct {
	Provider string
	Msg      string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exhausted: %s", e.Provider, e.Msg)
}

// Pool tries providers in ascending priority order. All mutable state
// (the quota flags) is scoped to the Pool value, one Pool per run.
type Pool struct {
	client    *whttp.Client
	providers []*Provider
}

// NewPool sorts the given providers by priority. Disabled providers are kept
// but never tried.
func NewPool(client *whttp.Client, providers ...*Provider) *Pool {
	sorted := append([]*Provider(nil), providers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &Pool{client: client, providers: sorted}
}

// FromKeys builds a pool from whatever API keys are configured. Providers
// without a key are absent; the Wikipedia knowledge-base provider is always
// present since it needs no key.
func FromKeys(client *whttp.Client, keys map[string]string) *Pool {
	var provs []*Provider
	builders := map[string]func(string) *Provider{
		"scaleserp": NewScaleSerp,
		"valueserp": NewValueSerp,
		"zenserp":   NewZenserp,
		"serpapi":   NewSerpAPI,
		"searchapi": NewSearchAPI,
		"rapidapi":  NewRapidAPIGoogle,
		"bing":      NewBing,
	}
	for name, build := range builders {
		if k := strings.TrimSpace(keys[name]); k != "" {
			provs = append(provs, build(k))
		}
	}
	provs = append(provs, NewWikipedia())
	pool := NewPool(client, provs...)
	utils.Log.Infof("search pool: %d providers configured", len(pool.Eligible()))
	return pool
}

// Eligible returns enabled, non-exhausted providers in priority order.
func (pl *Pool) Eligible() []*Provider {
	var out []*Provider
	for _, p := range pl.providers {
		if p.Enabled && !p.QuotaExhausted {
			out = append(out, p)
		}
	}
	return out
}

// ResetQuota clears every provider's exhaustion flag, e.g. on a monthly
// boundary in a long-lived host.
func (pl *Pool) ResetQuota() {
	for _, p := range pl.providers {
		p.QuotaExhausted = false
	}
}

// FoundationWebsite resolves an organization's likely official site. It
// never blocks indefinitely: attempts are bounded by queries × eligible
// providers plus a fixed number of domain guesses, and it always returns a
// guessed domain as a last resort.
func (pl *Pool) FoundationWebsite(name string) string {
	queries := []string{
		fmt.Sprintf("%q foundation website", name),
		name + " foundation official site",
		name + " foundation .org",
	}

	for _, query := range queries {
		for _, p := range pl.Eligible() {
			utils.Log.Debugf("trying %s for: %s", p.Name, query)
			url, err := p.Search(pl.client, query)
			if err != nil {
				if pl.classifyQuota(p, err) {
					pl.markExhausted(p, err)
				} else {
					utils.Log.Warnf("%s search failed: %v", p.Name, err)
				}
				continue
			}
			if url != "" {
				utils.Log.Infof("found URL using %s: %s", p.Name, url)
				return url
			}
		}
	}

	utils.Log.Info("all providers came up empty, falling back to domain guessing")
	return pl.GuessDomain(name)
}

// genericQuotaIndicators match regardless of provider.
var genericQuotaIndicators = []string{
	"quota", "limit", "exceeded", "exhausted", "credits", "balance",
	"rate limit", "too many requests", "http 429", "http 403", "http 402",
}

// classifyQuota decides whether an error means the provider is spent for
// the rest of the run, as opposed to a one-off failure.
func (pl *Pool) classifyQuota(p *Provider, err error) bool {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range p.QuotaSignals {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	for _, ind := range genericQuotaIndicators {
		if strings.Contains(msg, ind) {
			return true
		}
	}
	return false
}

func (pl *Pool) markExhausted(p *Provider, err error) {
	p.QuotaExhausted = true
	utils.Log.Warnf("%s quota exhausted, switching to next provider: %v", p.Name, err)
}

// foundationIndicators make a URL look like it belongs to a foundation.
var foundationIndicators = []string{
	".org", "foundation", "fund", "charity", "nonprofit", "philanthrop",
}

// LooksLikeFoundation is the plausibility filter applied to every candidate
// URL a provider returns.
func LooksLikeFoundation(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(url)
	for _, ind := range foundationIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}
