package search

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/fundingbot/grantscope/pkg/whttp"
)

// serpRequest describes the common shape of a SERP API call: query
// parameters, extra headers, where errors live in the response and where the
// organic result links live.
type serpRequest struct {
	params    url.Values
	headers   map[string]string
	errPath   string
	linksPath string
}

// quotaStatuses are HTTP statuses every SERP vendor uses for spent credits
// or revoked access.
func isQuotaStatus(code int) bool {
	return code == 402 || code == 403 || code == 429
}

// serpSearch performs the request and returns the first link that passes the
// foundation-likelihood filter.
func serpSearch(c *whttp.Client, p *Provider, req serpRequest) (string, error) {
	full := p.Endpoint
	if len(req.params) > 0 {
		full += "?" + req.params.Encode()
	}
	res, err := c.GetWithHeaders(full, req.headers)
	if err != nil {
		return "", err
	}

	if isQuotaStatus(res.StatusCode) {
		return "", &QuotaError{Provider: p.Name, Msg: "HTTP " + strconv.Itoa(res.StatusCode)}
	}
	if res.StatusCode != 200 {
		return "", fmt.Errorf("%s: HTTP %d", p.Name, res.StatusCode)
	}

	if req.errPath != "" {
		if msg := gjson.Get(res.Body, req.errPath); msg.Exists() && msg.String() != "" {
			return "", fmt.Errorf("%s: %s", p.Name, msg.String())
		}
	}

	for _, link := range gjson.Get(res.Body, req.linksPath).Array() {
		if LooksLikeFoundation(link.String()) {
			return link.String(), nil
		}
	}
	return "", nil
}

// NewScaleSerp has the most generous free tier, hence top priority.
func NewScaleSerp(key string) *Provider {
	p := &Provider{
		Name:         "scaleserp",
		Key:          key,
		Priority:     1,
		Enabled:      true,
		QuotaSignals: []string{"quota_exceeded", "insufficient_balance"},
		Endpoint:     "https://api.scaleserp.com/search",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		return serpSearch(c, p, serpRequest{
			params: url.Values{
				"q": {query}, "api_key": {p.Key},
				"search_type": {"web"}, "num": {"5"},
			},
			errPath:   "error",
			linksPath: "organic_results.#.link",
		})
	}
	return p
}

func NewValueSerp(key string) *Provider {
	p := &Provider{
		Name:         "valueserp",
		Key:          key,
		Priority:     2,
		Enabled:      true,
		QuotaSignals: []string{"quota_exceeded", "insufficient_credits"},
		Endpoint:     "https://api.valueserp.com/search",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		return serpSearch(c, p, serpRequest{
			params: url.Values{
				"q": {query}, "api_key": {p.Key},
				"search_type": {"web"}, "num": {"5"},
			},
			errPath:   "error",
			linksPath: "organic_results.#.link",
		})
	}
	return p
}

func NewZenserp(key string) *Provider {
	p := &Provider{
		Name:         "zenserp",
		Key:          key,
		Priority:     3,
		Enabled:      true,
		QuotaSignals: []string{"quota_exceeded", "limit_reached"},
		Endpoint:     "https://zenserp.com/api/v2/search",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		return serpSearch(c, p, serpRequest{
			params: url.Values{
				"q": {query}, "apikey": {p.Key},
				"search_engine": {"google.com"}, "num": {"5"},
			},
			errPath:   "error.message",
			linksPath: "organic.#.url",
		})
	}
	return p
}

// NewSerpAPI has a tiny free tier but the best result quality.
func NewSerpAPI(key string) *Provider {
	p := &Provider{
		Name:         "serpapi",
		Key:          key,
		Priority:     4,
		Enabled:      true,
		QuotaSignals: []string{"quota_exceeded", "insufficient_credits"},
		Endpoint:     "https://serpapi.com/search",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		return serpSearch(c, p, serpRequest{
			params: url.Values{
				"q": {query}, "api_key": {p.Key},
				"engine": {"google"}, "num": {"5"},
			},
			errPath:   "error",
			linksPath: "organic_results.#.link",
		})
	}
	return p
}

func NewSearchAPI(key string) *Provider {
	p := &Provider{
		Name:         "searchapi",
		Key:          key,
		Priority:     5,
		Enabled:      true,
		QuotaSignals: []string{"quota_exceeded", "credits_exhausted"},
		Endpoint:     "https://www.searchapi.io/api/v1/search",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		return serpSearch(c, p, serpRequest{
			params: url.Values{
				"q": {query}, "api_key": {p.Key},
				"engine": {"google"}, "num": {"5"},
			},
			linksPath: "organic_results.#.link",
		})
	}
	return p
}

func NewRapidAPIGoogle(key string) *Provider {
	p := &Provider{
		Name:         "rapidapi_google",
		Key:          key,
		Priority:     6,
		Enabled:      true,
		QuotaSignals: []string{"quota_exceeded", "subscription_required"},
		Endpoint:     "https://google-search3.p.rapidapi.com/api/v1/search",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		return serpSearch(c, p, serpRequest{
			params: url.Values{"q": {query}, "num": {"5"}},
			headers: map[string]string{
				"X-RapidAPI-Key":  p.Key,
				"X-RapidAPI-Host": "google-search3.p.rapidapi.com",
			},
			linksPath: "results.#.link",
		})
	}
	return p
}

// NewBing stays at the back of the queue: Microsoft is retiring the API.
func NewBing(key string) *Provider {
	p := &Provider{
		Name:         "bing",
		Key:          key,
		Priority:     8,
		Enabled:      true,
		QuotaSignals: []string{"quota_exceeded"},
		Endpoint:     "https://api.bing.microsoft.com/v7.0/search",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		return serpSearch(c, p, serpRequest{
			params: url.Values{
				"q": {query}, "count": {"5"},
				"responseFilter": {"Webpages"},
			},
			headers:   map[string]string{"Ocp-Apim-Subscription-Key": p.Key},
			linksPath: "webPages.value.#.url",
		})
	}
	return p
}
