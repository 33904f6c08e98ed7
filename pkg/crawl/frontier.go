// Package crawl implements a bounded breadth-first frontier over an
// allow-listed set of domains. Each run is self-contained: the queue and the
// visited set live and die with one Crawl call.
package crawl

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// Config bounds and scopes one crawl.
type Config struct {
	// AllowedDomains are domain suffixes the crawler may fetch from. Links
	// outside them are dropped silently.
	AllowedDomains []string
	// MaxPages caps how many HTML pages get fetched and parsed.
	MaxPages int
	// DetailPatterns, DocExts and DocTokens feed the link classifier.
	DetailPatterns []string
	DocExts        []string
	DocTokens      []string
}

// Discovered is the deduplicated union of interesting URLs found during a
// crawl, in discovery order.
type Discovered struct {
	Documents   []string
	DetailPages []string
}

// Frontier walks allow-listed pages breadth-first from a seed list.
type Frontier struct {
	client     *whttp.Client
	cfg        Config
	classifier *Classifier
}

func New(client *whttp.Client, cfg Config) *Frontier {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 400
	}
	if len(cfg.DocExts) == 0 {
		cfg.DocExts = []string{".pdf", ".doc", ".docx"}
	}
	return &Frontier{
		client:     client,
		cfg:        cfg,
		classifier: NewClassifier(cfg.DetailPatterns, cfg.DocExts, cfg.DocTokens),
	}
}

// Allowed reports whether the URL's host ends with one of the configured
// domain suffixes. A leading www. never counts against a link.
func (f *Frontier) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, d := range f.cfg.AllowedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Crawl runs breadth-first from seeds until the queue drains or MaxPages
// HTML pages have been processed. Fetch failures skip the URL; they never
// abort the run.
func (f *Frontier) Crawl(ctx context.Context, seeds []string) Discovered {
	var out Discovered
	queue := append([]string(nil), seeds...)
	seen := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seen[s] = true
	}

	pages := 0
	for len(queue) > 0 && pages < f.cfg.MaxPages {
		if ctx.Err() != nil {
			utils.Log.Warn("crawl cancelled, returning partial discovery")
			break
		}

		u := queue[0]
		queue = queue[1:]
		if !f.Allowed(u) {
			continue
		}

		res, err := f.client.Get(u)
		if err != nil {
			utils.Log.Debug("unreachable, skipping: ", u)
			continue
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			utils.Log.Debugf("HTTP %d, skipping: %s", res.StatusCode, u)
			continue
		}

		if !strings.Contains(res.ContentType, "text/html") {
			if f.classifier.Classify(u) == KindDocument {
				out.Documents = append(out.Documents, u)
			}
			continue
		}

		pages++
		utils.Log.Infof("crawling page %d/%d: %s", pages, f.cfg.MaxPages, u)

		for _, link := range absoluteLinks(u, res.Body) {
			if !f.Allowed(link) || seen[link] {
				continue
			}
			seen[link] = true

			switch f.classifier.Classify(link) {
			case KindDetailPage:
				out.DetailPages = append(out.DetailPages, link)
			case KindDocument:
				out.Documents = append(out.Documents, link)
			default:
				queue = append(queue, link)
			}
		}
	}

	utils.Log.Infof("crawl done: %d documents, %d detail pages", len(out.Documents), len(out.DetailPages))
	return out
}

// absoluteLinks resolves every anchor href on the page against its base URL.
// Fragments are stripped so the same page never queues twice.
func absoluteLinks(baseURL, body string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme == "http" || abs.Scheme == "https" {
			links = append(links, abs.String())
		}
	})
	return links
}

// RootDomain extracts the registrable domain of a URL, used to derive a
// default allow-list from seed URLs when the caller doesn't supply one.
func RootDomain(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	domain, err := publicsuffix.Domain(u.Hostname())
	if err != nil {
		return "", false
	}
	return domain, true
}
